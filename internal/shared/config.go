package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Browser     BrowserConfig     `toml:"browser"`
	Generation  GenerationConfig  `toml:"generation"`
	Server      ServerConfig      `toml:"server"`
	Database    DatabaseConfig    `toml:"database"`
}

// CredentialsConfig contains the Suno account cookie and optional solver-service key.
type CredentialsConfig struct {
	Cookie        string `toml:"cookie"`
	TwoCaptchaKey string `toml:"twocaptcha_key"`
}

// BrowserConfig controls the automation browser used for challenge solving.
type BrowserConfig struct {
	Engine      string `toml:"engine"` // chromium or firefox
	Headless    bool   `toml:"headless"`
	DisableGPU  bool   `toml:"disable_gpu"`
	GhostCursor bool   `toml:"ghost_cursor"`
	Locale      string `toml:"locale"`
}

// GenerationConfig contains defaults for generation requests.
type GenerationConfig struct {
	Model       string `toml:"model"`
	PollTimeout int    `toml:"poll_timeout"` // seconds
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path,
// then layers environment variable overrides on top.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyEnv()
	return &config, nil
}

// DefaultConfig returns a Config with defaults loaded from the embedded example config,
// with environment variable overrides applied.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.applyEnv()
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnv overrides configuration values from the process environment.
//
// The variable names match the ones the hosted suno-api deployment documents,
// so an existing .env carries over unchanged.
func (c *Config) applyEnv() {
	if v := os.Getenv("SUNO_COOKIE"); v != "" {
		c.Credentials.Cookie = v
	}
	if v := os.Getenv("TWOCAPTCHA_KEY"); v != "" {
		c.Credentials.TwoCaptchaKey = v
	}
	if v := os.Getenv("BROWSER"); v != "" {
		c.Browser.Engine = strings.ToLower(v)
	}
	if v, ok := envBool("BROWSER_HEADLESS"); ok {
		c.Browser.Headless = v
	}
	if v, ok := envBool("BROWSER_DISABLE_GPU"); ok {
		c.Browser.DisableGPU = v
	}
	if v, ok := envBool("BROWSER_GHOST_CURSOR"); ok {
		c.Browser.GhostCursor = v
	}
	if v := os.Getenv("BROWSER_LOCALE"); v != "" {
		c.Browser.Locale = v
	}
}

// envBool reads a yes/no style environment variable.
//
// Accepts true/false, 1/0, yes/no, on/off in any case.
func envBool(key string) (bool, bool) {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "true", "1", "yes", "on", "y":
		return true, true
	case "false", "0", "no", "off", "n":
		return false, true
	default:
		return false, false
	}
}

// PollWindow returns the configured polling deadline as a duration.
func (c *Config) PollWindow() time.Duration {
	if c.Generation.PollTimeout <= 0 {
		return 100 * time.Second
	}
	return time.Duration(c.Generation.PollTimeout) * time.Second
}

// Addr returns the host:port the HTTP server binds.
func (c *Config) Addr() string {
	host := c.Server.Host
	port := c.Server.Port
	if port == 0 {
		port = 3000
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// Validate checks that the configuration carries enough to build a session.
func (c *Config) Validate() error {
	if c.Credentials.Cookie == "" {
		return fmt.Errorf("%w: credentials.cookie is empty (set SUNO_COOKIE or edit config.toml)", ErrMissingCredentials)
	}
	switch c.Browser.Engine {
	case "", "chromium", "firefox":
	default:
		return fmt.Errorf("%w: browser.engine must be chromium or firefox, got %q", ErrInvalidConfig, c.Browser.Engine)
	}
	return nil
}
