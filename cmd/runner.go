package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"github.com/yanani99/reso/internal/browser"
	"github.com/yanani99/reso/internal/captcha"
	"github.com/yanani99/reso/internal/services"
	"github.com/yanani99/reso/internal/shared"
	"github.com/yanani99/reso/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	registry   *services.Registry
	bridge     *captcha.Bridge
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	Registry   *services.Registry
	Bridge     *captcha.Bridge
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Bridge == nil {
		opts.Bridge = captcha.NewBridge()
	}

	return &Runner{
		config:     opts.Config,
		registry:   opts.Registry,
		bridge:     opts.Bridge,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, generateCommand, tracksCommand, statusCommand, creditsCommand, lyricsCommand, concatCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger swaps the runner logger, used when a command redirects logs away from the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// configFor resolves the effective config for one invocation, preferring the
// file named by the --config flag over the config loaded at startup.
func (r *Runner) configFor(cmd *cli.Command) *shared.Config {
	path := cmd.String("config")
	if path == "" {
		return r.config
	}
	if _, err := os.Stat(path); err != nil {
		return r.config
	}
	config, err := shared.LoadConfig(path)
	if err != nil {
		r.logger.Warn("failed to load config, using startup config", "path", path, "error", err)
		return r.config
	}
	return config
}

// session acquires an authenticated client for the configured account.
func (r *Runner) session(ctx context.Context, config *shared.Config) (*services.SunoClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return r.registry.Acquire(ctx, config.Credentials.Cookie)
}

// solver picks the challenge solver: the 2Captcha service when a key is
// configured, nil otherwise. Without a solver, generation still works as
// long as the account has no pending challenge.
func (r *Runner) solver(config *shared.Config) captcha.Solver {
	if config.Credentials.TwoCaptchaKey == "" {
		return nil
	}
	return captcha.NewTwoCaptchaSolver(config.Credentials.TwoCaptchaKey, r.httpClient)
}

// engine builds a generation engine on top of an acquired session.
func (r *Runner) engine(config *shared.Config, session services.Session) *tasks.GenerationEngine {
	controller := browser.NewController(browser.Config{
		Engine:      config.Browser.Engine,
		Headless:    config.Browser.Headless,
		DisableGPU:  config.Browser.DisableGPU,
		GhostCursor: config.Browser.GhostCursor,
		Locale:      config.Browser.Locale,
	}, r.logger)

	engine := tasks.NewGenerationEngine(session, controller, r.solver(config), r.logger)
	engine.SetPollWindow(config.PollWindow())
	return engine
}

// database opens the configured sqlite database.
func (r *Runner) database(config *shared.Config) (*sql.DB, error) {
	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
	return db, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
