package main

import (
	"context"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/urfave/cli/v3"
	"github.com/yanani99/reso/internal/shared"
)

// SetupDatabase creates the config file if missing and initializes the database.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			config = shared.DefaultConfig()
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err = shared.LoadConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
				config = shared.DefaultConfig()
			}
		}
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", config.Database.Path)

	if config.Credentials.Cookie == "" {
		r.writePlainln("Next steps:")
		r.writePlain("1. Run 'reso setup cookie --curl-file request.sh' (Copy as cURL from DevTools)\n")
		r.writePlain("2. Run 'reso generate -p \"your song idea\"'\n")
	}

	return nil
}

// SetupCookie extracts the account cookie from a copied cURL command and
// stores it in the config file.
func (r *Runner) SetupCookie(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	curlCmd := cmd.String("curl")
	curlFile := cmd.String("curl-file")

	if curlCmd == "" && curlFile == "" {
		return fmt.Errorf("%w: either --curl or --curl-file must be provided", shared.ErrMissingArgument)
	}
	if curlCmd != "" && curlFile != "" {
		return fmt.Errorf("%w: cannot specify both --curl and --curl-file", shared.ErrInvalidFlag)
	}

	var creds *shared.CurlCredentials
	var err error

	if curlFile != "" {
		creds, err = shared.ParseCurlFile(curlFile)
		if err != nil {
			return fmt.Errorf("failed to parse cURL file: %w", err)
		}
		r.logger.Info("parsed cURL from file", "file", curlFile)
	} else {
		creds, err = shared.ParseCurlCommand([]byte(curlCmd))
		if err != nil {
			return fmt.Errorf("failed to parse cURL command: %w", err)
		}
		r.logger.Info("parsed cURL command")
	}

	cookie, err := creds.SessionCookie()
	if err != nil {
		return err
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loaded, err := shared.LoadConfig(configPath); err == nil {
			config = loaded
		}
	}
	config.Credentials.Cookie = cookie

	encoded, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(configPath, encoded, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	r.logger.Info("cookie saved", "path", configPath)

	r.writePlain("✓ Account cookie configured successfully\n")
	r.writePlain("Config saved to: %s\n", configPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Run 'reso credits' to verify authentication\n")
	r.writePlain("2. Run 'reso generate -p \"your song idea\"'\n")

	return nil
}
