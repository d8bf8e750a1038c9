package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/urfave/cli/v3"
	"github.com/yanani99/reso/internal/services"
	"github.com/yanani99/reso/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	registry := services.NewRegistry(func(ctx context.Context, cookie string) (*services.SunoClient, error) {
		client := services.NewSunoClient(cookie, http.DefaultClient, logger)
		if err := client.Authenticate(ctx); err != nil {
			return nil, err
		}
		return client, nil
	}, logger)

	runner := NewRunner(RunnerOpts{
		Config:   config,
		Registry: registry,
		Logger:   logger,
	})

	app := &cli.Command{
		Name:     "reso",
		Usage:    "Generate and manage Suno tracks from the terminal",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}
