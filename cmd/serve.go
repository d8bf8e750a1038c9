package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/yanani99/reso/internal/browser"
	"github.com/yanani99/reso/internal/repositories"
	"github.com/yanani99/reso/internal/server"
)

const sweepInterval = 5 * time.Minute

// Serve runs the generation HTTP API until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config := r.configFor(cmd)
	if host := cmd.String("host"); host != "" {
		config.Server.Host = host
	}
	if port := cmd.Int("port"); port != 0 {
		config.Server.Port = port
	}

	var store server.ClipStore
	db, err := r.database(config)
	if err != nil {
		r.logger.Warn("running without local persistence", "error", err)
	} else {
		defer db.Close()
		store = repositories.NewJobRepository(db)
	}

	driver := browser.NewController(browser.Config{
		Engine:      config.Browser.Engine,
		Headless:    config.Browser.Headless,
		DisableGPU:  config.Browser.DisableGPU,
		GhostCursor: config.Browser.GhostCursor,
		Locale:      config.Browser.Locale,
	}, r.logger)

	r.registry.StartSweeper(ctx, sweepInterval)

	srv := server.New(config, r.registry, r.bridge, driver, store, r.logger)
	r.logger.Info("starting server", "addr", config.Addr())
	return server.Serve(ctx, srv, r.logger)
}
