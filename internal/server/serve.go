package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/yanani99/reso/internal/captcha"
	"github.com/yanani99/reso/internal/services"
	"github.com/yanani99/reso/internal/shared"
	"github.com/yanani99/reso/internal/tasks"
	"golang.org/x/time/rate"
)

const shutdownGrace = 5 * time.Second

// New assembles the HTTP server: router, middleware stack, and the API
// handler.
func New(cfg *shared.Config, registry *services.Registry, bridge *captcha.Bridge, driver tasks.Driver, store ClipStore, logger *log.Logger) *http.Server {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	router := NewBasicRouter()
	router.Use(
		LoggingMiddleware(logger),
		CORSMiddleware(),
		// Generation spends account credits; keep the upstream call rate flat.
		RateLimitMiddleware(rate.NewLimiter(rate.Limit(5), 10)),
	)
	router.Handler(NewAPIHandler(cfg, registry, bridge, driver, store, logger))

	return &http.Server{
		Addr:    cfg.Addr(),
		Handler: router,
	}
}

// Serve runs the server until the context is canceled, then shuts it down
// gracefully.
func Serve(ctx context.Context, srv *http.Server, logger *log.Logger) error {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(sctx)
	}
}
