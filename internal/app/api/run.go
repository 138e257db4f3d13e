package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	platformserver "github.com/Apurer/go-cqrs-platform/go"
	"github.com/Apurer/go-cqrs-platform/internal/app/bootstrap"
	"github.com/Apurer/go-cqrs-platform/internal/dispatch"
	"github.com/Apurer/go-cqrs-platform/internal/platform/auth"
	"github.com/Apurer/go-cqrs-platform/internal/platform/metrics"
	platformobservability "github.com/Apurer/go-cqrs-platform/internal/platform/observability"
	"github.com/Apurer/go-cqrs-platform/internal/platform/temporal/temporalclient"
)

const serviceName = "cqrs-api"

// Run boots the command API with observability, stores, and the command
// dispatcher wired. It returns when ctx is cancelled or the server fails.
func Run(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), bootstrap.ShutdownTimeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	rt, err := bootstrap.Build(ctx, cfg.Settings(), instruments)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer rt.Close()

	dispatcher, closeDispatcher := buildDispatcher(cfg, rt, instruments)
	defer closeDispatcher()
	rt.Attach(dispatcher)

	httpMetrics := metrics.NewHTTP()
	middlewares := []gin.HandlerFunc{otelgin.Middleware(serviceName), httpMetrics.Middleware()}
	if cfg.Auth.Enabled() {
		verifier, err := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.Leeway)
		if err != nil {
			return fmt.Errorf("auth: %w", err)
		}
		middlewares = append(middlewares, platformserver.Authenticate(verifier))
		logger.Info("bearer authentication enabled")
	}
	router := platformserver.NewRouter(platformserver.ApiHandleFunctions{
		CommandAPI: platformserver.NewCommandAPI(rt.Registry, dispatcher, rt.Engine, httpMetrics),
		QueryAPI:   platformserver.NewQueryAPI(rt.PetViews, rt.OrderViews),
		Metrics:    httpMetrics.Handler(),
	}, middlewares...)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("command API listening", slog.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("command API server exited", slog.String("addr", srv.Addr), slog.String("error", err.Error()))
			return err
		}
		return nil
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), bootstrap.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildDispatcher prefers Temporal and falls back to in-process loops when it
// is disabled or unreachable.
func buildDispatcher(cfg Config, rt *bootstrap.Runtime, instruments *platformobservability.Instruments) (dispatch.Dispatcher, func()) {
	logger := instruments.Logger
	if !cfg.Temporal.Disabled {
		c, err := temporalclient.Dial(cfg.Temporal, logger, instruments.Tracer("temporal-client"))
		if err == nil {
			logger.Info("Temporal dispatch enabled",
				slog.String("namespace", cfg.Temporal.NamespaceOrDefault()),
				slog.String("taskQueue", cfg.Temporal.TaskQueue))
			d := dispatch.NewTemporalDispatcher(c,
				dispatch.WithTaskQueue(cfg.Temporal.TaskQueue),
				dispatch.WithIdleTimeout(cfg.Loop.IdleTimeout),
				dispatch.WithCommandsPerRun(cfg.Loop.CommandsPerRun),
			)
			return d, c.Close
		}
		logger.Warn("Temporal unavailable, running command loops inline", slog.String("error", err.Error()))
	}
	d := dispatch.NewInlineDispatcher(rt.Engine,
		dispatch.WithInlineLogger(logger),
		dispatch.WithInlineIdleTimeout(cfg.Loop.IdleTimeout),
		dispatch.WithInlineCommandsPerRun(cfg.Loop.CommandsPerRun),
	)
	return d, func() {
		ctx, cancel := context.WithTimeout(context.Background(), bootstrap.ShutdownTimeout)
		defer cancel()
		if err := d.Close(ctx); err != nil {
			logger.Warn("inline command loops did not drain", slog.String("error", err.Error()))
		}
	}
}
