// Package worker runs the Temporal worker hosting the aggregate command loop
// workflow and its activities.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/go-cqrs-platform/internal/app/bootstrap"
	"github.com/Apurer/go-cqrs-platform/internal/dispatch"
	"github.com/Apurer/go-cqrs-platform/internal/engine"
	"github.com/Apurer/go-cqrs-platform/internal/platform/config"
	platformobservability "github.com/Apurer/go-cqrs-platform/internal/platform/observability"
	aggactivities "github.com/Apurer/go-cqrs-platform/internal/platform/temporal/activities/aggregate"
	"github.com/Apurer/go-cqrs-platform/internal/platform/temporal/temporalclient"
	aggworkflow "github.com/Apurer/go-cqrs-platform/internal/platform/temporal/workflows/aggregate"
)

const serviceName = "cqrs-worker"

// Config carries environment-driven settings for the worker process.
type Config struct {
	Postgres config.Postgres
	Redis    config.Redis
	Kafka    config.Kafka
	Partner  config.Partner
	Temporal config.Temporal
	Loop     config.CommandLoop
}

// LoadConfig reads and validates the worker settings.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Loop.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Registrar is the part of a Temporal worker that accepts registrations.
type Registrar interface {
	RegisterWorkflowWithOptions(w interface{}, options workflow.RegisterOptions)
	worker.ActivityRegistry
}

// Register adds the command loop workflow and the engine-backed activities.
func Register(r Registrar, e engine.Service) {
	r.RegisterWorkflowWithOptions(aggworkflow.AggregateCommandWorkflow, workflow.RegisterOptions{Name: aggworkflow.WorkflowName})
	aggactivities.NewActivities(e).Register(r)
}

// Run polls the configured task queue until ctx is cancelled.
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

	temporalClient, err := temporalclient.Dial(cfg.Temporal, logger, instruments.Tracer("temporal-worker"))
	if err != nil {
		logger.Error("failed to create Temporal client", slog.String("error", err.Error()))
		return err
	}
	defer temporalClient.Close()

	// Saga commands are signalled to their target workflows from inside Route.
	rt.Attach(dispatch.NewTemporalDispatcher(temporalClient,
		dispatch.WithTaskQueue(cfg.Temporal.TaskQueue),
		dispatch.WithIdleTimeout(cfg.Loop.IdleTimeout),
		dispatch.WithCommandsPerRun(cfg.Loop.CommandsPerRun),
	))

	w := worker.New(temporalClient, cfg.Temporal.TaskQueue, worker.Options{})
	Register(w, rt.Engine)

	stop := make(chan interface{})
	go func() {
		<-ctx.Done()
		close(stop)
	}()
	logger.Info("worker listening",
		slog.String("taskQueue", cfg.Temporal.TaskQueue),
		slog.String("namespace", cfg.Temporal.NamespaceOrDefault()))
	if err := w.Run(stop); err != nil {
		logger.Error("Temporal worker exited with error", slog.String("error", err.Error()))
		return err
	}
	logger.Info("Temporal worker stopped")
	return nil
}

// Settings returns the shared runtime inputs.
func (c Config) Settings() bootstrap.Settings {
	return bootstrap.Settings{Postgres: c.Postgres, Redis: c.Redis, Kafka: c.Kafka, Partner: c.Partner, Loop: c.Loop}
}
