// Package temporalclient dials Temporal with tracing and structured logging.
package temporalclient

import (
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"

	"github.com/Apurer/go-cqrs-platform/internal/platform/config"
)

// Options builds client options for cfg.
func Options(cfg config.Temporal, logger *slog.Logger, tracer trace.Tracer) (client.Options, error) {
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(temporalotel.TracerOptions{Tracer: tracer})
	if err != nil {
		return client.Options{}, fmt.Errorf("configure temporal tracing interceptor: %w", err)
	}
	options := client.Options{
		HostPort:  cfg.HostPort(),
		Namespace: cfg.NamespaceOrDefault(),
		Logger:    workerlog.NewStructuredLogger(logger),
	}
	options.Interceptors = append(options.Interceptors, tracingInterceptor)
	return options, nil
}

// Dial connects to the configured Temporal frontend.
func Dial(cfg config.Temporal, logger *slog.Logger, tracer trace.Tracer) (client.Client, error) {
	options, err := Options(cfg, logger, tracer)
	if err != nil {
		return nil, err
	}
	c, err := client.Dial(options)
	if err != nil {
		return nil, fmt.Errorf("dial temporal %s: %w", options.HostPort, err)
	}
	return c, nil
}
