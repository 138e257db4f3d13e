package observability

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Apurer/go-cqrs-platform/internal/engine"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/aggregate"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/commandloop"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
)

const tracerName = "github.com/Apurer/go-cqrs-platform/internal/engine/observability/service"

// Service decorates the engine with tracing, logging, and metrics.
type Service struct {
	inner   engine.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tr
	}
}

func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.metrics = newServiceMetrics(m)
	}
}

// New wraps the engine.
func New(inner engine.Service, opts ...Option) engine.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	return s
}

func refAttrs(ref message.AggregateRef) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("aggregate.tenant_id", ref.TenantID),
		attribute.String("aggregate.type", ref.Type),
		attribute.String("aggregate.id", ref.ID),
	}
}

func (s *Service) Decide(ctx context.Context, ref message.AggregateRef, cmd message.Command) (commandloop.Decision, error) {
	ctx, span := s.tracer.Start(ctx, "Engine.Decide", trace.WithAttributes(append(refAttrs(ref),
		attribute.String("command.id", cmd.ID),
		attribute.String("command.type", cmd.Type),
		attribute.String("correlation.id", cmd.Metadata.CorrelationID),
	)...))
	defer span.End()

	decision, err := s.inner.Decide(ctx, ref, cmd)
	if err != nil {
		return decision, s.handleError(ctx, span, err, "failed to decide command",
			slog.String("aggregate", ref.String()), slog.String("command.id", cmd.ID), slog.String("command.type", cmd.Type))
	}
	s.metrics.recordDecision(ctx, cmd.Type, decision.Status)
	span.SetAttributes(attribute.String("decision.status", string(decision.Status)), attribute.Int("decision.events", len(decision.Events)))
	if decision.Status == commandloop.StatusFail {
		var code string
		if decision.Error != nil {
			code = decision.Error.Code
		}
		s.logInfo(ctx, "command rejected",
			slog.String("aggregate", ref.String()), slog.String("command.id", cmd.ID), slog.String("code", code))
		return decision, nil
	}
	s.logInfo(ctx, "command decided",
		slog.String("aggregate", ref.String()), slog.String("command.id", cmd.ID), slog.Int("events", len(decision.Events)))
	return decision, nil
}

func (s *Service) Apply(ctx context.Context, ref message.AggregateRef, events []message.Event) error {
	ctx, span := s.tracer.Start(ctx, "Engine.Apply", trace.WithAttributes(append(refAttrs(ref), attribute.Int("events", len(events)))...))
	defer span.End()

	if err := s.inner.Apply(ctx, ref, events); err != nil {
		return s.handleError(ctx, span, err, "failed to apply events", slog.String("aggregate", ref.String()))
	}
	s.metrics.recordApplied(ctx, ref.Type, len(events))
	return nil
}

func (s *Service) Project(ctx context.Context, events []message.Event) error {
	ctx, span := s.tracer.Start(ctx, "Engine.Project", trace.WithAttributes(attribute.Int("events", len(events))))
	defer span.End()

	if err := s.inner.Project(ctx, events); err != nil {
		return s.handleError(ctx, span, err, "failed to project events")
	}
	return nil
}

func (s *Service) Route(ctx context.Context, evt message.Event) error {
	ctx, span := s.tracer.Start(ctx, "Engine.Route", trace.WithAttributes(
		attribute.String("event.id", evt.ID), attribute.String("event.type", evt.Type)))
	defer span.End()

	if err := s.inner.Route(ctx, evt); err != nil {
		return s.handleError(ctx, span, err, "failed to route event", slog.String("event.id", evt.ID), slog.String("event.type", evt.Type))
	}
	return nil
}

func (s *Service) EmitSpan(ctx context.Context, ref message.AggregateRef, signal message.ObservabilitySignal) error {
	return s.inner.EmitSpan(ctx, ref, signal)
}

func (s *Service) Load(ctx context.Context, ref message.AggregateRef) (aggregate.Aggregate, error) {
	ctx, span := s.tracer.Start(ctx, "Engine.Load", trace.WithAttributes(refAttrs(ref)...))
	defer span.End()

	agg, err := s.inner.Load(ctx, ref)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load aggregate", slog.String("aggregate", ref.String()))
	}
	span.SetAttributes(attribute.Int64("aggregate.version", agg.Version()))
	return agg, nil
}

func (s *Service) Stream(ctx context.Context, ref message.AggregateRef, afterVersion int64) ([]message.Event, error) {
	ctx, span := s.tracer.Start(ctx, "Engine.Stream", trace.WithAttributes(append(refAttrs(ref), attribute.Int64("after_version", afterVersion))...))
	defer span.End()

	events, err := s.inner.Stream(ctx, ref, afterVersion)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to stream events", slog.String("aggregate", ref.String()))
	}
	span.SetAttributes(attribute.Int("events", len(events)))
	return events, nil
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) logError(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	s.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.logError(ctx, msg, err, attrs...)
	return err
}

type serviceMetrics struct {
	decisions     metric.Int64Counter
	eventsApplied metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	decisions, _ := m.Int64Counter("engine.decisions", metric.WithDescription("Number of command decisions by outcome"))
	eventsApplied, _ := m.Int64Counter("engine.events_applied", metric.WithDescription("Number of events appended to aggregate streams"))
	return serviceMetrics{decisions: decisions, eventsApplied: eventsApplied}
}

func (m serviceMetrics) recordDecision(ctx context.Context, commandType string, status commandloop.Status) {
	if m.decisions != nil {
		m.decisions.Add(ctx, 1, metric.WithAttributes(
			attribute.String("command.type", commandType),
			attribute.String("decision.status", string(status)),
		))
	}
}

func (m serviceMetrics) recordApplied(ctx context.Context, aggregateType string, n int) {
	if m.eventsApplied != nil && n > 0 {
		m.eventsApplied.Add(ctx, int64(n), metric.WithAttributes(attribute.String("aggregate.type", aggregateType)))
	}
}

var _ engine.Service = (*Service)(nil)
