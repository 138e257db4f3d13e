package observability

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	pettypes "github.com/Apurer/go-cqrs-platform/internal/domains/pets/application/types"
	"github.com/Apurer/go-cqrs-platform/internal/domains/pets/ports"
)

const tracerName = "github.com/Apurer/go-cqrs-platform/internal/domains/pets/adapters/observability"

// ReadModel decorates the pet view store with tracing, logging, and metrics.
type ReadModel struct {
	inner  ports.ReadModel
	tracer trace.Tracer
	logger *slog.Logger
	saved  metric.Int64Counter
}

type Option func(*ReadModel)

// WithLogger injects a slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *ReadModel) {
		r.logger = logger
	}
}

// WithTracer injects a tracer implementation.
func WithTracer(tr trace.Tracer) Option {
	return func(r *ReadModel) {
		r.tracer = tr
	}
}

// WithMeter injects the meter used for the saved views counter.
func WithMeter(m metric.Meter) Option {
	return func(r *ReadModel) {
		if m == nil {
			return
		}
		r.saved, _ = m.Int64Counter("pets.views.saved", metric.WithDescription("Number of pet view writes by status"))
	}
}

// New wires a decorator around the read model.
func New(inner ports.ReadModel, opts ...Option) ports.ReadModel {
	r := &ReadModel{inner: inner}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.tracer == nil {
		r.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r
}

func (r *ReadModel) Get(ctx context.Context, tenantID, id string) (*pettypes.PetProjection, error) {
	ctx, span := r.tracer.Start(ctx, "PetReadModel.Get", trace.WithAttributes(
		attribute.String("tenant.id", tenantID), attribute.String("pet.id", id)))
	defer span.End()

	view, err := r.inner.Get(ctx, tenantID, id)
	if err != nil && !errors.Is(err, ports.ErrNotFound) {
		return nil, r.handleError(ctx, span, err, "failed to load pet view", slog.String("pet.id", id))
	}
	return view, err
}

func (r *ReadModel) Save(ctx context.Context, view *pettypes.PetProjection) error {
	var attrs []attribute.KeyValue
	if view != nil {
		attrs = append(attrs, attribute.String("pet.id", view.Entity.ID), attribute.Int64("pet.version", view.Metadata.Version))
	}
	ctx, span := r.tracer.Start(ctx, "PetReadModel.Save", trace.WithAttributes(attrs...))
	defer span.End()

	if err := r.inner.Save(ctx, view); err != nil {
		return r.handleError(ctx, span, err, "failed to save pet view")
	}
	if r.saved != nil && view != nil {
		r.saved.Add(ctx, 1, metric.WithAttributes(attribute.String("pet.status", view.Entity.Status)))
	}
	return nil
}

func (r *ReadModel) List(ctx context.Context, tenantID string) ([]*pettypes.PetProjection, error) {
	ctx, span := r.tracer.Start(ctx, "PetReadModel.List", trace.WithAttributes(attribute.String("tenant.id", tenantID)))
	defer span.End()

	views, err := r.inner.List(ctx, tenantID)
	if err != nil {
		return nil, r.handleError(ctx, span, err, "failed to list pet views", slog.String("tenant.id", tenantID))
	}
	span.SetAttributes(attribute.Int("pets.count", len(views)))
	return views, nil
}

func (r *ReadModel) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	attrs = append(attrs, slog.String("error", err.Error()))
	r.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
	return err
}
