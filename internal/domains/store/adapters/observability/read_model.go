package observability

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	storetypes "github.com/Apurer/go-cqrs-platform/internal/domains/store/application/types"
	"github.com/Apurer/go-cqrs-platform/internal/domains/store/ports"
)

const tracerName = "github.com/Apurer/go-cqrs-platform/internal/domains/store/adapters/observability"

// ReadModel traces and logs order view access.
type ReadModel struct {
	inner  ports.ReadModel
	tracer trace.Tracer
	logger *slog.Logger
}

// New wraps inner. A nil tracer or logger falls back to a no-op.
func New(inner ports.ReadModel, tracer trace.Tracer, logger *slog.Logger) ports.ReadModel {
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ReadModel{inner: inner, tracer: tracer, logger: logger}
}

func (r *ReadModel) Get(ctx context.Context, tenantID, id string) (*storetypes.OrderProjection, error) {
	ctx, span := r.tracer.Start(ctx, "OrderReadModel.Get", trace.WithAttributes(
		attribute.String("tenant.id", tenantID), attribute.String("order.id", id)))
	defer span.End()

	view, err := r.inner.Get(ctx, tenantID, id)
	if err != nil && !errors.Is(err, ports.ErrNotFound) {
		r.fail(ctx, span, err, "failed to load order view")
	}
	return view, err
}

func (r *ReadModel) Save(ctx context.Context, view *storetypes.OrderProjection) error {
	ctx, span := r.tracer.Start(ctx, "OrderReadModel.Save")
	defer span.End()
	if view != nil {
		span.SetAttributes(attribute.String("order.id", view.Entity.ID), attribute.String("order.status", view.Entity.Status))
	}

	err := r.inner.Save(ctx, view)
	if err != nil {
		r.fail(ctx, span, err, "failed to save order view")
	}
	return err
}

func (r *ReadModel) List(ctx context.Context, tenantID string) ([]*storetypes.OrderProjection, error) {
	ctx, span := r.tracer.Start(ctx, "OrderReadModel.List", trace.WithAttributes(attribute.String("tenant.id", tenantID)))
	defer span.End()

	views, err := r.inner.List(ctx, tenantID)
	if err != nil {
		r.fail(ctx, span, err, "failed to list order views")
	}
	return views, err
}

func (r *ReadModel) fail(ctx context.Context, span trace.Span, err error, msg string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	r.logger.ErrorContext(ctx, msg, slog.String("error", err.Error()))
}
