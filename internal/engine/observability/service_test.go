package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/aggregate"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/commandloop"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
)

type mockEngine struct {
	mock.Mock
}

func (m *mockEngine) Decide(ctx context.Context, ref message.AggregateRef, cmd message.Command) (commandloop.Decision, error) {
	args := m.Called(ctx, ref, cmd)
	return args.Get(0).(commandloop.Decision), args.Error(1)
}

func (m *mockEngine) Apply(ctx context.Context, ref message.AggregateRef, events []message.Event) error {
	return m.Called(ctx, ref, events).Error(0)
}

func (m *mockEngine) Project(ctx context.Context, events []message.Event) error {
	return m.Called(ctx, events).Error(0)
}

func (m *mockEngine) Route(ctx context.Context, evt message.Event) error {
	return m.Called(ctx, evt).Error(0)
}

func (m *mockEngine) EmitSpan(ctx context.Context, ref message.AggregateRef, signal message.ObservabilitySignal) error {
	return m.Called(ctx, ref, signal).Error(0)
}

func (m *mockEngine) Load(ctx context.Context, ref message.AggregateRef) (aggregate.Aggregate, error) {
	args := m.Called(ctx, ref)
	agg, _ := args.Get(0).(aggregate.Aggregate)
	return agg, args.Error(1)
}

func (m *mockEngine) Stream(ctx context.Context, ref message.AggregateRef, afterVersion int64) ([]message.Event, error) {
	args := m.Called(ctx, ref, afterVersion)
	events, _ := args.Get(0).([]message.Event)
	return events, args.Error(1)
}

var ref = message.AggregateRef{TenantID: "t1", Type: "pets.pet", ID: "p1"}

func TestDecideRecordsSpanAndMetric(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	inner := &mockEngine{}
	cmd := message.Command{ID: "c1", Type: "pets.register"}
	inner.On("Decide", mock.Anything, ref, cmd).Return(commandloop.Succeeded(message.Event{ID: "e1"}), nil)

	svc := New(inner, WithTracer(tp.Tracer("test")), WithMeter(mp.Meter("test")))
	decision, err := svc.Decide(context.Background(), ref, cmd)
	require.NoError(t, err)
	require.Len(t, decision.Events, 1)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, "Engine.Decide", spans[0].Name())

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	require.Equal(t, "engine.decisions", rm.ScopeMetrics[0].Metrics[0].Name)
	inner.AssertExpectations(t)
}

func TestApplyErrorMarksSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	boom := errors.New("db down")
	inner := &mockEngine{}
	inner.On("Apply", mock.Anything, ref, mock.Anything).Return(boom)

	svc := New(inner, WithTracer(tp.Tracer("test")))
	err := svc.Apply(context.Background(), ref, []message.Event{{ID: "e1"}})
	require.ErrorIs(t, err, boom)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestRejectedDecisionIsNotAnError(t *testing.T) {
	inner := &mockEngine{}
	rejection := commandloop.Decision{Status: commandloop.StatusFail}
	inner.On("Decide", mock.Anything, ref, mock.Anything).Return(rejection, nil)

	decision, err := New(inner).Decide(context.Background(), ref, message.Command{ID: "c1"})
	require.NoError(t, err)
	require.Equal(t, commandloop.StatusFail, decision.Status)
}
