// Package engine implements the external steps of the aggregate command loop
// on top of the domain registry, the event and snapshot stores, and the event bus.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/aggregate"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/bus"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/commandloop"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/domainerr"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/registry"
	"github.com/Apurer/go-cqrs-platform/internal/eventstore/ports"
)

const tracerName = "github.com/Apurer/go-cqrs-platform/internal/engine"

var (
	ErrUnknownCommand    = errors.New("unknown command type")
	ErrNoHandler         = errors.New("no handler for command type")
	ErrUnknownAggregate  = errors.New("unknown aggregate type")
	ErrUnknownEvent      = errors.New("unknown event type")
	ErrAggregateMismatch = errors.New("command does not target this aggregate type")
	ErrEventFromFuture   = errors.New("stored event schema version is newer than the registered event type")
	ErrMissingEventStore = errors.New("event store not configured")
	ErrMissingRegistry   = errors.New("registry not configured")
)

// IsConfigurationError reports errors that retrying cannot fix.
func IsConfigurationError(err error) bool {
	for _, target := range []error{
		ErrUnknownCommand, ErrNoHandler, ErrUnknownAggregate, ErrUnknownEvent,
		ErrAggregateMismatch, ErrEventFromFuture, ErrMissingEventStore, ErrMissingRegistry,
		aggregate.ErrNoUpcastPath, aggregate.ErrSnapshotFromFuture, aggregate.ErrTypeMismatch,
		ports.ErrInvalidAppend,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Service is the set of steps a command loop drives.
type Service interface {
	Decide(ctx context.Context, ref message.AggregateRef, cmd message.Command) (commandloop.Decision, error)
	Apply(ctx context.Context, ref message.AggregateRef, events []message.Event) error
	Project(ctx context.Context, events []message.Event) error
	Route(ctx context.Context, evt message.Event) error
	EmitSpan(ctx context.Context, ref message.AggregateRef, signal message.ObservabilitySignal) error
	Load(ctx context.Context, ref message.AggregateRef) (aggregate.Aggregate, error)
	Stream(ctx context.Context, ref message.AggregateRef, afterVersion int64) ([]message.Event, error)
}

// Engine is the default Service.
type Engine struct {
	registry      *registry.Registry
	events        ports.EventStore
	snapshots     ports.SnapshotStore
	bus           *bus.Bus
	loader        *aggregate.Loader
	snapshotEvery int64
	tracer        trace.Tracer
	logger        *slog.Logger
}

// Option customises the engine.
type Option func(*Engine)

// WithSnapshotStore enables snapshots.
func WithSnapshotStore(store ports.SnapshotStore) Option {
	return func(e *Engine) { e.snapshots = store }
}

// WithSnapshotEvery takes a snapshot whenever an append crosses a multiple of n.
func WithSnapshotEvery(n int64) Option {
	return func(e *Engine) { e.snapshotEvery = n }
}

// WithBus sets the bus events are routed through.
func WithBus(b *bus.Bus) Option {
	return func(e *Engine) { e.bus = b }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithTracer(tr trace.Tracer) Option {
	return func(e *Engine) { e.tracer = tr }
}

// New creates an engine over a sealed registry and an event store.
func New(reg *registry.Registry, events ports.EventStore, opts ...Option) *Engine {
	e := &Engine{
		registry: reg,
		events:   events,
		bus:      bus.New(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if e.tracer == nil {
		e.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	if reg != nil {
		e.loader = aggregate.NewLoader(reg.Upcasters())
	}
	return e
}

var _ Service = (*Engine)(nil)

// Decide loads the aggregate, runs the command handler and turns its drafts
// into versioned events. Business rule violations become a failed decision;
// everything else is returned as an error.
func (e *Engine) Decide(ctx context.Context, ref message.AggregateRef, cmd message.Command) (commandloop.Decision, error) {
	if err := e.ready(); err != nil {
		return commandloop.Decision{}, err
	}
	ct, ok := e.registry.CommandType(cmd.Type)
	if !ok {
		return commandloop.Decision{}, fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Type)
	}
	if ct.AggregateType != ref.Type {
		return commandloop.Decision{}, fmt.Errorf("%w: %s targets %s, not %s", ErrAggregateMismatch, cmd.Type, ct.AggregateType, ref.Type)
	}
	handler, ok := e.registry.CommandHandler(cmd.Type)
	if !ok {
		return commandloop.Decision{}, fmt.Errorf("%w: %s", ErrNoHandler, cmd.Type)
	}

	agg, err := e.Load(ctx, ref)
	if err != nil {
		return commandloop.Decision{}, err
	}

	drafts, err := handler.Handle(ctx, agg, cmd)
	if err != nil {
		if bre, ok := domainerr.As(err); ok {
			return commandloop.Failed(bre), nil
		}
		return commandloop.Decision{}, fmt.Errorf("handle %s: %w", cmd.Type, err)
	}

	md := message.InheritMetadata(ctx, cmd, message.Metadata{Source: "aggregate:" + ref.Type})
	events := make([]message.Event, 0, len(drafts))
	version := agg.Version()
	for _, d := range drafts {
		et, ok := e.registry.EventType(d.Type)
		if !ok {
			return commandloop.Decision{}, fmt.Errorf("%w: %s emitted by %s", ErrUnknownEvent, d.Type, cmd.Type)
		}
		version++
		evt := message.BuildEvent(ref.TenantID, ref.ID, ref.Type, d.Type, version, d.Payload, md)
		evt.SchemaVersion = et.SchemaVersion
		if err := agg.ApplyEvent(evt); err != nil {
			return commandloop.Decision{}, fmt.Errorf("apply drafted %s to %s: %w", d.Type, ref, err)
		}
		agg.SetVersion(version)
		events = append(events, evt)
	}
	return commandloop.Succeeded(events...), nil
}

// Apply appends events to the stream and takes a snapshot when due. Snapshot
// failures are logged and never fail the apply.
func (e *Engine) Apply(ctx context.Context, ref message.AggregateRef, events []message.Event) error {
	if err := e.ready(); err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}
	if err := e.events.Append(ctx, ref, events); err != nil {
		return fmt.Errorf("append to %s: %w", ref, err)
	}
	if e.snapshotDue(events) {
		if err := e.snapshot(ctx, ref); err != nil {
			e.logger.LogAttrs(ctx, slog.LevelWarn, "snapshot failed",
				slog.String("aggregate", ref.String()), slog.String("error", err.Error()))
		}
	}
	return nil
}

// Project runs every matching projection for each event, projections in name order.
func (e *Engine) Project(ctx context.Context, events []message.Event) error {
	if err := e.ready(); err != nil {
		return err
	}
	projections := e.registry.AllProjections()
	names := registry.SortedNames(projections)
	for _, evt := range events {
		for _, name := range names {
			p := projections[name]
			if !p.Handles(evt) {
				continue
			}
			if err := p.Project(ctx, evt); err != nil {
				return fmt.Errorf("projection %s on %s: %w", name, evt.ID, err)
			}
		}
	}
	return nil
}

// Route publishes one event on the bus.
func (e *Engine) Route(ctx context.Context, evt message.Event) error {
	if e.bus == nil {
		return nil
	}
	if err := e.bus.Publish(ctx, evt); err != nil {
		return fmt.Errorf("route %s: %w", evt.ID, err)
	}
	return nil
}

// EmitSpan records a span carrying the signal data as attributes.
func (e *Engine) EmitSpan(ctx context.Context, ref message.AggregateRef, signal message.ObservabilitySignal) error {
	name := signal.Span
	if name == "" {
		name = "aggregate.observability"
	}
	attrs := []attribute.KeyValue{
		attribute.String("aggregate.tenant_id", ref.TenantID),
		attribute.String("aggregate.type", ref.Type),
		attribute.String("aggregate.id", ref.ID),
	}
	for _, k := range registry.SortedNames(signal.Data) {
		attrs = append(attrs, attribute.String("data."+k, fmt.Sprint(signal.Data[k])))
	}
	_, span := e.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	span.End()
	return nil
}

// Load rehydrates an aggregate from its latest snapshot plus the tail of its stream.
func (e *Engine) Load(ctx context.Context, ref message.AggregateRef) (aggregate.Aggregate, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	factory, ok := e.registry.Aggregate(ref.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAggregate, ref.Type)
	}

	var agg aggregate.Aggregate
	if e.snapshots != nil {
		env, err := e.snapshots.Latest(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("load snapshot for %s: %w", ref, err)
		}
		if env != nil {
			agg, err = e.loader.FromSnapshot(factory, *env)
			if err != nil {
				return nil, fmt.Errorf("rehydrate %s: %w", ref, err)
			}
		}
	}
	if agg == nil {
		agg = factory(ref.ID)
	}

	tail, err := e.Stream(ctx, ref, agg.Version())
	if err != nil {
		return nil, err
	}
	if err := aggregate.Replay(agg, tail); err != nil {
		return nil, fmt.Errorf("replay %s: %w", ref, err)
	}
	return agg, nil
}

// Stream returns stored events after afterVersion with payloads upcast to the
// registered schema version. A stored version with no upcaster fails loudly.
func (e *Engine) Stream(ctx context.Context, ref message.AggregateRef, afterVersion int64) ([]message.Event, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	events, err := e.events.Load(ctx, ref, afterVersion)
	if err != nil {
		return nil, fmt.Errorf("load events for %s: %w", ref, err)
	}
	for i := range events {
		if err := e.upcastEvent(&events[i]); err != nil {
			return nil, err
		}
	}
	return events, nil
}

func (e *Engine) upcastEvent(evt *message.Event) error {
	et, ok := e.registry.EventType(evt.Type)
	if !ok || evt.SchemaVersion <= 0 || evt.SchemaVersion == et.SchemaVersion {
		return nil
	}
	if evt.SchemaVersion > et.SchemaVersion {
		return fmt.Errorf("%w: %s v%d, registered v%d", ErrEventFromFuture, evt.Type, evt.SchemaVersion, et.SchemaVersion)
	}
	upcasters := e.registry.Upcasters()
	if !upcasters.Has(evt.Type, evt.SchemaVersion) {
		return fmt.Errorf("%w: event %s %s v%d", aggregate.ErrNoUpcastPath, evt.ID, evt.Type, evt.SchemaVersion)
	}
	evt.Payload = upcasters.Upcast(evt.Type, evt.Payload, evt.SchemaVersion)
	evt.SchemaVersion = et.SchemaVersion
	return nil
}

func (e *Engine) snapshotDue(events []message.Event) bool {
	if e.snapshots == nil || e.snapshotEvery <= 0 {
		return false
	}
	first := events[0].Version
	last := events[len(events)-1].Version
	return last/e.snapshotEvery > (first-1)/e.snapshotEvery
}

func (e *Engine) snapshot(ctx context.Context, ref message.AggregateRef) error {
	agg, err := e.Load(ctx, ref)
	if err != nil {
		return err
	}
	env, err := aggregate.ToEnvelope(agg)
	if err != nil {
		return err
	}
	return e.snapshots.Save(ctx, ref, env)
}

func (e *Engine) ready() error {
	if e == nil || e.registry == nil {
		return ErrMissingRegistry
	}
	if e.events == nil {
		return ErrMissingEventStore
	}
	return nil
}
