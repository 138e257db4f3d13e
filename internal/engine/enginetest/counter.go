// Package enginetest provides a tiny counter domain for exercising the command
// loop runtimes against a real engine and in-memory stores.
package enginetest

import (
	"context"
	"sync"

	"github.com/Apurer/go-cqrs-platform/internal/engine"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/aggregate"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/bus"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/domainerr"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/registry"
	"github.com/Apurer/go-cqrs-platform/internal/eventstore/adapters/memory"
)

const (
	CounterType     = "test.counter"
	IncrementCmd    = "test.increment"
	IncrementedType = "test.incremented"
	RejectCode      = "test.non_positive"
)

// Counter sums increments.
type Counter struct {
	aggregate.Base
	Total float64
}

func NewCounter(id string) aggregate.Aggregate {
	return &Counter{Base: aggregate.NewBase(id)}
}

func (c *Counter) AggregateType() string { return CounterType }
func (c *Counter) SchemaVersion() int    { return 1 }

func (c *Counter) ExtractSnapshotState() (aggregate.State, error) {
	return aggregate.State{"total": c.Total}, nil
}

func (c *Counter) ApplyUpcastedSnapshot(state aggregate.State) error {
	c.Total, _ = state["total"].(float64)
	return nil
}

func (c *Counter) ApplyEvent(evt message.Event) error {
	if evt.Type == IncrementedType {
		by, _ := evt.Payload["by"].(float64)
		c.Total += by
	}
	return nil
}

// Recorder collects the ids of routed events.
type Recorder struct {
	mu     sync.Mutex
	routed []string
}

func (r *Recorder) SupportsEvent(message.Event) bool { return true }

func (r *Recorder) On(_ context.Context, evt message.Event) error {
	r.mu.Lock()
	r.routed = append(r.routed, evt.ID)
	r.mu.Unlock()
	return nil
}

// Routed returns a copy of the routed event ids.
func (r *Recorder) Routed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.routed...)
}

// Fixture bundles an engine over the counter domain.
type Fixture struct {
	Registry *registry.Registry
	Events   *memory.EventStore
	Recorder *Recorder
	Engine   *engine.Engine
}

// NewFixture builds a sealed registry, memory stores, and an engine whose bus
// records every routed event.
func NewFixture() (*Fixture, error) {
	reg := registry.New()
	if err := reg.RegisterAggregate(CounterType, NewCounter); err != nil {
		return nil, err
	}
	if err := reg.RegisterCommandType(registry.CommandType{Name: IncrementCmd, Domain: "test", AggregateType: CounterType}); err != nil {
		return nil, err
	}
	if err := reg.RegisterEventType(registry.EventType{Name: IncrementedType, Domain: "test", AggregateType: CounterType, SchemaVersion: 1}); err != nil {
		return nil, err
	}
	handler := registry.TypedCommandHandler[*Counter](func(_ context.Context, _ *Counter, cmd message.Command) ([]message.Draft, error) {
		by, _ := cmd.Payload["by"].(float64)
		if by <= 0 {
			return nil, domainerr.New(RejectCode, "increment must be positive")
		}
		return []message.Draft{{Type: IncrementedType, Payload: message.Payload{"by": by}}}, nil
	})
	if err := reg.RegisterCommandHandler(IncrementCmd, handler); err != nil {
		return nil, err
	}
	reg.Seal()

	rec := &Recorder{}
	events := memory.NewEventStore()
	eng := engine.New(reg, events, engine.WithBus(bus.New(rec)), engine.WithSnapshotStore(memory.NewSnapshotStore()))
	return &Fixture{Registry: reg, Events: events, Recorder: rec, Engine: eng}, nil
}

// Increment builds an increment command.
func Increment(id string, by float64) message.Command {
	return message.BuildCommand(id, "t1", IncrementCmd, message.Payload{"by": by})
}

// Ref is the counter instance the helpers target.
var Ref = message.AggregateRef{TenantID: "t1", Type: CounterType, ID: "c1"}
