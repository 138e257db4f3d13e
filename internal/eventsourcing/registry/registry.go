// Package registry is the process-wide catalog that maps type names to domain
// behavior. It is populated once at bootstrap, sealed, and only read afterwards.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/aggregate"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/bus"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/upcast"
)

var (
	// ErrDuplicate indicates a key registered twice in the same entry set.
	ErrDuplicate = errors.New("already registered")
	// ErrSealed indicates a registration attempted after bootstrap finished.
	ErrSealed = errors.New("registry is sealed")
	// ErrInvalid indicates an empty key or nil value.
	ErrInvalid = errors.New("invalid registration")
)

// CommandType describes a command accepted by the platform.
type CommandType struct {
	Name          string
	Domain        string
	AggregateType string
	Description   string
}

// EventType describes an event and the payload schema version current code emits.
type EventType struct {
	Name          string
	Domain        string
	AggregateType string
	SchemaVersion int
}

type table[V any] struct {
	kind    string
	entries map[string]V
}

func newTable[V any](kind string) table[V] {
	return table[V]{kind: kind, entries: make(map[string]V)}
}

func (t table[V]) add(key string, value V) error {
	if key == "" {
		return fmt.Errorf("%w: %s with empty key", ErrInvalid, t.kind)
	}
	if _, exists := t.entries[key]; exists {
		return fmt.Errorf("%s %q: %w", t.kind, key, ErrDuplicate)
	}
	t.entries[key] = value
	return nil
}

func (t table[V]) get(key string) (V, bool) {
	v, ok := t.entries[key]
	return v, ok
}

// Registry holds every entry set. The zero value is not usable; call New.
type Registry struct {
	mu     sync.RWMutex
	sealed bool

	aggregates      table[aggregate.Factory]
	commandHandlers table[CommandHandler]
	eventHandlers   table[bus.Handler]
	sagas           table[Saga]
	commandTypes    table[CommandType]
	eventTypes      table[EventType]
	projections     table[Projection]
	roles           table[[]string]

	upcasters *upcast.Registry
}

// New creates an empty, unsealed registry.
func New() *Registry {
	return &Registry{
		aggregates:      newTable[aggregate.Factory]("aggregate"),
		commandHandlers: newTable[CommandHandler]("command handler"),
		eventHandlers:   newTable[bus.Handler]("event handler"),
		sagas:           newTable[Saga]("saga"),
		commandTypes:    newTable[CommandType]("command type"),
		eventTypes:      newTable[EventType]("event type"),
		projections:     newTable[Projection]("projection"),
		roles:           newTable[[]string]("roles"),
		upcasters:       upcast.NewRegistry(),
	}
}

// Upcasters returns the payload upcaster registry shared by snapshot and event loading.
func (r *Registry) Upcasters() *upcast.Registry { return r.upcasters }

// Seal freezes the registry; later registrations fail with ErrSealed.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

func register[V any](r *Registry, t table[V], key string, value V) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return fmt.Errorf("%s %q: %w", t.kind, key, ErrSealed)
	}
	return t.add(key, value)
}

func lookup[V any](r *Registry, t table[V], key string) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return t.get(key)
}

// RegisterAggregate registers the constructor for an aggregate type.
func (r *Registry) RegisterAggregate(aggregateType string, factory aggregate.Factory) error {
	if factory == nil {
		return fmt.Errorf("%w: nil factory for aggregate %q", ErrInvalid, aggregateType)
	}
	return register(r, r.aggregates, aggregateType, factory)
}

// RegisterCommandHandler registers the handler for a command type.
func (r *Registry) RegisterCommandHandler(commandType string, h CommandHandler) error {
	if h == nil {
		return fmt.Errorf("%w: nil handler for command %q", ErrInvalid, commandType)
	}
	return register(r, r.commandHandlers, commandType, h)
}

// RegisterEventHandler registers a named bus handler.
func (r *Registry) RegisterEventHandler(name string, h bus.Handler) error {
	if h == nil {
		return fmt.Errorf("%w: nil event handler %q", ErrInvalid, name)
	}
	return register(r, r.eventHandlers, name, h)
}

// RegisterSaga registers a named saga.
func (r *Registry) RegisterSaga(name string, s Saga) error {
	if s == nil {
		return fmt.Errorf("%w: nil saga %q", ErrInvalid, name)
	}
	return register(r, r.sagas, name, s)
}

// RegisterCommandType registers a command descriptor under its name.
func (r *Registry) RegisterCommandType(ct CommandType) error {
	if ct.AggregateType == "" {
		return fmt.Errorf("%w: command type %q has no aggregate type", ErrInvalid, ct.Name)
	}
	return register(r, r.commandTypes, ct.Name, ct)
}

// RegisterEventType registers an event descriptor under its name.
func (r *Registry) RegisterEventType(et EventType) error {
	if et.SchemaVersion <= 0 {
		et.SchemaVersion = 1
	}
	return register(r, r.eventTypes, et.Name, et)
}

// RegisterProjection registers a named projection.
func (r *Registry) RegisterProjection(name string, p Projection) error {
	if p == nil {
		return fmt.Errorf("%w: nil projection %q", ErrInvalid, name)
	}
	return register(r, r.projections, name, p)
}

// RegisterRoles grants a role list to a domain.
func (r *Registry) RegisterRoles(domain string, roles []string) error {
	return register(r, r.roles, domain, append([]string(nil), roles...))
}

// Aggregate returns the constructor for an aggregate type.
func (r *Registry) Aggregate(aggregateType string) (aggregate.Factory, bool) {
	return lookup(r, r.aggregates, aggregateType)
}

// CommandHandler returns the handler for a command type.
func (r *Registry) CommandHandler(commandType string) (CommandHandler, bool) {
	return lookup(r, r.commandHandlers, commandType)
}

// EventHandler returns a named bus handler.
func (r *Registry) EventHandler(name string) (bus.Handler, bool) {
	return lookup(r, r.eventHandlers, name)
}

// Saga returns a named saga.
func (r *Registry) Saga(name string) (Saga, bool) {
	return lookup(r, r.sagas, name)
}

// CommandType returns a command descriptor.
func (r *Registry) CommandType(name string) (CommandType, bool) {
	return lookup(r, r.commandTypes, name)
}

// EventType returns an event descriptor.
func (r *Registry) EventType(name string) (EventType, bool) {
	return lookup(r, r.eventTypes, name)
}

// Projection returns a named projection.
func (r *Registry) Projection(name string) (Projection, bool) {
	return lookup(r, r.projections, name)
}

// Roles returns the roles granted to a domain.
func (r *Registry) Roles(domain string) ([]string, bool) {
	return lookup(r, r.roles, domain)
}

// AllAggregates returns the live aggregate table. Callers must not mutate it.
func (r *Registry) AllAggregates() map[string]aggregate.Factory { return r.aggregates.entries }

// AllCommandHandlers returns the live command handler table. Callers must not mutate it.
func (r *Registry) AllCommandHandlers() map[string]CommandHandler { return r.commandHandlers.entries }

// AllEventHandlers returns the live event handler table. Callers must not mutate it.
func (r *Registry) AllEventHandlers() map[string]bus.Handler { return r.eventHandlers.entries }

// AllSagas returns the live saga table. Callers must not mutate it.
func (r *Registry) AllSagas() map[string]Saga { return r.sagas.entries }

// AllCommandTypes returns the live command descriptor table. Callers must not mutate it.
func (r *Registry) AllCommandTypes() map[string]CommandType { return r.commandTypes.entries }

// AllEventTypes returns the live event descriptor table. Callers must not mutate it.
func (r *Registry) AllEventTypes() map[string]EventType { return r.eventTypes.entries }

// AllProjections returns the live projection table. Callers must not mutate it.
func (r *Registry) AllProjections() map[string]Projection { return r.projections.entries }

// AllRoles returns the live role table. Callers must not mutate it.
func (r *Registry) AllRoles() map[string][]string { return r.roles.entries }

// SortedNames returns the keys of m in lexical order.
func SortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
