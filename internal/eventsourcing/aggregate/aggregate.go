// Package aggregate defines the contract every aggregate type implements and
// the versioned snapshot model used to rehydrate long-lived aggregates.
package aggregate

import (
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
)

// State is the plain-data form of an aggregate's fields.
type State = map[string]any

// Aggregate is the unit of consistency whose state is a left fold of its events.
type Aggregate interface {
	AggregateID() string
	AggregateType() string
	// Version is the stream sequence number of the last applied event.
	Version() int64
	SetVersion(v int64)
	// SchemaVersion is the snapshot shape revision the current code produces.
	SchemaVersion() int
	ExtractSnapshotState() (State, error)
	// ApplyUpcastedSnapshot restores fields from state already in the current shape.
	ApplyUpcastedSnapshot(state State) error
	ApplyEvent(evt message.Event) error
}

// SnapshotUpcaster is implemented by aggregates that rewrite legacy snapshot
// shapes themselves. Aggregates without it get the identity transform.
type SnapshotUpcaster interface {
	UpcastSnapshotState(raw State, fromVersion int) (State, error)
}

// Factory constructs an empty aggregate with the given id.
type Factory func(id string) Aggregate

// Base carries the identity and version bookkeeping shared by aggregates.
type Base struct {
	id      string
	version int64
}

// NewBase returns a base for the aggregate with the given id.
func NewBase(id string) Base {
	return Base{id: id}
}

// AggregateID returns the aggregate identifier.
func (b *Base) AggregateID() string { return b.id }

// Version returns the current stream version.
func (b *Base) Version() int64 { return b.version }

// SetVersion moves the stream version forward.
func (b *Base) SetVersion(v int64) { b.version = v }

// Replay folds events into a, advancing its version with each one.
func Replay(a Aggregate, events []message.Event) error {
	for _, evt := range events {
		if err := a.ApplyEvent(evt); err != nil {
			return err
		}
		a.SetVersion(evt.Version)
	}
	return nil
}
