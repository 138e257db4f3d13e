package aggregate

import (
	"errors"
	"fmt"
	"time"

	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/upcast"
)

var (
	// ErrNoUpcastPath indicates a snapshot older than the code with no transform to bring it forward.
	ErrNoUpcastPath = errors.New("no upcast path for snapshot schema version")
	// ErrSnapshotFromFuture indicates a snapshot written by newer code than is running.
	ErrSnapshotFromFuture = errors.New("snapshot schema version is newer than the aggregate")
	// ErrTypeMismatch indicates a snapshot applied to a different aggregate type.
	ErrTypeMismatch = errors.New("snapshot type does not match aggregate type")
)

var now = time.Now

// Snapshot is a point-in-time serialization of aggregate state tagged with the
// schema version of the code that produced it. The JSON shape is a durable contract.
type Snapshot struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	State         State     `json:"state"`
	CreatedAt     time.Time `json:"createdAt"`
	SchemaVersion int       `json:"schemaVersion"`
}

// Envelope pairs a snapshot with the stream version it covers.
type Envelope struct {
	Snapshot
	Version int64 `json:"version"`
}

// ToSnapshot serializes a with the aggregate's current schema version.
func ToSnapshot(a Aggregate) (Snapshot, error) {
	state, err := a.ExtractSnapshotState()
	if err != nil {
		return Snapshot{}, fmt.Errorf("extract snapshot state for %s %s: %w", a.AggregateType(), a.AggregateID(), err)
	}
	return Snapshot{
		ID:            a.AggregateID(),
		Type:          a.AggregateType(),
		State:         state,
		CreatedAt:     now().UTC(),
		SchemaVersion: a.SchemaVersion(),
	}, nil
}

// ToEnvelope serializes a together with its current stream version.
func ToEnvelope(a Aggregate) (Envelope, error) {
	snap, err := ToSnapshot(a)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Snapshot: snap, Version: a.Version()}, nil
}

// Loader rehydrates aggregates from snapshots, upcasting legacy state first.
type Loader struct {
	Upcasters *upcast.Registry
}

// NewLoader creates a loader backed by the given upcaster registry.
func NewLoader(upcasters *upcast.Registry) *Loader {
	return &Loader{Upcasters: upcasters}
}

// FromSnapshot builds a fresh instance with the snapshot's id and version and
// replays the snapshot state into it.
func (l *Loader) FromSnapshot(factory Factory, env Envelope) (Aggregate, error) {
	if factory == nil {
		return nil, errors.New("aggregate factory is required")
	}
	a := factory(env.ID)
	if env.Type != "" && env.Type != a.AggregateType() {
		return nil, fmt.Errorf("%w: snapshot %q, aggregate %q", ErrTypeMismatch, env.Type, a.AggregateType())
	}
	a.SetVersion(env.Version)
	if err := l.ApplySnapshotState(a, env.State, env.SchemaVersion); err != nil {
		return nil, err
	}
	return a, nil
}

// ApplySnapshotState upcasts raw from incomingVersion and applies it to a.
// An incomingVersion of zero or less means omitted and is taken to be the
// aggregate's current schema version.
func (l *Loader) ApplySnapshotState(a Aggregate, raw State, incomingVersion int) error {
	current := a.SchemaVersion()
	if incomingVersion <= 0 {
		incomingVersion = current
	}
	if incomingVersion > current {
		return fmt.Errorf("%w: %s snapshot v%d, code v%d", ErrSnapshotFromFuture, a.AggregateType(), incomingVersion, current)
	}
	if raw == nil {
		raw = State{}
	}

	upcaster, ownsUpcast := a.(SnapshotUpcaster)
	if incomingVersion < current {
		var registered bool
		if l != nil && l.Upcasters.Has(a.AggregateType(), incomingVersion) {
			raw = l.Upcasters.Upcast(a.AggregateType(), raw, incomingVersion)
			registered = true
		}
		if !registered && !ownsUpcast {
			return fmt.Errorf("%w: %s v%d -> v%d", ErrNoUpcastPath, a.AggregateType(), incomingVersion, current)
		}
	}
	if ownsUpcast {
		upcasted, err := upcaster.UpcastSnapshotState(raw, incomingVersion)
		if err != nil {
			return fmt.Errorf("upcast %s snapshot from v%d: %w", a.AggregateType(), incomingVersion, err)
		}
		raw = upcasted
	}
	if err := a.ApplyUpcastedSnapshot(raw); err != nil {
		return fmt.Errorf("apply %s snapshot: %w", a.AggregateType(), err)
	}
	return nil
}
