// Package ports declares the persistence contracts of the event-sourced core.
package ports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/aggregate"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
)

var (
	// ErrConcurrencyConflict indicates an append whose versions do not follow the stored tail.
	ErrConcurrencyConflict = errors.New("event stream version conflict")
	// ErrInvalidAppend indicates events that do not belong to the target stream or are not contiguous.
	ErrInvalidAppend = errors.New("invalid event append")
)

// EventStore persists aggregate event streams.
type EventStore interface {
	// Append stores events as the new tail of ref's stream. Versions must continue
	// the stored tail; re-appending events already stored under the same ids and
	// versions is a no-op so retried apply steps stay idempotent.
	Append(ctx context.Context, ref message.AggregateRef, events []message.Event) error
	// Load returns events with a version greater than afterVersion, oldest first.
	Load(ctx context.Context, ref message.AggregateRef, afterVersion int64) ([]message.Event, error)
}

// SnapshotStore persists aggregate snapshots.
type SnapshotStore interface {
	Save(ctx context.Context, ref message.AggregateRef, env aggregate.Envelope) error
	// Latest returns the newest snapshot, or nil when none exists.
	Latest(ctx context.Context, ref message.AggregateRef) (*aggregate.Envelope, error)
	// Prune deletes snapshots created before olderThan, always keeping the newest per aggregate.
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
}

// ValidateAppend checks that events target ref and carry contiguous versions.
func ValidateAppend(ref message.AggregateRef, events []message.Event) error {
	if !ref.Valid() {
		return ErrInvalidAppend
	}
	for i, evt := range events {
		if message.RefOf(evt) != ref {
			return fmt.Errorf("%w: event %s belongs to another stream", ErrInvalidAppend, evt.ID)
		}
		if i > 0 && evt.Version != events[i-1].Version+1 {
			return fmt.Errorf("%w: event versions are not contiguous", ErrInvalidAppend)
		}
	}
	return nil
}

// ReconcileAppend decides what to do with events against the stored tail.
// It returns the events still to be written, or ErrConcurrencyConflict. stored
// looks up the id of an already persisted event by version.
func ReconcileAppend(current int64, events []message.Event, stored func(version int64) (string, bool)) ([]message.Event, error) {
	for i, evt := range events {
		if evt.Version > current {
			if evt.Version != current+1 {
				return nil, ErrConcurrencyConflict
			}
			return events[i:], nil
		}
		id, ok := stored(evt.Version)
		if !ok || id != evt.ID {
			return nil, ErrConcurrencyConflict
		}
	}
	return nil, nil
}
