package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/aggregate"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
	"github.com/Apurer/go-cqrs-platform/internal/eventstore/ports"
)

var (
	_ ports.EventStore    = (*EventStore)(nil)
	_ ports.SnapshotStore = (*SnapshotStore)(nil)
)

// EventStore keeps event streams in process memory.
type EventStore struct {
	mu      sync.RWMutex
	streams map[message.AggregateRef][]message.Event
}

// NewEventStore creates an empty in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{streams: map[message.AggregateRef][]message.Event{}}
}

// Append implements ports.EventStore.
func (s *EventStore) Append(_ context.Context, ref message.AggregateRef, events []message.Event) error {
	if len(events) == 0 {
		return nil
	}
	if err := ports.ValidateAppend(ref, events); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stream := s.streams[ref]
	current := int64(0)
	if n := len(stream); n > 0 {
		current = stream[n-1].Version
	}
	pending, err := ports.ReconcileAppend(current, events, func(version int64) (string, bool) {
		for _, evt := range stream {
			if evt.Version == version {
				return evt.ID, true
			}
		}
		return "", false
	})
	if err != nil {
		return err
	}
	s.streams[ref] = append(stream, pending...)
	return nil
}

// Load implements ports.EventStore.
func (s *EventStore) Load(_ context.Context, ref message.AggregateRef, afterVersion int64) ([]message.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stream := s.streams[ref]
	out := make([]message.Event, 0, len(stream))
	for _, evt := range stream {
		if evt.Version > afterVersion {
			out = append(out, evt)
		}
	}
	return out, nil
}

type snapshotEntry struct {
	env aggregate.Envelope
}

// SnapshotStore keeps every saved snapshot per aggregate, newest last.
type SnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[message.AggregateRef][]snapshotEntry
}

// NewSnapshotStore creates an empty in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{snapshots: map[message.AggregateRef][]snapshotEntry{}}
}

// Save implements ports.SnapshotStore.
func (s *SnapshotStore) Save(_ context.Context, ref message.AggregateRef, env aggregate.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.snapshots[ref]
	if n := len(list); n > 0 && list[n-1].env.Version >= env.Version {
		return nil
	}
	s.snapshots[ref] = append(list, snapshotEntry{env: env})
	return nil
}

// Latest implements ports.SnapshotStore.
func (s *SnapshotStore) Latest(_ context.Context, ref message.AggregateRef) (*aggregate.Envelope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.snapshots[ref]
	if len(list) == 0 {
		return nil, nil
	}
	env := list[len(list)-1].env
	return &env, nil
}

// Prune implements ports.SnapshotStore.
func (s *SnapshotStore) Prune(_ context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for ref, list := range s.snapshots {
		if len(list) < 2 {
			continue
		}
		kept := make([]snapshotEntry, 0, len(list))
		for i, entry := range list {
			if i < len(list)-1 && entry.env.CreatedAt.Before(olderThan) {
				removed++
				continue
			}
			kept = append(kept, entry)
		}
		s.snapshots[ref] = kept
	}
	return removed, nil
}
