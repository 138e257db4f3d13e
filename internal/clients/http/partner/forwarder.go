package partner

import (
	"context"

	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/bus"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
)

// Publisher is the part of Client the forwarder depends on.
type Publisher interface {
	PublishEvent(ctx context.Context, payload EventPayload, optFns ...SyncOption) error
}

// Forwarder is an event bus handler that mirrors events to the partner. The
// event id doubles as idempotency key so redelivered events are harmless.
type Forwarder struct {
	publisher Publisher
	supports  func(message.Event) bool
}

// NewForwarder forwards the given event types, or all events when none are
// listed.
func NewForwarder(p Publisher, eventTypes ...string) *Forwarder {
	f := &Forwarder{publisher: p}
	if len(eventTypes) > 0 {
		f.supports = bus.ForTypes(eventTypes...)
	}
	return f
}

// SupportsEvent implements bus.Handler.
func (f *Forwarder) SupportsEvent(evt message.Event) bool {
	if f.supports == nil {
		return true
	}
	return f.supports(evt)
}

// On implements bus.Handler.
func (f *Forwarder) On(ctx context.Context, evt message.Event) error {
	return f.publisher.PublishEvent(ctx, PayloadOf(evt), WithIdempotencyKey(evt.ID))
}

var _ bus.Handler = (*Forwarder)(nil)
