// Package bus fans events out to the in-process handlers interested in them.
package bus

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
)

// Handler reacts to the events it supports.
type Handler interface {
	SupportsEvent(evt message.Event) bool
	On(ctx context.Context, evt message.Event) error
}

// HandlerFunc adapts a filter and a callback into a Handler.
type HandlerFunc struct {
	Supports func(message.Event) bool
	Handle   func(context.Context, message.Event) error
}

// SupportsEvent implements Handler.
func (h HandlerFunc) SupportsEvent(evt message.Event) bool {
	if h.Supports == nil {
		return true
	}
	return h.Supports(evt)
}

// On implements Handler.
func (h HandlerFunc) On(ctx context.Context, evt message.Event) error {
	if h.Handle == nil {
		return nil
	}
	return h.Handle(ctx, evt)
}

// ForTypes returns a filter matching any of the given event types.
func ForTypes(types ...string) func(message.Event) bool {
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return func(evt message.Event) bool {
		_, ok := set[evt.Type]
		return ok
	}
}

// Bus delivers events to every matching handler. Handlers are registered at
// bootstrap; the list is append-only.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

// New creates a bus with the given initial handlers.
func New(handlers ...Handler) *Bus {
	b := &Bus{}
	for _, h := range handlers {
		b.Register(h)
	}
	return b
}

// Register appends a handler.
func (b *Bus) Register(h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	b.handlers = append(b.handlers, h)
	b.mu.Unlock()
}

// Publish delivers a single event.
func (b *Bus) Publish(ctx context.Context, evt message.Event) error {
	return b.PublishBatch(ctx, []message.Event{evt})
}

// PublishBatch delivers events strictly in order. The matching handlers of one
// event run concurrently and all settle before the next event starts; the
// first handler error aborts the rest of the batch.
func (b *Bus) PublishBatch(ctx context.Context, events []message.Event) error {
	for _, evt := range events {
		matching := b.matching(evt)
		if len(matching) == 0 {
			continue
		}
		g, gctx := errgroup.WithContext(ctx)
		for _, h := range matching {
			h := h
			g.Go(func() error {
				return h.On(gctx, evt)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// Len reports the number of registered handlers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}

func (b *Bus) matching(evt message.Event) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		if h.SupportsEvent(evt) {
			out = append(out, h)
		}
	}
	return out
}
