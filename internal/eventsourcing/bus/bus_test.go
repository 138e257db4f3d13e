package bus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
)

type recorder struct {
	mu   sync.Mutex
	seen []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	r.seen = append(r.seen, s)
	r.mu.Unlock()
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

func TestPublishBatch_DeliversOnlyToMatchingHandlers(t *testing.T) {
	rec := &recorder{}
	b := New(
		HandlerFunc{Supports: ForTypes("a"), Handle: func(_ context.Context, e message.Event) error {
			rec.add("h1:" + e.ID)
			return nil
		}},
		HandlerFunc{Supports: ForTypes("b"), Handle: func(_ context.Context, e message.Event) error {
			rec.add("h2:" + e.ID)
			return nil
		}},
	)

	err := b.PublishBatch(context.Background(), []message.Event{{ID: "1", Type: "a"}, {ID: "2", Type: "b"}, {ID: "3", Type: "c"}})
	require.NoError(t, err)
	require.Equal(t, []string{"h1:1", "h2:2"}, rec.list())
}

func TestPublishBatch_EventsAreSequential(t *testing.T) {
	rec := &recorder{}
	slow := HandlerFunc{Handle: func(_ context.Context, e message.Event) error {
		if e.ID == "1" {
			time.Sleep(20 * time.Millisecond)
		}
		rec.add("slow:" + e.ID)
		return nil
	}}
	fast := HandlerFunc{Handle: func(_ context.Context, e message.Event) error {
		rec.add("fast:" + e.ID)
		return nil
	}}
	b := New(slow, fast)

	require.NoError(t, b.PublishBatch(context.Background(), []message.Event{{ID: "1"}, {ID: "2"}}))

	seen := rec.list()
	require.Len(t, seen, 4)
	require.ElementsMatch(t, []string{"slow:1", "fast:1"}, seen[:2])
	require.ElementsMatch(t, []string{"slow:2", "fast:2"}, seen[2:])
}

func TestPublishBatch_HandlersOfOneEventRunConcurrently(t *testing.T) {
	var running, peak int32
	h := HandlerFunc{Handle: func(context.Context, message.Event) error {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return nil
	}}
	b := New(h, h, h)

	require.NoError(t, b.Publish(context.Background(), message.Event{ID: "1"}))
	require.Equal(t, int32(3), atomic.LoadInt32(&peak))
}

func TestPublishBatch_FailureAbortsRemainingEvents(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("boom")
	b := New(HandlerFunc{Handle: func(_ context.Context, e message.Event) error {
		rec.add(e.ID)
		if e.ID == "2" {
			return boom
		}
		return nil
	}})

	err := b.PublishBatch(context.Background(), []message.Event{{ID: "1"}, {ID: "2"}, {ID: "3"}})
	require.ErrorIs(t, err, boom)
	require.Equal(t, []string{"1", "2"}, rec.list())
}

func TestRegisterIgnoresNil(t *testing.T) {
	b := New()
	b.Register(nil)
	require.Zero(t, b.Len())
}
