package dispatch

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	workerlog "go.temporal.io/sdk/log"

	"github.com/Apurer/go-cqrs-platform/internal/engine"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/commandloop"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
	"github.com/Apurer/go-cqrs-platform/internal/platform/requestctx"
)

var _ Dispatcher = (*InlineDispatcher)(nil)

// InlineDispatcher runs each aggregate's command loop on its own goroutine
// inside the current process. It is the development fallback when Temporal is
// disabled and offers no durability across restarts.
type InlineDispatcher struct {
	engine         engine.Service
	logger         *slog.Logger
	idleTimeout    time.Duration
	commandsPerRun int
	onExit         func(message.AggregateRef, commandloop.Exit, error)

	mu     sync.Mutex
	loops  map[string]*inlineQueue
	closed bool
	wg     sync.WaitGroup
}

type InlineOption func(*InlineDispatcher)

func WithInlineLogger(logger *slog.Logger) InlineOption {
	return func(d *InlineDispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func WithInlineIdleTimeout(timeout time.Duration) InlineOption {
	return func(d *InlineDispatcher) {
		d.idleTimeout = timeout
	}
}

func WithInlineCommandsPerRun(n int) InlineOption {
	return func(d *InlineDispatcher) {
		d.commandsPerRun = n
	}
}

// WithExitHook observes every finished run.
func WithExitHook(fn func(message.AggregateRef, commandloop.Exit, error)) InlineOption {
	return func(d *InlineDispatcher) {
		d.onExit = fn
	}
}

// NewInlineDispatcher runs loops directly against the engine.
func NewInlineDispatcher(e engine.Service, opts ...InlineOption) *InlineDispatcher {
	d := &InlineDispatcher{
		engine: e,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		loops:  make(map[string]*inlineQueue),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Dispatch appends the command to the aggregate's queue, starting its loop if
// none is running.
func (d *InlineDispatcher) Dispatch(_ context.Context, ref message.AggregateRef, cmd message.Command) (Receipt, error) {
	if err := validate(ref, cmd); err != nil {
		return Receipt{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return Receipt{}, ErrClosed
	}
	key := ref.String()
	q, ok := d.loops[key]
	if !ok {
		q = newInlineQueue()
		d.loops[key] = q
		d.wg.Add(1)
		go d.run(ref, q)
	}
	q.push(cmd)
	return Receipt{WorkflowID: WorkflowID(ref), CommandID: cmd.ID}, nil
}

// Observe emits the signal immediately; it never waits on the command queue.
func (d *InlineDispatcher) Observe(ctx context.Context, ref message.AggregateRef, signal message.ObservabilitySignal) error {
	if !ref.Valid() {
		return ErrInvalidReference
	}
	return d.engine.EmitSpan(context.WithoutCancel(ctx), ref, signal)
}

// Close stops accepting commands and waits for running loops to idle out.
func (d *InlineDispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Active reports how many aggregates currently have a running loop.
func (d *InlineDispatcher) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.loops)
}

func (d *InlineDispatcher) run(ref message.AggregateRef, q *inlineQueue) {
	defer d.wg.Done()
	logger := d.logger.With(slog.String("aggregate", ref.String()))
	loop := &commandloop.Loop{
		Inbox:       q,
		Steps:       &engineSteps{engine: d.engine, ref: ref},
		Logger:      workerlog.NewStructuredLogger(logger),
		IdleTimeout: d.idleTimeout,
		MaxCommands: d.commandsPerRun,
	}

	var state commandloop.State
	for {
		exit, err := loop.Run(state)
		if d.onExit != nil {
			d.onExit(ref, exit, err)
		}
		switch {
		case err != nil:
			logger.Error("inline command loop failed", slog.String("error", err.Error()))
			state = commandloop.State{}
		case exit.Reason == commandloop.ExitContinue:
			state = exit.State
			continue
		case exit.Reason == commandloop.ExitFailed:
			logger.Warn("inline command loop rejected a command", slog.String("error", exit.Result.Error.Error()))
			state = commandloop.State{}
		default:
			state = exit.State
		}
		if d.retire(ref, q) {
			return
		}
		// commands arrived after the run ended
	}
}

// retire removes the loop unless commands are still queued.
func (d *InlineDispatcher) retire(ref message.AggregateRef, q *inlineQueue) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if q.len() > 0 {
		return false
	}
	delete(d.loops, ref.String())
	return true
}

type inlineQueue struct {
	mu    sync.Mutex
	items []message.Command
	wake  chan struct{}
}

func newInlineQueue() *inlineQueue {
	return &inlineQueue{wake: make(chan struct{}, 1)}
}

func (q *inlineQueue) push(cmd message.Command) {
	q.mu.Lock()
	q.items = append(q.items, cmd)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *inlineQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *inlineQueue) TryReceive() (message.Command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return message.Command{}, false
	}
	cmd := q.items[0]
	q.items = q.items[1:]
	return cmd, true
}

func (q *inlineQueue) Receive(timeout time.Duration) (message.Command, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		if cmd, ok := q.TryReceive(); ok {
			return cmd, true
		}
		select {
		case <-q.wake:
		case <-timer.C:
			return q.TryReceive()
		}
	}
}

type engineSteps struct {
	engine engine.Service
	ref    message.AggregateRef
}

func (s *engineSteps) ctx(md message.Metadata) context.Context {
	ctx := context.Background()
	if md.RequestID != "" {
		ctx = requestctx.WithRequestID(ctx, md.RequestID)
	}
	if md.UserID != "" {
		ctx = requestctx.WithUserID(ctx, md.UserID)
	}
	return ctx
}

func (s *engineSteps) Decide(cmd message.Command) (commandloop.Decision, error) {
	return s.engine.Decide(s.ctx(cmd.Metadata), s.ref, cmd)
}

func (s *engineSteps) Apply(events []message.Event) error {
	return s.engine.Apply(context.Background(), s.ref, events)
}

func (s *engineSteps) Project(events []message.Event) error {
	return s.engine.Project(context.Background(), events)
}

func (s *engineSteps) Route(evt message.Event) error {
	return s.engine.Route(s.ctx(evt.Metadata), evt)
}
