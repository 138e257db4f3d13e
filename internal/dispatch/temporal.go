package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"

	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
	aggworkflow "github.com/Apurer/go-cqrs-platform/internal/platform/temporal/workflows/aggregate"
)

var _ Dispatcher = (*TemporalDispatcher)(nil)

// TemporalDispatcher signals aggregate workflows, starting a run when none is open.
type TemporalDispatcher struct {
	client         client.Client
	taskQueue      string
	idleTimeout    time.Duration
	commandsPerRun int
}

type TemporalOption func(*TemporalDispatcher)

func WithTaskQueue(queue string) TemporalOption {
	return func(d *TemporalDispatcher) {
		if queue != "" {
			d.taskQueue = queue
		}
	}
}

func WithIdleTimeout(timeout time.Duration) TemporalOption {
	return func(d *TemporalDispatcher) {
		d.idleTimeout = timeout
	}
}

func WithCommandsPerRun(n int) TemporalOption {
	return func(d *TemporalDispatcher) {
		d.commandsPerRun = n
	}
}

// NewTemporalDispatcher wires a Temporal client into the dispatcher.
func NewTemporalDispatcher(c client.Client, opts ...TemporalOption) *TemporalDispatcher {
	d := &TemporalDispatcher{client: c, taskQueue: aggworkflow.DefaultTaskQueue}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

func (d *TemporalDispatcher) startOptions(ref message.AggregateRef) client.StartWorkflowOptions {
	return client.StartWorkflowOptions{
		ID:                    WorkflowID(ref),
		TaskQueue:             d.taskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
	}
}

func (d *TemporalDispatcher) input(ref message.AggregateRef) aggworkflow.Input {
	return aggworkflow.Input{Ref: ref, IdleTimeout: d.idleTimeout, CommandsPerRun: d.commandsPerRun}
}

// Dispatch signals the command into the aggregate's workflow.
func (d *TemporalDispatcher) Dispatch(ctx context.Context, ref message.AggregateRef, cmd message.Command) (Receipt, error) {
	if d == nil || d.client == nil {
		return Receipt{}, errors.New("temporal dispatcher not configured")
	}
	if err := validate(ref, cmd); err != nil {
		return Receipt{}, err
	}
	options := d.startOptions(ref)
	run, err := d.client.SignalWithStartWorkflow(ctx, options.ID, aggworkflow.CommandSignal, cmd, options, aggworkflow.WorkflowName, d.input(ref))
	if err != nil {
		return Receipt{}, fmt.Errorf("signal %s: %w", options.ID, err)
	}
	return Receipt{WorkflowID: options.ID, RunID: run.GetRunID(), CommandID: cmd.ID}, nil
}

// Observe sends an observability signal, starting the workflow if needed.
func (d *TemporalDispatcher) Observe(ctx context.Context, ref message.AggregateRef, signal message.ObservabilitySignal) error {
	if d == nil || d.client == nil {
		return errors.New("temporal dispatcher not configured")
	}
	if !ref.Valid() {
		return ErrInvalidReference
	}
	options := d.startOptions(ref)
	if _, err := d.client.SignalWithStartWorkflow(ctx, options.ID, aggworkflow.ObservabilitySignal, signal, options, aggworkflow.WorkflowName, d.input(ref)); err != nil {
		return fmt.Errorf("signal %s: %w", options.ID, err)
	}
	return nil
}
