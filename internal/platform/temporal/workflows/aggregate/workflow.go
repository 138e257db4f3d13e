// Package aggregate hosts the per-aggregate command loop on Temporal. One
// workflow execution exists per aggregate instance at a time; commands arrive
// as signals and every external effect runs as an activity.
package aggregate

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/commandloop"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
	"github.com/Apurer/go-cqrs-platform/internal/platform/temporal/sequences"
)

const (
	// WorkflowName is the public identifier for registering the workflow.
	WorkflowName = "aggregate.workflows.CommandLoop"
	// DefaultTaskQueue is consumed by the worker processing aggregate workflows.
	DefaultTaskQueue = "aggregate-commands"

	// CommandSignal delivers one message.Command into the queue.
	CommandSignal = "aggregate.command"
	// ObservabilitySignal delivers a message.ObservabilitySignal.
	ObservabilitySignal = "aggregate.observability"
	// QueueStateQuery returns the current commandloop.State.
	QueueStateQuery = "aggregate.queue_state"
)

// Input starts or continues a workflow run.
type Input struct {
	Ref   message.AggregateRef `json:"ref"`
	State commandloop.State    `json:"state"`
	// IdleTimeout defaults to commandloop.DefaultIdleTimeout.
	IdleTimeout time.Duration `json:"idleTimeout,omitempty"`
	// CommandsPerRun bounds history growth; zero disables continue-as-new.
	CommandsPerRun int `json:"commandsPerRun,omitempty"`
}

// WorkflowID is the deterministic id of an aggregate's workflow.
func WorkflowID(ref message.AggregateRef) string {
	return fmt.Sprintf("aggregate-%s-%s-%s", ref.TenantID, ref.Type, ref.ID)
}

// AggregateCommandWorkflow drains signalled commands through decide, apply,
// project and route until the queue stays empty for the idle timeout or a
// command is rejected.
func AggregateCommandWorkflow(ctx workflow.Context, input Input) (commandloop.Result, error) {
	logger := workflow.GetLogger(ctx)
	if !input.Ref.Valid() {
		return commandloop.Result{}, temporal.NewNonRetryableApplicationError("aggregate reference is incomplete", "InvalidInput", nil)
	}

	current := input.State
	if err := workflow.SetQueryHandler(ctx, QueueStateQuery, func() (commandloop.State, error) {
		return current, nil
	}); err != nil {
		return commandloop.Result{}, err
	}

	observations := workflow.GetSignalChannel(ctx, ObservabilitySignal)
	workflow.Go(ctx, func(gctx workflow.Context) {
		for {
			var signal message.ObservabilitySignal
			if more := observations.Receive(gctx, &signal); !more {
				return
			}
			sequences.EmitSpan(gctx, input.Ref, signal)
		}
	})

	loop := &commandloop.Loop{
		Inbox:       &signalInbox{ctx: ctx, ch: workflow.GetSignalChannel(ctx, CommandSignal)},
		Steps:       &activitySteps{ctx: ctx, ref: input.Ref},
		Logger:      logger,
		IdleTimeout: input.IdleTimeout,
		MaxCommands: input.CommandsPerRun,
		OnChange:    func(s commandloop.State) { current = s },
	}
	logger.Info("AggregateCommandWorkflow started", "aggregate", input.Ref.String(), "pending", len(input.State.Pending))

	exit, err := loop.Run(input.State)
	if err != nil {
		logger.Error("AggregateCommandWorkflow failed", "aggregate", input.Ref.String(), "error", err)
		return commandloop.Result{}, err
	}

	switch exit.Reason {
	case commandloop.ExitContinue:
		next := input
		next.State = exit.State
		logger.Info("AggregateCommandWorkflow continuing as new", "aggregate", input.Ref.String(), "processed", exit.Processed, "pending", len(exit.State.Pending))
		return commandloop.Result{}, workflow.NewContinueAsNewError(ctx, WorkflowName, next)
	case commandloop.ExitFailed:
		logger.Warn("AggregateCommandWorkflow rejected a command", "aggregate", input.Ref.String(), "processed", exit.Processed)
	default:
		logger.Info("AggregateCommandWorkflow completed", "aggregate", input.Ref.String(), "processed", exit.Processed)
	}
	return exit.Result, nil
}

type signalInbox struct {
	ctx workflow.Context
	ch  workflow.ReceiveChannel
}

func (in *signalInbox) TryReceive() (message.Command, bool) {
	var cmd message.Command
	if in.ch.ReceiveAsync(&cmd) {
		return cmd, true
	}
	return message.Command{}, false
}

func (in *signalInbox) Receive(timeout time.Duration) (message.Command, bool) {
	timerCtx, cancelTimer := workflow.WithCancel(in.ctx)
	defer cancelTimer()

	var cmd message.Command
	received := false
	selector := workflow.NewSelector(in.ctx)
	selector.AddReceive(in.ch, func(c workflow.ReceiveChannel, _ bool) {
		c.Receive(in.ctx, &cmd)
		received = true
	})
	selector.AddFuture(workflow.NewTimer(timerCtx, timeout), func(workflow.Future) {})
	selector.Select(in.ctx)

	if !received {
		// a signal can land in the same task as the timer
		return in.TryReceive()
	}
	return cmd, true
}

type activitySteps struct {
	ctx workflow.Context
	ref message.AggregateRef
}

func (s *activitySteps) Decide(cmd message.Command) (commandloop.Decision, error) {
	return sequences.DecideCommand(s.ctx, s.ref, cmd)
}

func (s *activitySteps) Apply(events []message.Event) error {
	return sequences.ApplyEvents(s.ctx, s.ref, events)
}

func (s *activitySteps) Project(events []message.Event) error {
	return sequences.ProjectEvents(s.ctx, events)
}

func (s *activitySteps) Route(evt message.Event) error {
	return sequences.RouteEvent(s.ctx, evt)
}
