package sequences

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/commandloop"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
	aggactivities "github.com/Apurer/go-cqrs-platform/internal/platform/temporal/activities/aggregate"
)

var (
	decideOptions = workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        2 * time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        10 * time.Second,
			MaximumAttempts:        5,
			NonRetryableErrorTypes: []string{aggactivities.ConfigurationErrorType},
		},
	}
	effectOptions = workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        10 * time.Second,
			MaximumAttempts:        10,
			NonRetryableErrorTypes: []string{aggactivities.ConfigurationErrorType},
		},
	}
	signalOptions = workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    5 * time.Second,
			MaximumAttempts:    3,
		},
	}
)

// DecideCommand runs the decision activity for one command.
func DecideCommand(ctx workflow.Context, ref message.AggregateRef, cmd message.Command) (commandloop.Decision, error) {
	var decision commandloop.Decision
	input := aggactivities.DecideInput{Ref: ref, Command: cmd}
	err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, decideOptions), aggactivities.DecideActivityName, input).Get(ctx, &decision)
	if err != nil {
		workflow.GetLogger(ctx).Error("decide sequence failed", "aggregate", ref.String(), "commandId", cmd.ID, "error", err)
		return commandloop.Decision{}, err
	}
	return decision, nil
}

// ApplyEvents appends events to the aggregate stream.
func ApplyEvents(ctx workflow.Context, ref message.AggregateRef, events []message.Event) error {
	input := aggactivities.ApplyInput{Ref: ref, Events: events}
	return workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, effectOptions), aggactivities.ApplyActivityName, input).Get(ctx, nil)
}

// ProjectEvents updates the read models for a batch of events.
func ProjectEvents(ctx workflow.Context, events []message.Event) error {
	input := aggactivities.ProjectInput{Events: events}
	return workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, effectOptions), aggactivities.ProjectActivityName, input).Get(ctx, nil)
}

// RouteEvent hands one event to the bus.
func RouteEvent(ctx workflow.Context, evt message.Event) error {
	input := aggactivities.RouteInput{Event: evt}
	return workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, effectOptions), aggactivities.RouteActivityName, input).Get(ctx, nil)
}

// EmitSpan records an observability signal. Failures are logged only.
func EmitSpan(ctx workflow.Context, ref message.AggregateRef, signal message.ObservabilitySignal) {
	input := aggactivities.EmitSpanInput{Ref: ref, Signal: signal}
	if err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, signalOptions), aggactivities.EmitSpanActivityName, input).Get(ctx, nil); err != nil {
		workflow.GetLogger(ctx).Warn("emit span sequence failed", "aggregate", ref.String(), "span", signal.Span, "error", err)
	}
}
