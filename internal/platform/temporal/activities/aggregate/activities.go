package aggregate

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"

	"github.com/Apurer/go-cqrs-platform/internal/engine"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/commandloop"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
	"github.com/Apurer/go-cqrs-platform/internal/platform/requestctx"
)

const (
	// DecideActivityName loads the aggregate and derives events for one command.
	DecideActivityName = "aggregate.activities.Decide"
	// ApplyActivityName appends decided events to the aggregate stream.
	ApplyActivityName = "aggregate.activities.Apply"
	// ProjectActivityName updates read models.
	ProjectActivityName = "aggregate.activities.Project"
	// RouteActivityName publishes one event on the bus.
	RouteActivityName = "aggregate.activities.Route"
	// EmitSpanActivityName records an observability signal.
	EmitSpanActivityName = "aggregate.activities.EmitSpan"

	// ConfigurationErrorType marks failures that retrying cannot fix.
	ConfigurationErrorType = "ConfigurationError"
)

var errNotInitialized = errors.New("aggregate activities not initialized")

type DecideInput struct {
	Ref     message.AggregateRef `json:"ref"`
	Command message.Command      `json:"command"`
}

type ApplyInput struct {
	Ref    message.AggregateRef `json:"ref"`
	Events []message.Event      `json:"events"`
}

type ProjectInput struct {
	Events []message.Event `json:"events"`
}

type RouteInput struct {
	Event message.Event `json:"event"`
}

type EmitSpanInput struct {
	Ref    message.AggregateRef        `json:"ref"`
	Signal message.ObservabilitySignal `json:"signal"`
}

// Activities exposes the engine steps to the aggregate workflow.
type Activities struct {
	engine engine.Service
}

// NewActivities wires the engine into the Temporal activities bundle.
func NewActivities(e engine.Service) *Activities {
	return &Activities{engine: e}
}

// Register adds every activity under its stable name.
func (a *Activities) Register(r worker.ActivityRegistry) {
	r.RegisterActivityWithOptions(a.Decide, activity.RegisterOptions{Name: DecideActivityName})
	r.RegisterActivityWithOptions(a.Apply, activity.RegisterOptions{Name: ApplyActivityName})
	r.RegisterActivityWithOptions(a.Project, activity.RegisterOptions{Name: ProjectActivityName})
	r.RegisterActivityWithOptions(a.Route, activity.RegisterOptions{Name: RouteActivityName})
	r.RegisterActivityWithOptions(a.EmitSpan, activity.RegisterOptions{Name: EmitSpanActivityName})
}

func (a *Activities) Decide(ctx context.Context, input DecideInput) (commandloop.Decision, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.engine == nil {
		return commandloop.Decision{}, errNotInitialized
	}
	cmd := input.Command
	ctx = withCommandContext(ctx, cmd)
	decision, err := a.engine.Decide(ctx, input.Ref, cmd)
	if err != nil {
		logger.Error("Decide activity failed", "aggregate", input.Ref.String(), "commandId", cmd.ID, "error", err)
		return commandloop.Decision{}, classify(err)
	}
	logger.Info("Decide activity completed", "aggregate", input.Ref.String(), "commandId", cmd.ID, "status", decision.Status, "events", len(decision.Events))
	return decision, nil
}

func (a *Activities) Apply(ctx context.Context, input ApplyInput) error {
	logger := activity.GetLogger(ctx)
	if a == nil || a.engine == nil {
		return errNotInitialized
	}
	if err := a.engine.Apply(ctx, input.Ref, input.Events); err != nil {
		logger.Error("Apply activity failed", "aggregate", input.Ref.String(), "events", len(input.Events), "error", err)
		return classify(err)
	}
	return nil
}

func (a *Activities) Project(ctx context.Context, input ProjectInput) error {
	if a == nil || a.engine == nil {
		return errNotInitialized
	}
	if err := a.engine.Project(ctx, input.Events); err != nil {
		activity.GetLogger(ctx).Error("Project activity failed", "events", len(input.Events), "error", err)
		return classify(err)
	}
	return nil
}

func (a *Activities) Route(ctx context.Context, input RouteInput) error {
	if a == nil || a.engine == nil {
		return errNotInitialized
	}
	evt := input.Event
	ctx = requestctx.WithRequestID(ctx, evt.Metadata.RequestID)
	if err := a.engine.Route(ctx, evt); err != nil {
		activity.GetLogger(ctx).Error("Route activity failed", "eventId", evt.ID, "eventType", evt.Type, "error", err)
		return classify(err)
	}
	return nil
}

func (a *Activities) EmitSpan(ctx context.Context, input EmitSpanInput) error {
	if a == nil || a.engine == nil {
		return errNotInitialized
	}
	return a.engine.EmitSpan(ctx, input.Ref, input.Signal)
}

func withCommandContext(ctx context.Context, cmd message.Command) context.Context {
	if cmd.Metadata.RequestID != "" {
		ctx = requestctx.WithRequestID(ctx, cmd.Metadata.RequestID)
	}
	if cmd.Metadata.UserID != "" {
		ctx = requestctx.WithUserID(ctx, cmd.Metadata.UserID)
	}
	return ctx
}

func classify(err error) error {
	if engine.IsConfigurationError(err) {
		return temporal.NewNonRetryableApplicationError(err.Error(), ConfigurationErrorType, err)
	}
	return err
}
