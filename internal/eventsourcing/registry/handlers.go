package registry

import (
	"context"
	"fmt"

	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/aggregate"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
)

// CommandHandler decides which events a command produces against the current
// aggregate state. Rule violations are returned as *domainerr.BusinessRuleError.
type CommandHandler interface {
	Handle(ctx context.Context, agg aggregate.Aggregate, cmd message.Command) ([]message.Draft, error)
}

// CommandHandlerFunc adapts a function into a CommandHandler.
type CommandHandlerFunc func(ctx context.Context, agg aggregate.Aggregate, cmd message.Command) ([]message.Draft, error)

// Handle implements CommandHandler.
func (f CommandHandlerFunc) Handle(ctx context.Context, agg aggregate.Aggregate, cmd message.Command) ([]message.Draft, error) {
	return f(ctx, agg, cmd)
}

// TypedCommandHandler bridges a handler written against a concrete aggregate
// type into the untyped handler table.
type TypedCommandHandler[A aggregate.Aggregate] func(ctx context.Context, agg A, cmd message.Command) ([]message.Draft, error)

// Handle implements CommandHandler.
func (f TypedCommandHandler[A]) Handle(ctx context.Context, agg aggregate.Aggregate, cmd message.Command) ([]message.Draft, error) {
	typed, ok := agg.(A)
	if !ok {
		return nil, fmt.Errorf("command %s: aggregate %T does not match handler", cmd.Type, agg)
	}
	return f(ctx, typed, cmd)
}

// SagaCommand is a follow-up command a saga wants dispatched to another aggregate.
type SagaCommand struct {
	Target  message.AggregateRef
	Type    string
	Payload message.Payload
}

// Saga reacts to events by issuing commands to other aggregates.
type Saga interface {
	SupportsEvent(evt message.Event) bool
	Handle(ctx context.Context, evt message.Event) ([]SagaCommand, error)
}

// Projection keeps a read model in step with the events it handles.
type Projection interface {
	Handles(evt message.Event) bool
	Project(ctx context.Context, evt message.Event) error
}
