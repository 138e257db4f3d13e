// Package dispatch delivers commands to the command loop of their target
// aggregate, either through Temporal or through in-process goroutines.
package dispatch

import (
	"context"
	"errors"

	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
	aggworkflow "github.com/Apurer/go-cqrs-platform/internal/platform/temporal/workflows/aggregate"
)

var (
	ErrInvalidReference = errors.New("dispatch: aggregate reference is incomplete")
	ErrInvalidCommand   = errors.New("dispatch: command has no id or type")
	ErrClosed           = errors.New("dispatch: dispatcher closed")
	ErrTenantMismatch   = errors.New("dispatch: command tenant does not match aggregate")
)

// Receipt acknowledges that a command was queued, not that it was processed.
type Receipt struct {
	WorkflowID string `json:"workflowId"`
	RunID      string `json:"runId,omitempty"`
	CommandID  string `json:"commandId"`
}

// Dispatcher queues commands and observability signals for an aggregate.
type Dispatcher interface {
	Dispatch(ctx context.Context, ref message.AggregateRef, cmd message.Command) (Receipt, error)
	Observe(ctx context.Context, ref message.AggregateRef, signal message.ObservabilitySignal) error
}

func validate(ref message.AggregateRef, cmd message.Command) error {
	if !ref.Valid() {
		return ErrInvalidReference
	}
	if cmd.ID == "" || cmd.Type == "" {
		return ErrInvalidCommand
	}
	if cmd.TenantID != "" && cmd.TenantID != ref.TenantID {
		return ErrTenantMismatch
	}
	return nil
}

// WorkflowID names the loop that owns ref in either runtime.
func WorkflowID(ref message.AggregateRef) string {
	return aggworkflow.WorkflowID(ref)
}
