package dispatch

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/bus"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/registry"
)

// sagaNamespace seeds deterministic saga command ids.
var sagaNamespace = uuid.MustParse("6f1c7c4e-3b1a-4c55-9a43-2f0d3c8f5a11")

// SagaHandler turns the commands a saga issues into dispatches.
type SagaHandler struct {
	name       string
	saga       registry.Saga
	dispatcher Dispatcher
	logger     *slog.Logger
}

var _ bus.Handler = (*SagaHandler)(nil)

// NewSagaHandler adapts saga into a bus handler.
func NewSagaHandler(name string, saga registry.Saga, d Dispatcher, logger *slog.Logger) *SagaHandler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &SagaHandler{name: name, saga: saga, dispatcher: d, logger: logger}
}

func (h *SagaHandler) SupportsEvent(evt message.Event) bool {
	return h.saga.SupportsEvent(evt)
}

// On dispatches every command the saga derives from evt. Command ids are
// derived from the event id so a redelivered event yields the same commands.
func (h *SagaHandler) On(ctx context.Context, evt message.Event) error {
	commands, err := h.saga.Handle(ctx, evt)
	if err != nil {
		return fmt.Errorf("saga %s on %s: %w", h.name, evt.ID, err)
	}
	for i, sc := range commands {
		target := sc.Target
		if target.TenantID == "" {
			target.TenantID = evt.TenantID
		}
		id := uuid.NewSHA1(sagaNamespace, []byte(fmt.Sprintf("%s/%s/%d", evt.ID, h.name, i))).String()
		md := message.InheritMetadata(ctx, evt, message.Metadata{Source: "saga:" + h.name})
		cmd := message.BuildCommand(id, target.TenantID, sc.Type, sc.Payload, md)
		receipt, err := h.dispatcher.Dispatch(ctx, target, cmd)
		if err != nil {
			return fmt.Errorf("saga %s dispatch %s to %s: %w", h.name, sc.Type, target, err)
		}
		h.logger.LogAttrs(ctx, slog.LevelInfo, "saga dispatched command",
			slog.String("saga", h.name),
			slog.String("event.id", evt.ID),
			slog.String("command.id", cmd.ID),
			slog.String("command.type", cmd.Type),
			slog.String("workflow.id", receipt.WorkflowID),
		)
	}
	return nil
}

// SagaHandlers adapts every registered saga, ordered by name.
func SagaHandlers(reg *registry.Registry, d Dispatcher, logger *slog.Logger) []bus.Handler {
	sagas := reg.AllSagas()
	handlers := make([]bus.Handler, 0, len(sagas))
	for _, name := range registry.SortedNames(sagas) {
		handlers = append(handlers, NewSagaHandler(name, sagas[name], d, logger))
	}
	return handlers
}
