package application

import (
	"context"

	storetypes "github.com/Apurer/go-cqrs-platform/internal/domains/store/application/types"
	"github.com/Apurer/go-cqrs-platform/internal/domains/store/domain"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/registry"
)

func commandHandlers() map[string]registry.CommandHandler {
	return map[string]registry.CommandHandler{
		storetypes.CommandPlaceOrder:   registry.TypedCommandHandler[*domain.Order](placeOrder),
		storetypes.CommandApproveOrder: registry.TypedCommandHandler[*domain.Order](approveOrder),
		storetypes.CommandDeliverOrder: registry.TypedCommandHandler[*domain.Order](deliverOrder),
	}
}

func placeOrder(_ context.Context, order *domain.Order, cmd message.Command) ([]message.Draft, error) {
	var input storetypes.PlaceOrderInput
	if err := message.Decode(cmd.Payload, &input); err != nil {
		return nil, invalidInput(err)
	}
	evt, err := order.Place(input.PetID, input.Quantity, input.ShipDate)
	if err != nil {
		return nil, mapError(err)
	}
	return drafts(evt)
}

func approveOrder(_ context.Context, order *domain.Order, cmd message.Command) ([]message.Draft, error) {
	evt, err := order.Approve(cmd.Metadata.UserID)
	if err != nil {
		return nil, mapError(err)
	}
	return drafts(evt)
}

// deliverOrder stamps the delivery with the command timestamp so retried
// decisions produce the same event.
func deliverOrder(_ context.Context, order *domain.Order, cmd message.Command) ([]message.Draft, error) {
	evt, err := order.Deliver(cmd.Metadata.Timestamp)
	if err != nil {
		return nil, mapError(err)
	}
	return drafts(evt)
}

func drafts(events ...domain.Event) ([]message.Draft, error) {
	out := make([]message.Draft, 0, len(events))
	for _, evt := range events {
		payload, err := message.PayloadOf(evt)
		if err != nil {
			return nil, err
		}
		out = append(out, message.Draft{Type: evt.EventName(), Payload: payload})
	}
	return out, nil
}
