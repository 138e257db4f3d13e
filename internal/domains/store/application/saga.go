package application

import (
	"context"
	"fmt"

	"github.com/Apurer/go-cqrs-platform/internal/domains/store/domain"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/registry"
)

// ReservePetSagaName is the registry key of the reservation saga.
const ReservePetSagaName = "store.reserve-pet-on-order"

// The pets context is addressed by name only so store does not import it.
const (
	petAggregateType  = "pets.pet"
	petReserveCommand = "pets.reserve"
)

var _ registry.Saga = ReservePetSaga{}

// ReservePetSaga holds the ordered pet as soon as an order is placed.
type ReservePetSaga struct{}

func (ReservePetSaga) SupportsEvent(evt message.Event) bool {
	return evt.Type == domain.EventPlaced
}

func (ReservePetSaga) Handle(_ context.Context, evt message.Event) ([]registry.SagaCommand, error) {
	var placed domain.OrderPlaced
	if err := message.Decode(evt.Payload, &placed); err != nil {
		return nil, fmt.Errorf("decode %s: %w", evt.Type, err)
	}
	return []registry.SagaCommand{{
		Target:  message.AggregateRef{TenantID: evt.TenantID, Type: petAggregateType, ID: placed.PetID},
		Type:    petReserveCommand,
		Payload: message.Payload{"orderId": evt.AggregateID},
	}}, nil
}
