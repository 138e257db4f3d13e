// Package application registers the store bounded context: the order
// aggregate, its commands and events, the order view projection, and the saga
// that reserves pets for new orders.
package application

import (
	storetypes "github.com/Apurer/go-cqrs-platform/internal/domains/store/application/types"
	"github.com/Apurer/go-cqrs-platform/internal/domains/store/domain"
	"github.com/Apurer/go-cqrs-platform/internal/domains/store/ports"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/registry"
)

const Domain = "store"

var Roles = []string{"store.admin", "store.clerk"}

var commandDescriptions = map[string]string{
	storetypes.CommandPlaceOrder:   "Place an order for a pet",
	storetypes.CommandApproveOrder: "Approve a placed order",
	storetypes.CommandDeliverOrder: "Mark an approved order as delivered",
}

// Register adds the store context to reg. Any registration error is fatal.
func Register(reg *registry.Registry, views ports.ReadModel) error {
	if err := reg.RegisterAggregate(domain.AggregateType, domain.New); err != nil {
		return err
	}
	for _, name := range registry.SortedNames(commandDescriptions) {
		ct := registry.CommandType{Name: name, Domain: Domain, AggregateType: domain.AggregateType, Description: commandDescriptions[name]}
		if err := reg.RegisterCommandType(ct); err != nil {
			return err
		}
	}
	handlers := commandHandlers()
	for _, name := range registry.SortedNames(handlers) {
		if err := reg.RegisterCommandHandler(name, handlers[name]); err != nil {
			return err
		}
	}
	for _, name := range []string{domain.EventPlaced, domain.EventApproved, domain.EventDelivered} {
		et := registry.EventType{Name: name, Domain: Domain, AggregateType: domain.AggregateType, SchemaVersion: 1}
		if err := reg.RegisterEventType(et); err != nil {
			return err
		}
	}
	if views != nil {
		if err := reg.RegisterProjection(ProjectionName, NewProjector(views)); err != nil {
			return err
		}
	}
	if err := reg.RegisterSaga(ReservePetSagaName, ReservePetSaga{}); err != nil {
		return err
	}
	return reg.RegisterRoles(Domain, Roles)
}
