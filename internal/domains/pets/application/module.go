// Package application registers the pets bounded context with the platform:
// the pet aggregate, its commands and events, and the pet view projection.
package application

import (
	pettypes "github.com/Apurer/go-cqrs-platform/internal/domains/pets/application/types"
	"github.com/Apurer/go-cqrs-platform/internal/domains/pets/domain"
	"github.com/Apurer/go-cqrs-platform/internal/domains/pets/ports"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/registry"
)

const Domain = "pets"

// Roles allowed to issue pets commands.
var Roles = []string{"pets.admin", "pets.clerk"}

var commandDescriptions = map[string]string{
	pettypes.CommandRegister:     "Add a pet to the catalog",
	pettypes.CommandRename:       "Change a pet's name",
	pettypes.CommandChangeStatus: "Move a pet between available, pending and sold",
	pettypes.CommandGroom:        "Record a grooming trim",
	pettypes.CommandReserve:      "Hold an available pet for an order",
}

// Register adds the pets context to reg. Any registration error is fatal.
func Register(reg *registry.Registry, views ports.ReadModel) error {
	domain.RegisterUpcasters(reg.Upcasters())

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
	for _, et := range eventTypes() {
		if err := reg.RegisterEventType(et); err != nil {
			return err
		}
	}
	if views != nil {
		if err := reg.RegisterProjection(ProjectionName, NewProjector(views)); err != nil {
			return err
		}
	}
	return reg.RegisterRoles(Domain, Roles)
}

func eventTypes() []registry.EventType {
	et := func(name string, version int) registry.EventType {
		return registry.EventType{Name: name, Domain: Domain, AggregateType: domain.AggregateType, SchemaVersion: version}
	}
	return []registry.EventType{
		et(domain.EventRegistered, domain.RegisteredSchemaVersion),
		et(domain.EventRenamed, 1),
		et(domain.EventStatusChanged, 1),
		et(domain.EventGroomed, 1),
		et(domain.EventReserved, 1),
	}
}
