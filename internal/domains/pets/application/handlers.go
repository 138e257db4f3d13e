package application

import (
	"context"
	"errors"
	"strings"

	pettypes "github.com/Apurer/go-cqrs-platform/internal/domains/pets/application/types"
	"github.com/Apurer/go-cqrs-platform/internal/domains/pets/domain"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/registry"
)

var (
	errMissingInitial = errors.New("initialHairLengthCm is required")
	errMissingTrim    = errors.New("trimByCm is required")
	errMissingOrder   = errors.New("orderId is required")
)

func commandHandlers() map[string]registry.CommandHandler {
	return map[string]registry.CommandHandler{
		pettypes.CommandRegister:     registry.TypedCommandHandler[*domain.Pet](registerPet),
		pettypes.CommandRename:       registry.TypedCommandHandler[*domain.Pet](renamePet),
		pettypes.CommandChangeStatus: registry.TypedCommandHandler[*domain.Pet](changeStatus),
		pettypes.CommandGroom:        registry.TypedCommandHandler[*domain.Pet](groomPet),
		pettypes.CommandReserve:      registry.TypedCommandHandler[*domain.Pet](reservePet),
	}
}

func registerPet(_ context.Context, pet *domain.Pet, cmd message.Command) ([]message.Draft, error) {
	var input pettypes.RegisterPetInput
	if err := message.Decode(cmd.Payload, &input); err != nil {
		return nil, invalidInput(err)
	}
	evt, err := pet.Register(input.Name, input.Category, input.PhotoURLs, input.Tags, parseStatus(input.Status))
	if err != nil {
		return nil, mapError(err)
	}
	return drafts(evt)
}

func renamePet(_ context.Context, pet *domain.Pet, cmd message.Command) ([]message.Draft, error) {
	var input pettypes.RenamePetInput
	if err := message.Decode(cmd.Payload, &input); err != nil {
		return nil, invalidInput(err)
	}
	evt, err := pet.Rename(input.Name)
	if err != nil {
		return nil, mapError(err)
	}
	if evt.Name == evt.PreviousName {
		return nil, nil
	}
	return drafts(evt)
}

func changeStatus(_ context.Context, pet *domain.Pet, cmd message.Command) ([]message.Draft, error) {
	var input pettypes.ChangeStatusInput
	if err := message.Decode(cmd.Payload, &input); err != nil {
		return nil, invalidInput(err)
	}
	evt, err := pet.ChangeStatus(parseStatus(input.Status))
	if err != nil {
		return nil, mapError(err)
	}
	if evt.From == evt.To {
		return nil, nil
	}
	return drafts(evt)
}

func groomPet(_ context.Context, pet *domain.Pet, cmd message.Command) ([]message.Draft, error) {
	var input pettypes.GroomPetInput
	if err := message.Decode(cmd.Payload, &input); err != nil {
		return nil, invalidInput(err)
	}
	if input.InitialLengthCm == nil {
		return nil, invalidInput(errMissingInitial)
	}
	if input.TrimByCm == nil {
		return nil, invalidInput(errMissingTrim)
	}
	evt, err := pet.Groom(domain.GroomingOperation{InitialLengthCm: *input.InitialLengthCm, TrimByCm: *input.TrimByCm})
	if err != nil {
		return nil, mapError(err)
	}
	return drafts(evt)
}

func reservePet(_ context.Context, pet *domain.Pet, cmd message.Command) ([]message.Draft, error) {
	var input pettypes.ReservePetInput
	if err := message.Decode(cmd.Payload, &input); err != nil {
		return nil, invalidInput(err)
	}
	if strings.TrimSpace(input.OrderID) == "" {
		return nil, invalidInput(errMissingOrder)
	}
	evt, err := pet.Reserve(input.OrderID)
	if err != nil {
		return nil, mapError(err)
	}
	if evt == nil {
		return nil, nil
	}
	return drafts(*evt)
}

func parseStatus(raw string) domain.Status {
	return domain.Status(strings.ToLower(strings.TrimSpace(raw)))
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
