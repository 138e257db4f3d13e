package application

import (
	"errors"

	"github.com/Apurer/go-cqrs-platform/internal/domains/store/domain"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/domainerr"
)

const (
	CodeInvalidInput     = "store.invalid_input"
	CodeAlreadyPlaced    = "store.already_placed"
	CodeNotPlaced        = "store.not_placed"
	CodeInvalidOrderFlow = "store.invalid_transition"
)

func invalidInput(err error) *domainerr.BusinessRuleError {
	return domainerr.New(CodeInvalidInput, err.Error())
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrInvalidPetID),
		errors.Is(err, domain.ErrInvalidQuantity):
		return invalidInput(err)
	case errors.Is(err, domain.ErrInvalidStatus):
		return domainerr.New(CodeInvalidOrderFlow, err.Error())
	case errors.Is(err, domain.ErrAlreadyPlaced):
		return domainerr.New(CodeAlreadyPlaced, err.Error())
	case errors.Is(err, domain.ErrNotPlaced):
		return domainerr.New(CodeNotPlaced, err.Error())
	}
	return err
}
