package application

import (
	"errors"

	"github.com/Apurer/go-cqrs-platform/internal/domains/pets/domain"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/domainerr"
)

const (
	CodeInvalidInput      = "pets.invalid_input"
	CodeAlreadyRegistered = "pets.already_registered"
	CodeNotRegistered     = "pets.not_registered"
	CodeNotAvailable      = "pets.not_available"
)

func invalidInput(err error) *domainerr.BusinessRuleError {
	return domainerr.New(CodeInvalidInput, err.Error())
}

// mapError turns domain invariant violations into business rule errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrEmptyName),
		errors.Is(err, domain.ErrEmptyPhotos),
		errors.Is(err, domain.ErrInvalidHair),
		errors.Is(err, domain.ErrInvalidGrooming),
		errors.Is(err, domain.ErrInvalidStatus):
		return invalidInput(err)
	case errors.Is(err, domain.ErrAlreadyRegistered):
		return domainerr.New(CodeAlreadyRegistered, err.Error())
	case errors.Is(err, domain.ErrNotRegistered):
		return domainerr.New(CodeNotRegistered, err.Error())
	case errors.Is(err, domain.ErrNotAvailable):
		return domainerr.New(CodeNotAvailable, err.Error())
	}
	return err
}
