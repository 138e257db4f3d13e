// Package types holds the command payloads and read model shapes of the pets context.
package types

import "github.com/Apurer/go-cqrs-platform/internal/shared/projection"

const (
	CommandRegister     = "pets.register"
	CommandRename       = "pets.rename"
	CommandChangeStatus = "pets.change_status"
	CommandGroom        = "pets.groom"
	CommandReserve      = "pets.reserve"
)

type RegisterPetInput struct {
	Name      string   `json:"name"`
	Category  string   `json:"category,omitempty"`
	PhotoURLs []string `json:"photoUrls"`
	Tags      []string `json:"tags,omitempty"`
	Status    string   `json:"status,omitempty"`
}

type RenamePetInput struct {
	Name string `json:"name"`
}

type ChangeStatusInput struct {
	Status string `json:"status"`
}

// GroomPetInput carries transient grooming data; only the result is stored.
type GroomPetInput struct {
	InitialLengthCm *float64 `json:"initialHairLengthCm"`
	TrimByCm        *float64 `json:"trimByCm"`
}

type ReservePetInput struct {
	OrderID string `json:"orderId"`
}

// PetView is the query-side shape of a pet.
type PetView struct {
	TenantID     string
	ID           string
	Name         string
	Category     string
	PhotoURLs    []string
	Tags         []string
	Status       string
	HairLengthCm float64
	ReservedBy   string
}

// PetProjection wraps the view with its persistence metadata.
type PetProjection = projection.Projection[PetView]
