package mapper

import (
	"time"

	pettypes "github.com/Apurer/go-cqrs-platform/internal/domains/pets/application/types"
)

// Pet is the HTTP representation of a pet view.
type Pet struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Category     string    `json:"category,omitempty"`
	PhotoURLs    []string  `json:"photoUrls"`
	Tags         []string  `json:"tags,omitempty"`
	Status       string    `json:"status,omitempty"`
	HairLengthCm *float64  `json:"hairLengthCm,omitempty"`
	ReservedBy   string    `json:"reservedBy,omitempty"`
	Version      int64     `json:"version"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// FromProjection maps a projection into a transport pet enriched with metadata.
func FromProjection(p *pettypes.PetProjection) Pet {
	view := p.Entity
	var hair *float64
	if view.HairLengthCm > 0 {
		value := view.HairLengthCm
		hair = &value
	}
	return Pet{
		ID:           view.ID,
		Name:         view.Name,
		Category:     view.Category,
		PhotoURLs:    append([]string{}, view.PhotoURLs...),
		Tags:         append([]string(nil), view.Tags...),
		Status:       view.Status,
		HairLengthCm: hair,
		ReservedBy:   view.ReservedBy,
		Version:      p.Metadata.Version,
		CreatedAt:    p.Metadata.CreatedAt,
		UpdatedAt:    p.Metadata.UpdatedAt,
	}
}

// FromProjectionList maps a slice of projections into transport pets.
func FromProjectionList(list []*pettypes.PetProjection) []Pet {
	result := make([]Pet, 0, len(list))
	for _, p := range list {
		result = append(result, FromProjection(p))
	}
	return result
}
