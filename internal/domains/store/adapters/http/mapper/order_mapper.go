package mapper

import (
	"time"

	storetypes "github.com/Apurer/go-cqrs-platform/internal/domains/store/application/types"
)

// Order is the HTTP representation of an order view.
type Order struct {
	ID        string    `json:"id"`
	PetID     string    `json:"petId"`
	Quantity  int32     `json:"quantity"`
	ShipDate  time.Time `json:"shipDate"`
	Status    string    `json:"status"`
	Complete  bool      `json:"complete"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FromProjection converts an order view to the transport representation.
func FromProjection(p *storetypes.OrderProjection) Order {
	if p == nil {
		return Order{}
	}
	return Order{
		ID:        p.Entity.ID,
		PetID:     p.Entity.PetID,
		Quantity:  p.Entity.Quantity,
		ShipDate:  p.Entity.ShipDate,
		Status:    p.Entity.Status,
		Complete:  p.Entity.Complete,
		Version:   p.Metadata.Version,
		UpdatedAt: p.Metadata.UpdatedAt,
	}
}
