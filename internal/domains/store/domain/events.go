package domain

import "time"

const (
	EventPlaced    = "store.order.placed"
	EventApproved  = "store.order.approved"
	EventDelivered = "store.order.delivered"
)

// Event is implemented by every order event payload.
type Event interface {
	EventName() string
}

type OrderPlaced struct {
	PetID    string    `json:"petId"`
	Quantity int32     `json:"quantity"`
	ShipDate time.Time `json:"shipDate"`
}

func (OrderPlaced) EventName() string { return EventPlaced }

type OrderApproved struct {
	ApprovedBy string `json:"approvedBy,omitempty"`
}

func (OrderApproved) EventName() string { return EventApproved }

type OrderDelivered struct {
	DeliveredAt time.Time `json:"deliveredAt"`
}

func (OrderDelivered) EventName() string { return EventDelivered }
