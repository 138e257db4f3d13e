// Package types holds the command payloads and read model shapes of the store context.
package types

import (
	"time"

	"github.com/Apurer/go-cqrs-platform/internal/shared/projection"
)

const (
	CommandPlaceOrder   = "store.place_order"
	CommandApproveOrder = "store.approve_order"
	CommandDeliverOrder = "store.deliver_order"
)

type PlaceOrderInput struct {
	PetID    string    `json:"petId"`
	Quantity int32     `json:"quantity"`
	ShipDate time.Time `json:"shipDate"`
}

// OrderView is the query-side shape of an order.
type OrderView struct {
	TenantID string
	ID       string
	PetID    string
	Quantity int32
	ShipDate time.Time
	Status   string
	Complete bool
}

// OrderProjection wraps the view with its persistence metadata.
type OrderProjection = projection.Projection[OrderView]
