package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/aggregate"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
)

// AggregateType names the order stream.
const AggregateType = "store.order"

// Status enumerates order progression.
type Status string

const (
	StatusPlaced    Status = "placed"
	StatusApproved  Status = "approved"
	StatusDelivered Status = "delivered"
)

var (
	ErrInvalidPetID    = errors.New("pet id is required")
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	ErrInvalidStatus   = errors.New("order status does not allow this transition")
	ErrAlreadyPlaced   = errors.New("order is already placed")
	ErrNotPlaced       = errors.New("order is not placed")
)

// Order models the store purchase order aggregate.
type Order struct {
	aggregate.Base
	Placed   bool
	PetID    string
	Quantity int32
	ShipDate time.Time
	Status   Status
	Complete bool
}

// New builds an empty order for rehydration.
func New(id string) aggregate.Aggregate {
	return &Order{Base: aggregate.NewBase(id)}
}

func (o *Order) AggregateType() string { return AggregateType }
func (o *Order) SchemaVersion() int    { return 1 }

// Place validates a new order.
func (o *Order) Place(petID string, quantity int32, shipDate time.Time) (OrderPlaced, error) {
	if o.Placed {
		return OrderPlaced{}, ErrAlreadyPlaced
	}
	if strings.TrimSpace(petID) == "" {
		return OrderPlaced{}, ErrInvalidPetID
	}
	if quantity <= 0 {
		return OrderPlaced{}, ErrInvalidQuantity
	}
	return OrderPlaced{PetID: petID, Quantity: quantity, ShipDate: shipDate.UTC()}, nil
}

// Approve moves a placed order forward.
func (o *Order) Approve(approvedBy string) (OrderApproved, error) {
	if err := o.expect(StatusPlaced); err != nil {
		return OrderApproved{}, err
	}
	return OrderApproved{ApprovedBy: approvedBy}, nil
}

// Deliver completes an approved order.
func (o *Order) Deliver(at time.Time) (OrderDelivered, error) {
	if err := o.expect(StatusApproved); err != nil {
		return OrderDelivered{}, err
	}
	return OrderDelivered{DeliveredAt: at.UTC()}, nil
}

func (o *Order) expect(status Status) error {
	if !o.Placed {
		return ErrNotPlaced
	}
	if o.Status != status {
		return fmt.Errorf("%w: order is %s", ErrInvalidStatus, o.Status)
	}
	return nil
}

// ApplyEvent folds one event into the order.
func (o *Order) ApplyEvent(evt message.Event) error {
	switch evt.Type {
	case EventPlaced:
		var e OrderPlaced
		if err := message.Decode(evt.Payload, &e); err != nil {
			return err
		}
		o.Placed = true
		o.PetID = e.PetID
		o.Quantity = e.Quantity
		o.ShipDate = e.ShipDate
		o.Status = StatusPlaced
	case EventApproved:
		o.Status = StatusApproved
	case EventDelivered:
		o.Status = StatusDelivered
		o.Complete = true
	default:
		return fmt.Errorf("order cannot apply %s", evt.Type)
	}
	return nil
}

type snapshotState struct {
	Placed   bool      `json:"placed"`
	PetID    string    `json:"petId"`
	Quantity int32     `json:"quantity"`
	ShipDate time.Time `json:"shipDate"`
	Status   Status    `json:"status"`
	Complete bool      `json:"complete"`
}

func (o *Order) ExtractSnapshotState() (aggregate.State, error) {
	return message.PayloadOf(snapshotState{
		Placed:   o.Placed,
		PetID:    o.PetID,
		Quantity: o.Quantity,
		ShipDate: o.ShipDate,
		Status:   o.Status,
		Complete: o.Complete,
	})
}

func (o *Order) ApplyUpcastedSnapshot(state aggregate.State) error {
	var s snapshotState
	if err := message.Decode(state, &s); err != nil {
		return err
	}
	o.Placed = s.Placed
	o.PetID = s.PetID
	o.Quantity = s.Quantity
	o.ShipDate = s.ShipDate
	o.Status = s.Status
	o.Complete = s.Complete
	return nil
}
