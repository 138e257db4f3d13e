package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/aggregate"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
)

const (
	// AggregateType names the pet stream.
	AggregateType = "pets.pet"
	// SnapshotSchemaVersion is the snapshot shape the current code writes.
	SnapshotSchemaVersion = 3
)

// Status represents the lifecycle state of a pet inside the store catalog.
type Status string

const (
	StatusAvailable Status = "available"
	StatusPending   Status = "pending"
	StatusSold      Status = "sold"
)

// Valid reports whether s is a known lifecycle value.
func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusPending, StatusSold:
		return true
	default:
		return false
	}
}

// GroomingOperation models the transient data required to compute the new hair length.
type GroomingOperation struct {
	InitialLengthCm float64
	TrimByCm        float64
}

var (
	ErrEmptyName         = errors.New("pet name is required")
	ErrEmptyPhotos       = errors.New("at least one photo url is required")
	ErrInvalidHair       = errors.New("hair length must be greater or equal to zero")
	ErrInvalidGrooming   = errors.New("grooming operation must have a trim less than or equal to the initial length")
	ErrInvalidStatus     = errors.New("pet status is invalid")
	ErrAlreadyRegistered = errors.New("pet is already registered")
	ErrNotRegistered     = errors.New("pet is not registered")
	ErrNotAvailable      = errors.New("pet is not available")
)

// Pet is the aggregate managed by the pets bounded context. Its fields change
// only through ApplyEvent; the decision methods validate and describe the
// change as an event.
type Pet struct {
	aggregate.Base
	Registered   bool
	Name         string
	Category     string
	PhotoURLs    []string
	Tags         []string
	Status       Status
	HairLengthCm float64
	ReservedBy   string
}

// New builds an empty pet for rehydration.
func New(id string) aggregate.Aggregate {
	return &Pet{Base: aggregate.NewBase(id)}
}

func (p *Pet) AggregateType() string { return AggregateType }
func (p *Pet) SchemaVersion() int    { return SnapshotSchemaVersion }

// Register validates a new pet.
func (p *Pet) Register(name, category string, photoURLs, tags []string, status Status) (PetRegistered, error) {
	if p.Registered {
		return PetRegistered{}, ErrAlreadyRegistered
	}
	if strings.TrimSpace(name) == "" {
		return PetRegistered{}, ErrEmptyName
	}
	if len(photoURLs) == 0 {
		return PetRegistered{}, ErrEmptyPhotos
	}
	if status == "" {
		status = StatusAvailable
	}
	if !status.Valid() {
		return PetRegistered{}, ErrInvalidStatus
	}
	return PetRegistered{
		Name:      name,
		Category:  category,
		PhotoURLs: append([]string{}, photoURLs...),
		Tags:      append([]string{}, tags...),
		Status:    status,
	}, nil
}

// Rename mutates the pet name ensuring the invariant.
func (p *Pet) Rename(name string) (PetRenamed, error) {
	if !p.Registered {
		return PetRenamed{}, ErrNotRegistered
	}
	if strings.TrimSpace(name) == "" {
		return PetRenamed{}, ErrEmptyName
	}
	return PetRenamed{Name: name, PreviousName: p.Name}, nil
}

// ChangeStatus validates known lifecycle values.
func (p *Pet) ChangeStatus(status Status) (PetStatusChanged, error) {
	if !p.Registered {
		return PetStatusChanged{}, ErrNotRegistered
	}
	if !status.Valid() {
		return PetStatusChanged{}, ErrInvalidStatus
	}
	return PetStatusChanged{From: p.Status, To: status}, nil
}

// Groom applies a transient grooming operation, persisting only the result.
func (p *Pet) Groom(op GroomingOperation) (PetGroomed, error) {
	if !p.Registered {
		return PetGroomed{}, ErrNotRegistered
	}
	if op.InitialLengthCm < 0 || op.TrimByCm < 0 {
		return PetGroomed{}, ErrInvalidHair
	}
	if op.TrimByCm > op.InitialLengthCm {
		return PetGroomed{}, ErrInvalidGrooming
	}
	return PetGroomed{
		PreviousLengthCm: p.HairLengthCm,
		NewLengthCm:      op.InitialLengthCm - op.TrimByCm,
		TrimmedCm:        op.TrimByCm,
	}, nil
}

// Reserve holds an available pet for an order. Reserving again for the same
// order is a no-op.
func (p *Pet) Reserve(orderID string) (*PetReserved, error) {
	if !p.Registered {
		return nil, ErrNotRegistered
	}
	if p.ReservedBy == orderID && p.Status == StatusPending {
		return nil, nil
	}
	if p.Status != StatusAvailable {
		return nil, fmt.Errorf("%w: status is %s", ErrNotAvailable, p.Status)
	}
	return &PetReserved{OrderID: orderID}, nil
}

// ApplyEvent folds one event into the pet.
func (p *Pet) ApplyEvent(evt message.Event) error {
	switch evt.Type {
	case EventRegistered:
		var e PetRegistered
		if err := message.Decode(evt.Payload, &e); err != nil {
			return err
		}
		p.Registered = true
		p.Name = e.Name
		p.Category = e.Category
		p.PhotoURLs = e.PhotoURLs
		p.Tags = e.Tags
		p.Status = e.Status
	case EventRenamed:
		var e PetRenamed
		if err := message.Decode(evt.Payload, &e); err != nil {
			return err
		}
		p.Name = e.Name
	case EventStatusChanged:
		var e PetStatusChanged
		if err := message.Decode(evt.Payload, &e); err != nil {
			return err
		}
		p.Status = e.To
		if e.To == StatusAvailable {
			p.ReservedBy = ""
		}
	case EventGroomed:
		var e PetGroomed
		if err := message.Decode(evt.Payload, &e); err != nil {
			return err
		}
		p.HairLengthCm = e.NewLengthCm
	case EventReserved:
		var e PetReserved
		if err := message.Decode(evt.Payload, &e); err != nil {
			return err
		}
		p.ReservedBy = e.OrderID
		p.Status = StatusPending
	default:
		return fmt.Errorf("pet cannot apply %s", evt.Type)
	}
	return nil
}

type snapshotState struct {
	Registered   bool     `json:"registered"`
	Name         string   `json:"name"`
	Category     string   `json:"category,omitempty"`
	PhotoURLs    []string `json:"photoUrls"`
	Tags         []string `json:"tags,omitempty"`
	Status       Status   `json:"status"`
	HairLengthCm float64  `json:"hairLengthCm"`
	ReservedBy   string   `json:"reservedBy,omitempty"`
}

func (p *Pet) ExtractSnapshotState() (aggregate.State, error) {
	return message.PayloadOf(snapshotState{
		Registered:   p.Registered,
		Name:         p.Name,
		Category:     p.Category,
		PhotoURLs:    p.PhotoURLs,
		Tags:         p.Tags,
		Status:       p.Status,
		HairLengthCm: p.HairLengthCm,
		ReservedBy:   p.ReservedBy,
	})
}

func (p *Pet) ApplyUpcastedSnapshot(state aggregate.State) error {
	var s snapshotState
	if err := message.Decode(state, &s); err != nil {
		return err
	}
	p.Registered = s.Registered
	p.Name = s.Name
	p.Category = s.Category
	p.PhotoURLs = s.PhotoURLs
	p.Tags = s.Tags
	p.Status = s.Status
	p.HairLengthCm = s.HairLengthCm
	p.ReservedBy = s.ReservedBy
	return nil
}

// UpcastSnapshotState adds the hair length introduced in v3.
func (p *Pet) UpcastSnapshotState(raw aggregate.State, fromVersion int) (aggregate.State, error) {
	if fromVersion >= SnapshotSchemaVersion {
		return raw, nil
	}
	out := make(aggregate.State, len(raw)+1)
	for k, v := range raw {
		out[k] = v
	}
	if _, ok := out["hairLengthCm"]; !ok {
		out["hairLengthCm"] = 0.0
	}
	return out, nil
}
