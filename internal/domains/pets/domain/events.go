package domain

import "github.com/Apurer/go-cqrs-platform/internal/eventsourcing/upcast"

const (
	EventRegistered    = "pets.pet.registered"
	EventRenamed       = "pets.pet.renamed"
	EventStatusChanged = "pets.pet.status_changed"
	EventGroomed       = "pets.pet.groomed"
	EventReserved      = "pets.pet.reserved"
)

// RegisteredSchemaVersion is the current shape of pets.pet.registered. v1
// stored the photo list under "photos".
const RegisteredSchemaVersion = 2

// Event is implemented by every pet event payload.
type Event interface {
	EventName() string
}

// PetRegistered is raised when a new pet is added to the catalog.
type PetRegistered struct {
	Name      string   `json:"name"`
	Category  string   `json:"category,omitempty"`
	PhotoURLs []string `json:"photoUrls"`
	Tags      []string `json:"tags,omitempty"`
	Status    Status   `json:"status"`
}

func (PetRegistered) EventName() string { return EventRegistered }

// PetRenamed is raised when a pet's name changes.
type PetRenamed struct {
	Name         string `json:"name"`
	PreviousName string `json:"previousName"`
}

func (PetRenamed) EventName() string { return EventRenamed }

// PetStatusChanged is raised when only the status changes.
type PetStatusChanged struct {
	From Status `json:"from"`
	To   Status `json:"to"`
}

func (PetStatusChanged) EventName() string { return EventStatusChanged }

// PetGroomed is raised when a grooming operation is performed.
type PetGroomed struct {
	PreviousLengthCm float64 `json:"previousLengthCm"`
	NewLengthCm      float64 `json:"newLengthCm"`
	TrimmedCm        float64 `json:"trimmedCm"`
}

func (PetGroomed) EventName() string { return EventGroomed }

// PetReserved is raised when an order holds the pet.
type PetReserved struct {
	OrderID string `json:"orderId"`
}

func (PetReserved) EventName() string { return EventReserved }

// RegisterUpcasters installs the payload and snapshot transforms for pets.
func RegisterUpcasters(r *upcast.Registry) {
	r.Register(EventRegistered, 1, upcast.RenameField("photos", "photoUrls"))
	r.Register(AggregateType, 1, upcast.RenameField("photos", "photoUrls"))
}
