package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	pettypes "github.com/Apurer/go-cqrs-platform/internal/domains/pets/application/types"
	"github.com/Apurer/go-cqrs-platform/internal/domains/pets/domain"
	"github.com/Apurer/go-cqrs-platform/internal/domains/pets/ports"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/registry"
)

// ProjectionName is the registry key of the pet view projection.
const ProjectionName = "pets.pet-view"

var _ registry.Projection = (*Projector)(nil)

// Projector keeps pet views in step with the pet streams. Events at or below
// the stored view version are skipped, so redelivery is harmless.
type Projector struct {
	store ports.ReadModel
	now   func() time.Time
}

func NewProjector(store ports.ReadModel) *Projector {
	return &Projector{store: store, now: time.Now}
}

func (p *Projector) Handles(evt message.Event) bool {
	return evt.AggregateType == domain.AggregateType
}

func (p *Projector) Project(ctx context.Context, evt message.Event) error {
	view, err := p.store.Get(ctx, evt.TenantID, evt.AggregateID)
	switch {
	case errors.Is(err, ports.ErrNotFound):
		view = &pettypes.PetProjection{Entity: pettypes.PetView{TenantID: evt.TenantID, ID: evt.AggregateID}}
	case err != nil:
		return fmt.Errorf("load pet view %s: %w", evt.AggregateID, err)
	}
	if view.Stale(evt.Version) {
		return nil
	}
	if err := fold(&view.Entity, evt); err != nil {
		return err
	}
	ts := evt.Metadata.Timestamp
	if ts.IsZero() {
		ts = p.now().UTC()
	}
	view.Advance(evt.Version, ts)
	return p.store.Save(ctx, view)
}

func fold(view *pettypes.PetView, evt message.Event) error {
	switch evt.Type {
	case domain.EventRegistered:
		var e domain.PetRegistered
		if err := message.Decode(evt.Payload, &e); err != nil {
			return err
		}
		view.Name = e.Name
		view.Category = e.Category
		view.PhotoURLs = e.PhotoURLs
		view.Tags = e.Tags
		view.Status = string(e.Status)
	case domain.EventRenamed:
		var e domain.PetRenamed
		if err := message.Decode(evt.Payload, &e); err != nil {
			return err
		}
		view.Name = e.Name
	case domain.EventStatusChanged:
		var e domain.PetStatusChanged
		if err := message.Decode(evt.Payload, &e); err != nil {
			return err
		}
		view.Status = string(e.To)
		if e.To == domain.StatusAvailable {
			view.ReservedBy = ""
		}
	case domain.EventGroomed:
		var e domain.PetGroomed
		if err := message.Decode(evt.Payload, &e); err != nil {
			return err
		}
		view.HairLengthCm = e.NewLengthCm
	case domain.EventReserved:
		var e domain.PetReserved
		if err := message.Decode(evt.Payload, &e); err != nil {
			return err
		}
		view.ReservedBy = e.OrderID
		view.Status = string(domain.StatusPending)
	}
	return nil
}
