package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	storetypes "github.com/Apurer/go-cqrs-platform/internal/domains/store/application/types"
	"github.com/Apurer/go-cqrs-platform/internal/domains/store/domain"
	"github.com/Apurer/go-cqrs-platform/internal/domains/store/ports"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/registry"
)

// ProjectionName is the registry key of the order view projection.
const ProjectionName = "store.order-view"

var _ registry.Projection = (*Projector)(nil)

// Projector keeps order views in step with the order streams.
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
		view = &storetypes.OrderProjection{Entity: storetypes.OrderView{TenantID: evt.TenantID, ID: evt.AggregateID}}
	case err != nil:
		return fmt.Errorf("load order view %s: %w", evt.AggregateID, err)
	}
	if view.Stale(evt.Version) {
		return nil
	}
	switch evt.Type {
	case domain.EventPlaced:
		var e domain.OrderPlaced
		if err := message.Decode(evt.Payload, &e); err != nil {
			return err
		}
		view.Entity.PetID = e.PetID
		view.Entity.Quantity = e.Quantity
		view.Entity.ShipDate = e.ShipDate
		view.Entity.Status = string(domain.StatusPlaced)
	case domain.EventApproved:
		view.Entity.Status = string(domain.StatusApproved)
	case domain.EventDelivered:
		view.Entity.Status = string(domain.StatusDelivered)
		view.Entity.Complete = true
	}
	ts := evt.Metadata.Timestamp
	if ts.IsZero() {
		ts = p.now().UTC()
	}
	view.Advance(evt.Version, ts)
	return p.store.Save(ctx, view)
}

// Inventory returns the quantity of orders by status for a tenant.
func Inventory(ctx context.Context, views ports.ReadModel, tenantID string) (map[string]int32, error) {
	orders, err := views.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	result := map[string]int32{}
	for _, order := range orders {
		result[order.Entity.Status] += order.Entity.Quantity
	}
	return result, nil
}
