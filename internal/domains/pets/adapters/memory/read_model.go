package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	pettypes "github.com/Apurer/go-cqrs-platform/internal/domains/pets/application/types"
	"github.com/Apurer/go-cqrs-platform/internal/domains/pets/ports"
)

var _ ports.ReadModel = (*ReadModel)(nil)

type key struct{ tenant, id string }

// ReadModel is an in-memory pet view store.
type ReadModel struct {
	mu    sync.RWMutex
	views map[key]pettypes.PetProjection
}

func NewReadModel() *ReadModel {
	return &ReadModel{views: map[key]pettypes.PetProjection{}}
}

func (r *ReadModel) Get(_ context.Context, tenantID, id string) (*pettypes.PetProjection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	view, ok := r.views[key{tenantID, id}]
	if !ok {
		return nil, ports.ErrNotFound
	}
	clone := cloneView(view)
	return &clone, nil
}

func (r *ReadModel) Save(_ context.Context, view *pettypes.PetProjection) error {
	if view == nil {
		return errors.New("pet view is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views[key{view.Entity.TenantID, view.Entity.ID}] = cloneView(*view)
	return nil
}

func (r *ReadModel) List(_ context.Context, tenantID string) ([]*pettypes.PetProjection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*pettypes.PetProjection, 0)
	for k, view := range r.views {
		if k.tenant != tenantID {
			continue
		}
		clone := cloneView(view)
		list = append(list, &clone)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Entity.ID < list[j].Entity.ID })
	return list, nil
}

func cloneView(view pettypes.PetProjection) pettypes.PetProjection {
	view.Entity.PhotoURLs = append([]string(nil), view.Entity.PhotoURLs...)
	view.Entity.Tags = append([]string(nil), view.Entity.Tags...)
	return view
}
