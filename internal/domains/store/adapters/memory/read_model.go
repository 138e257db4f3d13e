package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	storetypes "github.com/Apurer/go-cqrs-platform/internal/domains/store/application/types"
	"github.com/Apurer/go-cqrs-platform/internal/domains/store/ports"
)

var _ ports.ReadModel = (*ReadModel)(nil)

type key struct{ tenant, id string }

// ReadModel is an in-memory order view store.
type ReadModel struct {
	mu    sync.RWMutex
	views map[key]storetypes.OrderProjection
}

func NewReadModel() *ReadModel {
	return &ReadModel{views: map[key]storetypes.OrderProjection{}}
}

func (r *ReadModel) Get(_ context.Context, tenantID, id string) (*storetypes.OrderProjection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	view, ok := r.views[key{tenantID, id}]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &view, nil
}

func (r *ReadModel) Save(_ context.Context, view *storetypes.OrderProjection) error {
	if view == nil {
		return errors.New("order view is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views[key{view.Entity.TenantID, view.Entity.ID}] = *view
	return nil
}

func (r *ReadModel) List(_ context.Context, tenantID string) ([]*storetypes.OrderProjection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*storetypes.OrderProjection, 0)
	for k, view := range r.views {
		if k.tenant != tenantID {
			continue
		}
		v := view
		list = append(list, &v)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Entity.ID < list[j].Entity.ID })
	return list, nil
}
