package ports

import (
	"context"
	"errors"

	storetypes "github.com/Apurer/go-cqrs-platform/internal/domains/store/application/types"
)

var ErrNotFound = errors.New("order not found")

// ReadModel stores order views maintained by the store projection.
type ReadModel interface {
	Get(ctx context.Context, tenantID, id string) (*storetypes.OrderProjection, error)
	Save(ctx context.Context, view *storetypes.OrderProjection) error
	List(ctx context.Context, tenantID string) ([]*storetypes.OrderProjection, error)
}
