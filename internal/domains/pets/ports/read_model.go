package ports

import (
	"context"
	"errors"

	pettypes "github.com/Apurer/go-cqrs-platform/internal/domains/pets/application/types"
)

var ErrNotFound = errors.New("pet not found")

// ReadModel stores pet views maintained by the pets projection.
type ReadModel interface {
	Get(ctx context.Context, tenantID, id string) (*pettypes.PetProjection, error)
	Save(ctx context.Context, view *pettypes.PetProjection) error
	List(ctx context.Context, tenantID string) ([]*pettypes.PetProjection, error)
}
