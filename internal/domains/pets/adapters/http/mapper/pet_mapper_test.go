package mapper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	pettypes "github.com/Apurer/go-cqrs-platform/internal/domains/pets/application/types"
	"github.com/Apurer/go-cqrs-platform/internal/shared/projection"
)

func TestFromProjection(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	p := &pettypes.PetProjection{
		Entity:   pettypes.PetView{ID: "p1", Name: "Rex", Status: "available"},
		Metadata: projection.Metadata{Version: 3, CreatedAt: now, UpdatedAt: now},
	}

	pet := FromProjection(p)
	require.Equal(t, "p1", pet.ID)
	require.Equal(t, int64(3), pet.Version)
	require.NotNil(t, pet.PhotoURLs)
	require.Nil(t, pet.HairLengthCm)

	p.Entity.HairLengthCm = 4
	require.Equal(t, 4.0, *FromProjection(p).HairLengthCm)
	require.Len(t, FromProjectionList([]*pettypes.PetProjection{p, p}), 2)
}
