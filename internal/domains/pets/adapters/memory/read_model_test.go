package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	pettypes "github.com/Apurer/go-cqrs-platform/internal/domains/pets/application/types"
	"github.com/Apurer/go-cqrs-platform/internal/domains/pets/ports"
)

func TestReadModel_IsolatesTenantsAndCopies(t *testing.T) {
	ctx := context.Background()
	rm := NewReadModel()

	view := &pettypes.PetProjection{Entity: pettypes.PetView{TenantID: "t1", ID: "p1", Name: "Rex", Tags: []string{"a"}}}
	require.NoError(t, rm.Save(ctx, view))
	view.Entity.Tags[0] = "mutated"

	got, err := rm.Get(ctx, "t1", "p1")
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, got.Entity.Tags)

	_, err = rm.Get(ctx, "t2", "p1")
	require.ErrorIs(t, err, ports.ErrNotFound)

	list, err := rm.List(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Error(t, rm.Save(ctx, nil))
}
