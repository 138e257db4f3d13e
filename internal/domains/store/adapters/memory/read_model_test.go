package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	storetypes "github.com/Apurer/go-cqrs-platform/internal/domains/store/application/types"
	"github.com/Apurer/go-cqrs-platform/internal/domains/store/ports"
)

func TestReadModelScopesByTenant(t *testing.T) {
	ctx := context.Background()
	rm := NewReadModel()
	require.NoError(t, rm.Save(ctx, &storetypes.OrderProjection{Entity: storetypes.OrderView{TenantID: "t1", ID: "o2"}}))
	require.NoError(t, rm.Save(ctx, &storetypes.OrderProjection{Entity: storetypes.OrderView{TenantID: "t1", ID: "o1"}}))
	require.NoError(t, rm.Save(ctx, &storetypes.OrderProjection{Entity: storetypes.OrderView{TenantID: "t2", ID: "o1"}}))

	list, err := rm.List(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "o1", list[0].Entity.ID)

	_, err = rm.Get(ctx, "t3", "o1")
	require.ErrorIs(t, err, ports.ErrNotFound)
	require.Error(t, rm.Save(ctx, nil))
}
