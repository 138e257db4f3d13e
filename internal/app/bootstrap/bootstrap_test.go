package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	petapp "github.com/Apurer/go-cqrs-platform/internal/domains/pets/application"
	pettypes "github.com/Apurer/go-cqrs-platform/internal/domains/pets/application/types"
	petdomain "github.com/Apurer/go-cqrs-platform/internal/domains/pets/domain"
	storeapp "github.com/Apurer/go-cqrs-platform/internal/domains/store/application"
	storetypes "github.com/Apurer/go-cqrs-platform/internal/domains/store/application/types"
	storedomain "github.com/Apurer/go-cqrs-platform/internal/domains/store/domain"
	"github.com/Apurer/go-cqrs-platform/internal/dispatch"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/registry"
	"github.com/Apurer/go-cqrs-platform/internal/platform/config"
)

func testSettings() Settings {
	return Settings{Loop: config.CommandLoop{IdleTimeout: 50 * time.Millisecond, CommandsPerRun: 10, SnapshotEvery: 2}}
}

func TestNewRegistry_RegistersBothContexts(t *testing.T) {
	reg, err := NewRegistry(nil, nil)
	require.NoError(t, err)
	require.True(t, reg.Sealed())

	_, ok := reg.CommandType(pettypes.CommandRegister)
	require.True(t, ok)
	_, ok = reg.CommandType(storetypes.CommandPlaceOrder)
	require.True(t, ok)
	_, ok = reg.Saga(storeapp.ReservePetSagaName)
	require.True(t, ok)

	roles := reg.AllRoles()
	require.Equal(t, petapp.Roles, roles[petapp.Domain])
	require.Equal(t, storeapp.Roles, roles[storeapp.Domain])
	require.ErrorIs(t, reg.RegisterAggregate("late.type", petdomain.New), registry.ErrSealed)
}

func TestBuild_RejectsInvalidLoopSettings(t *testing.T) {
	_, err := Build(context.Background(), Settings{}, nil)
	require.Error(t, err)
}

func TestPlacingAnOrderReservesThePet(t *testing.T) {
	ctx := context.Background()
	rt, err := Build(ctx, testSettings(), nil)
	require.NoError(t, err)
	defer rt.Close()

	d := dispatch.NewInlineDispatcher(rt.Engine, dispatch.WithInlineIdleTimeout(50*time.Millisecond))
	defer d.Close(ctx)
	rt.Attach(d)

	petRef := message.AggregateRef{TenantID: "t1", Type: petdomain.AggregateType, ID: "p1"}
	_, err = d.Dispatch(ctx, petRef, message.BuildCommand("cmd-pet", "t1", pettypes.CommandRegister, message.Payload{
		"name": "Rex", "photoUrls": []any{"http://example.com/rex.jpg"},
	}))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, err := rt.PetViews.Get(ctx, "t1", "p1")
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	orderRef := message.AggregateRef{TenantID: "t1", Type: storedomain.AggregateType, ID: "o1"}
	_, err = d.Dispatch(ctx, orderRef, message.BuildCommand("cmd-order", "t1", storetypes.CommandPlaceOrder, message.Payload{
		"petId": "p1", "quantity": 1,
	}))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		view, err := rt.PetViews.Get(ctx, "t1", "p1")
		return err == nil && view.Entity.ReservedBy == "o1" && view.Entity.Status == string(petdomain.StatusPending)
	}, 2*time.Second, 10*time.Millisecond)

	order, err := rt.OrderViews.Get(ctx, "t1", "o1")
	require.NoError(t, err)
	require.Equal(t, "placed", order.Entity.Status)

	events, err := rt.Engine.Stream(ctx, petRef, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	reserved := events[1]
	require.Equal(t, petdomain.EventReserved, reserved.Type)
	require.Equal(t, "cmd-order", reserved.Metadata.CorrelationID)
}

func TestPartnerWebhookReceivesSelectedEvents(t *testing.T) {
	var (
		mu   sync.Mutex
		keys []string
	)
	partnerSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer partnerSrv.Close()

	ctx := context.Background()
	settings := testSettings()
	settings.Partner = config.Partner{BaseURL: partnerSrv.URL, Timeout: time.Second, EventTypes: []string{petdomain.EventRegistered}}
	rt, err := Build(ctx, settings, nil)
	require.NoError(t, err)
	defer rt.Close()

	d := dispatch.NewInlineDispatcher(rt.Engine, dispatch.WithInlineIdleTimeout(50*time.Millisecond))
	defer d.Close(ctx)

	petRef := message.AggregateRef{TenantID: "t1", Type: petdomain.AggregateType, ID: "p1"}
	for _, cmd := range []message.Command{
		message.BuildCommand("cmd-1", "t1", pettypes.CommandRegister, message.Payload{"name": "Rex", "photoUrls": []any{"http://example.com/rex.jpg"}}),
		message.BuildCommand("cmd-2", "t1", pettypes.CommandRename, message.Payload{"name": "Max"}),
	} {
		_, err := d.Dispatch(ctx, petRef, cmd)
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		view, err := rt.PetViews.Get(ctx, "t1", "p1")
		return err == nil && view.Entity.Name == "Max"
	}, 2*time.Second, 10*time.Millisecond)

	events, err := rt.Engine.Stream(ctx, petRef, 0)
	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{events[0].ID}, keys)
}
