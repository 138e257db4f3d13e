package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	petmemory "github.com/Apurer/go-cqrs-platform/internal/domains/pets/adapters/memory"
	pettypes "github.com/Apurer/go-cqrs-platform/internal/domains/pets/application/types"
	"github.com/Apurer/go-cqrs-platform/internal/domains/pets/domain"
	"github.com/Apurer/go-cqrs-platform/internal/engine"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/commandloop"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/registry"
	"github.com/Apurer/go-cqrs-platform/internal/eventstore/adapters/memory"
)

var ref = message.AggregateRef{TenantID: "t1", Type: domain.AggregateType, ID: "p1"}

type harness struct {
	engine *engine.Engine
	events *memory.EventStore
	views  *petmemory.ReadModel
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	reg := registry.New()
	views := petmemory.NewReadModel()
	require.NoError(t, Register(reg, views))
	reg.Seal()
	events := memory.NewEventStore()
	return &harness{engine: engine.New(reg, events), events: events, views: views}
}

func (h *harness) run(t *testing.T, id, commandType string, payload message.Payload) commandloop.Decision {
	t.Helper()
	ctx := context.Background()
	decision, err := h.engine.Decide(ctx, ref, message.BuildCommand(id, "t1", commandType, payload))
	require.NoError(t, err)
	if decision.Status == commandloop.StatusSuccess {
		require.NoError(t, h.engine.Apply(ctx, ref, decision.Events))
		require.NoError(t, h.engine.Project(ctx, decision.Events))
	}
	return decision
}

func register(t *testing.T, h *harness) {
	t.Helper()
	d := h.run(t, "c1", pettypes.CommandRegister, message.Payload{
		"name":      "Rex",
		"category":  "dogs",
		"photoUrls": []any{"http://example.com/rex.jpg"},
		"tags":      []any{"friendly"},
	})
	require.Equal(t, commandloop.StatusSuccess, d.Status)
}

func TestRegister_DuplicateRegistrationFails(t *testing.T) {
	reg := registry.New()
	require.NoError(t, Register(reg, nil))
	require.ErrorIs(t, Register(reg, nil), registry.ErrDuplicate)
}

func TestLifecycleUpdatesView(t *testing.T) {
	h := newHarness(t)
	register(t, h)

	h.run(t, "c2", pettypes.CommandRename, message.Payload{"name": "Rexy"})
	h.run(t, "c3", pettypes.CommandGroom, message.Payload{"initialHairLengthCm": 10.0, "trimByCm": 3.0})
	h.run(t, "c4", pettypes.CommandReserve, message.Payload{"orderId": "o1"})

	view, err := h.views.Get(context.Background(), "t1", "p1")
	require.NoError(t, err)
	require.Equal(t, "Rexy", view.Entity.Name)
	require.Equal(t, 7.0, view.Entity.HairLengthCm)
	require.Equal(t, "pending", view.Entity.Status)
	require.Equal(t, "o1", view.Entity.ReservedBy)
	require.Equal(t, int64(4), view.Metadata.Version)
}

func TestRulesBecomeFailedDecisions(t *testing.T) {
	h := newHarness(t)

	d := h.run(t, "c1", pettypes.CommandRename, message.Payload{"name": "Max"})
	require.Equal(t, commandloop.StatusFail, d.Status)
	require.Equal(t, CodeNotRegistered, d.Error.Code)

	d = h.run(t, "c2", pettypes.CommandRegister, message.Payload{"name": "Rex"})
	require.Equal(t, CodeInvalidInput, d.Error.Code)

	register(t, h)
	d = h.run(t, "c3", pettypes.CommandGroom, message.Payload{"trimByCm": 1.0})
	require.Equal(t, CodeInvalidInput, d.Error.Code)

	d = h.run(t, "c4", pettypes.CommandChangeStatus, message.Payload{"status": "sold"})
	require.Equal(t, commandloop.StatusSuccess, d.Status)
	d = h.run(t, "c5", pettypes.CommandReserve, message.Payload{"orderId": "o1"})
	require.Equal(t, CodeNotAvailable, d.Error.Code)
}

func TestNoOpCommandsProduceNoEvents(t *testing.T) {
	h := newHarness(t)
	register(t, h)

	d := h.run(t, "c2", pettypes.CommandRename, message.Payload{"name": "Rex"})
	require.Equal(t, commandloop.StatusSuccess, d.Status)
	require.Empty(t, d.Events)

	d = h.run(t, "c3", pettypes.CommandChangeStatus, message.Payload{"status": "AVAILABLE"})
	require.Empty(t, d.Events)
}

func TestLegacyRegisteredEventIsUpcast(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	legacy := message.Event{
		ID: "old", TenantID: "t1", Type: domain.EventRegistered, AggregateType: domain.AggregateType, AggregateID: "p1",
		Version: 1, SchemaVersion: 1,
		Payload: message.Payload{"name": "Rex", "photos": []any{"a.jpg"}, "status": "available"},
	}
	require.NoError(t, h.events.Append(ctx, ref, []message.Event{legacy}))

	agg, err := h.engine.Load(ctx, ref)
	require.NoError(t, err)
	require.Equal(t, []string{"a.jpg"}, agg.(*domain.Pet).PhotoURLs)
}

func TestProjectorSkipsReplayedEvents(t *testing.T) {
	h := newHarness(t)
	register(t, h)
	ctx := context.Background()

	events, err := h.events.Load(ctx, ref, 0)
	require.NoError(t, err)
	h.run(t, "c2", pettypes.CommandRename, message.Payload{"name": "Rexy"})

	require.NoError(t, NewProjector(h.views).Project(ctx, events[0]))
	view, err := h.views.Get(ctx, "t1", "p1")
	require.NoError(t, err)
	require.Equal(t, "Rexy", view.Entity.Name)
}
