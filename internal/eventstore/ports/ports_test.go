package ports

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
)

var ref = message.AggregateRef{TenantID: "t1", Type: "pets.pet", ID: "p1"}

func evt(id string, v int64) message.Event {
	return message.Event{ID: id, TenantID: "t1", AggregateType: "pets.pet", AggregateID: "p1", Version: v}
}

func TestValidateAppend(t *testing.T) {
	require.NoError(t, ValidateAppend(ref, []message.Event{evt("a", 1), evt("b", 2)}))
	require.ErrorIs(t, ValidateAppend(ref, []message.Event{evt("a", 1), evt("b", 3)}), ErrInvalidAppend)

	foreign := evt("a", 1)
	foreign.AggregateID = "p2"
	require.ErrorIs(t, ValidateAppend(ref, []message.Event{foreign}), ErrInvalidAppend)
	require.ErrorIs(t, ValidateAppend(message.AggregateRef{}, nil), ErrInvalidAppend)
}

func TestReconcileAppend(t *testing.T) {
	stored := map[int64]string{1: "a", 2: "b"}
	lookup := func(v int64) (string, bool) {
		id, ok := stored[v]
		return id, ok
	}

	pending, err := ReconcileAppend(2, []message.Event{evt("c", 3)}, lookup)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	pending, err = ReconcileAppend(2, []message.Event{evt("a", 1), evt("b", 2)}, lookup)
	require.NoError(t, err)
	require.Empty(t, pending)

	pending, err = ReconcileAppend(2, []message.Event{evt("b", 2), evt("c", 3)}, lookup)
	require.NoError(t, err)
	require.Equal(t, []message.Event{evt("c", 3)}, pending)

	_, err = ReconcileAppend(2, []message.Event{evt("x", 2)}, lookup)
	require.ErrorIs(t, err, ErrConcurrencyConflict)

	_, err = ReconcileAppend(2, []message.Event{evt("d", 4)}, lookup)
	require.ErrorIs(t, err, ErrConcurrencyConflict)
}
