package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
)

func apply(t *testing.T, o *Order, evt Event) {
	t.Helper()
	payload, err := message.PayloadOf(evt)
	require.NoError(t, err)
	require.NoError(t, o.ApplyEvent(message.Event{Type: evt.EventName(), Payload: payload}))
}

func TestOrderLifecycle(t *testing.T) {
	o := New("o1").(*Order)
	ship := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	placed, err := o.Place("p1", 2, ship)
	require.NoError(t, err)
	apply(t, o, placed)
	require.Equal(t, StatusPlaced, o.Status)
	require.True(t, o.ShipDate.Equal(ship))

	_, err = o.Place("p1", 1, ship)
	require.ErrorIs(t, err, ErrAlreadyPlaced)

	_, err = o.Deliver(ship)
	require.ErrorIs(t, err, ErrInvalidStatus)

	approved, err := o.Approve("clerk")
	require.NoError(t, err)
	apply(t, o, approved)

	delivered, err := o.Deliver(ship)
	require.NoError(t, err)
	apply(t, o, delivered)
	require.Equal(t, StatusDelivered, o.Status)
	require.True(t, o.Complete)
}

func TestPlaceValidation(t *testing.T) {
	o := New("o1").(*Order)
	_, err := o.Place(" ", 1, time.Time{})
	require.ErrorIs(t, err, ErrInvalidPetID)
	_, err = o.Place("p1", 0, time.Time{})
	require.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = o.Approve("")
	require.ErrorIs(t, err, ErrNotPlaced)
}

func TestSnapshotRoundTrip(t *testing.T) {
	o := New("o1").(*Order)
	placed, err := o.Place("p1", 3, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	apply(t, o, placed)

	state, err := o.ExtractSnapshotState()
	require.NoError(t, err)

	restored := New("o1").(*Order)
	require.NoError(t, restored.ApplyUpcastedSnapshot(state))
	require.Equal(t, o.PetID, restored.PetID)
	require.Equal(t, o.Quantity, restored.Quantity)
	require.Equal(t, StatusPlaced, restored.Status)
}
