package domain

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/aggregate"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/upcast"
)

func registered(t *testing.T) *Pet {
	t.Helper()
	pet := New("p1").(*Pet)
	evt, err := pet.Register("Rex", "dogs", []string{"http://example.com/rex.jpg"}, nil, "")
	require.NoError(t, err)
	payload, err := message.PayloadOf(evt)
	require.NoError(t, err)
	require.NoError(t, aggregate.Replay(pet, []message.Event{{Type: EventRegistered, Version: 1, Payload: payload}}))
	return pet
}

func TestRegister_Invariants(t *testing.T) {
	pet := New("p1").(*Pet)

	_, err := pet.Register(" ", "", []string{"u"}, nil, "")
	require.ErrorIs(t, err, ErrEmptyName)
	_, err = pet.Register("Rex", "", nil, nil, "")
	require.ErrorIs(t, err, ErrEmptyPhotos)
	_, err = pet.Register("Rex", "", []string{"u"}, nil, "lost")
	require.ErrorIs(t, err, ErrInvalidStatus)

	evt, err := pet.Register("Rex", "", []string{"u"}, nil, "")
	require.NoError(t, err)
	require.Equal(t, StatusAvailable, evt.Status)

	_, err = registered(t).Register("Rex", "", []string{"u"}, nil, "")
	require.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestCommandsRequireRegistration(t *testing.T) {
	pet := New("p1").(*Pet)
	_, err := pet.Rename("Max")
	require.ErrorIs(t, err, ErrNotRegistered)
	_, err = pet.Reserve("o1")
	require.ErrorIs(t, err, ErrNotRegistered)
}

func TestGroom(t *testing.T) {
	pet := registered(t)

	_, err := pet.Groom(GroomingOperation{InitialLengthCm: 2, TrimByCm: 3})
	require.ErrorIs(t, err, ErrInvalidGrooming)
	_, err = pet.Groom(GroomingOperation{InitialLengthCm: -1})
	require.ErrorIs(t, err, ErrInvalidHair)

	evt, err := pet.Groom(GroomingOperation{InitialLengthCm: 10, TrimByCm: 4})
	require.NoError(t, err)
	require.Equal(t, 6.0, evt.NewLengthCm)
}

func TestReserve(t *testing.T) {
	pet := registered(t)

	evt, err := pet.Reserve("o1")
	require.NoError(t, err)
	require.NoError(t, pet.ApplyEvent(message.Event{Type: EventReserved, Payload: message.Payload{"orderId": evt.OrderID}}))
	require.Equal(t, StatusPending, pet.Status)

	again, err := pet.Reserve("o1")
	require.NoError(t, err)
	require.Nil(t, again)

	_, err = pet.Reserve("o2")
	require.ErrorIs(t, err, ErrNotAvailable)
}

func TestSnapshot_RoundTrip(t *testing.T) {
	pet := registered(t)
	env, err := aggregate.ToEnvelope(pet)
	require.NoError(t, err)
	require.Equal(t, SnapshotSchemaVersion, env.SchemaVersion)

	restored, err := aggregate.NewLoader(upcast.NewRegistry()).FromSnapshot(New, env)
	require.NoError(t, err)
	require.Equal(t, pet.Name, restored.(*Pet).Name)
	require.Equal(t, int64(1), restored.Version())
}

func TestSnapshot_UpcastsLegacyShapes(t *testing.T) {
	upcasters := upcast.NewRegistry()
	RegisterUpcasters(upcasters)
	loader := aggregate.NewLoader(upcasters)

	v1 := aggregate.State{"registered": true, "name": "Rex", "photos": []any{"a.jpg"}, "status": "available"}
	pet := New("p1").(*Pet)
	require.NoError(t, loader.ApplySnapshotState(pet, v1, 1))
	require.Equal(t, []string{"a.jpg"}, pet.PhotoURLs)
	require.Zero(t, pet.HairLengthCm)

	v2 := aggregate.State{"registered": true, "name": "Rex", "photoUrls": []any{"b.jpg"}, "status": "sold"}
	pet = New("p1").(*Pet)
	require.NoError(t, loader.ApplySnapshotState(pet, v2, 2))
	require.Equal(t, []string{"b.jpg"}, pet.PhotoURLs)
	require.Equal(t, StatusSold, pet.Status)
}
