package partner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
)

func sampleEvent() message.Event {
	return message.Event{
		ID:            "evt-1",
		TenantID:      "t1",
		Type:          "pets.pet.registered",
		AggregateType: "pets.pet",
		AggregateID:   "p1",
		Version:       1,
		Payload:       message.Payload{"name": "Rex"},
		Metadata:      message.Metadata{CorrelationID: "corr-1", Timestamp: time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC)},
	}
}

func TestPublishEvent_SendsPayloadAndIdempotencyKey(t *testing.T) {
	var (
		gotPath string
		gotKey  string
		gotBody EventPayload
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		gotKey = r.Header.Get("Idempotency-Key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client, err := NewPartnerClient(srv.URL+"/", srv.Client())
	require.NoError(t, err)

	require.NoError(t, NewForwarder(client).On(context.Background(), sampleEvent()))
	require.Equal(t, "PUT /v1/events/evt-1", gotPath)
	require.Equal(t, "evt-1", gotKey)
	require.Equal(t, "corr-1", gotBody.CorrelationID)
	require.Equal(t, "Rex", gotBody.Data["name"])
}

func TestPublishEvent_MapsErrors(t *testing.T) {
	status := http.StatusConflict
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"message":"key reused"}`))
	}))
	defer srv.Close()

	client, err := NewPartnerClient(srv.URL, nil)
	require.NoError(t, err)

	err = client.PublishEvent(context.Background(), PayloadOf(sampleEvent()))
	require.ErrorIs(t, err, ErrIdempotencyConflict)
	require.Contains(t, err.Error(), "key reused")

	status = http.StatusBadGateway
	err = client.PublishEvent(context.Background(), PayloadOf(sampleEvent()))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrIdempotencyConflict)
	require.Contains(t, err.Error(), "partner API error")
}

func TestNewPartnerClient_Validation(t *testing.T) {
	_, err := NewPartnerClient("  ", nil)
	require.Error(t, err)
	_, err = NewPartnerClient("partner.local", nil)
	require.Error(t, err)

	client, err := NewPartnerClient("http://partner.local", nil)
	require.NoError(t, err)
	require.Error(t, client.PublishEvent(context.Background(), EventPayload{}))
}

func TestForwarder_FiltersByType(t *testing.T) {
	f := NewForwarder(nil, "store.order.placed")
	require.True(t, f.SupportsEvent(message.Event{Type: "store.order.placed"}))
	require.False(t, f.SupportsEvent(message.Event{Type: "pets.pet.registered"}))
	require.True(t, NewForwarder(nil).SupportsEvent(message.Event{Type: "anything"}))
}
