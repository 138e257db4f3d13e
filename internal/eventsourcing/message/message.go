// Package message defines the command and event envelopes exchanged by the
// aggregate command loop, plus the factories that stamp their metadata.
package message

import (
	"encoding/json"
	"fmt"
	"time"
)

// Payload is the plain-data body of a command or event.
type Payload = map[string]any

// Metadata links an artifact to the request and business transaction that produced it.
type Metadata struct {
	UserID        string    `json:"userId,omitempty"`
	CorrelationID string    `json:"correlationId"`
	CausationID   string    `json:"causationId"`
	RequestID     string    `json:"requestId,omitempty"`
	Source        string    `json:"source,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Command is a request to change the state of one aggregate.
type Command struct {
	ID       string   `json:"id"`
	TenantID string   `json:"tenantId"`
	Type     string   `json:"type"`
	Payload  Payload  `json:"payload"`
	Metadata Metadata `json:"metadata"`
}

// Event is an immutable fact appended to an aggregate's stream.
// Version is the stream sequence number; SchemaVersion is the payload shape revision.
type Event struct {
	ID            string   `json:"id"`
	TenantID      string   `json:"tenantId"`
	Type          string   `json:"type"`
	AggregateID   string   `json:"aggregateId"`
	AggregateType string   `json:"aggregateType"`
	Version       int64    `json:"version"`
	SchemaVersion int      `json:"schemaVersion,omitempty"`
	Payload       Payload  `json:"payload"`
	Metadata      Metadata `json:"metadata"`
}

// Draft is an event produced by a command handler before the engine assigns
// identity, version and metadata.
type Draft struct {
	Type    string
	Payload Payload
}

// AggregateRef identifies the aggregate instance a command loop owns.
type AggregateRef struct {
	TenantID string `json:"tenantId"`
	Type     string `json:"type"`
	ID       string `json:"id"`
}

// String renders the ref as tenant/type/id.
func (r AggregateRef) String() string {
	return fmt.Sprintf("%s/%s/%s", r.TenantID, r.Type, r.ID)
}

// Valid reports whether every component of the ref is set.
func (r AggregateRef) Valid() bool {
	return r.TenantID != "" && r.Type != "" && r.ID != ""
}

// RefOf returns the aggregate an event belongs to.
func RefOf(evt Event) AggregateRef {
	return AggregateRef{TenantID: evt.TenantID, Type: evt.AggregateType, ID: evt.AggregateID}
}

// Decode copies a payload into a typed struct using its json tags.
func Decode(payload Payload, into any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// PayloadOf converts a typed struct into a payload using its json tags.
func PayloadOf(v any) (Payload, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	payload := Payload{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return payload, nil
}

// ObservabilitySignal asks an aggregate's loop to emit a trace span. It is a
// side channel and never takes part in command ordering.
type ObservabilitySignal struct {
	Span string         `json:"span"`
	Data map[string]any `json:"data,omitempty"`
}
