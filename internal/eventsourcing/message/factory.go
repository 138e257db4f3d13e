package message

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Apurer/go-cqrs-platform/internal/platform/requestctx"
)

var now = time.Now

// Parent is a command or event that causes further artifacts.
type Parent interface {
	ParentID() string
	ParentMetadata() Metadata
}

// ParentID returns the command id.
func (c Command) ParentID() string { return c.ID }

// ParentMetadata returns the command metadata.
func (c Command) ParentMetadata() Metadata { return c.Metadata }

// ParentID returns the event id.
func (e Event) ParentID() string { return e.ID }

// ParentMetadata returns the event metadata.
func (e Event) ParentMetadata() Metadata { return e.Metadata }

// BuildCommand creates a command, stamping the timestamp unless an override sets one.
func BuildCommand(id, tenantID, commandType string, payload Payload, overrides ...Metadata) Command {
	md := Metadata{Timestamp: now().UTC()}
	for _, o := range overrides {
		md = md.merge(o)
	}
	if md.CorrelationID == "" {
		md.CorrelationID = id
	}
	return Command{
		ID:       id,
		TenantID: tenantID,
		Type:     commandType,
		Payload:  clonePayload(payload),
		Metadata: md,
	}
}

// BuildEvent creates an event with a fresh id at the given stream version.
func BuildEvent(tenantID, aggregateID, aggregateType, eventType string, version int64, payload Payload, overrides ...Metadata) Event {
	md := Metadata{Timestamp: now().UTC()}
	for _, o := range overrides {
		md = md.merge(o)
	}
	return Event{
		ID:            uuid.NewString(),
		TenantID:      tenantID,
		Type:          eventType,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		Version:       version,
		Payload:       clonePayload(payload),
		Metadata:      md,
	}
}

// InheritMetadata derives a child's metadata from the artifact that caused it.
// The correlation id is fixed at the root of the causal chain; the causation id
// always points at the immediate parent.
func InheritMetadata(ctx context.Context, parent Parent, overrides ...Metadata) Metadata {
	pmd := parent.ParentMetadata()
	md := Metadata{
		UserID:        pmd.UserID,
		CorrelationID: pmd.CorrelationID,
		CausationID:   parent.ParentID(),
		RequestID:     requestctx.RequestIDFromContext(ctx),
		Timestamp:     now().UTC(),
	}
	if md.CorrelationID == "" {
		md.CorrelationID = parent.ParentID()
	}
	if md.RequestID == "" {
		md.RequestID = pmd.RequestID
	}
	if md.UserID == "" {
		md.UserID = requestctx.UserIDFromContext(ctx)
	}
	for _, o := range overrides {
		md = md.merge(o)
	}
	return md
}

// merge overlays the non-zero fields of o onto m.
func (m Metadata) merge(o Metadata) Metadata {
	if o.UserID != "" {
		m.UserID = o.UserID
	}
	if o.CorrelationID != "" {
		m.CorrelationID = o.CorrelationID
	}
	if o.CausationID != "" {
		m.CausationID = o.CausationID
	}
	if o.RequestID != "" {
		m.RequestID = o.RequestID
	}
	if o.Source != "" {
		m.Source = o.Source
	}
	if !o.Timestamp.IsZero() {
		m.Timestamp = o.Timestamp
	}
	return m
}

func clonePayload(p Payload) Payload {
	if p == nil {
		return Payload{}
	}
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
