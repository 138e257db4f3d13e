// Package partner delivers committed aggregate events to a partner webhook.
package partner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/oapi-codegen/runtime"

	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
)

// ErrIdempotencyConflict is returned when the partner already holds a
// different delivery under the same idempotency key.
var ErrIdempotencyConflict = errors.New("partner idempotency conflict")

// Client posts events to PUT-style endpoints on the partner API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// SyncOption configures PublishEvent behavior.
type SyncOption func(*syncOptions)

type syncOptions struct {
	idempotencyKey string
}

// WithIdempotencyKey sets the Idempotency-Key header for the request.
func WithIdempotencyKey(key string) SyncOption {
	return func(opts *syncOptions) {
		opts.idempotencyKey = strings.TrimSpace(key)
	}
}

// EventPayload is the body the partner receives.
type EventPayload struct {
	ID            string          `json:"id"`
	TenantID      string          `json:"tenantId"`
	Type          string          `json:"type"`
	AggregateType string          `json:"aggregateType"`
	AggregateID   string          `json:"aggregateId"`
	Version       int64           `json:"version"`
	CorrelationID string          `json:"correlationId,omitempty"`
	OccurredAt    time.Time       `json:"occurredAt"`
	Data          message.Payload `json:"data"`
}

// PayloadOf flattens an event into the partner shape.
func PayloadOf(evt message.Event) EventPayload {
	return EventPayload{
		ID:            evt.ID,
		TenantID:      evt.TenantID,
		Type:          evt.Type,
		AggregateType: evt.AggregateType,
		AggregateID:   evt.AggregateID,
		Version:       evt.Version,
		CorrelationID: evt.Metadata.CorrelationID,
		OccurredAt:    evt.Metadata.Timestamp,
		Data:          evt.Payload,
	}
}

// Error is the problem body the partner returns on failures.
type Error struct {
	Status  *string `json:"status,omitempty"`
	Message *string `json:"message,omitempty"`
}

// NewPartnerClient instantiates the partner client with sane defaults.
func NewPartnerClient(baseURL string, httpClient *http.Client) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("partner base URL is required")
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("partner base URL %q must be absolute", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 5 * time.Second
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}, nil
}

// PublishEvent sends payload to PUT /v1/events/{eventId}.
func (c *Client) PublishEvent(ctx context.Context, payload EventPayload, optFns ...SyncOption) error {
	if c == nil || c.httpClient == nil {
		return errors.New("partner client not configured")
	}
	if strings.TrimSpace(payload.ID) == "" {
		return errors.New("partner event id is required")
	}
	var opts syncOptions
	for _, fn := range optFns {
		if fn != nil {
			fn(&opts)
		}
	}

	eventID, err := runtime.StyleParamWithLocation("simple", false, "eventId", runtime.ParamLocationPath, payload.ID)
	if err != nil {
		return fmt.Errorf("encode event id: %w", err)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", payload.ID, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/v1/events/"+eventID, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build partner request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if opts.idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", opts.idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call partner API: %w", err)
	}
	defer resp.Body.Close()

	status := resp.StatusCode
	switch {
	case status == http.StatusOK || status == http.StatusAccepted || status == http.StatusNoContent:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	case status == http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrIdempotencyConflict, errorMessage(decodeError(resp.Body), resp.Status))
	case status >= http.StatusBadRequest:
		return fmt.Errorf("partner API error: %s", errorMessage(decodeError(resp.Body), resp.Status))
	default:
		return fmt.Errorf("partner API unexpected status: %s", resp.Status)
	}
}

func decodeError(r io.Reader) *Error {
	var body Error
	if err := json.NewDecoder(io.LimitReader(r, 64<<10)).Decode(&body); err != nil {
		return nil
	}
	return &body
}

func errorMessage(body *Error, fallback string) string {
	if body == nil {
		return fallback
	}
	if body.Message != nil {
		if msg := strings.TrimSpace(*body.Message); msg != "" {
			return msg
		}
	}
	if body.Status != nil {
		if msg := strings.TrimSpace(*body.Status); msg != "" {
			return msg
		}
	}
	return fallback
}
