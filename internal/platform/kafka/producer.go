// Package kafka publishes committed aggregate events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
	"github.com/Apurer/go-cqrs-platform/internal/platform/config"
)

// Writer is the subset of *kafka.Writer the forwarder needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Forwarder is an event bus handler that forwards every event to Kafka, keyed
// by aggregate so per-aggregate order is kept within a partition.
type Forwarder struct {
	writer Writer
	topic  string
	tracer trace.Tracer
}

// NewWriter builds a synchronous writer for the configured brokers.
func NewWriter(cfg config.Kafka) (*kafka.Writer, error) {
	if !cfg.Enabled() {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		MaxAttempts:  3,
		Transport: &kafka.Transport{
			ClientID: cfg.ClientID,
		},
	}, nil
}

// NewForwarder wraps a writer. The topic is set on the writer itself.
func NewForwarder(writer Writer, topic string, tracer trace.Tracer) *Forwarder {
	if tracer == nil {
		tracer = otel.Tracer("internal.platform.kafka")
	}
	return &Forwarder{writer: writer, topic: topic, tracer: tracer}
}

// SupportsEvent forwards everything.
func (f *Forwarder) SupportsEvent(message.Event) bool { return true }

// On publishes evt as JSON with tracing headers for correlation.
func (f *Forwarder) On(ctx context.Context, evt message.Event) error {
	if f == nil || f.writer == nil {
		return errors.New("kafka forwarder not initialized")
	}
	ctx, span := f.tracer.Start(ctx, "kafka.produce")
	span.SetAttributes(
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination", f.topic),
		attribute.String("event.type", evt.Type),
	)
	defer span.End()

	msg, err := Encode(evt)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if err := f.writer.WriteMessages(ctx, msg); err != nil {
		span.RecordError(err)
		return fmt.Errorf("forward event %s: %w", evt.ID, err)
	}
	return nil
}

// Close releases the writer.
func (f *Forwarder) Close() error {
	if f == nil || f.writer == nil {
		return nil
	}
	return f.writer.Close()
}

// Encode renders an event as a Kafka message.
func Encode(evt message.Event) (kafka.Message, error) {
	value, err := json.Marshal(evt)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode event %s: %w", evt.ID, err)
	}
	headers := map[string]string{
		"event-type":     evt.Type,
		"tenant-id":      evt.TenantID,
		"correlation-id": evt.Metadata.CorrelationID,
		"causation-id":   evt.Metadata.CausationID,
	}
	msg := kafka.Message{
		Key:     []byte(message.RefOf(evt).String()),
		Value:   value,
		Headers: make([]kafka.Header, 0, len(headers)),
	}
	for _, k := range []string{"event-type", "tenant-id", "correlation-id", "causation-id"} {
		if v := headers[k]; v != "" {
			msg.Headers = append(msg.Headers, kafka.Header{Key: k, Value: []byte(v)})
		}
	}
	return msg, nil
}
