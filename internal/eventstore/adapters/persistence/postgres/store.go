package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/aggregate"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
	"github.com/Apurer/go-cqrs-platform/internal/eventstore/ports"
)

var (
	_ ports.EventStore    = (*EventStore)(nil)
	_ ports.SnapshotStore = (*SnapshotStore)(nil)
)

// EventStore persists event streams in PostgreSQL using GORM.
type EventStore struct {
	db *gorm.DB
}

// NewEventStore wires a PostgreSQL-backed event store. Caller manages DB lifecycle and migrations.
func NewEventStore(db *gorm.DB) *EventStore {
	return &EventStore{db: db}
}

type eventRecord struct {
	ID            string           `gorm:"primaryKey;column:id;size:64"`
	TenantID      string           `gorm:"column:tenant_id;size:128;uniqueIndex:idx_events_stream_version,priority:1"`
	AggregateType string           `gorm:"column:aggregate_type;size:128;uniqueIndex:idx_events_stream_version,priority:2"`
	AggregateID   string           `gorm:"column:aggregate_id;size:128;uniqueIndex:idx_events_stream_version,priority:3"`
	Version       int64            `gorm:"column:version;uniqueIndex:idx_events_stream_version,priority:4"`
	Type          string           `gorm:"column:type;size:128;index"`
	SchemaVersion int              `gorm:"column:schema_version"`
	Payload       message.Payload  `gorm:"column:payload;serializer:json"`
	Metadata      message.Metadata `gorm:"column:metadata;serializer:json"`
	CorrelationID string           `gorm:"column:correlation_id;size:64;index"`
	RecordedAt    time.Time        `gorm:"column:recorded_at;autoCreateTime"`
}

func (eventRecord) TableName() string { return "events" }

// Append implements ports.EventStore.
func (s *EventStore) Append(ctx context.Context, ref message.AggregateRef, events []message.Event) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}
	if err := ports.ValidateAppend(ref, events); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current int64
		if err := streamScope(tx.Model(&eventRecord{}), ref).
			Select("COALESCE(MAX(version), 0)").
			Scan(&current).Error; err != nil {
			return err
		}
		pending, err := ports.ReconcileAppend(current, events, func(version int64) (string, bool) {
			var rec eventRecord
			if err := streamScope(tx, ref).Where("version = ?", version).First(&rec).Error; err != nil {
				return "", false
			}
			return rec.ID, true
		})
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return nil
		}
		records := make([]eventRecord, 0, len(pending))
		for _, evt := range pending {
			records = append(records, toEventRecord(evt))
		}
		return tx.Create(&records).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %s", ports.ErrConcurrencyConflict, ref)
	}
	return err
}

// Load implements ports.EventStore.
func (s *EventStore) Load(ctx context.Context, ref message.AggregateRef, afterVersion int64) ([]message.Event, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	var records []eventRecord
	if err := streamScope(s.db.WithContext(ctx), ref).
		Where("version > ?", afterVersion).
		Order("version ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	events := make([]message.Event, 0, len(records))
	for i := range records {
		events = append(events, records[i].toMessage())
	}
	return events, nil
}

func (s *EventStore) ensureDB() error {
	if s == nil || s.db == nil {
		return errors.New("postgres event store not configured")
	}
	return nil
}

// SnapshotStore persists snapshots in PostgreSQL using GORM.
type SnapshotStore struct {
	db *gorm.DB
}

// NewSnapshotStore wires a PostgreSQL-backed snapshot store.
func NewSnapshotStore(db *gorm.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

type snapshotRecord struct {
	ID            uint64          `gorm:"primaryKey;autoIncrement;column:id"`
	TenantID      string          `gorm:"column:tenant_id;size:128;uniqueIndex:idx_snapshots_stream_version,priority:1"`
	AggregateType string          `gorm:"column:aggregate_type;size:128;uniqueIndex:idx_snapshots_stream_version,priority:2"`
	AggregateID   string          `gorm:"column:aggregate_id;size:128;uniqueIndex:idx_snapshots_stream_version,priority:3"`
	Version       int64           `gorm:"column:version;uniqueIndex:idx_snapshots_stream_version,priority:4"`
	SchemaVersion int             `gorm:"column:schema_version"`
	State         aggregate.State `gorm:"column:state;serializer:json"`
	CreatedAt     time.Time       `gorm:"column:created_at;index"`
}

func (snapshotRecord) TableName() string { return "snapshots" }

// Save implements ports.SnapshotStore. Saving the same version twice keeps the first.
func (s *SnapshotStore) Save(ctx context.Context, ref message.AggregateRef, env aggregate.Envelope) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	rec := snapshotRecord{
		TenantID:      ref.TenantID,
		AggregateType: ref.Type,
		AggregateID:   ref.ID,
		Version:       env.Version,
		SchemaVersion: env.SchemaVersion,
		State:         env.State,
		CreatedAt:     env.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return err
	}
	return nil
}

// Latest implements ports.SnapshotStore.
func (s *SnapshotStore) Latest(ctx context.Context, ref message.AggregateRef) (*aggregate.Envelope, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	var rec snapshotRecord
	if err := streamScope(s.db.WithContext(ctx), ref).Order("version DESC").First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &aggregate.Envelope{
		Snapshot: aggregate.Snapshot{
			ID:            rec.AggregateID,
			Type:          rec.AggregateType,
			State:         rec.State,
			CreatedAt:     rec.CreatedAt,
			SchemaVersion: rec.SchemaVersion,
		},
		Version: rec.Version,
	}, nil
}

const pruneSnapshotsSQL = `
DELETE FROM snapshots s
WHERE s.created_at < ?
  AND EXISTS (
    SELECT 1 FROM snapshots n
    WHERE n.tenant_id = s.tenant_id
      AND n.aggregate_type = s.aggregate_type
      AND n.aggregate_id = s.aggregate_id
      AND n.version > s.version
  )`

// Prune implements ports.SnapshotStore.
func (s *SnapshotStore) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	if err := s.ensureDB(); err != nil {
		return 0, err
	}
	result := s.db.WithContext(ctx).Exec(pruneSnapshotsSQL, olderThan)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (s *SnapshotStore) ensureDB() error {
	if s == nil || s.db == nil {
		return errors.New("postgres snapshot store not configured")
	}
	return nil
}

func streamScope(db *gorm.DB, ref message.AggregateRef) *gorm.DB {
	return db.Where("tenant_id = ? AND aggregate_type = ? AND aggregate_id = ?", ref.TenantID, ref.Type, ref.ID)
}

func toEventRecord(evt message.Event) eventRecord {
	return eventRecord{
		ID:            evt.ID,
		TenantID:      evt.TenantID,
		AggregateType: evt.AggregateType,
		AggregateID:   evt.AggregateID,
		Version:       evt.Version,
		Type:          evt.Type,
		SchemaVersion: evt.SchemaVersion,
		Payload:       evt.Payload,
		Metadata:      evt.Metadata,
		CorrelationID: evt.Metadata.CorrelationID,
	}
}

func (r eventRecord) toMessage() message.Event {
	return message.Event{
		ID:            r.ID,
		TenantID:      r.TenantID,
		Type:          r.Type,
		AggregateID:   r.AggregateID,
		AggregateType: r.AggregateType,
		Version:       r.Version,
		SchemaVersion: r.SchemaVersion,
		Payload:       r.Payload,
		Metadata:      r.Metadata,
	}
}
