package migrations

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Run applies the schema for the event store and the read models.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(
		&eventRecord{},
		&snapshotRecord{},
		&petViewRecord{},
		&orderViewRecord{},
	)
}

// Event schema mirrors the event store Postgres adapter.
type eventRecord struct {
	ID            string         `gorm:"primaryKey;column:id;size:64"`
	TenantID      string         `gorm:"column:tenant_id;size:128;uniqueIndex:idx_events_stream_version,priority:1"`
	AggregateType string         `gorm:"column:aggregate_type;size:128;uniqueIndex:idx_events_stream_version,priority:2"`
	AggregateID   string         `gorm:"column:aggregate_id;size:128;uniqueIndex:idx_events_stream_version,priority:3"`
	Version       int64          `gorm:"column:version;uniqueIndex:idx_events_stream_version,priority:4"`
	Type          string         `gorm:"column:type;size:128;index"`
	SchemaVersion int            `gorm:"column:schema_version"`
	Payload       map[string]any `gorm:"column:payload;serializer:json"`
	Metadata      map[string]any `gorm:"column:metadata;serializer:json"`
	CorrelationID string         `gorm:"column:correlation_id;size:64;index"`
	RecordedAt    time.Time      `gorm:"column:recorded_at;autoCreateTime"`
}

func (eventRecord) TableName() string { return "events" }

// Snapshot schema mirrors the snapshot store Postgres adapter.
type snapshotRecord struct {
	ID            uint64         `gorm:"primaryKey;autoIncrement;column:id"`
	TenantID      string         `gorm:"column:tenant_id;size:128;uniqueIndex:idx_snapshots_stream_version,priority:1"`
	AggregateType string         `gorm:"column:aggregate_type;size:128;uniqueIndex:idx_snapshots_stream_version,priority:2"`
	AggregateID   string         `gorm:"column:aggregate_id;size:128;uniqueIndex:idx_snapshots_stream_version,priority:3"`
	Version       int64          `gorm:"column:version;uniqueIndex:idx_snapshots_stream_version,priority:4"`
	SchemaVersion int            `gorm:"column:schema_version"`
	State         map[string]any `gorm:"column:state;serializer:json"`
	CreatedAt     time.Time      `gorm:"column:created_at;index"`
}

func (snapshotRecord) TableName() string { return "snapshots" }

// Pet read model mirrors the pets projection Postgres adapter.
type petViewRecord struct {
	TenantID     string         `gorm:"primaryKey;column:tenant_id;size:128"`
	ID           string         `gorm:"primaryKey;column:id;size:128"`
	Name         string         `gorm:"column:name"`
	Category     string         `gorm:"column:category"`
	PhotoURLs    pq.StringArray `gorm:"column:photo_urls;type:text[]"`
	Tags         pq.StringArray `gorm:"column:tags;type:text[]"`
	Status       string         `gorm:"column:status;type:varchar(32);index"`
	HairLengthCm float64        `gorm:"column:hair_length_cm"`
	ReservedBy   string         `gorm:"column:reserved_by;size:128"`
	Version      int64          `gorm:"column:version"`
	CreatedAt    time.Time      `gorm:"column:created_at"`
	UpdatedAt    time.Time      `gorm:"column:updated_at"`
}

func (petViewRecord) TableName() string { return "pet_views" }

// Order read model mirrors the store projection Postgres adapter.
type orderViewRecord struct {
	TenantID  string    `gorm:"primaryKey;column:tenant_id;size:128"`
	ID        string    `gorm:"primaryKey;column:id;size:128"`
	PetID     string    `gorm:"column:pet_id;size:128;index:idx_order_views_status_pet"`
	Quantity  int32     `gorm:"column:quantity"`
	ShipDate  time.Time `gorm:"column:ship_date"`
	Status    string    `gorm:"column:status;type:varchar(32);index:idx_order_views_status_pet"`
	Complete  bool      `gorm:"column:complete"`
	Version   int64     `gorm:"column:version"`
	CreatedAt time.Time `gorm:"column:created_at;index"`
	UpdatedAt time.Time `gorm:"column:updated_at;index"`
}

func (orderViewRecord) TableName() string { return "order_views" }
