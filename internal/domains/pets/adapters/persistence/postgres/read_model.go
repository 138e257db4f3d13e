package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	pettypes "github.com/Apurer/go-cqrs-platform/internal/domains/pets/application/types"
	"github.com/Apurer/go-cqrs-platform/internal/domains/pets/ports"
	"github.com/Apurer/go-cqrs-platform/internal/shared/projection"
)

var _ ports.ReadModel = (*ReadModel)(nil)

// ReadModel persists pet views in PostgreSQL using GORM. Caller manages DB
// lifecycle and runs migrations.
type ReadModel struct {
	db *gorm.DB
}

func NewReadModel(db *gorm.DB) *ReadModel {
	return &ReadModel{db: db}
}

// petViewRecord maps the pet view to the pet_views table.
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

func (r *ReadModel) Get(ctx context.Context, tenantID, id string) (*pettypes.PetProjection, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var record petViewRecord
	if err := r.db.WithContext(ctx).First(&record, "tenant_id = ? AND id = ?", tenantID, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toProjection(), nil
}

// Save upserts the view. Older versions never overwrite newer ones.
func (r *ReadModel) Save(ctx context.Context, view *pettypes.PetProjection) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	if view == nil {
		return errors.New("pet view is nil")
	}
	record := toRecord(view)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}, {Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "category", "photo_urls", "tags", "status",
				"hair_length_cm", "reserved_by", "version", "updated_at",
			}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "pet_views.version < EXCLUDED.version"},
			}},
		}).Create(&record).Error
}

func (r *ReadModel) List(ctx context.Context, tenantID string) ([]*pettypes.PetProjection, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var records []petViewRecord
	if err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("id").Find(&records).Error; err != nil {
		return nil, err
	}
	views := make([]*pettypes.PetProjection, 0, len(records))
	for i := range records {
		views = append(views, records[i].toProjection())
	}
	return views, nil
}

func (r *ReadModel) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres pet read model not configured")
	}
	return nil
}

func toRecord(view *pettypes.PetProjection) petViewRecord {
	e := view.Entity
	return petViewRecord{
		TenantID:     e.TenantID,
		ID:           e.ID,
		Name:         e.Name,
		Category:     e.Category,
		PhotoURLs:    pq.StringArray(e.PhotoURLs),
		Tags:         pq.StringArray(e.Tags),
		Status:       e.Status,
		HairLengthCm: e.HairLengthCm,
		ReservedBy:   e.ReservedBy,
		Version:      view.Metadata.Version,
		CreatedAt:    view.Metadata.CreatedAt,
		UpdatedAt:    view.Metadata.UpdatedAt,
	}
}

func (r petViewRecord) toProjection() *pettypes.PetProjection {
	return &pettypes.PetProjection{
		Entity: pettypes.PetView{
			TenantID:     r.TenantID,
			ID:           r.ID,
			Name:         r.Name,
			Category:     r.Category,
			PhotoURLs:    []string(r.PhotoURLs),
			Tags:         []string(r.Tags),
			Status:       r.Status,
			HairLengthCm: r.HairLengthCm,
			ReservedBy:   r.ReservedBy,
		},
		Metadata: projection.Metadata{Version: r.Version, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt},
	}
}
