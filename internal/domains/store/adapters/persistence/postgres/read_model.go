package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	storetypes "github.com/Apurer/go-cqrs-platform/internal/domains/store/application/types"
	"github.com/Apurer/go-cqrs-platform/internal/domains/store/ports"
	"github.com/Apurer/go-cqrs-platform/internal/shared/projection"
)

var _ ports.ReadModel = (*ReadModel)(nil)

// ReadModel persists order views in PostgreSQL using GORM. Caller manages DB
// lifecycle and runs migrations.
type ReadModel struct {
	db *gorm.DB
}

func NewReadModel(db *gorm.DB) *ReadModel {
	return &ReadModel{db: db}
}

type orderViewRecord struct {
	TenantID  string    `gorm:"primaryKey;column:tenant_id;size:128"`
	ID        string    `gorm:"primaryKey;column:id;size:128"`
	PetID     string    `gorm:"column:pet_id;size:128"`
	Quantity  int32     `gorm:"column:quantity"`
	ShipDate  time.Time `gorm:"column:ship_date"`
	Status    string    `gorm:"column:status;type:varchar(32)"`
	Complete  bool      `gorm:"column:complete"`
	Version   int64     `gorm:"column:version"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (orderViewRecord) TableName() string { return "order_views" }

func (r *ReadModel) Get(ctx context.Context, tenantID, id string) (*storetypes.OrderProjection, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var record orderViewRecord
	if err := r.db.WithContext(ctx).First(&record, "tenant_id = ? AND id = ?", tenantID, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toProjection(), nil
}

// Save upserts the view. Older versions never overwrite newer ones.
func (r *ReadModel) Save(ctx context.Context, view *storetypes.OrderProjection) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	if view == nil {
		return errors.New("order view is nil")
	}
	e := view.Entity
	record := orderViewRecord{
		TenantID:  e.TenantID,
		ID:        e.ID,
		PetID:     e.PetID,
		Quantity:  e.Quantity,
		ShipDate:  e.ShipDate,
		Status:    e.Status,
		Complete:  e.Complete,
		Version:   view.Metadata.Version,
		CreatedAt: view.Metadata.CreatedAt,
		UpdatedAt: view.Metadata.UpdatedAt,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}, {Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"pet_id", "quantity", "ship_date", "status", "complete", "version", "updated_at",
			}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "order_views.version < EXCLUDED.version"},
			}},
		}).Create(&record).Error
}

func (r *ReadModel) List(ctx context.Context, tenantID string) ([]*storetypes.OrderProjection, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var records []orderViewRecord
	if err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("id").Find(&records).Error; err != nil {
		return nil, err
	}
	views := make([]*storetypes.OrderProjection, 0, len(records))
	for i := range records {
		views = append(views, records[i].toProjection())
	}
	return views, nil
}

func (r *ReadModel) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres order read model not configured")
	}
	return nil
}

func (r orderViewRecord) toProjection() *storetypes.OrderProjection {
	return &storetypes.OrderProjection{
		Entity: storetypes.OrderView{
			TenantID: r.TenantID,
			ID:       r.ID,
			PetID:    r.PetID,
			Quantity: r.Quantity,
			ShipDate: r.ShipDate.UTC(),
			Status:   r.Status,
			Complete: r.Complete,
		},
		Metadata: projection.Metadata{Version: r.Version, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt},
	}
}
