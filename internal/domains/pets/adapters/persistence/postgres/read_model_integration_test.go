//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	pettypes "github.com/Apurer/go-cqrs-platform/internal/domains/pets/application/types"
	"github.com/Apurer/go-cqrs-platform/internal/domains/pets/ports"
	"github.com/Apurer/go-cqrs-platform/internal/platform/migrations"
	platformpg "github.com/Apurer/go-cqrs-platform/internal/platform/postgres"
	"github.com/Apurer/go-cqrs-platform/internal/shared/projection"
)

func setupPetsPostgresContainer(t *testing.T) (*gorm.DB, func()) {
	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("pets_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := platformpg.Connect(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, migrations.Run(db))

	cleanup := func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		pgContainer.Terminate(ctx)
	}
	return db, cleanup
}

func view(version int64, name string) *pettypes.PetProjection {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(version) * time.Minute)
	return &pettypes.PetProjection{
		Entity: pettypes.PetView{
			TenantID:  "t1",
			ID:        "p1",
			Name:      name,
			PhotoURLs: []string{"http://example.com/rex.jpg"},
			Tags:      []string{"friendly", "small"},
			Status:    "available",
		},
		Metadata: projection.Metadata{Version: version, CreatedAt: ts, UpdatedAt: ts},
	}
}

func TestReadModel_SaveAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	db, cleanup := setupPetsPostgresContainer(t)
	defer cleanup()

	ctx := context.Background()
	rm := NewReadModel(db)

	require.NoError(t, rm.Save(ctx, view(1, "Rex")))
	got, err := rm.Get(ctx, "t1", "p1")
	require.NoError(t, err)
	assert.Equal(t, "Rex", got.Entity.Name)
	assert.Equal(t, []string{"friendly", "small"}, got.Entity.Tags)
	assert.Equal(t, int64(1), got.Metadata.Version)

	_, err = rm.Get(ctx, "t2", "p1")
	require.ErrorIs(t, err, ports.ErrNotFound)
}

func TestReadModel_OlderVersionDoesNotOverwrite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	db, cleanup := setupPetsPostgresContainer(t)
	defer cleanup()

	ctx := context.Background()
	rm := NewReadModel(db)

	require.NoError(t, rm.Save(ctx, view(2, "Rexy")))
	require.NoError(t, rm.Save(ctx, view(1, "Rex")))

	got, err := rm.Get(ctx, "t1", "p1")
	require.NoError(t, err)
	assert.Equal(t, "Rexy", got.Entity.Name)

	list, err := rm.List(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
