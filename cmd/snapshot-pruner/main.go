package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/Apurer/go-cqrs-platform/internal/eventstore/adapters/persistence/postgres"
	"github.com/Apurer/go-cqrs-platform/internal/eventstore/ports"
	"github.com/Apurer/go-cqrs-platform/internal/platform/config"
	platformpostgres "github.com/Apurer/go-cqrs-platform/internal/platform/postgres"
)

type settings struct {
	Postgres  config.Postgres
	Retention time.Duration `env:"SNAPSHOT_RETENTION" envDefault:"168h"`
}

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	var cfg settings
	if err := config.ParseEnv(&cfg); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	db, cleanup := platformpostgres.ConnectOrFallback(ctx, cfg.Postgres.DSN, logger)
	defer cleanup()
	if db == nil {
		log.Fatal("POSTGRES_DSN not set or connection failed; cannot prune snapshots")
	}

	removed, err := prune(ctx, postgres.NewSnapshotStore(db), cfg.Retention, time.Now())
	if err != nil {
		log.Fatalf("failed to prune snapshots: %v", err)
	}
	logger.Info("snapshot prune completed", slog.Int64("removed", removed), slog.Duration("retention", cfg.Retention))
}

// prune deletes superseded snapshots older than retention. The newest snapshot
// of every aggregate is always kept.
func prune(ctx context.Context, store ports.SnapshotStore, retention time.Duration, now time.Time) (int64, error) {
	if retention < 0 {
		retention = 0
	}
	return store.Prune(ctx, now.Add(-retention))
}
