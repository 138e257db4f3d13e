package redis

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/aggregate"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
	"github.com/Apurer/go-cqrs-platform/internal/eventstore/adapters/memory"
)

var ref = message.AggregateRef{TenantID: "t1", Type: "pets.pet", ID: "p1"}

func TestKey(t *testing.T) {
	require.Equal(t, "snapshot:t1:pets.pet:p1", Key(ref))
}

func TestSnapshotCache_DegradesToInnerStoreWhenRedisIsDown(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	inner := memory.NewSnapshotStore()
	cache := NewSnapshotCache(inner, client, WithTTL(time.Minute))
	ctx := context.Background()

	env := aggregate.Envelope{Snapshot: aggregate.Snapshot{ID: "p1", Type: "pets.pet", SchemaVersion: 3}, Version: 7}
	require.NoError(t, cache.Save(ctx, ref, env))

	got, err := cache.Latest(ctx, ref)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, int64(7), got.Version)

	removed, err := cache.Prune(ctx, time.Now())
	require.NoError(t, err)
	require.Zero(t, removed)
}
