//go:build integration

package redis

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/aggregate"
	"github.com/Apurer/go-cqrs-platform/internal/eventstore/adapters/memory"
)

func setupRedisContainer(t *testing.T) (*goredis.Client, func()) {
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := goredis.NewClient(&goredis.Options{Addr: endpoint})
	cleanup := func() {
		_ = client.Close()
		_ = container.Terminate(ctx)
	}
	return client, cleanup
}

func TestSnapshotCache_ReadThroughAndInvalidate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	client, cleanup := setupRedisContainer(t)
	defer cleanup()

	ctx := context.Background()
	inner := memory.NewSnapshotStore()
	cache := NewSnapshotCache(inner, client)

	first := aggregate.Envelope{Snapshot: aggregate.Snapshot{ID: "p1", Type: "pets.pet", State: aggregate.State{"name": "Rex"}, SchemaVersion: 3}, Version: 5}
	require.NoError(t, cache.Save(ctx, ref, first))

	got, err := cache.Latest(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.Version)

	exists, err := client.Exists(ctx, Key(ref)).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)

	second := first
	second.Version = 10
	require.NoError(t, cache.Save(ctx, ref, second))

	got, err = cache.Latest(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.Version)
	assert.Equal(t, "Rex", got.State["name"])
}
