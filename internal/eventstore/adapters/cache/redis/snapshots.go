// Package redis caches the newest snapshot per aggregate in front of a durable snapshot store.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/aggregate"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
	"github.com/Apurer/go-cqrs-platform/internal/eventstore/ports"
)

const defaultTTL = 10 * time.Minute

var _ ports.SnapshotStore = (*SnapshotCache)(nil)

// SnapshotCache is a read-through cache of the latest snapshot.
// Redis failures degrade to the inner store and are only logged.
type SnapshotCache struct {
	inner  ports.SnapshotStore
	client goredis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

// Option customises the cache.
type Option func(*SnapshotCache)

// WithTTL overrides the entry expiry.
func WithTTL(ttl time.Duration) Option {
	return func(c *SnapshotCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithLogger sets the logger used for degraded cache operations.
func WithLogger(logger *slog.Logger) Option {
	return func(c *SnapshotCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewSnapshotCache decorates inner with a Redis cache.
func NewSnapshotCache(inner ports.SnapshotStore, client goredis.Cmdable, opts ...Option) *SnapshotCache {
	c := &SnapshotCache{inner: inner, client: client, ttl: defaultTTL, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the cache key for an aggregate's latest snapshot.
func Key(ref message.AggregateRef) string {
	return fmt.Sprintf("snapshot:%s:%s:%s", ref.TenantID, ref.Type, ref.ID)
}

// Save writes to the inner store and invalidates the cache entry; the next
// Latest refills it from the store.
func (c *SnapshotCache) Save(ctx context.Context, ref message.AggregateRef, env aggregate.Envelope) error {
	if err := c.inner.Save(ctx, ref, env); err != nil {
		return err
	}
	if err := c.client.Del(ctx, Key(ref)).Err(); err != nil {
		c.logger.Warn("snapshot cache invalidation failed", slog.String("key", Key(ref)), slog.String("error", err.Error()))
	}
	return nil
}

// Latest serves from Redis when possible and fills the cache on a miss.
func (c *SnapshotCache) Latest(ctx context.Context, ref message.AggregateRef) (*aggregate.Envelope, error) {
	raw, err := c.client.Get(ctx, Key(ref)).Bytes()
	switch {
	case err == nil:
		var env aggregate.Envelope
		if jsonErr := json.Unmarshal(raw, &env); jsonErr == nil {
			return &env, nil
		}
		c.logger.Warn("discarding undecodable cached snapshot", slog.String("key", Key(ref)))
	case errors.Is(err, goredis.Nil):
	default:
		c.logger.Warn("snapshot cache read failed", slog.String("key", Key(ref)), slog.String("error", err.Error()))
	}

	env, err := c.inner.Latest(ctx, ref)
	if err != nil || env == nil {
		return env, err
	}
	c.set(ctx, ref, *env)
	return env, nil
}

// Prune delegates to the inner store. The cached entry is always the newest
// snapshot, which pruning never removes.
func (c *SnapshotCache) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	return c.inner.Prune(ctx, olderThan)
}

func (c *SnapshotCache) set(ctx context.Context, ref message.AggregateRef, env aggregate.Envelope) {
	raw, err := json.Marshal(env)
	if err != nil {
		c.logger.Warn("snapshot cache encode failed", slog.String("key", Key(ref)), slog.String("error", err.Error()))
		return
	}
	if err := c.client.Set(ctx, Key(ref), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("snapshot cache write failed", slog.String("key", Key(ref)), slog.String("error", err.Error()))
	}
}
