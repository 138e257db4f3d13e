// Package redis dials the Redis instance backing the snapshot cache.
package redis

import (
	"context"
	"errors"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Apurer/go-cqrs-platform/internal/platform/config"
)

// Connect creates a client and verifies connectivity.
func Connect(ctx context.Context, cfg config.Redis) (*goredis.Client, error) {
	if !cfg.Enabled() {
		return nil, errors.New("REDIS_ADDR is required")
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// ConnectOrSkip returns nil with a no-op cleanup when Redis is unset or unreachable.
func ConnectOrSkip(ctx context.Context, cfg config.Redis, logger *slog.Logger) (*goredis.Client, func()) {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Enabled() {
		logger.Info("REDIS_ADDR not set, snapshot cache disabled")
		return nil, func() {}
	}
	client, err := Connect(ctx, cfg)
	if err != nil {
		logger.Warn("failed to connect to redis, snapshot cache disabled", slog.String("error", err.Error()))
		return nil, func() {}
	}
	logger.Info("redis connection established", slog.String("addr", cfg.Addr))
	return client, func() { _ = client.Close() }
}
