package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// New creates a Redis client and verifies it answers a ping.
func New(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("platform/cache: ping: %w", err)
	}

	return client, nil
}

// Optional connects like New but degrades to a nil client when Redis is unreachable.
// Every Redis-backed component accepts a nil client and falls back to in-process behaviour.
func Optional(ctx context.Context, addr string, logger *slog.Logger) *redis.Client {
	if addr == "" {
		return nil
	}
	client, err := New(ctx, addr)
	if err != nil {
		if logger != nil {
			logger.Warn("redis unavailable, running without shared cache", slog.String("addr", addr), slog.Any("error", err))
		}
		return nil
	}
	return client
}
