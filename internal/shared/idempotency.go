package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyStore marks submissions as in flight so duplicates can be refused.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore constructs the store. A nil client disables the guard.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

func idempotencyKey(module, key string) string {
	return fmt.Sprintf("inflight:%s:%s", module, key)
}

// Claim reserves key for module. It returns ErrConflict while another submission holds the key.
func (s *IdempotencyStore) Claim(ctx context.Context, module, key string) error {
	if s == nil || s.client == nil {
		return nil
	}
	if key == "" {
		return errors.New("idempotency key required")
	}
	if module == "" {
		return errors.New("idempotency module required")
	}
	ok, err := s.client.SetNX(ctx, idempotencyKey(module, key), time.Now().UTC().Format(time.RFC3339Nano), s.ttl).Result()
	if err != nil {
		return fmt.Errorf("claim idempotency key: %w", err)
	}
	if !ok {
		return fmt.Errorf("%s %s: %w", module, key, ErrConflict)
	}
	return nil
}

// Release frees the key once the submission has finished, successful or not.
func (s *IdempotencyStore) Release(ctx context.Context, module, key string) error {
	if s == nil || s.client == nil || key == "" {
		return nil
	}
	return s.client.Del(ctx, idempotencyKey(module, key)).Err()
}
