package shared

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyStoreRefusesDuplicateUntilReleased(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewIdempotencyStore(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Claim(ctx, "collection", "k1"))
	err := store.Claim(ctx, "collection", "k1")
	assert.True(t, errors.Is(err, ErrConflict))
	assert.NoError(t, store.Claim(ctx, "transfer", "k1"))

	require.NoError(t, store.Release(ctx, "collection", "k1"))
	assert.NoError(t, store.Claim(ctx, "collection", "k1"))
}

func TestIdempotencyStoreExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewIdempotencyStore(client, 5*time.Second)
	ctx := context.Background()

	require.NoError(t, store.Claim(ctx, "collection", "k1"))
	mr.FastForward(6 * time.Second)
	assert.NoError(t, store.Claim(ctx, "collection", "k1"))
}

func TestIdempotencyStoreWithoutRedis(t *testing.T) {
	store := NewIdempotencyStore(nil, 0)
	assert.NoError(t, store.Claim(context.Background(), "collection", ""))
	assert.NoError(t, store.Release(context.Background(), "collection", "k"))
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(0, 0, 41)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PerPage)
	assert.Equal(t, 3, p.TotalPages)
}

func TestActionErrorPrefersServerMessage(t *testing.T) {
	err := &ActionError{Action: "approve", Fallback: "Failed to approve deal", Err: errors.New("boom")}
	assert.Equal(t, "Failed to approve deal", err.UserMessage())
	err.Message = "Deal is locked"
	assert.Equal(t, "Deal is locked", err.UserMessage())
}

func TestParseRoleDefaultsToAgent(t *testing.T) {
	assert.Equal(t, RoleCEO, ParseRole(" CEO "))
	assert.Equal(t, RoleAgent, ParseRole("superuser"))
}
