package statusdir

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/commissiondesk/internal/backend"
)

type stubSource struct {
	statuses []backend.Status
	err      error
	calls    atomic.Int32
}

func (s *stubSource) GetStatuses(ctx context.Context) ([]backend.Status, error) {
	s.calls.Add(1)
	return s.statuses, s.err
}

type countingRecorder struct {
	sources []string
}

func (r *countingRecorder) ObserveStatusLookup(source string) {
	r.sources = append(r.sources, source)
}

func completeStatuses() []backend.Status {
	return []backend.Status{
		{ID: "1", Name: "CEO Approved"},
		{ID: "2", Name: "CEO Rejected"},
		{ID: "3", Name: "Finance Review"},
		{ID: "4", Name: "Finance Approve"},
	}
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestCacheReadsThroughOncePerSession(t *testing.T) {
	src := &stubSource{statuses: completeStatuses()}
	rec := &countingRecorder{}
	cache := NewCache(src, nil, time.Hour, nil).WithRecorder(rec)
	ctx := context.Background()

	first, err := cache.Get(ctx, "sess-1")
	require.NoError(t, err)
	second, err := cache.Get(ctx, "sess-1")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.EqualValues(t, 1, src.calls.Load())
	assert.Equal(t, []string{"backend", "memory"}, rec.sources)

	_, err = cache.Get(ctx, "sess-2")
	require.NoError(t, err)
	assert.EqualValues(t, 2, src.calls.Load())
}

func TestCacheSharesThroughRedis(t *testing.T) {
	client := newRedis(t)
	src := &stubSource{statuses: completeStatuses()}
	ctx := context.Background()

	replicaA := NewCache(src, client, time.Hour, nil)
	_, err := replicaA.Get(ctx, "sess-1")
	require.NoError(t, err)

	rec := &countingRecorder{}
	replicaB := NewCache(src, client, time.Hour, nil).WithRecorder(rec)
	dir, err := replicaB.Get(ctx, "sess-1")
	require.NoError(t, err)

	id, ok := dir.ID(FinanceApproved)
	assert.True(t, ok)
	assert.Equal(t, backend.ID("4"), id)
	assert.EqualValues(t, 1, src.calls.Load())
	assert.Equal(t, []string{"redis"}, rec.sources)
}

func TestCacheInvalidate(t *testing.T) {
	client := newRedis(t)
	src := &stubSource{statuses: completeStatuses()}
	cache := NewCache(src, client, time.Hour, nil)
	ctx := context.Background()

	_, err := cache.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx, "sess-1"))

	exists, err := client.Exists(ctx, keyPrefix+"sess-1").Result()
	require.NoError(t, err)
	assert.Zero(t, exists)

	_, err = cache.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, src.calls.Load())
}

func TestCacheDoesNotKeepIncompleteDirectory(t *testing.T) {
	src := &stubSource{statuses: []backend.Status{{ID: "1", Name: "CEO Approved"}}}
	cache := NewCache(src, nil, time.Hour, nil)
	ctx := context.Background()

	dir, err := cache.Get(ctx, "sess-1")
	require.NoError(t, err)
	_, ok := dir.ID(FinanceReview)
	assert.False(t, ok)

	src.statuses = completeStatuses()
	dir, err = cache.Get(ctx, "sess-1")
	require.NoError(t, err)
	_, ok = dir.ID(FinanceReview)
	assert.True(t, ok)
	assert.EqualValues(t, 2, src.calls.Load())
}

func TestCachePropagatesSourceError(t *testing.T) {
	src := &stubSource{err: errors.New("backend down")}
	cache := NewCache(src, nil, time.Hour, nil)

	_, err := cache.Get(context.Background(), "sess-1")
	assert.EqualError(t, err, "backend down")
}

type blockingSource struct {
	statuses []backend.Status
	started  chan struct{}
	release  chan struct{}
	calls    atomic.Int32
}

func (s *blockingSource) GetStatuses(ctx context.Context) ([]backend.Status, error) {
	if s.calls.Add(1) == 1 {
		close(s.started)
		<-s.release
	}
	return s.statuses, nil
}

func TestCacheLogoutOnOneReplicaReachesTheOther(t *testing.T) {
	client := newRedis(t)
	src := &stubSource{statuses: completeStatuses()}
	ctx := context.Background()

	replicaA := NewCache(src, client, time.Minute, nil)
	replicaB := NewCache(src, client, time.Minute, nil)
	_, err := replicaA.Get(ctx, "sess-1")
	require.NoError(t, err)
	_, err = replicaB.Get(ctx, "sess-1")
	require.NoError(t, err)

	require.NoError(t, replicaA.Invalidate(ctx, "sess-1"))
	src.statuses = []backend.Status{
		{ID: "99", Name: "CEO Approved"},
		{ID: "2", Name: "CEO Rejected"},
		{ID: "3", Name: "Finance Review"},
		{ID: "4", Name: "Finance Approve"},
	}

	dir, err := replicaB.Get(ctx, "sess-1")
	require.NoError(t, err)
	id, ok := dir.ID(CEOApproved)
	require.True(t, ok)
	assert.Equal(t, backend.ID("99"), id)
	assert.Zero(t, replicaB.size())
}

func TestCacheMemoryEntriesExpire(t *testing.T) {
	src := &stubSource{statuses: completeStatuses()}
	cache := NewCache(src, nil, time.Hour, nil)
	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return clock }
	ctx := context.Background()

	for _, session := range []string{"sess-1", "sess-2", "sess-3"} {
		_, err := cache.Get(ctx, session)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, cache.size())

	clock = clock.Add(2 * time.Hour)
	_, err := cache.Get(ctx, "sess-4")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.size())

	_, err = cache.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.EqualValues(t, 5, src.calls.Load())
}

func TestCacheDropsLoadStartedBeforeInvalidate(t *testing.T) {
	src := &blockingSource{
		statuses: completeStatuses(),
		started:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	cache := NewCache(src, nil, time.Hour, nil)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := cache.Get(ctx, "sess-1")
		done <- err
	}()
	<-src.started
	require.NoError(t, cache.Invalidate(ctx, "sess-1"))
	close(src.release)
	require.NoError(t, <-done)

	assert.Zero(t, cache.size())
	_, err := cache.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, src.calls.Load())
}
