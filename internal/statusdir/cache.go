package statusdir

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/commissiondesk/internal/backend"
)

const keyPrefix = "statusdir:"

// Source loads the status list from the backend.
type Source interface {
	GetStatuses(ctx context.Context) ([]backend.Status, error)
}

// LookupRecorder observes where a directory was served from.
type LookupRecorder interface {
	ObserveStatusLookup(source string)
}

// defaultTTL bounds a session directory when no TTL is configured.
const defaultTTL = 12 * time.Hour

// Cache is a read-through cache of status directories with session lifetime.
// With a redis client, redis is the only tier so a logout on any replica is seen by all
// of them. Without one, entries live in process memory until the session TTL passes.
// A load that started before Invalidate for its session is served but never kept.
type Cache struct {
	source   Source
	client   *redis.Client
	ttl      time.Duration
	logger   *slog.Logger
	recorder LookupRecorder
	now      func() time.Time

	mu          sync.Mutex
	entries     map[string]memoryEntry
	invalidated map[string]time.Time
	group       singleflight.Group
}

type memoryEntry struct {
	dir       *Directory
	expiresAt time.Time
}

// NewCache constructs a Cache. client may be nil.
func NewCache(source Source, client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{
		source:      source,
		client:      client,
		ttl:         ttl,
		logger:      logger,
		now:         time.Now,
		entries:     make(map[string]memoryEntry),
		invalidated: make(map[string]time.Time),
	}
}

// WithRecorder attaches a lookup recorder.
func (c *Cache) WithRecorder(r LookupRecorder) *Cache {
	c.recorder = r
	return c
}

// Get returns the directory for a session, loading it on first use.
func (c *Cache) Get(ctx context.Context, session string) (*Directory, error) {
	if c == nil || c.source == nil {
		return nil, errors.New("statusdir: cache not configured")
	}
	if dir, ok := c.fromMemory(session); ok {
		c.observe("memory")
		return dir, nil
	}

	v, err, _ := c.group.Do(session, func() (interface{}, error) {
		return c.load(ctx, session)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Directory), nil
}

func (c *Cache) load(ctx context.Context, session string) (*Directory, error) {
	started := c.now()
	if dir, ok := c.fromRedis(ctx, session); ok {
		c.observe("redis")
		return dir, nil
	}

	statuses, err := c.source.GetStatuses(ctx)
	if err != nil {
		return nil, err
	}
	dir := New(statuses)
	c.observe("backend")

	// An incomplete directory is served but not kept, so statuses added to the
	// backend later are picked up on the next request.
	if session == "" || !dir.Complete() || c.invalidatedSince(session, started) {
		return dir, nil
	}
	if c.client != nil {
		c.toRedis(ctx, session, dir)
	} else {
		c.remember(session, dir)
	}
	return dir, nil
}

// Invalidate drops the cached directory for a session.
func (c *Cache) Invalidate(ctx context.Context, session string) error {
	if c == nil || session == "" {
		return nil
	}
	now := c.now()
	c.mu.Lock()
	c.sweepLocked(now)
	delete(c.entries, session)
	c.invalidated[session] = now
	c.mu.Unlock()
	c.group.Forget(session)
	if c.client == nil {
		return nil
	}
	if err := c.client.Del(ctx, keyPrefix+session).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

func (c *Cache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) fromMemory(session string) (*Directory, bool) {
	if session == "" || c.client != nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[session]
	if !ok {
		return nil, false
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, session)
		return nil, false
	}
	return entry.dir, true
}

func (c *Cache) invalidatedSince(session string, started time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	at, ok := c.invalidated[session]
	return ok && !at.Before(started)
}

func (c *Cache) remember(session string, dir *Directory) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked(now)
	c.entries[session] = memoryEntry{dir: dir, expiresAt: now.Add(c.ttl)}
}

// sweepLocked drops expired entries and invalidation marks older than a session lifetime.
func (c *Cache) sweepLocked(now time.Time) {
	for session, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, session)
		}
	}
	for session, at := range c.invalidated {
		if now.Sub(at) > c.ttl {
			delete(c.invalidated, session)
		}
	}
}

func (c *Cache) fromRedis(ctx context.Context, session string) (*Directory, bool) {
	if c.client == nil || session == "" {
		return nil, false
	}
	payload, err := c.client.Get(ctx, keyPrefix+session).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("status directory redis get", slog.String("session", session), slog.Any("error", err))
		}
		return nil, false
	}
	var dir Directory
	if err := json.Unmarshal(payload, &dir); err != nil {
		c.logger.Warn("status directory decode", slog.String("session", session), slog.Any("error", err))
		return nil, false
	}
	return &dir, true
}

func (c *Cache) toRedis(ctx context.Context, session string, dir *Directory) {
	if c.client == nil {
		return
	}
	raw, err := json.Marshal(dir)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, keyPrefix+session, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("status directory redis set", slog.String("session", session), slog.Any("error", err))
	}
}

func (c *Cache) observe(source string) {
	if c.recorder != nil {
		c.recorder.ObserveStatusLookup(source)
	}
}
