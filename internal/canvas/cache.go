package canvas

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Store persists cached document text with an expiry.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Loader fetches a document from upstream.
type Loader func(ctx context.Context, key string) (string, error)

// Cache serves documents with a freshness window, collapsing concurrent
// upstream fetches for the same key into one.
type Cache struct {
	store  Store
	loader Loader
	ttl    time.Duration
	group  singleflight.Group
}

// NewCache builds a cache over the given store and upstream loader.
func NewCache(store Store, loader Loader, ttl time.Duration) *Cache {
	return &Cache{store: store, loader: loader, ttl: ttl}
}

// Get returns the cached document, fetching from upstream when the cached
// copy is missing or stale. Concurrent callers for the same key share a
// single in-flight fetch; a failed fetch is not cached, so the next caller
// retries.
func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	if value, ok, err := c.store.Get(ctx, key); err == nil && ok {
		return value, nil
	}
	result, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Another caller may have populated the store while we waited.
		if value, ok, err := c.store.Get(ctx, key); err == nil && ok {
			return value, nil
		}
		value, err := c.loader(ctx, key)
		if err != nil {
			return "", err
		}
		if err := c.store.Set(ctx, key, value, c.ttl); err != nil {
			return value, nil // cache write failure is not a fetch failure
		}
		return value, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// redisStore backs the cache with Redis, using per-key TTLs.
type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps a Redis client as a cache store.
func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client, prefix: "canvas:"}
}

func (s *redisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *redisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+key, value, ttl).Err()
}

// memoryStore is the in-process fallback used when Redis is not configured,
// and by tests.
type memoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value   string
	expires time.Time
}

// NewMemoryStore returns a process-local store. now may be nil.
func NewMemoryStore(now func() time.Time) Store {
	if now == nil {
		now = time.Now
	}
	return &memoryStore{entries: make(map[string]memoryEntry), now: now}
}

func (s *memoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return "", false, nil
	}
	if s.now().After(entry.expires) {
		delete(s.entries, key)
		return "", false, nil
	}
	return entry.value, true, nil
}

func (s *memoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{value: value, expires: s.now().Add(ttl)}
	return nil
}
