package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// DefaultTTL is used when the manager is created with a non-positive TTL.
const DefaultTTL = time.Hour

// Manager handles caching operations. Entries live in Redis, in an
// in-process LRU, or in both with the LRU consulted first.
type Manager struct {
	redis  *redis.Client
	memory *lru.Cache[string, *Entry]
	ttl    time.Duration
}

// NewManager creates a new cache manager with Redis backend.
func NewManager(redisClient *redis.Client, ttl time.Duration) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		redis: redisClient,
		ttl:   ttl,
	}
}

// NewMemoryManager creates a cache manager backed only by an in-process LRU
// holding up to size entries.
func NewMemoryManager(size int, ttl time.Duration) (*Manager, error) {
	m := &Manager{ttl: ttl}
	if m.ttl <= 0 {
		m.ttl = DefaultTTL
	}
	if err := m.EnableMemoryLayer(size); err != nil {
		return nil, err
	}
	return m, nil
}

// EnableMemoryLayer puts an in-process LRU of size entries in front of Redis.
func (m *Manager) EnableMemoryLayer(size int) error {
	memory, err := lru.New[string, *Entry](size)
	if err != nil {
		return fmt.Errorf("create memory cache: %w", err)
	}
	m.memory = memory
	return nil
}

// TTL returns the lifetime given to new entries.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// NewEntry creates an entry using the manager's TTL.
func (m *Manager) NewEntry(body []byte, statusCode int) *Entry {
	return NewEntry(body, statusCode, m.ttl)
}

// Get retrieves a cache entry by key.
// Returns ErrCacheMiss if the key doesn't exist or entry is expired.
func (m *Manager) Get(ctx context.Context, key Key) (*Entry, error) {
	cacheKey := key.String()

	if m.memory != nil {
		if entry, ok := m.memory.Get(cacheKey); ok {
			if !entry.IsExpired() {
				CacheHits.WithLabelValues("memory").Inc()
				return entry, nil
			}
			m.memory.Remove(cacheKey)
		}
	}
	if m.redis == nil {
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	data, err := m.redis.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if entry.IsExpired() {
		_ = m.Delete(ctx, key)
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	if m.memory != nil {
		m.memory.Add(cacheKey, &entry)
	}
	CacheHits.WithLabelValues("redis").Inc()
	return &entry, nil
}

// Set stores a cache entry with TTL based on the entry's Expires field.
// The entry will be automatically removed from Redis when it expires.
func (m *Manager) Set(ctx context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := entry.TTL()
	if ttl <= 0 {
		// Already expired, don't cache
		return nil
	}

	if m.memory != nil {
		m.memory.Add(key.String(), entry)
		CacheStoredBytes.WithLabelValues("memory").Add(float64(len(entry.Data)))
	}
	if m.redis == nil {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	CacheStoredBytes.WithLabelValues("redis").Add(float64(len(data)))
	return nil
}

// Delete removes a cache entry.
func (m *Manager) Delete(ctx context.Context, key Key) error {
	if m.memory != nil {
		m.memory.Remove(key.String())
	}
	if m.redis == nil {
		return nil
	}
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
