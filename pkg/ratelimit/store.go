package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists throttle state. The Redis store shares it between processes;
// the memory store between goroutines of one process.
type Store interface {
	Load(ctx context.Context) (*State, error)
	Extend(ctx context.Context, until time.Time) (*State, error)
}

// MemoryStore keeps state in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	state State
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns a copy of the current state.
func (m *MemoryStore) Load(_ context.Context) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.state
	return &s, nil
}

// Extend records a rate-limit hit.
func (m *MemoryStore) Extend(_ context.Context, until time.Time) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Extend(until)
	s := m.state
	return &s, nil
}

// RedisStore keeps state in Redis.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{redis: redisClient}
}

// Load retrieves the current state from Redis.
// Returns an empty state if no data exists in Redis.
func (r *RedisStore) Load(ctx context.Context) (*State, error) {
	untilMillis, err := r.redis.Get(ctx, RedisKeyCooldownUntil).Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get cooldown until: %w", err)
	}

	hits, err := r.redis.Get(ctx, RedisKeyHits).Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get hits: %w", err)
	}

	lastUpdateStr, err := r.redis.Get(ctx, RedisKeyLastUpdate).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get last update: %w", err)
	}

	state := &State{Hits: hits}
	if untilMillis > 0 {
		state.CooldownUntil = time.UnixMilli(untilMillis)
	}
	if lastUpdateStr != "" {
		if err := json.Unmarshal([]byte(lastUpdateStr), &state.LastUpdate); err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
	}
	return state, nil
}

// extendScript keeps the later of the stored and the new cooldown, counts the
// hit and stamps the update time in one atomic step.
var extendScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
local until_ms = tonumber(ARGV[1])
if until_ms > current then
	redis.call("SET", KEYS[1], ARGV[1])
	current = until_ms
end
local hits = redis.call("INCR", KEYS[2])
redis.call("SET", KEYS[3], ARGV[2])
return {current, hits}
`)

// Extend records a rate-limit hit in Redis. Concurrent writers can only move
// the cooldown forward.
func (r *RedisStore) Extend(ctx context.Context, until time.Time) (*State, error) {
	now := time.Now()
	lastUpdateJSON, err := json.Marshal(now)
	if err != nil {
		return nil, fmt.Errorf("marshal last update: %w", err)
	}

	keys := []string{RedisKeyCooldownUntil, RedisKeyHits, RedisKeyLastUpdate}
	res, err := extendScript.Run(ctx, r.redis, keys, until.UnixMilli(), lastUpdateJSON).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("store throttle state in redis: %w", err)
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("store throttle state in redis: unexpected reply %v", res)
	}

	state := &State{Hits: res[1], LastUpdate: now}
	if res[0] > 0 {
		state.CooldownUntil = time.UnixMilli(res[0])
	}
	return state, nil
}
