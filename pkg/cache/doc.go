// Package cache provides a cache of successful profile API responses backed
// by Redis, an in-process LRU, or both.
//
// Only responses that carry a payload and no error are stored, so a cached
// lookup always classifies as a success. Entries expire after the configured
// TTL; Redis removes them on its own.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient, time.Hour)
//
//	key := cache.Key{
//		Endpoint:    "/api/v1/profile/overview",
//		QueryParams: url.Values{"username": []string{"alice"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the API, then:
//		_ = manager.Set(ctx, key, manager.NewEntry(body, http.StatusOK))
//	}
//
// A process without Redis can still avoid repeat lookups:
//
//	manager, err := cache.NewMemoryManager(1000, time.Hour)
//
// EnableMemoryLayer adds the same LRU in front of a Redis manager.
//
// # Metrics
//
//   - profile_cache_hits_total{layer="memory"|"redis"}
//   - profile_cache_misses_total
//   - profile_cache_stored_bytes_total{layer}
//   - profile_cache_errors_total{operation}
package cache
