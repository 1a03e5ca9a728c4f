package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by layer (memory, redis)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profile_cache_hits_total",
			Help: "Total number of profile API cache hits",
		},
		[]string{"layer"}, // "memory", "redis"
	)

	// CacheMisses tracks cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "profile_cache_misses_total",
			Help: "Total number of profile API cache misses",
		},
	)

	// CacheStoredBytes tracks bytes written to the cache by layer
	CacheStoredBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profile_cache_stored_bytes_total",
			Help: "Total bytes written to the profile API cache",
		},
		[]string{"layer"},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profile_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
