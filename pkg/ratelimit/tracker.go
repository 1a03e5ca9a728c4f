package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prometheus metrics for the shared throttle.
var (
	rateLimitHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "profile_rate_limit_hits_total",
		Help: "Total number of rate-limit responses recorded by the shared throttle",
	})

	rateLimitWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "profile_rate_limit_waits_total",
		Help: "Total number of requests delayed by an active cooldown",
	})

	rateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "profile_rate_limit_wait_seconds",
		Help:    "Time requests spent waiting for a cooldown to clear",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})
)

// Config holds tracker configuration.
type Config struct {
	// Cooldown is used when a rate-limited response has no Retry-After hint.
	Cooldown time.Duration

	// RequestsPerSecond caps the global request rate. <= 0 disables it.
	RequestsPerSecond float64

	// Burst is the limiter burst size (default 1).
	Burst int
}

// Tracker gates requests on the shared cooldown and an optional global rate.
type Tracker struct {
	store    Store
	limiter  *rate.Limiter
	cooldown time.Duration
	logger   zerolog.Logger
}

// NewTracker creates a new throttle tracker.
func NewTracker(store Store, cfg Config, logger zerolog.Logger) *Tracker {
	if store == nil {
		store = NewMemoryStore()
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}

	t := &Tracker{
		store:    store,
		cooldown: cfg.Cooldown,
		logger:   logger,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return t
}

// State returns the current throttle state.
func (t *Tracker) State(ctx context.Context) (*State, error) {
	return t.store.Load(ctx)
}

// Wait blocks until the request may be sent. A store failure is logged and
// the request allowed, so an unavailable Redis never stalls a run.
func (t *Tracker) Wait(ctx context.Context) error {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait: %w", err)
		}
	}

	state, err := t.store.Load(ctx)
	if err != nil {
		t.logger.Warn().Err(err).Msg("Failed to load throttle state - allowing request")
		return nil
	}

	wait := state.TimeUntilClear()
	if wait <= 0 {
		return nil
	}

	t.logger.Debug().
		Dur("wait_duration", wait).
		Int64("hits", state.Hits).
		Msg("Shared cooldown active - delaying request")
	rateLimitWaitsTotal.Inc()
	rateLimitWaitSeconds.Observe(wait.Seconds())

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RecordRateLimit starts or extends the shared cooldown. retryAfter <= 0 uses
// the configured default.
func (t *Tracker) RecordRateLimit(ctx context.Context, retryAfter time.Duration) error {
	if retryAfter <= 0 {
		retryAfter = t.cooldown
	}
	state, err := t.store.Extend(ctx, time.Now().Add(retryAfter))
	if err != nil {
		return fmt.Errorf("record rate limit: %w", err)
	}
	rateLimitHitsTotal.Inc()

	t.logger.Warn().
		Time("cooldown_until", state.CooldownUntil).
		Int64("hits", state.Hits).
		Msg("Rate limit observed - shared cooldown active")
	return nil
}
