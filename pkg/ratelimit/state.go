// Package ratelimit implements an optional shared throttle for profile API
// calls. When any call observes a rate limit, a cooldown is recorded and every
// subsequent request waits it out, so concurrent callers back off together
// instead of each hammering the API on its own schedule.
package ratelimit

import (
	"time"
)

// Redis keys for shared throttle state.
const (
	RedisKeyCooldownUntil = "profile:rate_limit:cooldown_until"
	RedisKeyHits          = "profile:rate_limit:hits"
	RedisKeyLastUpdate    = "profile:rate_limit:last_update"
)

// DefaultCooldown is applied when the API gives no Retry-After hint.
const DefaultCooldown = 5 * time.Second

// State represents the shared throttle state.
type State struct {
	// CooldownUntil is the moment requests may resume. Zero means no cooldown.
	CooldownUntil time.Time `json:"cooldown_until"`

	// Hits counts rate-limit observations since the state was created.
	Hits int64 `json:"hits"`

	// LastUpdate is the timestamp when this state was last updated.
	LastUpdate time.Time `json:"last_update"`
}

// IsStale returns true if the state data is older than the given duration.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// CoolingDown reports whether requests must still wait at now.
func (s *State) CoolingDown(now time.Time) bool {
	return now.Before(s.CooldownUntil)
}

// TimeUntilClear returns how long requests must still wait.
// Returns 0 if the cooldown has already passed.
func (s *State) TimeUntilClear() time.Duration {
	d := time.Until(s.CooldownUntil)
	if d < 0 {
		return 0
	}
	return d
}

// Extend moves the cooldown to until if that is later than the current one,
// and counts the hit. It reports whether the cooldown moved.
func (s *State) Extend(until time.Time) bool {
	s.Hits++
	s.LastUpdate = time.Now()
	if until.After(s.CooldownUntil) {
		s.CooldownUntil = until
		return true
	}
	return false
}
