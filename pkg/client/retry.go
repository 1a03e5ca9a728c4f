package client

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/profile-fetcher/pkg/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for retry operations.
var (
	classificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "profile_classifications_total",
		Help: "Total classified API call attempts by outcome and endpoint kind",
	}, []string{"outcome", "endpoint_kind"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "profile_retries_total",
		Help: "Total number of retry attempts by wait class",
	}, []string{"class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "profile_retry_backoff_seconds",
		Help:    "Backoff duration before a retry by wait class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "profile_retry_exhausted_total",
		Help: "Total number of calls that ran out of attempts by wait class",
	}, []string{"class"})
)

// Wait classes used for logging and metrics.
const (
	waitClassRateLimit = "rate_limit"
	waitClassGeneric   = "generic"
)

// RetryPolicy holds the configuration for retry logic.
type RetryPolicy struct {
	// MaxAttempts is the maximum number of calls, including the first one.
	MaxAttempts int

	// RateLimitBase is multiplied by the 1-indexed attempt number to get the
	// wait after a rate-limited attempt.
	RateLimitBase time.Duration

	// RetryDelay is the fixed wait after any other retryable failure.
	RetryDelay time.Duration
}

// DefaultRetryPolicy returns the default retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   3,
		RateLimitBase: 1 * time.Second,
		RetryDelay:    1 * time.Second,
	}
}

// RateLimitWait returns the wait after the rate-limited attempt with the
// given 0-based index.
func (p RetryPolicy) RateLimitWait(attempt int) time.Duration {
	return p.RateLimitBase * time.Duration(attempt+1)
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// SleepContext is the default SleepFunc.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Call performs one remote API call.
type Call func(ctx context.Context) (*Response, error)

// Executor wraps single remote calls with classification and backoff.
// It holds no per-call state and is safe for concurrent use.
type Executor struct {
	policy RetryPolicy
	sleep  SleepFunc
	sink   events.Sink
	logger zerolog.Logger
}

// ExecutorOption customises an Executor.
type ExecutorOption func(*Executor)

// WithSleep replaces the wait implementation (tests use it to record waits).
func WithSleep(fn SleepFunc) ExecutorOption {
	return func(e *Executor) {
		if fn != nil {
			e.sleep = fn
		}
	}
}

// WithSink sets the event sink for retry notifications.
func WithSink(sink events.Sink) ExecutorOption {
	return func(e *Executor) { e.sink = events.OrDiscard(sink) }
}

// WithLogger sets the structured logger.
func WithLogger(logger zerolog.Logger) ExecutorOption {
	return func(e *Executor) { e.logger = logger }
}

// NewExecutor creates an executor for the given policy.
func NewExecutor(policy RetryPolicy, opts ...ExecutorOption) *Executor {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	e := &Executor{
		policy: policy,
		sleep:  SleepContext,
		sink:   events.Discard,
		logger: log.With().Str("component", "retry-executor").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the executor's retry policy.
func (e *Executor) Policy() RetryPolicy {
	return e.policy
}

// Execute runs call until it succeeds, fails permanently or runs out of
// attempts, and returns the terminal outcome. identifier is only used for
// log and event text.
func (e *Executor) Execute(ctx context.Context, identifier string, kind EndpointKind, call Call) Outcome {
	var (
		last            Outcome
		loggedRateLimit bool
		loggedGeneric   bool
	)

	for attempt := 0; attempt < e.policy.MaxAttempts; attempt++ {
		resp, err := call(ctx)
		last = Classify(resp, err, kind)
		last.Attempts = attempt + 1
		classificationsTotal.WithLabelValues(last.Kind.String(), kind.String()).Inc()

		if !last.Retryable() {
			if last.OK() && attempt > 0 {
				e.logger.Info().
					Str("identifier", identifier).
					Str("endpoint_kind", kind.String()).
					Int("attempt", last.Attempts).
					Msg("Request succeeded after retry")
			}
			return last
		}

		// No wait after the final attempt.
		if attempt == e.policy.MaxAttempts-1 {
			break
		}

		class := waitClassGeneric
		wait := e.policy.RetryDelay
		if last.Kind == OutcomeRateLimited {
			class = waitClassRateLimit
			wait = e.policy.RateLimitWait(attempt)
		}

		switch {
		case class == waitClassRateLimit && !loggedRateLimit:
			loggedRateLimit = true
			e.sink.Emit(events.Event{
				Identifier: identifier,
				Level:      zerolog.WarnLevel,
				Message:    fmt.Sprintf("⏳ (%s) Rate limit hit - waiting %s", identifier, wait),
			})
		case class == waitClassGeneric && !loggedGeneric:
			loggedGeneric = true
			e.sink.Emit(events.Event{
				Identifier: identifier,
				Level:      zerolog.WarnLevel,
				Message:    fmt.Sprintf("⚠ (%s) %s... retrying in %s", identifier, CleanReason(last.Reason, 60), wait),
			})
		}

		retriesTotal.WithLabelValues(class).Inc()
		retryBackoffSeconds.WithLabelValues(class).Observe(wait.Seconds())
		e.logger.Debug().
			Str("identifier", identifier).
			Str("endpoint_kind", kind.String()).
			Str("class", class).
			Int("attempt", last.Attempts).
			Dur("backoff", wait).
			Str("reason", last.Reason).
			Msg("Retrying request after backoff")

		if err := e.sleep(ctx, wait); err != nil {
			e.logger.Warn().
				Str("identifier", identifier).
				Int("attempt", last.Attempts).
				Msg("Context cancelled during retry backoff")
			return Outcome{
				Kind:     OutcomeRetryableError,
				Reason:   fmt.Sprintf("%v: %v", ErrContextCancelled, err),
				Attempts: last.Attempts,
			}
		}
	}

	class := waitClassGeneric
	terminal := Outcome{Kind: OutcomeRetryableError, Reason: last.Reason, Attempts: last.Attempts}
	if last.Kind == OutcomeRateLimited {
		class = waitClassRateLimit
		terminal = Outcome{Kind: OutcomeRateLimited, Reason: ReasonRateLimitExhausted, Attempts: last.Attempts}
	}
	if terminal.Reason == "" {
		terminal.Reason = ReasonMaxRetries
	}

	retryExhaustedTotal.WithLabelValues(class).Inc()
	e.logger.Warn().
		Str("identifier", identifier).
		Str("endpoint_kind", kind.String()).
		Str("class", class).
		Int("max_attempts", e.policy.MaxAttempts).
		Err(fmt.Errorf("%w: %s", ErrRetryExhausted, last.Reason)).
		Msg("Retry attempts exhausted")

	return terminal
}
