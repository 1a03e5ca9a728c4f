// Package metrics exposes the Prometheus metrics of the profile fetcher.
// Collectors are defined with promauto in the packages that update them
// (client, profile, batch, cache, ratelimit); this package only serves them.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Registry is the registry all collectors are registered with via promauto.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer served by Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Metrics server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics server shutdown: %w", err)
		}
		return nil
	}
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - profile_api_requests_total{endpoint, status} (Counter): API requests by endpoint and HTTP status
//   - profile_api_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - profile_classifications_total{outcome, endpoint_kind} (Counter): Classified attempts
//
// Retry Metrics (pkg/client):
//   - profile_retries_total{class} (Counter): Retries by wait class (rate_limit, generic)
//   - profile_retry_backoff_seconds{class} (Histogram): Backoff duration by wait class
//   - profile_retry_exhausted_total{class} (Counter): Calls that ran out of attempts
//
// Profile Metrics (pkg/profile):
//   - profile_category_fetch_total{category, result} (Counter): Category lookups (ok, missing, failed)
//
// Batch Metrics (pkg/batch):
//   - profile_batch_windows_total (Counter): Windows processed
//   - profile_batch_window_duration_seconds (Histogram): Window wall time
//   - profile_batch_dispositions_total{result} (Counter): Terminal dispositions by outcome
//   - profile_batch_in_flight (Gauge): Fetches currently running
//
// Cache Metrics (pkg/cache):
//   - profile_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - profile_cache_misses_total (Counter): Cache misses
//   - profile_cache_stored_bytes{layer="redis"} (Gauge): Bytes written by the last store
//   - profile_cache_errors_total{operation} (Counter): Cache operation errors
//
// Rate Limit Metrics (pkg/ratelimit):
//   - profile_rate_limit_hits_total (Counter): Rate-limit responses recorded by the shared throttle
//   - profile_rate_limit_waits_total (Counter): Requests delayed by a cooldown
//   - profile_rate_limit_wait_seconds (Histogram): Cooldown wait duration
//
// Example Prometheus Queries:
//
//   # Share of identifiers failing
//   sum(rate(profile_batch_dispositions_total{result!="success"}[5m])) /
//   sum(rate(profile_batch_dispositions_total[5m]))
//
//   # Rate-limit pressure
//   rate(profile_retries_total{class="rate_limit"}[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(profile_api_request_duration_seconds_bucket[5m]))
