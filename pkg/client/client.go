// Package client provides the HTTP client for the remote profile API together
// with response classification and retry handling.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/profile-fetcher/pkg/cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for API client operations.
var (
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "profile_api_requests_total",
		Help: "Total profile API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "profile_api_request_duration_seconds",
		Help:    "Profile API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})
)

// API endpoint paths.
const (
	PathOverview       = "/api/v1/profile/overview"
	PathDetails        = "/api/v1/profile/details"
	PathExperience     = "/api/v1/profile/full-experience"
	PathEducation      = "/api/v1/profile/education"
	PathSkills         = "/api/v1/profile/skills"
	PathCertifications = "/api/v1/profile/certifications"
	PathContactInfo    = "/api/v1/profile/contact-info"
)

// DefaultBaseURL is the production API host.
const DefaultBaseURL = "https://linkdapi.com"

// APIKeyHeader carries the API key on every request.
const APIKeyHeader = "X-linkdapi-apikey"

// Throttle gates outgoing requests. *ratelimit.Tracker implements it.
type Throttle interface {
	Wait(ctx context.Context) error
	RecordRateLimit(ctx context.Context, retryAfter time.Duration) error
}

// Config holds the client configuration.
type Config struct {
	// APIKey is sent in the X-linkdapi-apikey header (REQUIRED).
	APIKey string

	// BaseURL of the API. Defaults to DefaultBaseURL.
	BaseURL string

	// UserAgent header, optional.
	UserAgent string

	// Timeout per HTTP request.
	Timeout time.Duration

	// Cache stores successful responses. Nil disables caching.
	Cache *cache.Manager

	// Throttle coordinates requests across callers. Nil disables it.
	Throttle Throttle
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:    apiKey,
		BaseURL:   DefaultBaseURL,
		UserAgent: "profile-fetcher/1.0",
		Timeout:   30 * time.Second,
	}
}

// Client performs raw calls against the profile API. It does not retry;
// retries are the Executor's job. Safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	config     Config
	logger     zerolog.Logger
}

// New creates a new API client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		config:  cfg,
		logger:  log.With().Str("component", "profile-client").Logger(),
	}, nil
}

// Get calls endpoint with the given query parameters and decodes the body.
//
// A returned error is a transport failure (network, timeout, undecodable
// body). API-level failures come back as a Response and are left to Classify.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) (*Response, error) {
	startTime := time.Now()
	defer func() {
		apiRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	cacheKey := cache.Key{Endpoint: endpoint, QueryParams: params}
	if c.config.Cache != nil {
		entry, err := c.config.Cache.Get(ctx, cacheKey)
		switch {
		case err == nil:
			if resp, decErr := DecodeResponse(entry.Data); decErr == nil {
				c.logger.Debug().Str("endpoint", endpoint).Msg("Serving response from cache")
				apiRequestsTotal.WithLabelValues(endpoint, "cached").Inc()
				return resp, nil
			}
		case err != cache.ErrCacheMiss:
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
	}

	if c.config.Throttle != nil {
		if err := c.config.Throttle.Wait(ctx); err != nil {
			return nil, &APIError{Endpoint: endpoint, Message: "throttle wait", Err: err}
		}
	}

	reqURL := c.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(APIKeyHeader, c.config.APIKey)
	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("query", params.Encode()).
		Msg("Executing API request")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		apiRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, &APIError{Endpoint: endpoint, Message: "request failed", Err: err}
	}
	defer httpResp.Body.Close()

	apiRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(httpResp.StatusCode)).Inc()

	if httpResp.StatusCode == http.StatusTooManyRequests && c.config.Throttle != nil {
		if err := c.config.Throttle.RecordRateLimit(ctx, parseRetryAfter(httpResp.Header.Get("Retry-After"))); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to record rate limit")
		}
	}

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &APIError{
			Endpoint:   endpoint,
			StatusCode: httpResp.StatusCode,
			Message:    "read body",
			Err:        err,
		}
	}

	resp, err := DecodeResponse(body)
	if err != nil {
		if httpResp.StatusCode < 400 {
			return nil, &APIError{
				Endpoint:   endpoint,
				StatusCode: httpResp.StatusCode,
				Message:    "undecodable response",
				Err:        err,
			}
		}
		// Error pages are often HTML; keep the status so it still classifies.
		resp = &Response{}
	}
	if httpResp.StatusCode >= 400 && resp.Status == 0 {
		resp.Status = httpResp.StatusCode
		if resp.Message == "" {
			resp.Message = http.StatusText(httpResp.StatusCode)
		}
	}

	if c.config.Cache != nil && httpResp.StatusCode == http.StatusOK && resp.Shape() == ShapeData {
		if err := c.config.Cache.Set(ctx, cacheKey, c.config.Cache.NewEntry(body, httpResp.StatusCode)); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		}
	}

	return resp, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// BaseURL returns the normalized API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// parseRetryAfter reads a Retry-After header given in seconds.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
