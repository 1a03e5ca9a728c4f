// Package config loads the profile-fetcher configuration from a YAML file,
// an optional .env file and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Sternrassler/profile-fetcher/pkg/client"
	"github.com/Sternrassler/profile-fetcher/pkg/logging"
	"github.com/Sternrassler/profile-fetcher/pkg/ratelimit"
	"github.com/Sternrassler/profile-fetcher/pkg/scrape"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// PlaceholderAPIKey is the value shipped in the sample config.
const PlaceholderAPIKey = "YOUR_API_KEY_HERE"

// Environment variables that override file values.
const (
	EnvAPIKey       = "PROFILE_FETCHER_API_KEY"
	EnvLegacyAPIKey = "LINKDAPI_API_KEY"
	EnvRedisURL     = "REDIS_URL"
)

var (
	// ErrMissingAPIKey is returned when no API key is configured.
	ErrMissingAPIKey = errors.New("api_key is required")

	// ErrPlaceholderAPIKey is returned when the sample API key was left in place.
	ErrPlaceholderAPIKey = errors.New("api_key still set to placeholder " + PlaceholderAPIKey)
)

// Config is the application configuration.
type Config struct {
	APIKey          string        `yaml:"api_key"`
	BaseURL         string        `yaml:"base_url"`
	MaxConcurrent   int           `yaml:"max_concurrent"`
	MaxRetries      int           `yaml:"max_retries"`
	RetryDelay      time.Duration `yaml:"retry_delay"`
	WindowCooldown  time.Duration `yaml:"window_cooldown"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	UserAgent       string        `yaml:"user_agent"`
	OutputDirectory string        `yaml:"output_directory"`

	Redis     RedisConfig     `yaml:"redis"`
	Cache     CacheConfig     `yaml:"cache"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// RedisConfig configures the optional Redis connection.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// CacheConfig configures response caching. Entries go to Redis when it is
// configured; MemorySize > 0 adds an in-process LRU.
type CacheConfig struct {
	Enabled    bool          `yaml:"enabled"`
	TTL        time.Duration `yaml:"ttl"`
	MemorySize int           `yaml:"memory_size"`
}

// RateLimitConfig configures the request throttle.
type RateLimitConfig struct {
	// SharedCooldown stores the cooldown in Redis so that several processes
	// back off together.
	SharedCooldown    bool          `yaml:"shared_cooldown"`
	Cooldown          time.Duration `yaml:"cooldown"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// MetricsConfig configures the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used for every key the file leaves out.
func Default() *Config {
	return &Config{
		BaseURL:         client.DefaultBaseURL,
		MaxConcurrent:   10,
		MaxRetries:      3,
		RetryDelay:      1 * time.Second,
		WindowCooldown:  500 * time.Millisecond,
		RequestTimeout:  30 * time.Second,
		UserAgent:       "profile-fetcher/1.0",
		OutputDirectory: "output",
		Cache:           CacheConfig{TTL: time.Hour},
		RateLimit:       RateLimitConfig{Cooldown: ratelimit.DefaultCooldown},
		Log:             LogConfig{Level: string(logging.LevelInfo)},
	}
}

// Load reads the configuration. A .env file in the working directory is
// loaded first if present. An empty path skips the YAML file and uses
// defaults plus the environment.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if key := os.Getenv(EnvAPIKey); key != "" {
		c.APIKey = key
	} else if key := os.Getenv(EnvLegacyAPIKey); key != "" {
		c.APIKey = key
	}

	if raw := os.Getenv(EnvRedisURL); raw != "" {
		opts, err := redis.ParseURL(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvRedisURL, err)
		}
		c.Redis = RedisConfig{Addr: opts.Addr, Password: opts.Password, DB: opts.DB}
	}
	return nil
}

// applyDefaults replaces zero values the file set explicitly.
func (c *Config) applyDefaults() {
	def := Default()
	c.APIKey = strings.TrimSpace(c.APIKey)
	if c.BaseURL == "" {
		c.BaseURL = def.BaseURL
	}
	if c.MaxConcurrent == 0 {
		c.MaxConcurrent = def.MaxConcurrent
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = def.RetryDelay
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	if c.OutputDirectory == "" {
		c.OutputDirectory = def.OutputDirectory
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = def.Cache.TTL
	}
	if c.RateLimit.Cooldown == 0 {
		c.RateLimit.Cooldown = def.RateLimit.Cooldown
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}

// Validate checks the configuration for values the fetcher cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.APIKey == "":
		return fmt.Errorf("%w (set it in the config file or %s)", ErrMissingAPIKey, EnvAPIKey)
	case c.APIKey == PlaceholderAPIKey:
		return ErrPlaceholderAPIKey
	}
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", c.MaxConcurrent)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1, got %d", c.MaxRetries)
	}
	if c.RetryDelay < 0 || c.WindowCooldown < 0 || c.RequestTimeout < 0 {
		return errors.New("durations must not be negative")
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("rate_limit.requests_per_second must not be negative, got %g", c.RateLimit.RequestsPerSecond)
	}
	if c.Cache.MemorySize < 0 {
		return fmt.Errorf("cache.memory_size must not be negative, got %d", c.Cache.MemorySize)
	}
	if c.Cache.Enabled && c.Redis.Addr == "" && c.Cache.MemorySize == 0 {
		return errors.New("cache.enabled requires redis.addr or cache.memory_size")
	}
	if c.RateLimit.SharedCooldown && c.Redis.Addr == "" {
		return errors.New("rate_limit.shared_cooldown requires redis.addr")
	}
	return nil
}

// RedisEnabled reports whether a Redis address is configured.
func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}

// RedisOptions returns the go-redis connection options.
func (c *Config) RedisOptions() *redis.Options {
	return &redis.Options{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	}
}

// ClientConfig returns the HTTP client configuration. Cache and throttle are
// attached by the caller once the Redis connection exists.
func (c *Config) ClientConfig() client.Config {
	cfg := client.DefaultConfig(c.APIKey)
	cfg.BaseURL = c.BaseURL
	cfg.Timeout = c.RequestTimeout
	if c.UserAgent != "" {
		cfg.UserAgent = c.UserAgent
	}
	return cfg
}

// RetryPolicy maps retry_delay onto the rate-limit backoff base. Other
// retryable failures keep the fixed default delay.
func (c *Config) RetryPolicy() client.RetryPolicy {
	policy := client.DefaultRetryPolicy()
	policy.MaxAttempts = c.MaxRetries
	policy.RateLimitBase = c.RetryDelay
	return policy
}

// ScrapeConfig returns the service configuration.
func (c *Config) ScrapeConfig() scrape.Config {
	return scrape.Config{
		MaxConcurrent:  c.MaxConcurrent,
		Retry:          c.RetryPolicy(),
		WindowCooldown: c.WindowCooldown,
	}
}

// RateLimitConfig returns the throttle configuration.
func (c *Config) RateLimitConfig() ratelimit.Config {
	return ratelimit.Config{
		Cooldown:          c.RateLimit.Cooldown,
		RequestsPerSecond: c.RateLimit.RequestsPerSecond,
	}
}

// LoggingConfig returns the logger configuration.
func (c *Config) LoggingConfig() logging.Config {
	return logging.Config{
		Level:  logging.ParseLevel(c.Log.Level),
		Pretty: c.Log.Pretty,
	}
}
