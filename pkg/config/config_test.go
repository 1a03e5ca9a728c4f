package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeConfig writes content to a temp YAML file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

// clearEnv blanks every override so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvAPIKey, "")
	t.Setenv(EnvLegacyAPIKey, "")
	t.Setenv(EnvRedisURL, "")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "api_key: secret\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.APIKey != "secret" {
		t.Errorf("Expected api key secret, got %q", cfg.APIKey)
	}
	if cfg.MaxConcurrent != 10 {
		t.Errorf("Expected max_concurrent 10, got %d", cfg.MaxConcurrent)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("Expected max_retries 3, got %d", cfg.MaxRetries)
	}
	if cfg.RetryDelay != time.Second {
		t.Errorf("Expected retry_delay 1s, got %v", cfg.RetryDelay)
	}
	if cfg.WindowCooldown != 500*time.Millisecond {
		t.Errorf("Expected window_cooldown 500ms, got %v", cfg.WindowCooldown)
	}
	if cfg.OutputDirectory != "output" {
		t.Errorf("Expected output_directory output, got %q", cfg.OutputDirectory)
	}
	if cfg.Cache.TTL != time.Hour {
		t.Errorf("Expected cache ttl 1h, got %v", cfg.Cache.TTL)
	}
	if cfg.RedisEnabled() {
		t.Error("Expected Redis to be disabled by default")
	}
}

func TestLoad_FileValues(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
api_key: secret
base_url: http://localhost:9999
max_concurrent: 4
max_retries: 5
retry_delay: 2s
window_cooldown: 0s
output_directory: results
redis:
  addr: localhost:6379
  db: 3
cache:
  enabled: true
  ttl: 10m
rate_limit:
  shared_cooldown: true
  cooldown: 30s
  requests_per_second: 2.5
log:
  level: debug
  pretty: true
metrics:
  addr: ":9090"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.BaseURL != "http://localhost:9999" {
		t.Errorf("Expected base_url from file, got %q", cfg.BaseURL)
	}
	if cfg.MaxConcurrent != 4 || cfg.MaxRetries != 5 {
		t.Errorf("Expected 4/5, got %d/%d", cfg.MaxConcurrent, cfg.MaxRetries)
	}
	if cfg.RetryDelay != 2*time.Second {
		t.Errorf("Expected retry_delay 2s, got %v", cfg.RetryDelay)
	}
	if cfg.WindowCooldown != 0 {
		t.Errorf("Expected explicit zero window_cooldown to stick, got %v", cfg.WindowCooldown)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Redis.DB != 3 {
		t.Errorf("Unexpected redis config: %+v", cfg.Redis)
	}
	if !cfg.Cache.Enabled || cfg.Cache.TTL != 10*time.Minute {
		t.Errorf("Unexpected cache config: %+v", cfg.Cache)
	}
	if !cfg.RateLimit.SharedCooldown || cfg.RateLimit.Cooldown != 30*time.Second {
		t.Errorf("Unexpected rate limit config: %+v", cfg.RateLimit)
	}
	if cfg.RateLimit.RequestsPerSecond != 2.5 {
		t.Errorf("Expected 2.5 rps, got %g", cfg.RateLimit.RequestsPerSecond)
	}
	if cfg.Log.Level != "debug" || !cfg.Log.Pretty {
		t.Errorf("Unexpected log config: %+v", cfg.Log)
	}
	if cfg.Metrics.Addr != ":9090" {
		t.Errorf("Expected metrics addr :9090, got %q", cfg.Metrics.Addr)
	}
}

func TestLoad_EnvSubstitution(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_PROFILE_KEY", "from-env")
	path := writeConfig(t, "api_key: ${TEST_PROFILE_KEY}\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIKey != "from-env" {
		t.Errorf("Expected from-env, got %q", cfg.APIKey)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	tests := []struct {
		name    string
		primary string
		legacy  string
		want    string
	}{
		{name: "primary wins", primary: "primary", legacy: "legacy", want: "primary"},
		{name: "legacy fallback", legacy: "legacy", want: "legacy"},
		{name: "file value kept", want: "file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(EnvAPIKey, tt.primary)
			t.Setenv(EnvLegacyAPIKey, tt.legacy)
			path := writeConfig(t, "api_key: file\n")

			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if cfg.APIKey != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, cfg.APIKey)
			}
		})
	}
}

func TestLoad_RedisURL(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvRedisURL, "redis://:pw@cache.internal:6380/2")
	path := writeConfig(t, "api_key: secret\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Redis.Addr != "cache.internal:6380" {
		t.Errorf("Expected addr cache.internal:6380, got %q", cfg.Redis.Addr)
	}
	if cfg.Redis.Password != "pw" || cfg.Redis.DB != 2 {
		t.Errorf("Unexpected redis config: %+v", cfg.Redis)
	}
	if !cfg.RedisEnabled() {
		t.Error("Expected Redis to be enabled")
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
		substr  string
	}{
		{name: "missing key", content: "max_concurrent: 2\n", wantErr: ErrMissingAPIKey},
		{name: "placeholder key", content: "api_key: YOUR_API_KEY_HERE\n", wantErr: ErrPlaceholderAPIKey},
		{name: "blank key", content: "api_key: '   '\n", wantErr: ErrMissingAPIKey},
		{name: "negative concurrency", content: "api_key: k\nmax_concurrent: -1\n", substr: "max_concurrent"},
		{name: "cache without backend", content: "api_key: k\ncache:\n  enabled: true\n", substr: "redis.addr"},
		{name: "negative memory size", content: "api_key: k\ncache:\n  memory_size: -1\n", substr: "memory_size"},
		{name: "shared cooldown without redis", content: "api_key: k\nrate_limit:\n  shared_cooldown: true\n", substr: "redis.addr"},
		{name: "bad yaml", content: "api_key: [unterminated\n", substr: "parse"},
		{name: "bad duration", content: "api_key: k\nretry_delay: soon\n", substr: "parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			path := writeConfig(t, tt.content)

			_, err := Load(path)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
			if tt.substr != "" && !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("Expected error containing %q, got %v", tt.substr, err)
			}
		})
	}
}

func TestLoad_MemoryOnlyCache(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "api_key: k\ncache:\n  enabled: true\n  memory_size: 500\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Cache.MemorySize != 500 || cfg.RedisEnabled() {
		t.Errorf("Unexpected cache config: %+v", cfg.Cache)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected os.ErrNotExist, got %v", err)
	}
}

func TestLoad_EmptyPathUsesEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvAPIKey, "env-only")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIKey != "env-only" {
		t.Errorf("Expected env-only, got %q", cfg.APIKey)
	}
}

func TestConfig_Derived(t *testing.T) {
	cfg := Default()
	cfg.APIKey = "k"
	cfg.MaxRetries = 4
	cfg.RetryDelay = 3 * time.Second
	cfg.UserAgent = "custom/2"
	cfg.RateLimit.RequestsPerSecond = 1.5

	policy := cfg.RetryPolicy()
	if policy.MaxAttempts != 4 {
		t.Errorf("Expected 4 attempts, got %d", policy.MaxAttempts)
	}
	if policy.RateLimitBase != 3*time.Second {
		t.Errorf("Expected rate limit base 3s, got %v", policy.RateLimitBase)
	}
	if policy.RetryDelay != time.Second {
		t.Errorf("Expected fixed retry delay 1s, got %v", policy.RetryDelay)
	}

	sc := cfg.ScrapeConfig()
	if sc.MaxConcurrent != 10 || sc.WindowCooldown != 500*time.Millisecond {
		t.Errorf("Unexpected scrape config: %+v", sc)
	}

	cc := cfg.ClientConfig()
	if cc.APIKey != "k" || cc.UserAgent != "custom/2" || cc.Timeout != 30*time.Second {
		t.Errorf("Unexpected client config: %+v", cc)
	}

	rl := cfg.RateLimitConfig()
	if rl.RequestsPerSecond != 1.5 || rl.Cooldown != 5*time.Second {
		t.Errorf("Unexpected rate limit config: %+v", rl)
	}

	if lc := cfg.LoggingConfig(); lc.Level != "info" {
		t.Errorf("Expected info level, got %q", lc.Level)
	}
}
