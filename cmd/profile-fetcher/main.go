// Command profile-fetcher fetches profiles for a list of usernames and writes
// the merged records to a JSON file.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Sternrassler/profile-fetcher/internal/input"
	"github.com/Sternrassler/profile-fetcher/pkg/cache"
	"github.com/Sternrassler/profile-fetcher/pkg/client"
	"github.com/Sternrassler/profile-fetcher/pkg/config"
	"github.com/Sternrassler/profile-fetcher/pkg/events"
	"github.com/Sternrassler/profile-fetcher/pkg/logging"
	"github.com/Sternrassler/profile-fetcher/pkg/metrics"
	"github.com/Sternrassler/profile-fetcher/pkg/profile"
	"github.com/Sternrassler/profile-fetcher/pkg/ratelimit"
	"github.com/Sternrassler/profile-fetcher/pkg/scrape"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const defaultInputFile = "usernames.txt"

type options struct {
	configPath    string
	configChanged bool
	inputs        []string
	usernames     string
	categories    []string
	output        string
	debug         bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "profile-fetcher",
		Short: "Fetch and merge profiles from the profile API",
		Long: `profile-fetcher looks up every username, fetches the selected optional
categories concurrently and writes one merged record per profile.

Usernames come from --usernames, from one or more --input files (one per
line, '#' starts a comment) or from usernames.txt. Each input source is a
separate run; usernames already fetched in an earlier run are skipped.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.configChanged = cmd.Flags().Changed("config")
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "config.yaml", "config file")
	flags.StringArrayVarP(&opts.inputs, "input", "i", nil, "identifier file, repeatable (default usernames.txt)")
	flags.StringVarP(&opts.usernames, "usernames", "u", "", "comma separated usernames")
	flags.StringSliceVarP(&opts.categories, "categories", "c", nil,
		"optional categories: details, experience, education, skills, certifications, contact or all")
	flags.StringVarP(&opts.output, "output", "o", "", "output JSON file (default <output_directory>/profiles_<timestamp>.json)")
	flags.BoolVar(&opts.debug, "debug", false, "enable debug logging")

	return cmd
}

// source is one batch of usernames processed as a single run.
type source struct {
	name        string
	identifiers []string
}

func run(ctx context.Context, opts options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		logging.Setup(logging.DefaultConfig())
		return err
	}

	logCfg := cfg.LoggingConfig()
	if opts.debug {
		logCfg.Level = logging.LevelDebug
	}
	logger := logging.Setup(logCfg)

	categories, err := profile.ParseCategories(opts.categories)
	if err != nil {
		return err
	}

	sources, err := loadSources(opts)
	if err != nil {
		return err
	}

	apiClient, closeRedis, err := newClient(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRedis()

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr); err != nil {
				logger.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	sink := events.NewLogSink(logger.With().Str("component", "scrape").Logger())
	svc := scrape.New(profile.NewRemoteAPI(apiClient), cfg.ScrapeConfig(), sink)

	var runErr error
	for _, src := range sources {
		logger.Info().
			Str("source", src.name).
			Int("identifiers", len(src.identifiers)).
			Msg("Processing input")

		_, err := svc.Scrape(ctx, src.identifiers, categories)
		if errors.Is(err, scrape.ErrNothingToDo) {
			logger.Info().Str("source", src.name).Msg("All usernames already scraped")
			continue
		}
		if err != nil {
			runErr = err
			break
		}
	}

	path, err := writeOutput(svc, cfg, opts.output)
	if err != nil {
		return err
	}
	logger.Info().
		Str("path", path).
		Int("profiles", len(svc.Aggregator().Records())).
		Int("failed", len(svc.Aggregator().Failures())).
		Msg("Results written")

	return runErr
}

// loadConfig reads the config file. The default config.yaml is optional;
// an explicitly passed file must exist.
func loadConfig(opts options) (*config.Config, error) {
	path := opts.configPath
	if !opts.configChanged {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			path = ""
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func loadSources(opts options) ([]source, error) {
	var sources []source
	if opts.usernames != "" {
		ids := input.SplitList(opts.usernames)
		if len(ids) == 0 {
			return nil, input.ErrNoIdentifiers
		}
		sources = append(sources, source{name: "--usernames", identifiers: ids})
	}

	files := opts.inputs
	if len(files) == 0 && len(sources) == 0 {
		files = []string{defaultInputFile}
	}
	for _, path := range files {
		ids, err := input.Load(path)
		if err != nil {
			return nil, err
		}
		sources = append(sources, source{name: path, identifiers: ids})
	}
	return sources, nil
}

// newClient builds the API client and attaches the optional Redis cache and
// throttle. The returned func releases the Redis connection.
func newClient(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*client.Client, func(), error) {
	clientCfg := cfg.ClientConfig()
	closeRedis := func() {}

	var rdb *redis.Client
	if cfg.RedisEnabled() {
		rdb = redis.NewClient(cfg.RedisOptions())
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Redis.Addr, err)
		}
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
		closeRedis = func() { _ = rdb.Close() }
	}

	if cfg.Cache.Enabled {
		cm, err := newCache(cfg, rdb)
		if err != nil {
			closeRedis()
			return nil, nil, err
		}
		clientCfg.Cache = cm
	}

	if cfg.RateLimit.SharedCooldown || cfg.RateLimit.RequestsPerSecond > 0 {
		var store ratelimit.Store = ratelimit.NewMemoryStore()
		if cfg.RateLimit.SharedCooldown && rdb != nil {
			store = ratelimit.NewRedisStore(rdb)
		}
		clientCfg.Throttle = ratelimit.NewTracker(store, cfg.RateLimitConfig(),
			logger.With().Str("component", "rate-limit").Logger())
	}

	c, err := client.New(clientCfg)
	if err != nil {
		closeRedis()
		return nil, nil, fmt.Errorf("failed to create API client: %w", err)
	}
	return c, closeRedis, nil
}

// newCache returns a Redis cache, optionally fronted by an LRU, or an
// LRU-only cache when Redis is not configured.
func newCache(cfg *config.Config, rdb *redis.Client) (*cache.Manager, error) {
	if rdb == nil {
		return cache.NewMemoryManager(cfg.Cache.MemorySize, cfg.Cache.TTL)
	}
	cm := cache.NewManager(rdb, cfg.Cache.TTL)
	if cfg.Cache.MemorySize > 0 {
		if err := cm.EnableMemoryLayer(cfg.Cache.MemorySize); err != nil {
			return nil, err
		}
	}
	return cm, nil
}

func writeOutput(svc *scrape.Service, cfg *config.Config, path string) (string, error) {
	if path == "" {
		name := fmt.Sprintf("profiles_%s.json", time.Now().Format("20060102_150405"))
		path = filepath.Join(cfg.OutputDirectory, name)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	if err := svc.Aggregator().WriteJSON(f); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write results: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write results: %w", err)
	}
	return path, nil
}
