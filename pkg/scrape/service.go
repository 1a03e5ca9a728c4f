// Package scrape is the entry point for fetching a list of profiles. It
// normalizes the input, skips identifiers that already succeeded, runs the
// batch scheduler and reports a summary through the event sink.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/profile-fetcher/pkg/batch"
	"github.com/Sternrassler/profile-fetcher/pkg/client"
	"github.com/Sternrassler/profile-fetcher/pkg/events"
	"github.com/Sternrassler/profile-fetcher/pkg/profile"
	"github.com/Sternrassler/profile-fetcher/pkg/results"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrNothingToDo is returned when every identifier already succeeded.
var ErrNothingToDo = errors.New("nothing to do: all identifiers already scraped")

// Config holds the service configuration.
type Config struct {
	// MaxConcurrent is the window size of the scheduler.
	MaxConcurrent int

	// Retry is the per-call retry policy.
	Retry client.RetryPolicy

	// WindowCooldown is the pause between windows.
	WindowCooldown time.Duration

	// Sleep replaces every wait (backoff and cooldown). Nil uses real timers.
	Sleep client.SleepFunc
}

// DefaultConfig returns the default service configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent:  batch.DefaultConfig().ConcurrencyCap,
		Retry:          client.DefaultRetryPolicy(),
		WindowCooldown: batch.DefaultConfig().Cooldown,
	}
}

// Service runs scrapes and remembers their results across calls.
type Service struct {
	aggregator *results.Aggregator
	scheduler  *batch.Scheduler
	progress   *batch.Progress
	logger     zerolog.Logger
}

// New wires the executor, orchestrator, scheduler and aggregator around api.
// All progress and log notices go to sink.
func New(api profile.API, cfg Config, sink events.Sink) *Service {
	progress := batch.NewProgress(events.OrDiscard(sink))

	executor := client.NewExecutor(cfg.Retry,
		client.WithSleep(cfg.Sleep),
		client.WithSink(progress))
	orchestrator := profile.NewOrchestrator(api, executor, profile.WithSink(progress))
	aggregator := results.NewAggregator()
	scheduler := batch.NewScheduler(orchestrator,
		batch.Config{ConcurrencyCap: cfg.MaxConcurrent, Cooldown: cfg.WindowCooldown},
		batch.WithProgress(progress),
		batch.WithCollector(aggregator),
		batch.WithSleep(cfg.Sleep))

	return &Service{
		aggregator: aggregator,
		scheduler:  scheduler,
		progress:   progress,
		logger:     log.With().Str("component", "scrape-service").Logger(),
	}
}

// Aggregator returns the cross-run result store.
func (s *Service) Aggregator() *results.Aggregator {
	return s.aggregator
}

// Scrape fetches identifiers with the given optional categories. Identifiers
// that succeeded in an earlier call are skipped; if none remain it returns
// ErrNothingToDo without any network I/O. On cancellation the partial result
// is returned with the context error.
func (s *Service) Scrape(ctx context.Context, identifiers []string, categories profile.CategorySet) (*results.RunResult, error) {
	ids := NormalizeIdentifiers(identifiers)
	remaining, skipped := s.aggregator.Filter(ids)

	if len(skipped) > 0 {
		s.logger.Info().
			Int("skipped", len(skipped)).
			Strs("identifiers", skipped).
			Msg("Skipping already scraped identifiers")
	}
	if len(remaining) == 0 {
		s.logger.Info().Int("submitted", len(identifiers)).Msg("Nothing to scrape")
		return nil, ErrNothingToDo
	}

	s.aggregator.ResetFailures()
	s.progress.Reset(len(remaining))

	if categories.Len() > 0 {
		s.notify(fmt.Sprintf("→ Fetching: %s", categories))
	}
	s.notify(fmt.Sprintf("→ Starting scrape of %d %s...", len(remaining), plural(len(remaining), "profile")))

	run, err := s.scheduler.Run(ctx, remaining, categories)
	if run != nil {
		run.Skipped = skipped
		for _, line := range results.Summarize(run, results.DefaultSummaryFailures).Lines() {
			s.notify(line)
		}
	}
	if err != nil {
		return run, fmt.Errorf("scrape: %w", err)
	}
	return run, nil
}

func (s *Service) notify(msg string) {
	s.progress.Emit(events.Event{Level: zerolog.InfoLevel, Message: msg})
}

// NormalizeIdentifiers trims identifiers, drops blanks and removes
// case-insensitive duplicates. The first spelling wins.
func NormalizeIdentifiers(identifiers []string) []string {
	seen := make(map[string]struct{}, len(identifiers))
	out := make([]string, 0, len(identifiers))
	for _, id := range identifiers {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		key := strings.ToLower(id)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, id)
	}
	return out
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
