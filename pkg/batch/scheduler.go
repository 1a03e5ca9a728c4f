package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/profile-fetcher/pkg/client"
	"github.com/Sternrassler/profile-fetcher/pkg/events"
	"github.com/Sternrassler/profile-fetcher/pkg/profile"
	"github.com/Sternrassler/profile-fetcher/pkg/results"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for batch runs.
var (
	windowsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "profile_batch_windows_total",
		Help: "Total number of windows processed",
	})

	windowDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "profile_batch_window_duration_seconds",
		Help:    "Wall time of one window from start to join",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	})

	dispositionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "profile_batch_dispositions_total",
		Help: "Terminal dispositions by result",
	}, []string{"result"})

	inFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "profile_batch_in_flight",
		Help: "Profile fetches currently running",
	})
)

// Config holds scheduler configuration.
type Config struct {
	// ConcurrencyCap is the window size and the maximum number of concurrent fetches.
	ConcurrencyCap int

	// Cooldown is the pause between consecutive windows.
	Cooldown time.Duration
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() Config {
	return Config{
		ConcurrencyCap: 10,
		Cooldown:       500 * time.Millisecond,
	}
}

// Fetcher resolves one identifier. *profile.Orchestrator implements it.
type Fetcher interface {
	Fetch(ctx context.Context, req profile.FetchRequest) (profile.Record, client.Outcome)
}

// Scheduler runs fetches window by window.
type Scheduler struct {
	fetcher   Fetcher
	config    Config
	progress  *Progress
	collector results.Collector
	sleep     client.SleepFunc
	logger    zerolog.Logger
}

// Option customises a Scheduler.
type Option func(*Scheduler)

// WithProgress sets the progress stamper. Events reach the sink it wraps.
func WithProgress(p *Progress) Option {
	return func(s *Scheduler) {
		if p != nil {
			s.progress = p
		}
	}
}

// WithCollector receives every disposition in input order.
func WithCollector(c results.Collector) Option {
	return func(s *Scheduler) { s.collector = c }
}

// WithSleep replaces the cooldown wait.
func WithSleep(fn client.SleepFunc) Option {
	return func(s *Scheduler) {
		if fn != nil {
			s.sleep = fn
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// NewScheduler creates a new scheduler.
func NewScheduler(fetcher Fetcher, cfg Config, opts ...Option) *Scheduler {
	if cfg.ConcurrencyCap <= 0 {
		cfg.ConcurrencyCap = 10
	}
	if cfg.Cooldown < 0 {
		cfg.Cooldown = 0
	}

	s := &Scheduler{
		fetcher:  fetcher,
		config:   cfg,
		progress: NewProgress(nil),
		sleep:    client.SleepContext,
		logger:   log.With().Str("component", "batch-scheduler").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Progress returns the scheduler's progress stamper.
func (s *Scheduler) Progress() *Progress {
	return s.progress
}

// Run fetches every identifier and returns the run result. On cancellation it
// returns the partial result, with unstarted identifiers in Pending, and the
// context error.
func (s *Scheduler) Run(ctx context.Context, ids []string, categories profile.CategorySet) (*results.RunResult, error) {
	run := results.NewRunResult()
	s.progress.Reset(len(ids))

	windowSize := s.config.ConcurrencyCap
	windows := (len(ids) + windowSize - 1) / windowSize

	s.logger.Info().
		Str("run_id", run.RunID.String()).
		Int("identifiers", len(ids)).
		Int("windows", windows).
		Int("concurrency", windowSize).
		Msg("Starting batch run")

	for start := 0; start < len(ids); start += windowSize {
		if start > 0 && s.config.Cooldown > 0 {
			if err := s.sleep(ctx, s.config.Cooldown); err != nil {
				return s.stop(run, ids[start:], err)
			}
		}
		if err := ctx.Err(); err != nil {
			return s.stop(run, ids[start:], err)
		}

		end := start + windowSize
		if end > len(ids) {
			end = len(ids)
		}

		windowStart := time.Now()
		dispositions := s.runWindow(ctx, ids[start:end], categories)
		windowDuration.Observe(time.Since(windowStart).Seconds())
		windowsTotal.Inc()

		for _, d := range dispositions {
			s.report(run, d)
		}

		completed, total := s.progress.Counts()
		s.logger.Debug().
			Int("window", start/windowSize+1).
			Int("completed", completed).
			Int("total", total).
			Dur("duration", time.Since(windowStart)).
			Msg("Window complete")
	}

	run.FinishedAt = time.Now()
	s.logger.Info().
		Str("run_id", run.RunID.String()).
		Int("succeeded", len(run.Records)).
		Int("failed", len(run.Failures)).
		Dur("duration", run.Duration()).
		Msg("Batch run complete")
	return run, nil
}

func (s *Scheduler) stop(run *results.RunResult, pending []string, err error) (*results.RunResult, error) {
	run.Pending = append(run.Pending, pending...)
	run.FinishedAt = time.Now()
	s.logger.Warn().
		Err(err).
		Str("run_id", run.RunID.String()).
		Int("resolved", run.Resolved()).
		Int("pending", len(run.Pending)).
		Msg("Batch run cancelled - returning partial results")
	return run, fmt.Errorf("batch run cancelled: %w", err)
}

// runWindow fetches one window concurrently and returns dispositions in input order.
func (s *Scheduler) runWindow(ctx context.Context, window []string, categories profile.CategorySet) []results.Disposition {
	out := make([]results.Disposition, len(window))

	var wg sync.WaitGroup
	for i, id := range window {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out[i] = s.fetchOne(ctx, id, categories)
		}()
	}
	wg.Wait()
	return out
}

func (s *Scheduler) fetchOne(ctx context.Context, id string, categories profile.CategorySet) (d results.Disposition) {
	inFlight.Inc()
	defer inFlight.Dec()

	d.Identifier = id
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("identifier", id).Interface("panic", r).Msg("Fetch panicked")
			d.Record = nil
			d.Outcome = unexpectedOutcome(r)
		}
	}()

	d.Record, d.Outcome = s.fetcher.Fetch(ctx, profile.FetchRequest{Identifier: id, Categories: categories})
	return d
}

// unexpectedOutcome classifies a recovered panic. Rate-limit text still
// counts as a rate limit.
func unexpectedOutcome(r any) client.Outcome {
	text := fmt.Sprint(r)
	out := client.Classify(nil, errors.New(text), client.EndpointOverview)
	if out.Kind != client.OutcomeRateLimited {
		out.Reason = results.ReasonUnexpected + client.Truncate(text, 60)
	}
	return out
}

func (s *Scheduler) report(run *results.RunResult, d results.Disposition) {
	run.Add(d)
	if s.collector != nil {
		s.collector.Collect(d)
	}

	label := d.OutcomeLabel()
	dispositionsTotal.WithLabelValues(label).Inc()

	level := zerolog.InfoLevel
	if !d.Succeeded() {
		level = zerolog.ErrorLevel
	}
	s.progress.Advance(events.Event{
		Identifier: d.Identifier,
		Outcome:    label,
		Level:      level,
		Message:    d.Message(),
	})
}
