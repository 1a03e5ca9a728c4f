// Package profile fetches one profile: the mandatory overview lookup, then
// the selected category lookups concurrently, merged into a single Record.
package profile

import (
	"context"
	"fmt"

	"github.com/Sternrassler/profile-fetcher/pkg/client"
	"github.com/Sternrassler/profile-fetcher/pkg/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var categoryFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "profile_category_fetch_total",
	Help: "Category lookups by category and result (ok, missing, failed)",
}, []string{"category", "result"})

// ReasonNoOverviewData is the failure reason for an overview without payload.
const ReasonNoOverviewData = "No data in overview response"

// API is the remote profile API as seen by the orchestrator.
type API interface {
	Overview(ctx context.Context, identifier string) (*client.Response, error)
	Category(ctx context.Context, c Category, key string) (*client.Response, error)
}

// FetchRequest asks for one identifier with a set of optional categories.
type FetchRequest struct {
	Identifier string
	Categories CategorySet
}

// Orchestrator fetches and merges single profiles. Safe for concurrent use.
type Orchestrator struct {
	api      API
	executor *client.Executor
	sink     events.Sink
	logger   zerolog.Logger
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithSink sets the event sink for category notices.
func WithSink(sink events.Sink) Option {
	return func(o *Orchestrator) { o.sink = events.OrDiscard(sink) }
}

// WithLogger sets the structured logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// NewOrchestrator creates an orchestrator. A nil executor uses the default retry policy.
func NewOrchestrator(api API, executor *client.Executor, opts ...Option) *Orchestrator {
	if executor == nil {
		executor = client.NewExecutor(client.DefaultRetryPolicy())
	}
	o := &Orchestrator{
		api:      api,
		executor: executor,
		sink:     events.Discard,
		logger:   log.With().Str("component", "profile-orchestrator").Logger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Fetch resolves one identifier. A non-success outcome comes with a nil
// Record. Category failures never affect the returned outcome; the category
// is just left out of the record.
func (o *Orchestrator) Fetch(ctx context.Context, req FetchRequest) (rec Record, out client.Outcome) {
	id := req.Identifier
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error().Str("identifier", id).Interface("panic", r).Msg("Profile fetch panicked")
			rec = nil
			out = client.Outcome{
				Kind:   client.OutcomeRetryableError,
				Reason: "Unexpected error: " + client.Truncate(fmt.Sprint(r), 60),
			}
		}
	}()

	overview := o.executor.Execute(ctx, id, client.EndpointOverview, func(ctx context.Context) (*client.Response, error) {
		return o.api.Overview(ctx, id)
	})
	if !overview.OK() {
		return nil, overview
	}
	if !overview.Response.HasData() {
		return nil, client.Outcome{
			Kind:     client.OutcomeRetryableError,
			Reason:   ReasonNoOverviewData,
			Response: overview.Response,
			Attempts: overview.Attempts,
		}
	}

	var payload map[string]any
	if err := overview.Response.DecodeData(&payload); err != nil {
		return nil, client.Outcome{
			Kind:     client.OutcomeRetryableError,
			Reason:   "Unexpected error: " + client.Truncate(err.Error(), 60),
			Response: overview.Response,
			Attempts: overview.Attempts,
		}
	}
	rec = Record(payload)
	if rec == nil {
		rec = Record{}
	}

	urn := rec.URN()
	if urn == "" {
		o.logger.Debug().Str("identifier", id).Msg("Overview has no urn - skipping category lookups")
		rec[KeyUsername] = id
		return rec, o.success(overview)
	}

	// One slot per category; each task writes only its own.
	slots := make([]categoryResult, len(AllCategories))
	var g errgroup.Group
	for _, c := range req.Categories.List() {
		g.Go(func() error {
			slots[c] = o.fetchCategory(ctx, id, urn, c)
			return nil
		})
	}
	_ = g.Wait()

	rec.merge(slots)
	rec[KeyUsername] = id
	return rec, o.success(overview)
}

func (o *Orchestrator) success(overview client.Outcome) client.Outcome {
	return client.Outcome{
		Kind:     client.OutcomeSuccess,
		Response: overview.Response,
		Attempts: overview.Attempts,
	}
}

// fetchCategory runs one category lookup. Every failure is reported and
// turned into an empty slot.
func (o *Orchestrator) fetchCategory(ctx context.Context, id, urn string, c Category) (slot categoryResult) {
	defer func() {
		if r := recover(); r != nil {
			o.categoryFailed(id, c, fmt.Sprint(r))
			slot = categoryResult{}
		}
	}()

	key := urn
	if c.KeyedByIdentifier() {
		key = id
	}

	out := o.executor.Execute(ctx, id, client.EndpointCategory, func(ctx context.Context) (*client.Response, error) {
		return o.api.Category(ctx, c, key)
	})
	if !out.OK() || !out.Response.HasData() {
		categoryFetchTotal.WithLabelValues(c.String(), "missing").Inc()
		o.logger.Debug().
			Str("identifier", id).
			Str("category", c.String()).
			Str("outcome", out.Kind.String()).
			Str("reason", out.Reason).
			Msg("Category lookup returned nothing")
		o.sink.Emit(events.Event{
			Identifier: id,
			Level:      zerolog.WarnLevel,
			Message:    fmt.Sprintf("⚠ (%s) no %s found", id, c),
		})
		return categoryResult{}
	}

	payload, err := decodePayload(out.Response.Data)
	if err == nil {
		err = checkPayload(c, payload)
	}
	if err != nil {
		o.categoryFailed(id, c, err.Error())
		return categoryResult{}
	}

	categoryFetchTotal.WithLabelValues(c.String(), "ok").Inc()
	return categoryResult{ok: true, data: payload}
}

func (o *Orchestrator) categoryFailed(id string, c Category, reason string) {
	categoryFetchTotal.WithLabelValues(c.String(), "failed").Inc()
	o.logger.Warn().
		Str("identifier", id).
		Str("category", c.String()).
		Str("reason", reason).
		Msg("Category lookup failed")
	o.sink.Emit(events.Event{
		Identifier: id,
		Level:      zerolog.WarnLevel,
		Message:    fmt.Sprintf("⚠ (%s) %s failed: %s...", id, c, client.Truncate(reason, 60)),
	})
}
