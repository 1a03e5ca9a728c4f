// Package results collects per-identifier dispositions into run results and
// keeps the cross-run memory used for idempotent re-entry.
package results

import (
	"fmt"
	"time"

	"github.com/Sternrassler/profile-fetcher/pkg/client"
	"github.com/Sternrassler/profile-fetcher/pkg/profile"
	"github.com/google/uuid"
)

// Failure reasons recorded for identifier-level failures.
const (
	ReasonRateLimited = "Rate limit exceeded"
	NotFoundPrefix    = "Not found: "
	ReasonUnexpected  = "Unexpected error: "
)

// FailureRecord describes one identifier that produced no record.
type FailureRecord struct {
	Identifier string             `json:"username"`
	Reason     string             `json:"error"`
	Kind       client.OutcomeKind `json:"-"`
}

// Disposition is the terminal result for one identifier: a record on
// success, otherwise the failing outcome.
type Disposition struct {
	Identifier string
	Record     profile.Record
	Outcome    client.Outcome
}

// Succeeded reports whether the disposition carries a record.
func (d Disposition) Succeeded() bool {
	return d.Outcome.OK() && d.Record != nil
}

// Failure converts a failed disposition into its failure record.
func (d Disposition) Failure() FailureRecord {
	f := FailureRecord{Identifier: d.Identifier, Kind: d.Outcome.Kind, Reason: d.Outcome.Reason}
	switch d.Outcome.Kind {
	case client.OutcomeNotFound:
		f.Reason = NotFoundPrefix + d.Outcome.Reason
	case client.OutcomeRateLimited:
		f.Reason = ReasonRateLimited
	case client.OutcomeSuccess:
		// Success without a record only happens on internal misuse.
		f.Kind = client.OutcomeRetryableError
		f.Reason = ReasonUnexpected + "no record"
	}
	return f
}

// Message renders the one-line progress text for the disposition.
func (d Disposition) Message() string {
	if d.Succeeded() {
		return fmt.Sprintf("✓ (%s) Profile scraped successfully", d.Identifier)
	}
	switch d.Outcome.Kind {
	case client.OutcomeNotFound:
		return fmt.Sprintf("✗ (%s) Profile not found", d.Identifier)
	case client.OutcomeRateLimited:
		return fmt.Sprintf("✗ (%s) Rate limit exceeded (exhausted all retries)", d.Identifier)
	default:
		return fmt.Sprintf("✗ (%s) %s", d.Identifier, client.CleanReason(d.Failure().Reason, 70))
	}
}

// OutcomeLabel is the outcome name used in events and metrics.
func (d Disposition) OutcomeLabel() string {
	if d.Succeeded() {
		return client.OutcomeSuccess.String()
	}
	return d.Failure().Kind.String()
}

// RunResult is the outcome of one scheduler run.
type RunResult struct {
	RunID    uuid.UUID        `json:"run_id"`
	Records  []profile.Record `json:"records"`
	Failures []FailureRecord  `json:"failures"`

	// Skipped identifiers were filtered out because they already succeeded.
	Skipped []string `json:"skipped,omitempty"`

	// Pending identifiers were never started because the run was cancelled.
	Pending []string `json:"pending,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// NewRunResult creates an empty result with a fresh run ID.
func NewRunResult() *RunResult {
	return &RunResult{
		RunID:     uuid.New(),
		Records:   []profile.Record{},
		Failures:  []FailureRecord{},
		StartedAt: time.Now(),
	}
}

// Add appends one disposition.
func (r *RunResult) Add(d Disposition) {
	if d.Succeeded() {
		r.Records = append(r.Records, d.Record)
		return
	}
	r.Failures = append(r.Failures, d.Failure())
}

// Resolved returns the number of identifiers with a terminal disposition.
func (r *RunResult) Resolved() int {
	return len(r.Records) + len(r.Failures)
}

// Duration returns the wall time of the run.
func (r *RunResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
