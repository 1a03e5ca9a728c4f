package results

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Sternrassler/profile-fetcher/pkg/profile"
)

// Collector receives dispositions as identifiers resolve.
type Collector interface {
	Collect(d Disposition)
}

// Aggregator accumulates records across runs and remembers which identifiers
// already succeeded. Failures are kept only for the current run.
// Safe for concurrent use.
type Aggregator struct {
	mu        sync.Mutex
	records   []profile.Record
	succeeded map[string]struct{}
	failures  []FailureRecord
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{succeeded: make(map[string]struct{})}
}

func normalize(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Collect implements Collector.
func (a *Aggregator) Collect(d Disposition) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !d.Succeeded() {
		a.failures = append(a.failures, d.Failure())
		return
	}
	key := normalize(d.Identifier)
	if _, ok := a.succeeded[key]; ok {
		return
	}
	a.succeeded[key] = struct{}{}
	a.records = append(a.records, d.Record)
}

// AlreadySucceeded reports whether id has a record. Case-insensitive.
func (a *Aggregator) AlreadySucceeded(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.succeeded[normalize(id)]
	return ok
}

// Filter splits ids into those still to fetch and those already succeeded.
func (a *Aggregator) Filter(ids []string) (remaining, skipped []string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	remaining = make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := a.succeeded[normalize(id)]; ok {
			skipped = append(skipped, id)
			continue
		}
		remaining = append(remaining, id)
	}
	return remaining, skipped
}

// ResetFailures forgets the failures of previous runs.
func (a *Aggregator) ResetFailures() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures = nil
}

// Reset forgets everything.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = nil
	a.failures = nil
	a.succeeded = make(map[string]struct{})
}

// Records returns a copy of all records collected so far.
func (a *Aggregator) Records() []profile.Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]profile.Record(nil), a.records...)
}

// Failures returns a copy of the current run's failures.
func (a *Aggregator) Failures() []FailureRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]FailureRecord(nil), a.failures...)
}

// Snapshot is the serialized form of an aggregator.
type Snapshot struct {
	Records  []profile.Record `json:"profiles"`
	Failures []FailureRecord  `json:"failed"`
}

// WriteJSON writes all records and the current failures as indented JSON.
func (a *Aggregator) WriteJSON(w io.Writer) error {
	snap := Snapshot{Records: a.Records(), Failures: a.Failures()}
	if snap.Records == nil {
		snap.Records = []profile.Record{}
	}
	if snap.Failures == nil {
		snap.Failures = []FailureRecord{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	return nil
}
