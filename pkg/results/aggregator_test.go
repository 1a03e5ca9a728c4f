package results

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sync"
	"testing"

	"github.com/Sternrassler/profile-fetcher/pkg/client"
)

func TestAggregator_CollectAndLookup(t *testing.T) {
	agg := NewAggregator()
	agg.Collect(successFor("Alice"))
	agg.Collect(failureFor("bob", client.OutcomeRetryableError, "boom"))

	if !agg.AlreadySucceeded("alice") {
		t.Error("AlreadySucceeded should be case-insensitive")
	}
	if !agg.AlreadySucceeded(" ALICE ") {
		t.Error("AlreadySucceeded should ignore surrounding space")
	}
	if agg.AlreadySucceeded("bob") {
		t.Error("failed identifiers are not succeeded")
	}
	if len(agg.Records()) != 1 || len(agg.Failures()) != 1 {
		t.Errorf("records=%d failures=%d, want 1/1", len(agg.Records()), len(agg.Failures()))
	}
}

func TestAggregator_DuplicateSuccessIgnored(t *testing.T) {
	agg := NewAggregator()
	agg.Collect(successFor("alice"))
	agg.Collect(successFor("ALICE"))

	if n := len(agg.Records()); n != 1 {
		t.Errorf("Records = %d, want 1", n)
	}
}

func TestAggregator_Filter(t *testing.T) {
	agg := NewAggregator()
	agg.Collect(successFor("alice"))
	agg.Collect(failureFor("bob", client.OutcomeNotFound, "Profile not found"))

	remaining, skipped := agg.Filter([]string{"bob", "Alice", "carol"})

	if !reflect.DeepEqual(remaining, []string{"bob", "carol"}) {
		t.Errorf("remaining = %v, want [bob carol]", remaining)
	}
	if !reflect.DeepEqual(skipped, []string{"Alice"}) {
		t.Errorf("skipped = %v, want [Alice]", skipped)
	}
}

func TestAggregator_ResetFailures(t *testing.T) {
	agg := NewAggregator()
	agg.Collect(successFor("alice"))
	agg.Collect(failureFor("bob", client.OutcomeRetryableError, "boom"))

	agg.ResetFailures()

	if n := len(agg.Failures()); n != 0 {
		t.Errorf("Failures = %d, want 0", n)
	}
	if n := len(agg.Records()); n != 1 {
		t.Errorf("Records = %d, want 1 (records survive)", n)
	}

	agg.Reset()
	if agg.AlreadySucceeded("alice") {
		t.Error("Reset should forget successes")
	}
}

func TestAggregator_ConcurrentCollect(t *testing.T) {
	agg := NewAggregator()
	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			agg.Collect(successFor(id))
		}()
	}
	wg.Wait()

	if n := len(agg.Records()); n != len(ids) {
		t.Errorf("Records = %d, want %d", n, len(ids))
	}
}

func TestAggregator_WriteJSON(t *testing.T) {
	agg := NewAggregator()
	agg.Collect(successFor("alice"))
	agg.Collect(failureFor("bob", client.OutcomeRateLimited, client.ReasonRateLimitExhausted))

	var buf bytes.Buffer
	if err := agg.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	var got struct {
		Profiles []map[string]any    `json:"profiles"`
		Failed   []map[string]string `json:"failed"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(got.Profiles) != 1 || got.Profiles[0]["username"] != "alice" {
		t.Errorf("profiles = %v", got.Profiles)
	}
	want := map[string]string{"username": "bob", "error": "Rate limit exceeded"}
	if len(got.Failed) != 1 || !reflect.DeepEqual(got.Failed[0], want) {
		t.Errorf("failed = %v, want [%v]", got.Failed, want)
	}
}
