package results

import (
	"fmt"

	"github.com/Sternrassler/profile-fetcher/pkg/client"
)

// Summary limits.
const (
	DefaultSummaryFailures = 5
	SummaryReasonMax       = 80
)

// Summary is the end-of-run report.
type Summary struct {
	Succeeded int
	Failed    int
	Skipped   int
	Pending   int

	// Failures holds at most the requested number of failures, reasons truncated.
	Failures []FailureRecord

	// More is the number of failures not listed.
	More int
}

// Summarize builds the report for run listing at most n failures.
func Summarize(run *RunResult, n int) Summary {
	if n < 0 {
		n = 0
	}
	s := Summary{
		Succeeded: len(run.Records),
		Failed:    len(run.Failures),
		Skipped:   len(run.Skipped),
		Pending:   len(run.Pending),
	}
	for i, f := range run.Failures {
		if i >= n {
			s.More = len(run.Failures) - n
			break
		}
		f.Reason = client.Truncate(f.Reason, SummaryReasonMax)
		s.Failures = append(s.Failures, f)
	}
	return s
}

// Lines renders the summary as display lines.
func (s Summary) Lines() []string {
	lines := []string{
		"✓ Scraping completed!",
		fmt.Sprintf("  • Successfully scraped: %d %s", s.Succeeded, plural(s.Succeeded, "profile")),
	}
	if s.Skipped > 0 {
		lines = append(lines, fmt.Sprintf("  • Skipped (already scraped): %d", s.Skipped))
	}
	if s.Pending > 0 {
		lines = append(lines, fmt.Sprintf("  • Not started (cancelled): %d", s.Pending))
	}
	if s.Failed == 0 {
		return lines
	}

	lines = append(lines,
		fmt.Sprintf("  • Failed: %d %s", s.Failed, plural(s.Failed, "profile")),
		"Failed profiles:",
	)
	for _, f := range s.Failures {
		lines = append(lines, fmt.Sprintf("  ✗ %s: %s", f.Identifier, f.Reason))
	}
	if s.More > 0 {
		lines = append(lines, fmt.Sprintf("  ... and %d more", s.More))
	}
	return lines
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
