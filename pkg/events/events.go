// Package events defines the progress and log event stream emitted by the
// fetch pipeline. Core packages never print; they emit Events into a Sink
// supplied by the caller, and the presentation layer decides what to show.
package events

import (
	"sync"

	"github.com/rs/zerolog"
)

// Event is one progress or log notification.
type Event struct {
	// Completed is the number of identifiers resolved so far in the current run.
	Completed int

	// Total is the number of identifiers scheduled in the current run.
	Total int

	// Identifier is the identifier the event concerns, empty for run-level events.
	Identifier string

	// Outcome is set on terminal per-identifier events ("success", "not_found", ...).
	Outcome string

	// Level is the severity used when the event is rendered as a log line.
	Level zerolog.Level

	// Message is the human-readable text.
	Message string
}

// Sink receives events. Implementations must be safe for concurrent use.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

// Emit calls f(e).
func (f SinkFunc) Emit(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// OrDiscard returns s, or Discard when s is nil.
func OrDiscard(s Sink) Sink {
	if s == nil {
		return Discard
	}
	return s
}

// LogSink renders events as zerolog lines.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a sink that writes to logger.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Emit implements Sink.
func (s *LogSink) Emit(e Event) {
	ev := s.logger.WithLevel(e.Level)
	if e.Total > 0 {
		ev = ev.Int("completed", e.Completed).Int("total", e.Total)
	}
	if e.Identifier != "" {
		ev = ev.Str("identifier", e.Identifier)
	}
	if e.Outcome != "" {
		ev = ev.Str("outcome", e.Outcome)
	}
	ev.Msg(e.Message)
}

// Recorder keeps every event in memory. Useful for tests and for
// presentation layers that render a rolling buffer.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements Sink.
func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Messages returns the recorded messages in emission order.
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Message)
	}
	return out
}

// Tee forwards every event to all sinks in order.
func Tee(sinks ...Sink) Sink {
	return SinkFunc(func(e Event) {
		for _, s := range sinks {
			if s != nil {
				s.Emit(e)
			}
		}
	})
}
