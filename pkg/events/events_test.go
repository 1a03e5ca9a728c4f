package events

import (
	"bytes"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/rs/zerolog"
)

func TestRecorder(t *testing.T) {
	rec := &Recorder{}
	rec.Emit(Event{Message: "first"})
	rec.Emit(Event{Message: "second", Identifier: "alice"})

	if got, want := rec.Messages(), []string{"first", "second"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Messages() = %v, want %v", got, want)
	}

	evs := rec.Events()
	evs[0].Message = "changed"
	if rec.Events()[0].Message != "first" {
		t.Error("Events() must return a copy")
	}
}

func TestOrDiscard(t *testing.T) {
	if OrDiscard(nil) == nil {
		t.Fatal("OrDiscard(nil) returned nil")
	}
	OrDiscard(nil).Emit(Event{Message: "dropped"})

	rec := &Recorder{}
	OrDiscard(rec).Emit(Event{Message: "kept"})
	if len(rec.Events()) != 1 {
		t.Errorf("Expected event to reach the recorder")
	}
}

func TestTee(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	Tee(a, nil, b).Emit(Event{Message: "both"})

	if len(a.Events()) != 1 || len(b.Events()) != 1 {
		t.Errorf("Expected both sinks to receive the event, got %d and %d", len(a.Events()), len(b.Events()))
	}
}

func TestLogSink(t *testing.T) {
	tests := []struct {
		name       string
		event      Event
		wantFields map[string]any
		absent     []string
	}{
		{
			name:  "per identifier",
			event: Event{Completed: 2, Total: 5, Identifier: "alice", Outcome: "success", Level: zerolog.InfoLevel, Message: "done"},
			wantFields: map[string]any{
				"level":      "info",
				"completed":  float64(2),
				"total":      float64(5),
				"identifier": "alice",
				"outcome":    "success",
				"message":    "done",
			},
		},
		{
			name:       "run level",
			event:      Event{Level: zerolog.WarnLevel, Message: "notice"},
			wantFields: map[string]any{"level": "warn", "message": "notice"},
			absent:     []string{"completed", "total", "identifier", "outcome"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewLogSink(zerolog.New(&buf)).Emit(tt.event)

			var got map[string]any
			if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
				t.Fatalf("Failed to decode log line %q: %v", buf.String(), err)
			}
			for k, want := range tt.wantFields {
				if got[k] != want {
					t.Errorf("%s = %v, want %v", k, got[k], want)
				}
			}
			for _, k := range tt.absent {
				if _, ok := got[k]; ok {
					t.Errorf("Unexpected field %s", k)
				}
			}
		})
	}
}
