package batch

import (
	"sync"

	"github.com/Sternrassler/profile-fetcher/pkg/events"
)

// Progress counts resolved identifiers and stamps the counts onto every event
// passing through it. Hand the same Progress to the executor and orchestrator
// so their notices carry the run position too.
type Progress struct {
	mu        sync.Mutex
	completed int
	total     int
	next      events.Sink
}

// NewProgress creates a progress stamper forwarding to next.
func NewProgress(next events.Sink) *Progress {
	return &Progress{next: events.OrDiscard(next)}
}

// Reset starts a new run of total identifiers.
func (p *Progress) Reset(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = 0
	p.total = total
}

// Emit implements events.Sink.
func (p *Progress) Emit(e events.Event) {
	p.mu.Lock()
	e.Completed, e.Total = p.completed, p.total
	p.mu.Unlock()
	p.next.Emit(e)
}

// Advance marks one identifier resolved and emits e with the new counts.
func (p *Progress) Advance(e events.Event) {
	p.mu.Lock()
	p.completed++
	e.Completed, e.Total = p.completed, p.total
	p.mu.Unlock()
	p.next.Emit(e)
}

// Counts returns completed and total.
func (p *Progress) Counts() (completed, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completed, p.total
}
