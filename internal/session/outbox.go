package session

import "sync"

// Outbox is the thread-safe handoff between the engine's background
// goroutines and the single UI-side consumer. Producers push immutable
// events; the consumer drains them on a fixed polling interval. This keeps
// real-time audio timing decoupled from display refresh timing and
// guarantees no consumer state is ever mutated from a background
// goroutine.
type Outbox struct {
	mu      sync.Mutex
	pending []Event
}

// NewOutbox creates an empty outbox.
func NewOutbox() *Outbox {
	return &Outbox{}
}

// Push appends an event. Safe for concurrent use.
func (o *Outbox) Push(e Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = append(o.pending, e)
}

// Drain returns all pending events in push order and clears the outbox.
// Returns nil when nothing is pending.
func (o *Outbox) Drain() []Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.pending
	o.pending = nil
	return out
}

// Pending returns the number of queued events.
func (o *Outbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}
