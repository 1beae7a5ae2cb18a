package session

import (
	"sync"
	"time"
)

// Mapper converts the recognizer's relative offsets into absolute
// wall-clock instants. The anchor is captured exactly once per run, at the
// first audio frame; after that the mapper is a pure function of the
// anchor. No clock-drift correction is attempted — relative offsets are
// assumed non-decreasing for a given run.
type Mapper struct {
	mu     sync.RWMutex
	anchor time.Time
	set    bool
}

// NewMapper creates an unanchored Mapper. Each run gets a fresh one.
func NewMapper() *Mapper {
	return &Mapper{}
}

// Anchor records the wall-clock instant of the first audio frame. Only the
// first call has any effect; later calls are ignored so a single run can
// never move its time axis.
func (m *Mapper) Anchor(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		m.anchor = now
		m.set = true
	}
}

// Anchored reports whether the anchor has been captured.
func (m *Mapper) Anchored() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.set
}

// StreamStart returns the anchored wall-clock instant. It is the zero time
// until Anchor is called.
func (m *Mapper) StreamStart() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.anchor
}

// ToAbsolute maps a relative offset onto the wall clock:
// anchor + offset. Calling ToAbsolute before Anchor yields a zero-based
// time and indicates a programming error upstream.
func (m *Mapper) ToAbsolute(offset time.Duration) time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.anchor.Add(offset)
}
