package transcript

import (
	"fmt"
	"sync"
)

// Store is the ordered, append-only list of closed segments. Segments are
// never reordered or deleted. The single open (in-progress) segment lives
// in the finalization controller, not here.
//
// All methods are safe for concurrent use: the recognition path appends
// while the UI path reads.
type Store struct {
	mu       sync.RWMutex
	segments []Segment
	byID     map[string]int
}

// NewStore creates an empty segment store.
func NewStore() *Store {
	return &Store{byID: make(map[string]int)}
}

// Append adds a closed segment, assigning its Order. It returns the stored
// segment and an error if the segment would violate store invariants
// (unordered times or a duplicate ID).
func (s *Store) Append(seg Segment) (Segment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seg.End.Before(seg.Start) {
		return Segment{}, fmt.Errorf("transcript: segment end %v before start %v", seg.End, seg.Start)
	}
	if _, dup := s.byID[seg.ID]; dup {
		return Segment{}, fmt.Errorf("transcript: duplicate segment id %q", seg.ID)
	}
	if seg.ID == "" {
		seg.ID = NewSegmentID()
	}
	seg.Order = len(s.segments)
	s.segments = append(s.segments, seg)
	s.byID[seg.ID] = seg.Order
	return seg, nil
}

// Get returns the segment with the given ID.
func (s *Store) Get(id string) (Segment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return Segment{}, false
	}
	return s.segments[i], true
}

// All returns a copy of all closed segments in append order.
func (s *Store) All() []Segment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Segment, len(s.segments))
	copy(out, s.segments)
	return out
}

// Len returns the number of closed segments.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.segments)
}
