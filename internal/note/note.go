// Package note manages annotations pinned to transcript segments. A note
// captures the segment's time range and speaker presentation at creation
// time; later speaker renames or recolors never rewrite existing notes.
package note

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Note is one annotation. All fields except Text are frozen at creation.
type Note struct {
	// ID uniquely identifies the note.
	ID string

	// SegmentID links the note to the segment it annotates.
	SegmentID string

	// Start and End are the annotated segment's wall-clock bounds as they
	// were when the note was created.
	Start time.Time
	End   time.Time

	// SpeakerName and SpeakerColor are the speaker's presentation
	// snapshot at creation time.
	SpeakerName  string
	SpeakerColor string

	// Text is the annotation body; the only mutable field.
	Text string

	// CreatedAt records when the note was taken.
	CreatedAt time.Time
}

// Store holds notes in creation order. Safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	notes []Note
	byID  map[string]int
}

// NewStore creates an empty note store.
func NewStore() *Store {
	return &Store{byID: make(map[string]int)}
}

// Create adds a note annotating the given segment with the given speaker
// snapshot and returns the stored copy.
func (s *Store) Create(segmentID string, start, end time.Time, speakerName, speakerColor, text string) Note {
	n := Note{
		ID:           uuid.NewString(),
		SegmentID:    segmentID,
		Start:        start,
		End:          end,
		SpeakerName:  speakerName,
		SpeakerColor: speakerColor,
		Text:         text,
		CreatedAt:    time.Now(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[n.ID] = len(s.notes)
	s.notes = append(s.notes, n)
	return n
}

// Edit replaces the note's text. Snapshot fields are untouched.
func (s *Store) Edit(id, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("note: no note with id %q", id)
	}
	s.notes[idx].Text = text
	return nil
}

// Get returns the note with the given id.
func (s *Store) Get(id string) (Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.byID[id]
	if !ok {
		return Note{}, false
	}
	return s.notes[idx], true
}

// List returns all notes in creation order.
func (s *Store) List() []Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Note, len(s.notes))
	copy(out, s.notes)
	return out
}

// Len returns the number of notes.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notes)
}
