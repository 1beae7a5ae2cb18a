// Package transcript holds the session's core data model: speaker
// definitions and the ordered, append-only store of finalized transcript
// segments.
package transcript

import (
	"time"

	"github.com/google/uuid"
)

// Segment is one finalized unit of transcript text with a fixed speaker and
// wall-clock time range. Once appended to the Store, Start, End, and
// SpeakerID never change; the recognized Text stays as captured (edits live
// in the text model, not here).
type Segment struct {
	// ID is a stable unique identifier, never reused.
	ID string

	// Order is the monotonically increasing append position, one-to-one
	// with the segment's index in the store.
	Order int

	// Start and End are wall-clock instants with Start <= End.
	Start time.Time
	End   time.Time

	// SpeakerID references the owning speaker in the Registry.
	SpeakerID string

	// Text is the recognized text at close time.
	Text string
}

// NewSegmentID returns a fresh segment identifier.
func NewSegmentID() string { return uuid.NewString() }
