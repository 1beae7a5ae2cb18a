// Package export builds and persists the structured session document:
// speakers, the edited transcript, and notes, with a metadata header. The
// document is written to disk atomically and can optionally be archived to
// PostgreSQL.
package export

import (
	"time"

	"github.com/mverran/scrivano/internal/note"
	"github.com/mverran/scrivano/internal/textmodel"
	"github.com/mverran/scrivano/internal/transcript"
)

// Document is the exported session in its serialized shape.
type Document struct {
	Metadata   Metadata          `json:"metadata"`
	Speakers   []SpeakerEntry    `json:"speakers"`
	Transcript []TranscriptEntry `json:"transcript"`
	Notes      []NoteEntry       `json:"notes"`
}

// Metadata describes the export itself.
type Metadata struct {
	// ExportedAt is the export instant in RFC 3339 form with millisecond
	// precision.
	ExportedAt string `json:"exported_at"`
}

// SpeakerEntry is one speaker's presentation as configured at export time.
type SpeakerEntry struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// TranscriptEntry is one transcript line. Text is the edited body, not the
// raw recognizer output.
type TranscriptEntry struct {
	// Timestamp is the segment's wall-clock range,
	// "HH:MM:SS.mmm-HH:MM:SS.mmm".
	Timestamp string `json:"timestamp"`
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
}

// NoteEntry is one annotation with its frozen speaker snapshot.
type NoteEntry struct {
	Timestamp string `json:"timestamp"`
	Speaker   string `json:"speaker"`
	Color     string `json:"color"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

// timeFormat is RFC 3339 with millisecond precision.
const timeFormat = "2006-01-02T15:04:05.000Z07:00"

// Build assembles a Document from the current session state. Speaker names
// in transcript entries reflect the registry at export time; note entries
// keep their creation-time snapshots.
func Build(speakers []transcript.Speaker, lines []textmodel.Line, notes []note.Note, exportedAt time.Time) Document {
	doc := Document{
		Metadata:   Metadata{ExportedAt: exportedAt.Format(timeFormat)},
		Speakers:   make([]SpeakerEntry, 0, len(speakers)),
		Transcript: make([]TranscriptEntry, 0, len(lines)),
		Notes:      make([]NoteEntry, 0, len(notes)),
	}
	for _, sp := range speakers {
		doc.Speakers = append(doc.Speakers, SpeakerEntry{Name: sp.Name, Color: sp.Color})
	}
	for _, l := range lines {
		doc.Transcript = append(doc.Transcript, TranscriptEntry{
			Timestamp: transcript.FormatRange(l.Start, l.End),
			Speaker:   l.SpeakerName,
			Text:      l.Body,
		})
	}
	for _, n := range notes {
		doc.Notes = append(doc.Notes, NoteEntry{
			Timestamp: transcript.FormatRange(n.Start, n.End),
			Speaker:   n.SpeakerName,
			Color:     n.SpeakerColor,
			Text:      n.Text,
			CreatedAt: n.CreatedAt.Format(timeFormat),
		})
	}
	return doc
}
