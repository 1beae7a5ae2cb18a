// Package textmodel maintains the editable transcript document: one line
// per closed segment, each carrying an immutable metadata prefix
// ("[HH:MM:SS.mmm-HH:MM:SS.mmm] Name: ") followed by a freely editable
// body.
//
// Edits address the rendered document by byte offset. The model accepts an
// edit only when it stays strictly inside one line's body; anything that
// would touch a prefix, cross a line boundary, or insert a newline is
// rejected as a whole. Prefixes change only through system operations
// (speaker rename), never through user edits.
package textmodel

import (
	"strings"
	"sync"
	"time"

	"github.com/mverran/scrivano/internal/transcript"
)

// Line is a read-only snapshot of one document line.
type Line struct {
	// SegmentID links the line back to its transcript segment.
	SegmentID string

	// Start and End are the segment's wall-clock bounds shown in the
	// prefix.
	Start time.Time
	End   time.Time

	// SpeakerID identifies the attributed speaker.
	SpeakerID string

	// SpeakerName is the display name currently shown in the prefix.
	SpeakerName string

	// Body is the editable text after the prefix.
	Body string
}

// Prefix renders the protected metadata prefix of the line, including the
// trailing space that separates it from the body.
func (l Line) Prefix() string {
	return "[" + transcript.FormatRange(l.Start, l.End) + "] " + l.SpeakerName + ": "
}

// Text renders the full line.
func (l Line) Text() string {
	return l.Prefix() + l.Body
}

// Model is the document. Safe for concurrent use, though in practice all
// mutation happens on the UI goroutine that drains the session outbox.
type Model struct {
	mu    sync.RWMutex
	lines []Line
}

// New creates an empty document.
func New() *Model {
	return &Model{}
}

// AppendLine adds a line for a freshly closed segment. speakerName is
// resolved by the caller at append time; later renames go through
// RenameSpeaker.
func (m *Model) AppendLine(seg transcript.Segment, speakerName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = append(m.lines, Line{
		SegmentID:   seg.ID,
		Start:       seg.Start,
		End:         seg.End,
		SpeakerID:   seg.SpeakerID,
		SpeakerName: speakerName,
		Body:        seg.Text,
	})
}

// Len returns the number of lines.
func (m *Model) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.lines)
}

// Lines returns a snapshot of all lines in document order.
func (m *Model) Lines() []Line {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Line, len(m.lines))
	copy(out, m.lines)
	return out
}

// Render returns the whole document: lines joined with single newlines, no
// trailing newline.
func (m *Model) Render() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var b strings.Builder
	for i, l := range m.lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(l.Text())
	}
	return b.String()
}

// ApplyEdit applies a byte-offset edit to the rendered document: delete
// delCount bytes at pos, then insert the given text there. Returns false —
// and changes nothing — when the edit would touch a protected prefix,
// cross a line boundary, delete a line separator, or insert a newline.
func (m *Model) ApplyEdit(pos, delCount int, insert string) bool {
	if pos < 0 || delCount < 0 || strings.ContainsRune(insert, '\n') {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	idx, bodyStart, bodyEnd, ok := m.locateBodyLocked(pos)
	if !ok {
		return false
	}
	if pos+delCount > bodyEnd {
		return false
	}

	body := m.lines[idx].Body
	rel := pos - bodyStart
	m.lines[idx].Body = body[:rel] + insert + body[rel+delCount:]
	return true
}

// LocateLine resolves a document byte offset to the line containing it.
// Offsets inside the prefix still resolve to their line; offsets on a line
// separator or past the end do not.
func (m *Model) LocateLine(pos int) (Line, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	off := 0
	for _, l := range m.lines {
		text := l.Text()
		// A position at the very end of a line (the separator slot)
		// belongs to the line it terminates.
		if pos >= off && pos <= off+len(text) {
			return l, true
		}
		off += len(text) + 1
	}
	return Line{}, false
}

// BodyText returns the current body of the line for the given segment.
func (m *Model) BodyText(segmentID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, l := range m.lines {
		if l.SegmentID == segmentID {
			return l.Body, true
		}
	}
	return "", false
}

// RenameSpeaker rewrites the displayed name in every prefix attributed to
// the speaker. This is the one sanctioned way a prefix changes.
func (m *Model) RenameSpeaker(speakerID, newName string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for i := range m.lines {
		if m.lines[i].SpeakerID == speakerID {
			m.lines[i].SpeakerName = newName
			n++
		}
	}
	return n
}

// locateBodyLocked finds the line whose editable body region contains pos,
// returning the line index and the body's [start, end) document offsets.
// A position exactly at bodyEnd is valid for insertion. Caller holds m.mu.
func (m *Model) locateBodyLocked(pos int) (idx, bodyStart, bodyEnd int, ok bool) {
	off := 0
	for i, l := range m.lines {
		prefixLen := len(l.Prefix())
		lineLen := prefixLen + len(l.Body)
		bodyStart = off + prefixLen
		bodyEnd = off + lineLen
		if pos >= bodyStart && pos <= bodyEnd {
			return i, bodyStart, bodyEnd, true
		}
		if pos < bodyStart {
			// Inside this line's prefix, or on the separator before it.
			return 0, 0, 0, false
		}
		off += lineLen + 1
	}
	return 0, 0, 0, false
}
