// Package session implements the transcription session engine: the
// concurrent pipeline that pumps captured audio frames through a
// recognition provider, maps the recognizer's relative offsets onto the
// wall clock, and drives the segment finalization state machine.
//
// Two producers run concurrently — the audio capture path (real-time) and
// the recognition path (CPU-bound, possibly slower than real time). They
// communicate through a bounded queue that blocks capture briefly under
// backlog rather than dropping frames. Consumers never touch engine state
// directly: every observable change is an immutable Event pushed onto the
// Outbox, which a single UI-side consumer drains on its own schedule.
package session

import (
	"github.com/mverran/scrivano/internal/transcript"
)

// State describes the engine lifecycle.
type State int

const (
	// StateIdle — no session has been started yet.
	StateIdle State = iota

	// StateLoading — Start was accepted; the model is loading and the
	// capture device is being opened in the background.
	StateLoading

	// StateReady — audio is flowing and recognition events are being
	// produced.
	StateReady

	// StateFailed — the start attempt failed; see the StatusEvent's Err.
	// A failed engine may be started again.
	StateFailed

	// StateStopped — the session ended; no further events will be
	// observed.
	StateStopped
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateLoading:
		return "LOADING"
	case StateReady:
		return "READY"
	case StateFailed:
		return "FAILED"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Event is an immutable value describing one observable change in the
// session. Background goroutines only ever push events; they never touch
// consumer state.
type Event interface {
	isEvent()
}

// PartialEvent carries tentative text for the utterance still being
// spoken. Each PartialEvent supersedes the previous one; it is for live
// display only.
type PartialEvent struct {
	Text string
}

// SegmentEvent announces that a segment closed and was appended to the
// store.
type SegmentEvent struct {
	Segment transcript.Segment
}

// StatusEvent announces an engine state transition. Err is non-nil only
// for StateFailed, and then carries a *Failure with the failure kind.
type StatusEvent struct {
	State State
	Err   error
}

func (PartialEvent) isEvent() {}
func (SegmentEvent) isEvent() {}
func (StatusEvent) isEvent()  {}
