package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/mverran/scrivano/internal/observe"
	"github.com/mverran/scrivano/internal/transcript"
)

// CorrectFunc rewrites finalized recognizer text before it is committed to
// a segment. Used to hook vocabulary correction; nil means no rewriting.
type CorrectFunc func(string) string

// Controller owns the single-open-segment state machine of a run. It turns
// recognizer results and speaker activations into closed transcript
// segments, pushing each one into the outbox as it closes.
//
// Invariants it maintains:
//
//   - At most one segment is open at any time.
//   - A segment closed by a finalized result ends exactly where the next
//     segment of the same speaker begins, so an uninterrupted finalize
//     chain has no wall-clock gaps.
//   - Results that arrive while no speaker is active are buffered and
//     attributed to the first speaker activated afterwards.
//
// All methods are safe for concurrent use: recognizer results arrive from
// the engine's event pump while speaker activations arrive from the UI
// goroutine.
type Controller struct {
	mapper   *Mapper
	store    *transcript.Store
	speakers *transcript.Registry
	outbox   *Outbox
	correct  CorrectFunc
	metrics  *observe.Metrics

	mu      sync.Mutex
	running bool
	open    *openSegment
	pending []string
}

// openSegment tracks the one segment currently being spoken into.
// interim holds the best-available text (the latest partial result), used
// when the segment has to close before a finalized result arrives.
type openSegment struct {
	speakerID string
	start     time.Time
	interim   string
}

// NewController wires a controller to its run-scoped collaborators.
// correct and metrics may be nil.
func NewController(mapper *Mapper, store *transcript.Store, speakers *transcript.Registry, outbox *Outbox, correct CorrectFunc, metrics *observe.Metrics) *Controller {
	return &Controller{
		mapper:   mapper,
		store:    store,
		speakers: speakers,
		outbox:   outbox,
		correct:  correct,
		metrics:  metrics,
	}
}

// StartRun marks the run live. When a speaker is already active, the first
// segment opens immediately at the anchor instant; otherwise results are
// buffered until the first activation.
func (c *Controller) StartRun(anchor time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
	if id, ok := c.speakers.ActiveID(); ok {
		c.open = &openSegment{speakerID: id, start: anchor}
	}
}

// HandlePartial records an interim result. The text replaces (not appends
// to) the open segment's interim text, mirroring how streaming recognizers
// re-emit the whole utterance-so-far. The partial is always surfaced to the
// outbox for live display, active speaker or not.
func (c *Controller) HandlePartial(text string) {
	c.mu.Lock()
	if c.running && c.open != nil {
		c.open.interim = text
	}
	c.mu.Unlock()
	c.outbox.Push(PartialEvent{Text: text})
}

// HandleFinal commits a finalized result ending at relEnd on the
// recognizer's relative time axis. With an open segment, the segment closes
// at the mapped wall-clock instant and a new segment for the same speaker
// opens at exactly that instant. With no open segment the text is buffered
// for the next activation.
func (c *Controller) HandleFinal(text string, relEnd time.Duration) {
	if c.correct != nil {
		text = c.correct(text)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	if c.open == nil {
		c.pending = append(c.pending, text)
		return
	}

	end := c.closeLocked(text, c.mapper.ToAbsolute(relEnd), "finalize")
	c.open = &openSegment{speakerID: c.open.speakerID, start: end}
}

// SetActiveSpeaker reacts to a speaker activation at wall-clock instant
// now. Outside a run it is a no-op (the registry itself already tracks the
// new active speaker). During a run:
//
//   - Re-activating the current speaker changes nothing.
//   - Switching away from an open segment closes it at now with its
//     interim text, or discards it when no text accrued, and opens a new
//     segment for the new speaker at now.
//   - The first activation of the run flushes buffered results into a
//     synthesized segment attributed to the new speaker, then opens their
//     first live segment.
func (c *Controller) SetActiveSpeaker(id string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}

	if c.open != nil {
		if c.open.speakerID == id {
			return
		}
		start := now
		if c.open.interim != "" {
			text := c.open.interim
			if c.correct != nil {
				text = c.correct(text)
			}
			start = c.closeLocked(text, now, "switch")
		}
		c.open = &openSegment{speakerID: id, start: start}
		return
	}

	if len(c.pending) > 0 {
		c.open = &openSegment{speakerID: id, start: now}
		c.closeLocked(strings.Join(c.pending, " "), now, "activate")
		c.pending = nil
	}
	c.open = &openSegment{speakerID: id, start: now}
}

// CloseRun ends the run. An open segment with accrued text closes at now;
// an empty one is discarded. Buffered results with no speaker to attribute
// them to are dropped.
func (c *Controller) CloseRun(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	if c.open != nil && c.open.interim != "" {
		text := c.open.interim
		if c.correct != nil {
			text = c.correct(text)
		}
		c.closeLocked(text, now, "stop")
	}
	c.open = nil
	c.pending = nil
	c.running = false
}

// Open returns a snapshot of the segment currently being spoken into, if
// any. The snapshot's End is meaningless while the segment is open.
func (c *Controller) Open() (transcript.Segment, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open == nil {
		return transcript.Segment{}, false
	}
	return transcript.Segment{
		SpeakerID: c.open.speakerID,
		Start:     c.open.start,
		Text:      c.open.interim,
	}, true
}

// closeLocked appends a closed segment built from the current open segment
// and pushes the stored copy into the outbox. It returns the instant the
// segment actually closed at, so callers reopen exactly where it ended.
// Caller holds c.mu.
func (c *Controller) closeLocked(text string, end time.Time, trigger string) time.Time {
	// Switch and stop instants come from time.Now() while finalize
	// instants come from the anchored axis; a fast switch right after a
	// finalize could land microseconds before the open segment's start.
	if end.Before(c.open.start) {
		end = c.open.start
	}
	seg := transcript.Segment{
		Start:     c.open.start,
		End:       end,
		SpeakerID: c.open.speakerID,
		Text:      text,
	}
	stored, err := c.store.Append(seg)
	if err != nil {
		// Append only fails on a malformed segment, which would be a bug
		// in this state machine. Surface it instead of dropping silently.
		c.outbox.Push(StatusEvent{State: StateFailed, Err: err})
		return end
	}
	if c.metrics != nil {
		c.metrics.RecordSegmentClosed(context.Background(), trigger)
	}
	c.outbox.Push(SegmentEvent{Segment: stored})
	return end
}
