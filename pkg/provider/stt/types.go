package stt

import "time"

// Transcript represents a speech-to-text result emitted by a recognition
// session. Both partial (interim) and final transcripts use this type.
type Transcript struct {
	// Text is the transcribed speech content.
	Text string

	// IsFinal indicates whether this is a final (authoritative) or partial
	// (interim) transcript. Partials are superseded by the next Partial or
	// by a Final; only finals carry trustworthy timing information.
	IsFinal bool

	// Timestamp marks when the utterance started, relative to the start of
	// the recognition session's own audio stream.
	Timestamp time.Duration

	// Duration is the length of the utterance. Timestamp+Duration is the
	// relative offset at which the recognizer finalized the utterance.
	Duration time.Duration
}

// End returns the relative offset at which the utterance ended.
func (t Transcript) End() time.Duration {
	return t.Timestamp + t.Duration
}
