package audio

import "time"

// Frame represents a single block of captured audio flowing through the
// pipeline. Frames are the atomic unit of audio transport — produced by a
// Source and consumed by the recognition engine.
type Frame struct {
	// Data is raw 16-bit signed little-endian PCM.
	Data []byte

	// SampleRate in Hz (e.g., 16000 for STT input).
	SampleRate int

	// Channels: 1 for mono (STT input).
	Channels int

	// Timestamp marks when this frame was captured, relative to stream start.
	Timestamp time.Duration
}
