// Package stt defines the Provider interface for speech-to-text backends.
//
// A provider wraps an offline recognition model (e.g., whisper.cpp) and
// exposes a uniform streaming interface. The central abstraction is
// SessionHandle: once opened, a session accepts raw PCM audio frames and
// emits two streams of Transcript values — low-latency partials for live
// display and authoritative finals for the transcript log.
//
// Implementations must be safe for concurrent use. Audio input and
// transcript output channels are goroutine-safe by construction.
package stt

import "context"

// StreamConfig describes the audio format and recognition hints for a new
// recognition session. All fields must be compatible with what the
// underlying provider supports.
type StreamConfig struct {
	// SampleRate is the audio sample rate in Hz. 16000 is the usual value
	// for offline STT models.
	SampleRate int

	// Channels is the number of audio channels. 1 = mono (required by most
	// models). Implementors may downmix multi-channel input internally.
	Channels int

	// Language is the BCP-47 language tag for recognition (e.g., "en",
	// "de"). An empty string uses the provider's default.
	Language string
}

// SessionHandle represents an open recognition session. It is an interface
// so that test code can provide mock implementations without loading a
// real model.
//
// Callers must call Close when the session is no longer needed. Failing to
// do so may leak goroutines inside the provider implementation. All methods
// must be safe for concurrent use.
type SessionHandle interface {
	// SendAudio delivers a chunk of raw PCM audio bytes to the provider for
	// transcription. The chunk must match the SampleRate, Channels, and
	// bit-depth agreed in StreamConfig. Calling SendAudio after Close
	// returns an error.
	SendAudio(chunk []byte) error

	// Partials returns a read-only channel that emits interim Transcript
	// values. These are suitable for driving a live display but must not be
	// written to the transcript log. The channel is closed when the session
	// ends.
	Partials() <-chan Transcript

	// Finals returns a read-only channel that emits authoritative
	// Transcript values once the provider has committed to a recognition
	// result, with relative utterance timing attached. The channel is
	// closed when the session ends.
	Finals() <-chan Transcript

	// Close terminates the session, flushes any buffered speech as a last
	// final, and releases all associated resources. After Close returns,
	// the Partials and Finals channels are closed. Calling Close more than
	// once is safe and returns nil.
	Close() error
}

// Provider is the abstraction over any recognition backend.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// StartStream opens a new streaming recognition session with the given
	// audio format. The returned SessionHandle is ready to accept audio
	// immediately. Each session begins a fresh relative-time axis.
	//
	// Returns an error if the session cannot be established (e.g.,
	// unsupported configuration or ctx already cancelled). The caller owns
	// the SessionHandle and must call Close when done.
	StartStream(ctx context.Context, cfg StreamConfig) (SessionHandle, error)
}

// Factory constructs a Provider. Model loading happens inside the factory
// call, which may take non-trivial time; the session engine invokes it from
// a background goroutine so callers are never blocked on disk or model
// initialisation.
type Factory func(ctx context.Context) (Provider, error)
