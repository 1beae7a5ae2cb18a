// Package audio defines the interfaces and types for audio capture within
// Scrivano.
//
// The central abstraction is [Source] — something that produces a stream of
// fixed-size PCM [Frame] values, whether from a microphone device
// (audio/portaudio), a raw PCM file (audio/pcmfile), or a scripted test
// double (audio/mock). The interface is intentionally narrow to keep the
// session engine decoupled from capture mechanics.
package audio

import "context"

// Source produces a sequence of PCM frames from some audio input.
//
// Implementations must be safe for concurrent use of Open and Close.
type Source interface {
	// Open starts capture and returns a read-only channel delivering
	// frames as they arrive. The channel is closed when the input is
	// exhausted or Close is called. Open may be called at most once per
	// Source; a second call returns an error.
	//
	// The supplied ctx governs capture: when it is cancelled, capture
	// stops and the channel is closed.
	Open(ctx context.Context) (<-chan Frame, error)

	// Close stops capture, releases the underlying device or file, and
	// closes the frame channel. Safe to call more than once; subsequent
	// calls are no-ops and return nil.
	Close() error
}
