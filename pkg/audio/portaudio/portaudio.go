// Package portaudio implements audio.Source over the default system
// microphone using the PortAudio bindings. The PortAudio C library must be
// installed on the host.
//
// Capture runs a blocking-read loop in its own goroutine and delivers
// frames over a channel; sends block when the consumer falls behind, so
// backpressure reaches the device buffer rather than dropping audio.
package portaudio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	palib "github.com/gordonklaus/portaudio"

	"github.com/mverran/scrivano/pkg/audio"
)

// Source captures PCM frames from the default input device.
type Source struct {
	sampleRate int
	channels   int
	frameLen   time.Duration

	mu     sync.Mutex
	stream *palib.Stream
	frames chan audio.Frame
	stop   chan struct{}
	wg     sync.WaitGroup
	opened bool
	closed bool
}

// Option is a functional option for configuring a Source.
type Option func(*Source)

// WithFrameDuration sets the duration of each captured frame.
// Default: 100 ms.
func WithFrameDuration(d time.Duration) Option {
	return func(s *Source) { s.frameLen = d }
}

// New creates a Source capturing s16le PCM at the given format from the
// default input device.
func New(sampleRate, channels int, opts ...Option) (*Source, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("portaudio: invalid format %d Hz / %d ch", sampleRate, channels)
	}
	s := &Source{
		sampleRate: sampleRate,
		channels:   channels,
		frameLen:   100 * time.Millisecond,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Open implements audio.Source. It initialises PortAudio, opens the default
// input stream, and starts the capture loop.
func (s *Source) Open(ctx context.Context) (<-chan audio.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opened {
		return nil, errors.New("portaudio: source already open")
	}

	if err := palib.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: initialise: %w", err)
	}

	samplesPerFrame := int(s.frameLen.Milliseconds()) * s.sampleRate / 1000 * s.channels
	buf := make([]int16, samplesPerFrame)

	stream, err := palib.OpenDefaultStream(s.channels, 0, float64(s.sampleRate), samplesPerFrame/s.channels, buf)
	if err != nil {
		palib.Terminate()
		return nil, fmt.Errorf("portaudio: open default input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		palib.Terminate()
		return nil, fmt.Errorf("portaudio: start stream: %w", err)
	}

	s.stream = stream
	s.frames = make(chan audio.Frame)
	s.stop = make(chan struct{})
	s.opened = true

	s.wg.Add(1)
	go s.captureLoop(ctx, buf)

	return s.frames, nil
}

// captureLoop reads device buffers and forwards them as frames until the
// source is closed or ctx is cancelled.
func (s *Source) captureLoop(ctx context.Context, buf []int16) {
	defer s.wg.Done()
	defer close(s.frames)

	var elapsed time.Duration
	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := s.stream.Read(); err != nil {
			// Overflow means the consumer fell behind and the device
			// dropped input internally; anything else ends capture.
			if errors.Is(err, palib.InputOverflowed) {
				slog.Warn("portaudio input overflow", "elapsed", elapsed)
				continue
			}
			slog.Error("portaudio read failed", "error", err)
			return
		}

		data := make([]byte, len(buf)*2)
		for i, sample := range buf {
			binary.LittleEndian.PutUint16(data[i*2:], uint16(sample))
		}

		frame := audio.Frame{
			Data:       data,
			SampleRate: s.sampleRate,
			Channels:   s.channels,
			Timestamp:  elapsed,
		}
		select {
		case s.frames <- frame:
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
		elapsed += s.frameLen
	}
}

// Close implements audio.Source. It stops the capture loop, closes the
// device stream, and terminates PortAudio. Safe to call more than once.
func (s *Source) Close() error {
	s.mu.Lock()
	if s.closed || !s.opened {
		s.closed = true
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.stop)
	s.wg.Wait()

	var errs []error
	if err := s.stream.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("portaudio: stop stream: %w", err))
	}
	if err := s.stream.Close(); err != nil {
		errs = append(errs, fmt.Errorf("portaudio: close stream: %w", err))
	}
	if err := palib.Terminate(); err != nil {
		errs = append(errs, fmt.Errorf("portaudio: terminate: %w", err))
	}
	return errors.Join(errs...)
}

var _ audio.Source = (*Source)(nil)
