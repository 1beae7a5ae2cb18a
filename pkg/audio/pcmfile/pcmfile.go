// Package pcmfile implements audio.Source over a raw PCM file (16-bit
// signed little-endian). It is used for offline transcription of recorded
// audio and as a deterministic source in integration tests.
package pcmfile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mverran/scrivano/pkg/audio"
)

// Source reads fixed-size frames from a raw PCM file.
type Source struct {
	path       string
	sampleRate int
	channels   int
	frameBytes int
	realtime   bool

	mu     sync.Mutex
	f      *os.File
	frames chan audio.Frame
	opened bool
	closed bool
	g      errgroup.Group
}

// Option is a functional option for configuring a Source.
type Option func(*Source)

// WithFrameDuration sets the duration of each emitted frame. Default: 100 ms.
func WithFrameDuration(d time.Duration) Option {
	return func(s *Source) {
		s.frameBytes = int(d.Milliseconds()) * s.sampleRate * s.channels * 2 / 1000
	}
}

// WithRealtime makes the source pace frame delivery at playback speed
// instead of reading as fast as possible. Useful for live-display demos.
func WithRealtime() Option {
	return func(s *Source) { s.realtime = true }
}

// New creates a Source for the raw s16le PCM file at path.
func New(path string, sampleRate, channels int, opts ...Option) (*Source, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("pcmfile: invalid format %d Hz / %d ch", sampleRate, channels)
	}
	s := &Source{
		path:       path,
		sampleRate: sampleRate,
		channels:   channels,
	}
	// Default frame length: 100 ms.
	s.frameBytes = sampleRate * channels * 2 / 10
	for _, o := range opts {
		o(s)
	}
	if s.frameBytes <= 0 {
		return nil, errors.New("pcmfile: frame duration too small")
	}
	return s, nil
}

// Open implements audio.Source. It opens the file and starts a reader
// goroutine that emits one frame per frameBytes chunk until EOF.
func (s *Source) Open(ctx context.Context) (<-chan audio.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opened {
		return nil, errors.New("pcmfile: source already open")
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("pcmfile: open %q: %w", s.path, err)
	}
	s.f = f
	s.frames = make(chan audio.Frame)
	s.opened = true

	frameDur := time.Duration(s.frameBytes) * time.Second / time.Duration(s.sampleRate*s.channels*2)

	s.g.Go(func() error {
		defer close(s.frames)
		var elapsed time.Duration
		for {
			buf := make([]byte, s.frameBytes)
			n, err := io.ReadFull(f, buf)
			if n > 0 {
				frame := audio.Frame{
					Data:       buf[:n],
					SampleRate: s.sampleRate,
					Channels:   s.channels,
					Timestamp:  elapsed,
				}
				select {
				case s.frames <- frame:
				case <-ctx.Done():
					return ctx.Err()
				}
				elapsed += frameDur
				if s.realtime {
					select {
					case <-time.After(frameDur):
					case <-ctx.Done():
						return ctx.Err()
					}
				}
			}
			if err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
					return nil
				}
				return fmt.Errorf("pcmfile: read: %w", err)
			}
		}
	})

	return s.frames, nil
}

// Close implements audio.Source. Safe to call more than once.
func (s *Source) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	f := s.f
	s.mu.Unlock()

	var err error
	if f != nil {
		// Closing the file forces the reader goroutine to finish.
		err = f.Close()
		s.g.Wait()
	}
	return err
}

var _ audio.Source = (*Source)(nil)
