// Package mock provides a scripted test double for the audio.Source
// interface. Tests push frames with Emit and end the stream with Close.
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/mverran/scrivano/pkg/audio"
)

// Source is a scripted audio source. The zero value is not usable; create
// one with New.
type Source struct {
	mu     sync.Mutex
	frames chan audio.Frame
	opened bool
	closed bool

	// OpenErr, if non-nil, is returned by Open instead of the channel.
	OpenErr error
}

// New creates a Source with a buffered frame channel.
func New() *Source {
	return &Source{frames: make(chan audio.Frame, 256)}
}

// Open implements audio.Source.
func (s *Source) Open(ctx context.Context) (<-chan audio.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.OpenErr != nil {
		return nil, s.OpenErr
	}
	if s.opened {
		return nil, errors.New("mock: source already open")
	}
	s.opened = true
	go func() {
		<-ctx.Done()
		s.Close()
	}()
	return s.frames, nil
}

// Emit delivers one frame to the consumer. Returns false if the source is
// already closed.
func (s *Source) Emit(f audio.Frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.frames <- f
	return true
}

// Close implements audio.Source. Safe to call more than once.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.frames)
	}
	return nil
}

var _ audio.Source = (*Source)(nil)
