package transcript

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrNoSuchSpeaker is returned when a speaker ID is not present in the
// registry.
var ErrNoSuchSpeaker = errors.New("transcript: no such speaker")

// Speaker is a participant definition. ID is stable and never reused; Name
// and Color may change at any time. Segment ownership, active-speaker
// state, and line coloring all reference the ID — display names are
// resolved only at render and export time, so renames never race with
// color bindings.
type Speaker struct {
	ID    string
	Name  string
	Color string
}

// defaultPalette provides initial colors for speakers added without an
// explicit color, cycling when exhausted.
var defaultPalette = []string{
	"#1f77b4", // blue
	"#ff7f0e", // orange
	"#2ca02c", // green
	"#d62728", // red
	"#9467bd", // purple
	"#8c564b", // brown
	"#e377c2", // pink
	"#7f7f7f", // gray
}

// Registry holds speaker definitions and the currently active speaker ID.
// At most one speaker is active at a time; a registry with zero speakers
// has no active speaker.
//
// All methods are safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	speakers []Speaker
	byID     map[string]int
	activeID string
	nextHue  int
}

// NewRegistry creates an empty speaker registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]int)}
}

// Add creates a new speaker. If color is empty the next palette color is
// assigned. The name must be non-empty.
func (r *Registry) Add(name, color string) (Speaker, error) {
	if name == "" {
		return Speaker{}, errors.New("transcript: speaker name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if color == "" {
		color = defaultPalette[r.nextHue%len(defaultPalette)]
		r.nextHue++
	}
	sp := Speaker{ID: uuid.NewString(), Name: name, Color: color}
	r.byID[sp.ID] = len(r.speakers)
	r.speakers = append(r.speakers, sp)
	return sp, nil
}

// Rename changes a speaker's display name.
func (r *Registry) Rename(id, name string) error {
	if name == "" {
		return errors.New("transcript: speaker name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchSpeaker, id)
	}
	r.speakers[i].Name = name
	return nil
}

// SetColor changes a speaker's color.
func (r *Registry) SetColor(id, color string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchSpeaker, id)
	}
	r.speakers[i].Color = color
	return nil
}

// Activate marks the speaker with the given ID as active.
func (r *Registry) Activate(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchSpeaker, id)
	}
	r.activeID = id
	return nil
}

// ActiveID returns the active speaker's ID, or false when no speaker is
// active.
func (r *Registry) ActiveID() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activeID, r.activeID != ""
}

// Get returns the speaker with the given ID.
func (r *Registry) Get(id string) (Speaker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byID[id]
	if !ok {
		return Speaker{}, false
	}
	return r.speakers[i], true
}

// List returns all speakers in insertion order.
func (r *Registry) List() []Speaker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Speaker, len(r.speakers))
	copy(out, r.speakers)
	return out
}

// Len returns the number of registered speakers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.speakers)
}
