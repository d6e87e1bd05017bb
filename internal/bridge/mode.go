package bridge

import (
	"sync"

	"github.com/markermatic/markermatic/internal/bus"
	"github.com/markermatic/markermatic/internal/cue"
)

// ModeStore is the process-wide playback mode. It follows
// PlaybackModeChanged for the lifetime of the bus.
type ModeStore struct {
	mu     sync.RWMutex
	mode   cue.PlaybackMode
	seeded bool
}

// NewModeStore starts in PlaybackTrack and subscribes to mode changes.
func NewModeStore(b *bus.Bus) *ModeStore {
	s := &ModeStore{mode: cue.ModePlaybackTrack}
	bus.Subscribe(b, func(evt bus.PlaybackModeChanged) { s.set(evt.Mode) })
	return s
}

// Get returns the current mode.
func (s *ModeStore) Get() cue.PlaybackMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

func (s *ModeStore) set(mode cue.PlaybackMode) {
	s.mu.Lock()
	s.mode = mode
	s.seeded = true
	s.mu.Unlock()
}

// seed applies the configured initial mode unless a mode was already chosen.
func (s *ModeStore) seed(mode cue.PlaybackMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seeded {
		return
	}
	s.mode = mode
	s.seeded = true
}
