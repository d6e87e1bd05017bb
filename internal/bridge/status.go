package bridge

import (
	"fmt"
	"strings"

	"github.com/markermatic/markermatic/internal/bus"
	"github.com/markermatic/markermatic/internal/cue"
	"github.com/markermatic/markermatic/internal/fsm"
)

// Status is a point-in-time view of the bridge.
type Status struct {
	State       fsm.State
	Mode        cue.PlaybackMode
	ConsoleType string
	DAWType     string
	Console     cue.ConnectionStatus
	DAW         cue.ConnectionStatus
	Threads     []string
}

// Status snapshots lifecycle, mode and connection state.
func (b *Bridge) Status() Status {
	b.mu.RLock()
	s := Status{
		State: b.state,
		Mode:  b.modes.Get(),
	}
	mon, group := b.monitor, b.group
	if b.state != fsm.StateStopped {
		s.ConsoleType = b.cfg.Console.Type
		s.DAWType = b.cfg.DAW.Type
	}
	b.mu.RUnlock()

	if mon != nil {
		s.Console, s.DAW = mon.statuses()
	}
	if group != nil {
		s.Threads = group.Running()
	}
	return s
}

func (s Status) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "state: %s\n", s.State)
	fmt.Fprintf(&b, "mode: %s\n", s.Mode)
	if s.ConsoleType != "" {
		fmt.Fprintf(&b, "console: %s, %s\n", s.ConsoleType, s.Console)
		fmt.Fprintf(&b, "daw: %s, %s\n", s.DAWType, s.DAW)
	}
	if len(s.Threads) > 0 {
		fmt.Fprintf(&b, "threads: %s\n", strings.Join(s.Threads, ", "))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// SetMode publishes a playback mode change.
func (b *Bridge) SetMode(mode cue.PlaybackMode) {
	b.bus.Publish(bus.PlaybackModeChanged{Mode: mode})
}

// RequestTransport publishes a transport request.
func (b *Bridge) RequestTransport(action cue.TransportAction) {
	b.bus.Publish(bus.TransportRequested{Action: action})
}

// PlaceMarker publishes a marker request.
func (b *Bridge) PlaceMarker(name string) {
	b.bus.Publish(bus.PlaceMarker{Name: name})
}
