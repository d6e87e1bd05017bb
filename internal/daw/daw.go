// Package daw drives recorders from bus events and reports their transport.
package daw

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/markermatic/markermatic/internal/bus"
	"github.com/markermatic/markermatic/internal/config"
	"github.com/markermatic/markermatic/internal/cue"
	"github.com/markermatic/markermatic/internal/lifecycle"
)

// Adapter is one DAW protocol variant. Bus subscriptions are wired at
// construction and detached by Close.
type Adapter interface {
	Type() string
	// Start launches the adapter loops through spawn and returns immediately.
	Start(spawn lifecycle.SpawnFunc)
	// Nudge asks the DAW to resend its surface state.
	Nudge(ctx context.Context)
	Close()
}

// Deps is what every DAW variant needs from the bridge.
type Deps struct {
	Bus    *bus.Bus
	Config config.Config
	Logger *slog.Logger
	// Mode returns the current process-wide playback mode.
	Mode func() cue.PlaybackMode
	// NameOnly is the effective name-only flag: configured and supported by
	// the console variant.
	NameOnly bool
	// Seen is called on any inbound DAW traffic.
	Seen func(label string)
}

func (d Deps) seen(label string) {
	if d.Seen != nil {
		d.Seen(label)
	}
}

func (d Deps) mode() cue.PlaybackMode {
	if d.Mode == nil {
		return cue.ModePlaybackTrack
	}
	return d.Mode()
}

var registry = map[string]func(Deps) Adapter{
	config.DAWReaper:    func(d Deps) Adapter { return newReaper(d) },
	config.DAWProTools:  func(d Deps) Adapter { return newProTools(d) },
	config.DAWArdour:    func(d Deps) Adapter { return newArdour(d) },
	config.DAWBitwig:    func(d Deps) Adapter { return newBitwig(d) },
	config.DAWAudacity:  func(d Deps) Adapter { return newAudacity(d) },
	config.DAWLiveTrax2: func(d Deps) Adapter { return newLiveTrax(d) },
}

// New resolves and constructs the configured DAW variant.
func New(deps Deps) (Adapter, error) {
	ctor, ok := registry[deps.Config.DAW.Type]
	if !ok {
		return nil, fmt.Errorf("daw type %q is not registered", deps.Config.DAW.Type)
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	deps.Logger = deps.Logger.With("component", "daw", "daw", deps.Config.DAW.Type)
	return ctor(deps), nil
}

// Registered reports whether a DAW selector is known.
func Registered(dawType string) bool {
	_, ok := registry[dawType]
	return ok
}
