// Package extcontrol accepts third-party control over OSC and MIDI Machine Control.
package extcontrol

import (
	"log/slog"

	"github.com/markermatic/markermatic/internal/bus"
	"github.com/markermatic/markermatic/internal/config"
	"github.com/markermatic/markermatic/internal/cue"
	"github.com/markermatic/markermatic/internal/lifecycle"
	"github.com/markermatic/markermatic/internal/osclink"
)

// DefaultMarkerName names markers requested without a name.
const DefaultMarkerName = "Marker from External Control"

// Deps is what the controller needs from the bridge.
type Deps struct {
	Bus    *bus.Bus
	Config config.ExternalControlConfig
	Logger *slog.Logger
}

// Controller owns the optional OSC listener and MIDI input.
type Controller struct {
	deps   Deps
	logger *slog.Logger
	router osclink.Router
	sock   osclink.Socket
	midi   midiInput
}

// New builds a controller. Nothing listens until Start.
func New(deps Deps) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Controller{
		deps:   deps,
		logger: logger.With("component", "extcontrol"),
		midi:   systemMIDI{},
	}
	c.routes()
	return c
}

// Start spawns the OSC listener when a port is configured and the MIDI
// listener when a MIDI port is named and MMC is enabled.
func (c *Controller) Start(spawn lifecycle.SpawnFunc) {
	if c.deps.Config.OSCPort != 0 {
		spawn("external_osc_thread", c.serveOSC)
	}
	if c.deps.Config.MIDIPort != "" && c.deps.Config.MMCEnabled {
		spawn("external_midi_thread", c.serveMIDI)
	}
}

func (c *Controller) requestMode(mode cue.PlaybackMode) {
	c.logger.Info("external mode request", "mode", string(mode))
	c.deps.Bus.Publish(bus.PlaybackModeChanged{Mode: mode})
}

func (c *Controller) requestTransport(action cue.TransportAction, source string) {
	c.logger.Info("external transport request", "action", string(action), "source", source)
	c.deps.Bus.Publish(bus.TransportRequested{Action: action})
}

func (c *Controller) requestMarker(name string) {
	if name == "" {
		name = DefaultMarkerName
	}
	c.logger.Info("external marker request", "name", name)
	c.deps.Bus.Publish(bus.PlaceMarker{Name: name})
}
