// Package console adapts live-sound consoles to the bridge event bus.
package console

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/markermatic/markermatic/internal/bus"
	"github.com/markermatic/markermatic/internal/config"
	"github.com/markermatic/markermatic/internal/cue"
	"github.com/markermatic/markermatic/internal/lifecycle"
)

// Adapter is one console protocol variant.
type Adapter interface {
	Type() string
	Capabilities() cue.Capabilities
	// Start launches the adapter loops through spawn and returns immediately.
	Start(spawn lifecycle.SpawnFunc)
	// Heartbeat probes the console on the existing outbound link.
	Heartbeat(ctx context.Context)
}

// Deps is what every console variant needs from the bridge.
type Deps struct {
	Bus    *bus.Bus
	Config config.Config
	Logger *slog.Logger
	// Seen is called on any inbound traffic. label is empty when the
	// traffic did not carry a console name.
	Seen func(label string)
}

func (d Deps) seen(label string) {
	if d.Seen != nil {
		d.Seen(label)
	}
}

var (
	digicoCaps    = cue.Capabilities{cue.CapCueNumber, cue.CapRepeater, cue.CapSeparateReceivePort}
	cueNumberOnly = cue.Capabilities{cue.CapCueNumber}
)

type entry struct {
	caps cue.Capabilities
	new  func(Deps) Adapter
}

var registry = map[string]entry{
	config.ConsoleDiGiCo: {
		caps: digicoCaps,
		new:  func(d Deps) Adapter { return newDiGiCo(d) },
	},
	config.ConsoleX32: {
		caps: cueNumberOnly,
		new:  func(d Deps) Adapter { return newX32(d) },
	},
	config.ConsoleXAir: {
		caps: cueNumberOnly,
		new:  func(d Deps) Adapter { return newXAir(d) },
	},
	config.ConsoleYamaha: {
		caps: cueNumberOnly,
		new:  func(d Deps) Adapter { return newYamaha(d) },
	},
	config.ConsoleStuderVista: {
		caps: cue.Capabilities{},
		new:  func(d Deps) Adapter { return newVista(d) },
	},
}

// New resolves the configured console variant.
func New(deps Deps) (Adapter, error) {
	e, ok := registry[deps.Config.Console.Type]
	if !ok {
		return nil, fmt.Errorf("console type %q is not registered", deps.Config.Console.Type)
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	deps.Logger = deps.Logger.With("component", "console", "console", deps.Config.Console.Type)
	return e.new(deps), nil
}

// CapabilitiesOf returns the static capability set for a selector.
func CapabilitiesOf(consoleType string) (cue.Capabilities, bool) {
	e, ok := registry[consoleType]
	if !ok {
		return nil, false
	}
	return e.caps, true
}

// recoverLoop keeps one malformed message from killing a receive loop.
func recoverLoop(logger *slog.Logger, where string) {
	if r := recover(); r != nil {
		logger.Error("console handler panicked", "handler", where, "panic", fmt.Sprint(r))
	}
}
