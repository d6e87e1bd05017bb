package daw

import (
	"sync"

	"github.com/markermatic/markermatic/internal/bus"
	"github.com/markermatic/markermatic/internal/cue"
)

// Transport is the per-DAW command set the shared policy drives.
type Transport interface {
	State() cue.TransportState
	Armed() bool
	Play() error
	Stop() error
	Arm() error
	SeekToEnd() error
	Record() error
	PlaceMarker(name string) error
	// LocateMarker moves the playhead to the marker matching target. The
	// target is already normalized for name-only matching.
	LocateMarker(target string) error
}

// exactLocator marks a Transport whose DAW resolves the marker name itself
// and cannot list markers. It always receives the full cue name.
type exactLocator interface {
	locatesExactly()
}

// Policy routes cue and transport events to a Transport. It is the only
// place the playback-mode rules live.
type Policy struct {
	deps   Deps
	driver Transport

	mu     sync.Mutex
	unsubs []func()
}

// NewPolicy subscribes driver to the bus. A ShutdownRequested detaches it
// so no command reaches the DAW while the bridge is stopping.
func NewPolicy(deps Deps, driver Transport) *Policy {
	p := &Policy{deps: deps, driver: driver}
	if deps.Bus != nil {
		p.unsubs = append(p.unsubs,
			bus.Subscribe(deps.Bus, func(evt bus.CueLoaded) { p.OnCue(evt.Cue) }),
			bus.Subscribe(deps.Bus, func(evt bus.TransportRequested) { p.OnTransport(evt.Action) }),
			bus.Subscribe(deps.Bus, func(evt bus.PlaceMarker) { p.OnMarker(evt.Name) }),
			bus.Subscribe(deps.Bus, func(bus.ShutdownRequested) { p.Close() }),
		)
	}
	return p
}

// Close detaches every bus subscription.
func (p *Policy) Close() {
	p.mu.Lock()
	unsubs := p.unsubs
	p.unsubs = nil
	p.mu.Unlock()
	for _, unsubscribe := range unsubs {
		unsubscribe()
	}
}

// OnCue places or locates a marker depending on the playback mode.
func (p *Policy) OnCue(c cue.Cue) {
	p.mu.Lock()
	defer p.mu.Unlock()

	state := p.driver.State()
	switch p.deps.mode() {
	case cue.ModeRecording:
		if state == cue.StateRecording {
			p.check("place marker", p.driver.PlaceMarker(c.String()))
		}
	case cue.ModePlaybackTrack:
		if state.Playing() {
			return
		}
		nameOnly := p.deps.NameOnly
		if _, ok := p.driver.(exactLocator); ok {
			nameOnly = false
		}
		target := cue.MatchTarget(c.String(), nameOnly)
		if target == "" {
			if p.deps.Logger != nil {
				p.deps.Logger.Debug("cue has no name to locate", "cue", c.String())
			}
			return
		}
		p.check("locate marker", p.driver.LocateMarker(target))
	}
}

// OnTransport applies a transport request idempotently.
func (p *Policy) OnTransport(action cue.TransportAction) {
	p.mu.Lock()
	state := p.driver.State()
	switch action {
	case cue.ActionPlay:
		if !state.Playing() {
			p.check("play", p.driver.Play())
		}
	case cue.ActionStop:
		if state != cue.StateStopped && state != cue.StateStopping {
			p.check("stop", p.driver.Stop())
		}
	case cue.ActionRecord:
		if !p.driver.Armed() {
			p.check("arm", p.driver.Arm())
			p.check("seek to end", p.driver.SeekToEnd())
			if p.driver.State() != cue.StateRecording {
				p.check("record", p.driver.Record())
			}
		}
	}
	p.mu.Unlock()

	if action == cue.ActionRecord && p.deps.Bus != nil {
		p.deps.Bus.Publish(bus.PlaybackModeChanged{Mode: cue.ModeRecording})
	}
}

// OnMarker places a named marker at the playhead.
func (p *Policy) OnMarker(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.check("place marker", p.driver.PlaceMarker(name))
}

func (p *Policy) check(op string, err error) {
	if err != nil && p.deps.Logger != nil {
		p.deps.Logger.Warn("daw command failed", "op", op, "error", err.Error())
	}
}
