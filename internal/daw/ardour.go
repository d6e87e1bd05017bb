package daw

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hypebeast/go-osc/osc"
	"github.com/markermatic/markermatic/internal/config"
	"github.com/markermatic/markermatic/internal/cue"
	"github.com/markermatic/markermatic/internal/lifecycle"
	"github.com/markermatic/markermatic/internal/osclink"
)

// surfaceConfigAddress asks for strips, transport and feedback on
// heartbeat and marker state.
const surfaceConfigAddress = "/set_surface/0/159/24/0/0/0"

const surfaceRetry = time.Second

// Ardour talks to Ardour's OSC surface. LiveTrax shares the dialect.
type Ardour struct {
	deps   Deps
	link   *oscLink
	policy *Policy

	dawType         string
	handshake       bool
	refreshOnMarker bool
	configured      atomic.Bool

	mu         sync.Mutex
	playing    bool
	recEnabled bool
}

func newArdour(deps Deps) *Ardour {
	return newArdourFamily(deps, config.DAWArdour, true, false)
}

// newLiveTrax builds the LiveTrax variant: no surface handshake, and a
// refresh before every marker.
func newLiveTrax(deps Deps) *Ardour {
	return newArdourFamily(deps, config.DAWLiveTrax2, false, true)
}

func newArdourFamily(deps Deps, dawType string, handshake, refreshOnMarker bool) *Ardour {
	cfg := deps.Config.DAW
	a := &Ardour{
		deps:            deps,
		link:            newOSCLink(deps.Logger, cfg.IP, cfg.SendPort, cfg.ReceivePort),
		dawType:         dawType,
		handshake:       handshake,
		refreshOnMarker: refreshOnMarker,
	}
	a.link.router.Handle("/transport_play", a.onTransportPlay)
	a.link.router.Handle("/transport_stop", a.onTransportStop)
	a.link.router.Handle("/rec_enable_toggle", a.onRecEnable)
	a.link.router.Handle("/heartbeat", func(*osc.Message) {})
	a.link.router.Handle("/set_surface", a.onSurfaceAck)
	a.policy = NewPolicy(deps, a)
	return a
}

func (a *Ardour) Type() string { return a.dawType }

func (a *Ardour) Start(spawn lifecycle.SpawnFunc) {
	spawn("daw_connection_thread", func(ctx context.Context) error {
		return a.link.serve(ctx, func() { a.deps.seen(a.dawType) })
	})
	if a.handshake {
		spawn("daw_osc_config_thread", a.configureSurface)
	}
}

// configureSurface resends the surface setup every second until Ardour
// acknowledges it.
func (a *Ardour) configureSurface(ctx context.Context) error {
	for {
		if !a.configured.Load() {
			err := a.link.sendAll(
				osc.NewMessage(surfaceConfigAddress, int32(a.link.listenPort)),
				osc.NewMessage("/set_surface"),
			)
			if err != nil {
				a.deps.Logger.Warn("surface config not sent; retrying", "error", err.Error())
			} else {
				a.deps.Logger.Debug("sent surface configuration request")
			}
		}
		if !lifecycle.Sleep(ctx, surfaceRetry) {
			return nil
		}
	}
}

// Nudge asks for a full refresh and, for Ardour, restarts the handshake.
func (a *Ardour) Nudge(context.Context) {
	if a.handshake {
		a.configured.Store(false)
	}
	if err := a.link.send("/refresh"); err != nil {
		a.deps.Logger.Warn("daw nudge failed", "error", err.Error())
	}
}

func (a *Ardour) Close() { a.policy.Close() }

func (a *Ardour) onSurfaceAck(*osc.Message) {
	if !a.configured.Swap(true) {
		a.deps.Logger.Info("daw acknowledged surface configuration")
	}
}

func (a *Ardour) onTransportPlay(msg *osc.Message) {
	v, ok := osclink.Int(msg, 0)
	if !ok || (v != 0 && v != 1) {
		return
	}
	a.mu.Lock()
	a.playing = v == 1
	a.mu.Unlock()
}

func (a *Ardour) onTransportStop(msg *osc.Message) {
	if v, ok := osclink.Int(msg, 0); ok && v == 1 {
		a.mu.Lock()
		a.playing = false
		a.mu.Unlock()
	}
}

func (a *Ardour) onRecEnable(msg *osc.Message) {
	v, ok := osclink.Int(msg, 0)
	if !ok || (v != 0 && v != 1) {
		return
	}
	a.mu.Lock()
	a.recEnabled = v == 1
	a.mu.Unlock()
}

func (a *Ardour) State() cue.TransportState {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case a.playing && a.recEnabled:
		return cue.StateRecording
	case a.playing:
		return cue.StatePlaying
	default:
		return cue.StateStopped
	}
}

func (a *Ardour) Armed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.recEnabled
}

func (a *Ardour) Play() error      { return a.link.send("/transport_play", float32(1)) }
func (a *Ardour) Stop() error      { return a.link.send("/transport_stop", float32(1)) }
func (a *Ardour) Arm() error       { return a.link.send("/rec_enable_toggle", float32(1)) }
func (a *Ardour) SeekToEnd() error { return a.link.send("/goto_end") }
func (a *Ardour) Record() error    { return a.link.send("/transport_play", float32(1)) }

func (a *Ardour) PlaceMarker(name string) error {
	if a.refreshOnMarker {
		return a.link.sendAll(osc.NewMessage("/refresh"), osc.NewMessage("/add_marker", name))
	}
	return a.link.send("/add_marker", name)
}

// LocateMarker sends the target name and Ardour matches it exactly. The
// OSC surface cannot list markers, so name-only matching does not apply and
// the target is always the full cue name.
func (a *Ardour) LocateMarker(target string) error {
	return a.link.send("/marker", target)
}

func (a *Ardour) locatesExactly() {}
