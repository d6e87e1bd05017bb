package daw

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/hypebeast/go-osc/osc"
	"github.com/markermatic/markermatic/internal/config"
	"github.com/markermatic/markermatic/internal/cue"
	"github.com/markermatic/markermatic/internal/lifecycle"
	"github.com/markermatic/markermatic/internal/osclink"
)

// Reaper action IDs.
const (
	reaperActionPlay         = 1007
	reaperActionStop         = 1016
	reaperActionRecord       = 1013
	reaperActionGoToEnd      = 40043
	reaperActionInsertMarker = 40157
	reaperActionRefresh      = 41743
)

// reaperMarkerWindow is how many markers Reaper is asked to report.
const reaperMarkerWindow = 512

// Reaper talks to REAPER's OSC control surface.
type Reaper struct {
	deps   Deps
	link   *oscLink
	policy *Policy

	mu        sync.Mutex
	playing   bool
	recording bool
	target    string
	locating  bool
}

func newReaper(deps Deps) *Reaper {
	cfg := deps.Config.DAW
	r := &Reaper{
		deps: deps,
		link: newOSCLink(deps.Logger, cfg.IP, cfg.SendPort, cfg.ReceivePort),
	}
	r.link.router.Handle("/play", r.onPlay)
	r.link.router.Handle("/record", r.onRecord)
	r.link.router.Handle("/marker/*/name", r.onMarkerName)
	r.policy = NewPolicy(deps, r)
	return r
}

func (r *Reaper) Type() string { return config.DAWReaper }

func (r *Reaper) Start(spawn lifecycle.SpawnFunc) {
	spawn("daw_connection_thread", func(ctx context.Context) error {
		return r.link.serve(ctx, func() { r.deps.seen(config.DAWReaper) })
	})
}

// Nudge runs "Control surface: refresh all surfaces".
func (r *Reaper) Nudge(context.Context) {
	if err := r.action(reaperActionRefresh); err != nil {
		r.deps.Logger.Warn("daw nudge failed", "error", err.Error())
	}
}

func (r *Reaper) Close() { r.policy.Close() }

func (r *Reaper) onPlay(msg *osc.Message) {
	v, ok := osclink.Int(msg, 0)
	if !ok || (v != 0 && v != 1) {
		return
	}
	r.mu.Lock()
	r.playing = v == 1
	r.mu.Unlock()
	r.deps.Logger.Info("reaper play state", "playing", v == 1)
}

func (r *Reaper) onRecord(msg *osc.Message) {
	v, ok := osclink.Int(msg, 0)
	if !ok || (v != 0 && v != 1) {
		return
	}
	r.mu.Lock()
	r.recording = v == 1
	r.mu.Unlock()
	r.deps.Logger.Info("reaper record state", "recording", v == 1)
}

// onMarkerName answers a pending locate with the first marker whose
// name matches the remembered target.
func (r *Reaper) onMarkerName(msg *osc.Message) {
	parts := strings.Split(msg.Address, "/")
	id, err := strconv.Atoi(parts[2])
	if err != nil {
		return
	}
	name, ok := osclink.String(msg, 0)
	if !ok {
		return
	}

	r.mu.Lock()
	match := r.locating && cue.MarkerMatches(name, r.target, r.deps.NameOnly)
	if match {
		r.locating = false
	}
	r.mu.Unlock()

	if match {
		if err := r.link.send("/marker", int32(id)); err != nil {
			r.deps.Logger.Warn("goto marker failed", "marker", id, "error", err.Error())
		}
	}
}

func (r *Reaper) State() cue.TransportState {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.recording:
		return cue.StateRecording
	case r.playing:
		return cue.StatePlaying
	default:
		return cue.StateStopped
	}
}

func (r *Reaper) Armed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

func (r *Reaper) action(id int) error { return r.link.send("/action", int32(id)) }

func (r *Reaper) Play() error      { return r.action(reaperActionPlay) }
func (r *Reaper) Stop() error      { return r.action(reaperActionStop) }
func (r *Reaper) Arm() error       { return nil }
func (r *Reaper) SeekToEnd() error { return r.action(reaperActionGoToEnd) }
func (r *Reaper) Record() error    { return r.action(reaperActionRecord) }

func (r *Reaper) PlaceMarker(name string) error {
	return r.link.sendAll(
		osc.NewMessage("/action", int32(reaperActionInsertMarker)),
		osc.NewMessage("/lastmarker/name", name),
	)
}

// LocateMarker asks Reaper to enumerate its markers. The reply handler
// finishes the locate.
func (r *Reaper) LocateMarker(target string) error {
	r.mu.Lock()
	r.target = target
	r.locating = true
	r.mu.Unlock()
	return r.link.sendAll(
		osc.NewMessage("/device/marker/count", int32(0)),
		osc.NewMessage("/device/marker/count", int32(reaperMarkerWindow)),
	)
}
