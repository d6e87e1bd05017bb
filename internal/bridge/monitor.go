package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/markermatic/markermatic/internal/bus"
	"github.com/markermatic/markermatic/internal/config"
	"github.com/markermatic/markermatic/internal/cue"
)

// role is the liveness bookkeeping for one side of the bridge.
type role struct {
	name    string
	idle    int
	status  cue.ConnectionStatus
	publish func(cue.ConnectionStatus) bus.Event
	probe   func(context.Context)
	nudge   func(context.Context)
}

// monitor tracks console and DAW liveness. Inbound traffic marks a role
// connected; ticks without traffic nudge and finally time it out.
type monitor struct {
	bus    *bus.Bus
	cfg    config.HeartbeatConfig
	logger *slog.Logger

	mu      sync.Mutex
	ticks   int
	console role
	daw     role
}

func newMonitor(b *bus.Bus, cfg config.HeartbeatConfig, logger *slog.Logger) *monitor {
	return &monitor{
		bus:    b,
		cfg:    cfg,
		logger: logger,
		console: role{
			name: "console",
			publish: func(s cue.ConnectionStatus) bus.Event {
				return bus.ConsoleConnectionStatus{Connected: s.Connected, Label: s.Label}
			},
		},
		daw: role{
			name: "daw",
			publish: func(s cue.ConnectionStatus) bus.Event {
				return bus.DawConnectionStatus{Connected: s.Connected, Label: s.Label}
			},
		},
	}
}

func (m *monitor) consoleSeen(label string) { m.seen(&m.console, label) }
func (m *monitor) dawSeen(label string)     { m.seen(&m.daw, label) }

// seen resets the idle counter and publishes a connect when the role was
// down or its label changed. An empty label keeps the known one.
func (m *monitor) seen(r *role, label string) {
	m.mu.Lock()
	r.idle = 0
	if label == "" {
		label = r.status.Label
	}
	if r.status.Connected && r.status.Label == label {
		m.mu.Unlock()
		return
	}
	r.status = cue.ConnectionStatus{Connected: true, Label: label}
	evt := r.publish(r.status)
	m.mu.Unlock()

	m.logger.Info("connection up", "role", r.name, "label", label)
	m.bus.Publish(evt)
}

// statuses returns the current console and DAW statuses.
func (m *monitor) statuses() (cue.ConnectionStatus, cue.ConnectionStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.console.status, m.daw.status
}

// run ticks until ctx ends.
func (m *monitor) run(ctx context.Context) error {
	interval := time.Duration(m.cfg.TickMS) * time.Millisecond
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.safeTick(ctx)
		}
	}
}

func (m *monitor) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("heartbeat tick panicked", "panic", fmt.Sprint(r))
		}
	}()
	m.tick(ctx)
}

// tick advances both idle counters once. Probes, nudges and status events
// run after the lock is released.
func (m *monitor) tick(ctx context.Context) {
	var (
		calls  []func(context.Context)
		events []bus.Event
	)

	m.mu.Lock()
	m.ticks++
	if m.cfg.ProbeEvery > 0 && m.ticks%m.cfg.ProbeEvery == 0 && m.console.probe != nil {
		calls = append(calls, m.console.probe)
	}
	for _, r := range []*role{&m.console, &m.daw} {
		r.idle++
		if r.idle == m.cfg.NudgeAfter && r.nudge != nil {
			m.logger.Debug("nudging idle connection", "role", r.name, "idle_ticks", r.idle)
			calls = append(calls, r.nudge)
		}
		if r.idle >= m.cfg.TimeoutAfter {
			r.idle = 0
			if r.status.Connected {
				r.status = cue.ConnectionStatus{Connected: false, Label: r.status.Label}
				events = append(events, r.publish(r.status))
				m.logger.Warn("connection timed out", "role", r.name, "label", r.status.Label)
			}
		}
	}
	m.mu.Unlock()

	for _, call := range calls {
		call(ctx)
	}
	for _, evt := range events {
		m.bus.Publish(evt)
	}
}

// markDown publishes a disconnect for every connected role.
func (m *monitor) markDown() {
	var events []bus.Event
	m.mu.Lock()
	for _, r := range []*role{&m.console, &m.daw} {
		r.idle = 0
		if r.status.Connected {
			r.status.Connected = false
			events = append(events, r.publish(r.status))
		}
	}
	m.mu.Unlock()
	for _, evt := range events {
		m.bus.Publish(evt)
	}
}
