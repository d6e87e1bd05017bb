// Package bridge runs one console adapter and one DAW adapter as a single
// restartable unit and watches their liveness.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/markermatic/markermatic/internal/bus"
	"github.com/markermatic/markermatic/internal/config"
	"github.com/markermatic/markermatic/internal/console"
	"github.com/markermatic/markermatic/internal/cue"
	"github.com/markermatic/markermatic/internal/daw"
	"github.com/markermatic/markermatic/internal/extcontrol"
	"github.com/markermatic/markermatic/internal/fsm"
	"github.com/markermatic/markermatic/internal/lifecycle"
)

var (
	ErrUnknownConsole = errors.New("unknown console type")
	ErrUnknownDAW     = errors.New("unknown daw type")
)

const defaultShutdownTimeout = 3 * time.Second

// Options configures a Bridge. Zero values fall back to a fresh bus, a
// discarding logger and the no-op vendor preparer.
type Options struct {
	Bus      *bus.Bus
	Logger   *slog.Logger
	Preparer VendorPreparer
	// Reload returns a fresh configuration for the reconnect command.
	Reload func() (config.Config, error)
}

// Bridge is the orchestrator. Start, Stop and Restart are serialized.
type Bridge struct {
	bus      *bus.Bus
	logger   *slog.Logger
	preparer VendorPreparer
	reload   func() (config.Config, error)
	modes    *ModeStore

	restartMu sync.Mutex

	mu      sync.RWMutex
	state   fsm.State
	cfg     config.Config
	group   *lifecycle.Group
	console console.Adapter
	daw     daw.Adapter
	monitor *monitor
}

// New builds a stopped bridge.
func New(opts Options) *Bridge {
	b := opts.Bus
	if b == nil {
		b = bus.New(opts.Logger)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	preparer := opts.Preparer
	if preparer == nil {
		preparer = NoopPreparer{}
	}
	return &Bridge{
		bus:      b,
		logger:   logger.With("component", "bridge"),
		preparer: preparer,
		reload:   opts.Reload,
		modes:    NewModeStore(b),
		state:    fsm.StateStopped,
	}
}

// Bus returns the event bus shared by every adapter.
func (b *Bridge) Bus() *bus.Bus { return b.bus }

// State returns the lifecycle state snapshot.
func (b *Bridge) State() fsm.State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Mode returns the current playback mode.
func (b *Bridge) Mode() cue.PlaybackMode { return b.modes.Get() }

// Running lists the managed goroutines that are still alive.
func (b *Bridge) Running() []string {
	b.mu.RLock()
	group := b.group
	b.mu.RUnlock()
	if group == nil {
		return nil
	}
	return group.Running()
}

func (b *Bridge) transition(event fsm.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	next, err := fsm.Transition(b.state, event)
	if err != nil {
		return err
	}
	b.state = next
	return nil
}

// Start resolves and starts the configured adapters.
func (b *Bridge) Start(cfg config.Config) error {
	b.restartMu.Lock()
	defer b.restartMu.Unlock()
	return b.start(cfg)
}

// Stop shuts every managed goroutine down. It is idempotent and safe when
// nothing was started.
func (b *Bridge) Stop() error {
	b.restartMu.Lock()
	defer b.restartMu.Unlock()
	return b.stop()
}

// Restart validates cfg and, only when it is valid, stops and starts the
// bridge with it.
func (b *Bridge) Restart(cfg config.Config) error {
	warnings, err := config.Validate(cfg)
	if err != nil {
		return fmt.Errorf("restart: %w", err)
	}
	for _, w := range warnings {
		b.logger.Warn("config warning", "message", w.Message)
	}

	b.restartMu.Lock()
	defer b.restartMu.Unlock()
	if err := b.stop(); err != nil {
		b.logger.Warn("stop before restart was incomplete", "error", err.Error())
	}
	return b.start(cfg)
}

func (b *Bridge) start(cfg config.Config) error {
	if err := b.transition(fsm.EventStart); err != nil {
		return fmt.Errorf("start bridge: %w", err)
	}

	caps, ok := console.CapabilitiesOf(cfg.Console.Type)
	if !ok {
		return b.abortStart(fmt.Errorf("%w: %q", ErrUnknownConsole, cfg.Console.Type))
	}
	if !daw.Registered(cfg.DAW.Type) {
		return b.abortStart(fmt.Errorf("%w: %q", ErrUnknownDAW, cfg.DAW.Type))
	}
	if mode, err := cue.ParseMode(cfg.InitialMode); err == nil {
		b.modes.seed(mode)
	}

	group := lifecycle.NewGroup(context.Background(), b.logger)
	b.prepareVendor(group, cfg)

	mon := newMonitor(b.bus, cfg.Heartbeat, b.logger.With("component", "heartbeat"))
	con, err := console.New(console.Deps{
		Bus:    b.bus,
		Config: cfg,
		Logger: b.logger,
		Seen:   mon.consoleSeen,
	})
	if err != nil {
		_ = group.Stop(time.Second)
		return b.abortStart(fmt.Errorf("%w: %v", ErrUnknownConsole, err))
	}
	d, err := daw.New(daw.Deps{
		Bus:      b.bus,
		Config:   cfg,
		Logger:   b.logger,
		Mode:     b.modes.Get,
		NameOnly: cfg.NameOnlyMatch && caps.Has(cue.CapCueNumber),
		Seen:     mon.dawSeen,
	})
	if err != nil {
		_ = group.Stop(time.Second)
		return b.abortStart(fmt.Errorf("%w: %v", ErrUnknownDAW, err))
	}
	mon.console.probe = con.Heartbeat
	mon.console.nudge = con.Heartbeat
	mon.daw.nudge = d.Nudge

	con.Start(group.Spawn)
	d.Start(group.Spawn)
	extcontrol.New(extcontrol.Deps{Bus: b.bus, Config: cfg.ExternalControl, Logger: b.logger}).Start(group.Spawn)
	group.Spawn("heartbeat_thread", mon.run)

	b.mu.Lock()
	b.cfg = cfg
	b.group = group
	b.console = con
	b.daw = d
	b.monitor = mon
	b.mu.Unlock()

	if err := b.transition(fsm.EventStarted); err != nil {
		return err
	}
	b.logger.Info("bridge started",
		"console", cfg.Console.Type,
		"daw", cfg.DAW.Type,
		"mode", string(b.modes.Get()),
		"threads", group.Running(),
	)
	return nil
}

// abortStart unwinds a failed start back to Stopped.
func (b *Bridge) abortStart(err error) error {
	_ = b.transition(fsm.EventFail)
	_ = b.transition(fsm.EventStopped)
	b.logger.Error("bridge start failed", "error", err.Error())
	return err
}

// prepareVendor runs the vendor preparation boundary. Failure is logged
// and the bridge starts anyway.
func (b *Bridge) prepareVendor(group *lifecycle.Group, cfg config.Config) {
	if !needsPreparation(cfg.DAW.Type) {
		return
	}
	changed, err := b.preparer.Ensure(group.Context(), cfg.DAW.Type, cfg)
	if err != nil {
		b.logger.Warn("vendor preparation failed; the daw may need manual setup", "daw", cfg.DAW.Type, "error", err.Error())
		return
	}
	if changed {
		b.logger.Info("vendor configuration changed; daw restart required", "daw", cfg.DAW.Type)
		b.bus.Publish(bus.RequestDawRestart{DAW: cfg.DAW.Type})
	}
}

func (b *Bridge) stop() error {
	b.mu.RLock()
	state := b.state
	b.mu.RUnlock()
	if state == fsm.StateStopped {
		return nil
	}
	if err := b.transition(fsm.EventStop); err != nil {
		return fmt.Errorf("stop bridge: %w", err)
	}

	b.mu.Lock()
	group, d, mon, timeout := b.group, b.daw, b.monitor, b.cfg.ShutdownTimeout
	b.group, b.console, b.daw, b.monitor = nil, nil, nil, nil
	b.mu.Unlock()

	b.bus.Publish(bus.ShutdownRequested{})
	if d != nil {
		d.Close()
	}

	var err error
	if group != nil {
		join := time.Duration(timeout) * time.Millisecond
		if join <= 0 {
			join = defaultShutdownTimeout
		}
		err = group.Stop(join)
	}
	if mon != nil {
		mon.markDown()
	}

	_ = b.transition(fsm.EventStopped)
	if err != nil {
		b.logger.Warn("bridge stopped with stragglers", "error", err.Error())
		return err
	}
	b.logger.Info("bridge stopped")
	return nil
}
