package daw

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/markermatic/markermatic/internal/config"
	"github.com/markermatic/markermatic/internal/cue"
	"github.com/markermatic/markermatic/internal/lifecycle"
	"github.com/markermatic/markermatic/internal/ptsl"
)

const (
	ptslCompany     = "JSSD"
	ptslApplication = "CONSOLE_LINK"

	pollInterval = time.Second
	callTimeout  = 2 * time.Second
)

var errDAWNotConnected = errors.New("daw not connected")

// ProTools drives Pro Tools through PTSL.
type ProTools struct {
	deps   Deps
	policy *Policy
	addr   string
	dial   func(ctx context.Context, addr string) (*ptsl.Client, error)

	mu     sync.Mutex
	client *ptsl.Client
	state  ptsl.TransportState
	armed  bool
}

func newProTools(deps Deps) *ProTools {
	cfg := deps.Config.DAW
	p := &ProTools{
		deps: deps,
		addr: net.JoinHostPort(cfg.IP, strconv.Itoa(cfg.SendPort)),
		dial: func(ctx context.Context, addr string) (*ptsl.Client, error) {
			return ptsl.Dial(ctx, addr, callTimeout)
		},
	}
	p.policy = NewPolicy(deps, p)
	return p
}

func (p *ProTools) Type() string { return config.DAWProTools }

func (p *ProTools) Start(spawn lifecycle.SpawnFunc) {
	spawn("daw_connection_thread", p.run)
}

func (p *ProTools) run(ctx context.Context) error {
	defer p.disconnect()
	for {
		if err := p.poll(ctx); err != nil && ctx.Err() == nil {
			p.deps.Logger.Warn("pro tools poll failed", "error", err.Error())
			p.disconnect()
		}
		if !lifecycle.Sleep(ctx, pollInterval) {
			return nil
		}
	}
}

func (p *ProTools) connect(ctx context.Context) (*ptsl.Client, error) {
	p.mu.Lock()
	client := p.client
	p.mu.Unlock()
	if client != nil {
		return client, nil
	}

	client, err := p.dial(ctx, p.addr)
	if err != nil {
		return nil, err
	}
	regCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	if err := client.Register(regCtx, ptslCompany, ptslApplication); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("register with pro tools: %w", err)
	}
	p.deps.Logger.Info("connected to pro tools", "addr", p.addr)

	p.mu.Lock()
	p.client = client
	p.mu.Unlock()
	return client, nil
}

func (p *ProTools) disconnect() {
	p.mu.Lock()
	client := p.client
	p.client = nil
	p.mu.Unlock()
	if client != nil {
		_ = client.Close()
	}
}

// poll refreshes transport state. A successful poll is the liveness signal.
func (p *ProTools) poll(ctx context.Context) error {
	client, err := p.connect(ctx)
	if err != nil {
		return err
	}
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	state, err := client.TransportState(callCtx)
	if err != nil {
		return err
	}
	armed, err := client.TransportArmed(callCtx)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.state = state
	p.armed = armed
	p.mu.Unlock()
	p.deps.seen(config.DAWProTools)
	return nil
}

func (p *ProTools) Nudge(context.Context) {
	err := p.with(func(ctx context.Context, c *ptsl.Client) error { return c.HostReadyCheck(ctx) })
	if err != nil {
		p.deps.Logger.Warn("daw nudge failed", "error", err.Error())
	}
}

func (p *ProTools) Close() { p.policy.Close() }

// with runs fn against the live client with a bounded deadline.
func (p *ProTools) with(fn func(context.Context, *ptsl.Client) error) error {
	p.mu.Lock()
	client := p.client
	p.mu.Unlock()
	if client == nil {
		return errDAWNotConnected
	}
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	return fn(ctx, client)
}

// State asks Pro Tools directly so a toggle issued since the last poll is
// seen. The polled value answers while the DAW is unreachable.
func (p *ProTools) State() cue.TransportState {
	var state ptsl.TransportState
	err := p.with(func(ctx context.Context, c *ptsl.Client) error {
		var err error
		state, err = c.TransportState(ctx)
		return err
	})
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		p.state = state
	}
	switch {
	case p.state.Recording():
		return cue.StateRecording
	case p.state.Playing():
		return cue.StatePlaying
	default:
		return cue.StateStopped
	}
}

func (p *ProTools) Armed() bool {
	var armed bool
	err := p.with(func(ctx context.Context, c *ptsl.Client) error {
		var err error
		armed, err = c.TransportArmed(ctx)
		return err
	})
	if err != nil {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.armed
	}
	return armed
}

func (p *ProTools) togglePlay() error {
	return p.with(func(ctx context.Context, c *ptsl.Client) error { return c.TogglePlayState(ctx) })
}

func (p *ProTools) Play() error   { return p.togglePlay() }
func (p *ProTools) Stop() error   { return p.togglePlay() }
func (p *ProTools) Record() error { return p.togglePlay() }

func (p *ProTools) Arm() error {
	return p.with(func(ctx context.Context, c *ptsl.Client) error { return c.ToggleRecordEnable(ctx) })
}

func (p *ProTools) SeekToEnd() error {
	return p.with(func(ctx context.Context, c *ptsl.Client) error {
		length, err := c.SessionLength(ctx)
		if err != nil {
			return err
		}
		return c.SetTimelineSelection(ctx, length)
	})
}

func (p *ProTools) PlaceMarker(name string) error {
	return p.with(func(ctx context.Context, c *ptsl.Client) error { return c.CreateMemoryLocation(ctx, name) })
}

func (p *ProTools) LocateMarker(target string) error {
	return p.with(func(ctx context.Context, c *ptsl.Client) error {
		locs, err := c.MemoryLocations(ctx)
		if err != nil {
			return err
		}
		for _, loc := range locs {
			if cue.MarkerMatches(loc.Name, target, p.deps.NameOnly) {
				return c.SetTimelineSelection(ctx, loc.StartTime)
			}
		}
		p.deps.Logger.Debug("no memory location matched", "target", target)
		return nil
	})
}
