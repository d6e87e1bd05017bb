package daw

import (
	"context"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/markermatic/markermatic/internal/config"
	"github.com/markermatic/markermatic/internal/cue"
	"github.com/markermatic/markermatic/internal/lifecycle"
	"github.com/markermatic/markermatic/internal/py4j"
)

// markerInfoSeparator splits getCueMarkerInfo into name and position.
const markerInfoSeparator = "<> "

// Bitwig drives Bitwig Studio through the MarkerMatic controller
// extension's Py4J gateway.
type Bitwig struct {
	deps   Deps
	policy *Policy
	addr   string

	mu         sync.Mutex
	client     *py4j.Client
	playing    bool
	recEnabled bool
}

func newBitwig(deps Deps) *Bitwig {
	cfg := deps.Config.DAW
	b := &Bitwig{
		deps: deps,
		addr: net.JoinHostPort(cfg.IP, strconv.Itoa(cfg.SendPort)),
	}
	b.policy = NewPolicy(deps, b)
	return b
}

func (b *Bitwig) Type() string { return config.DAWBitwig }

func (b *Bitwig) Start(spawn lifecycle.SpawnFunc) {
	spawn("daw_connection_thread", b.run)
}

func (b *Bitwig) run(ctx context.Context) error {
	defer b.disconnect()
	for {
		if err := b.poll(ctx); err != nil && ctx.Err() == nil {
			b.deps.Logger.Warn("bitwig poll failed", "error", err.Error())
			b.disconnect()
		}
		if !lifecycle.Sleep(ctx, pollInterval) {
			return nil
		}
	}
}

func (b *Bitwig) gateway(ctx context.Context) (*py4j.Client, error) {
	b.mu.Lock()
	client := b.client
	b.mu.Unlock()
	if client != nil {
		return client, nil
	}
	client, err := py4j.Dial(ctx, b.addr)
	if err != nil {
		return nil, err
	}
	b.deps.Logger.Info("connected to bitwig gateway", "addr", b.addr)
	b.mu.Lock()
	b.client = client
	b.mu.Unlock()
	return client, nil
}

func (b *Bitwig) disconnect() {
	b.mu.Lock()
	client := b.client
	b.client = nil
	b.mu.Unlock()
	if client != nil {
		_ = client.Close()
	}
}

func (b *Bitwig) poll(ctx context.Context) error {
	client, err := b.gateway(ctx)
	if err != nil {
		return err
	}
	transport, err := transportOf(ctx, client)
	if err != nil {
		return err
	}
	playing, err := boolValue(ctx, transport, "isPlaying")
	if err != nil {
		return err
	}
	recEnabled, err := boolValue(ctx, transport, "isArrangerRecordEnabled")
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.playing = playing
	b.recEnabled = recEnabled
	b.mu.Unlock()
	b.deps.seen(config.DAWBitwig)
	return nil
}

func transportOf(ctx context.Context, client *py4j.Client) (py4j.Object, error) {
	v, err := client.EntryPoint().Call(ctx, "getTransport")
	if err != nil {
		return py4j.Object{}, err
	}
	return v.Object()
}

// boolValue reads a BooleanValue property: obj.method().get().
func boolValue(ctx context.Context, obj py4j.Object, method string) (bool, error) {
	v, err := obj.Call(ctx, method)
	if err != nil {
		return false, err
	}
	prop, err := v.Object()
	if err != nil {
		return false, err
	}
	v, err = prop.Call(ctx, "get")
	if err != nil {
		return false, err
	}
	return v.Bool()
}

// Nudge drops the gateway connection so the next poll reconnects.
func (b *Bitwig) Nudge(context.Context) { b.disconnect() }

func (b *Bitwig) Close() { b.policy.Close() }

func (b *Bitwig) with(fn func(ctx context.Context, entry, transport py4j.Object) error) error {
	b.mu.Lock()
	client := b.client
	b.mu.Unlock()
	if client == nil {
		return errDAWNotConnected
	}
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	transport, err := transportOf(ctx, client)
	if err != nil {
		return err
	}
	return fn(ctx, client.EntryPoint(), transport)
}

func (b *Bitwig) transportCall(method string) error {
	return b.with(func(ctx context.Context, _, transport py4j.Object) error {
		_, err := transport.Call(ctx, method)
		return err
	})
}

func (b *Bitwig) State() cue.TransportState {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case b.playing && b.recEnabled:
		return cue.StateRecording
	case b.playing:
		return cue.StatePlaying
	default:
		return cue.StateStopped
	}
}

func (b *Bitwig) Armed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.recEnabled
}

func (b *Bitwig) Play() error      { return b.transportCall("play") }
func (b *Bitwig) Stop() error      { return b.transportCall("stop") }
func (b *Bitwig) Arm() error       { return b.transportCall("record") }
func (b *Bitwig) SeekToEnd() error { return nil }
func (b *Bitwig) Record() error    { return b.transportCall("play") }

// PlaceMarker adds a cue marker and names the last one in the bank. The
// bank may not have caught up yet, so naming is best effort.
func (b *Bitwig) PlaceMarker(name string) error {
	return b.with(func(ctx context.Context, entry, transport py4j.Object) error {
		if _, err := transport.Call(ctx, "addCueMarkerAtPlaybackPosition"); err != nil {
			return err
		}
		count, err := markerCount(ctx, entry)
		if err != nil || count == 0 {
			b.deps.Logger.Debug("new cue marker left unnamed", "name", name)
			return nil
		}
		if _, err := entry.Call(ctx, "renameMarker", int(count-1), name); err != nil {
			b.deps.Logger.Debug("cue marker rename failed", "error", err.Error())
		}
		return nil
	})
}

func (b *Bitwig) LocateMarker(target string) error {
	return b.with(func(ctx context.Context, entry, _ py4j.Object) error {
		count, err := markerCount(ctx, entry)
		if err != nil {
			return err
		}
		for i := int64(0); i < count; i++ {
			v, err := entry.Call(ctx, "getCueMarkerInfo", int(i))
			if err != nil {
				return err
			}
			info, err := v.Text()
			if err != nil {
				return err
			}
			name, pos, ok := strings.Cut(info, markerInfoSeparator)
			if !ok || !cue.MarkerMatches(name, target, b.deps.NameOnly) {
				continue
			}
			_, err = entry.Call(ctx, "loadPlaybackPosition", pos)
			return err
		}
		return nil
	})
}

func markerCount(ctx context.Context, entry py4j.Object) (int64, error) {
	v, err := entry.Call(ctx, "getCueMarkerBank")
	if err != nil {
		return 0, err
	}
	bank, err := v.Object()
	if err != nil {
		return 0, err
	}
	v, err = bank.Call(ctx, "itemCount")
	if err != nil {
		return 0, err
	}
	prop, err := v.Object()
	if err != nil {
		return 0, err
	}
	v, err = prop.Call(ctx, "get")
	if err != nil {
		return 0, err
	}
	return v.Int()
}
