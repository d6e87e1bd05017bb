package daw

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/hypebeast/go-osc/osc"
	"github.com/markermatic/markermatic/internal/bus"
	"github.com/markermatic/markermatic/internal/config"
	"github.com/markermatic/markermatic/internal/cue"
	"github.com/markermatic/markermatic/internal/lifecycle"
	"github.com/markermatic/markermatic/internal/osclink"
	"github.com/stretchr/testify/require"
)

const waitFor = 3 * time.Second

// dawPeer is a loopback stand-in for an OSC DAW.
type dawPeer struct {
	ep   *osclink.Endpoint
	recv chan *osc.Message
}

func newDAWPeer(t *testing.T) *dawPeer {
	t.Helper()
	ep, err := osclink.Listen("127.0.0.1", 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	p := &dawPeer{ep: ep, recv: make(chan *osc.Message, 128)}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = ep.Serve(ctx, func(dg osclink.Datagram) {
			msgs, err := osclink.Decode(dg.Data)
			if err != nil {
				return
			}
			for _, msg := range msgs {
				p.recv <- msg
			}
		})
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = ep.Close()
	})
	return p
}

func (p *dawPeer) port() int { return p.ep.LocalAddr().Port }

func (p *dawPeer) send(t *testing.T, port int, address string, args ...any) {
	t.Helper()
	dst := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port}
	require.NoError(t, p.ep.Send(dst, osc.NewMessage(address, args...)))
}

// expect skips messages until one carries address.
func (p *dawPeer) expect(t *testing.T, address string) *osc.Message {
	t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case msg := <-p.recv:
			if msg.Address == address {
				return msg
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", address)
			return nil
		}
	}
}

func freeUDPPort(t *testing.T) int {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	port := conn.LocalAddr().(*net.UDPAddr).Port
	require.NoError(t, conn.Close())
	return port
}

// seenLog records liveness labels.
type seenLog struct {
	mu     sync.Mutex
	labels []string
}

func (s *seenLog) record(label string) {
	s.mu.Lock()
	s.labels = append(s.labels, label)
	s.mu.Unlock()
}

func (s *seenLog) has(label string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.labels {
		if l == label {
			return true
		}
	}
	return false
}

// modeBox is a settable playback mode.
type modeBox struct {
	mu   sync.Mutex
	mode cue.PlaybackMode
}

func (m *modeBox) get() cue.PlaybackMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

func (m *modeBox) set(mode cue.PlaybackMode) {
	m.mu.Lock()
	m.mode = mode
	m.mu.Unlock()
}

type testRig struct {
	deps Deps
	seen *seenLog
	mode *modeBox
}

func newTestRig(dawType string, configure func(*config.Config)) testRig {
	cfg := config.Default()
	cfg.DAW.Type = dawType
	cfg.DAW.IP = "127.0.0.1"
	if configure != nil {
		configure(&cfg)
	}
	seen := &seenLog{}
	mode := &modeBox{mode: cue.ModePlaybackTrack}
	b := bus.New(nil)
	bus.Subscribe(b, func(evt bus.PlaybackModeChanged) { mode.set(evt.Mode) })
	return testRig{
		deps: Deps{
			Bus:    b,
			Config: cfg,
			Logger: slog.New(slog.DiscardHandler),
			Mode:   mode.get,
			Seen:   seen.record,
		},
		seen: seen,
		mode: mode,
	}
}

func startAdapter(t *testing.T, a Adapter) []string {
	t.Helper()
	group := lifecycle.NewGroup(context.Background(), nil)
	var names []string
	a.Start(func(name string, fn func(context.Context) error) {
		names = append(names, name)
		group.Spawn(name, fn)
	})
	t.Cleanup(func() {
		a.Close()
		require.NoError(t, group.Stop(waitFor))
	})
	return names
}
