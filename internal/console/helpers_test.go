package console

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
	"github.com/markermatic/markermatic/internal/lifecycle"
	"github.com/markermatic/markermatic/internal/osclink"
	"github.com/stretchr/testify/require"
)

const waitFor = 3 * time.Second

// oscPeer is a loopback stand-in for a console or tablet.
type oscPeer struct {
	ep   *osclink.Endpoint
	recv chan osclink.Datagram
}

func newOSCPeer(t *testing.T) *oscPeer {
	t.Helper()
	ep, err := osclink.Listen("127.0.0.1", 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	p := &oscPeer{ep: ep, recv: make(chan osclink.Datagram, 64)}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = ep.Serve(ctx, func(dg osclink.Datagram) { p.recv <- dg })
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = ep.Close()
	})
	return p
}

func (p *oscPeer) port() int { return p.ep.LocalAddr().Port }

func (p *oscPeer) send(t *testing.T, to *net.UDPAddr, msg *osc.Message) {
	t.Helper()
	require.NoError(t, p.ep.Send(to, msg))
}

func (p *oscPeer) next(t *testing.T) osclink.Datagram {
	t.Helper()
	select {
	case dg := <-p.recv:
		return dg
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for datagram")
		return osclink.Datagram{}
	}
}

// expect skips datagrams until one carries address.
func (p *oscPeer) expect(t *testing.T, address string) (*osc.Message, *net.UDPAddr) {
	t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case dg := <-p.recv:
			msgs, err := osclink.Decode(dg.Data)
			require.NoError(t, err)
			for _, msg := range msgs {
				if msg.Address == address {
					return msg, dg.From
				}
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", address)
			return nil, nil
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

func loopback(port int) *net.UDPAddr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port}
}

func testConfig(consoleType string) config.Config {
	cfg := config.Default()
	cfg.Console.Type = consoleType
	cfg.Console.IP = "127.0.0.1"
	return cfg
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

func testDeps(cfg config.Config) (Deps, *seenLog) {
	seen := &seenLog{}
	return Deps{Bus: bus.New(nil), Config: cfg, Logger: slog.New(slog.DiscardHandler), Seen: seen.record}, seen
}

func collect[E bus.Event](t *testing.T, b *bus.Bus) <-chan E {
	t.Helper()
	ch := make(chan E, 16)
	t.Cleanup(bus.Subscribe(b, func(evt E) { ch <- evt }))
	return ch
}

func receive[E any](t *testing.T, ch <-chan E) E {
	t.Helper()
	select {
	case evt := <-ch:
		return evt
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for event")
		var zero E
		return zero
	}
}

func startAdapter(t *testing.T, a Adapter) {
	t.Helper()
	group := lifecycle.NewGroup(context.Background(), nil)
	a.Start(group.Spawn)
	t.Cleanup(func() { require.NoError(t, group.Stop(waitFor)) })
}
