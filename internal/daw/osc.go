package daw

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hypebeast/go-osc/osc"
	"github.com/markermatic/markermatic/internal/osclink"
)

// oscLink is the receive socket plus outbound client shared by the OSC DAWs.
type oscLink struct {
	logger *slog.Logger
	router osclink.Router
	sock   osclink.Socket
	client *osc.Client

	listenHost string
	listenPort int

	sendMu sync.Mutex
}

func newOSCLink(logger *slog.Logger, sendHost string, sendPort int, listenPort int) *oscLink {
	return &oscLink{
		logger:     logger,
		client:     osc.NewClient(sendHost, sendPort),
		listenHost: "127.0.0.1",
		listenPort: listenPort,
	}
}

// send writes one message. Sends from every goroutine are serialized.
func (l *oscLink) send(address string, args ...any) error {
	l.sendMu.Lock()
	defer l.sendMu.Unlock()
	if err := l.client.Send(osc.NewMessage(address, args...)); err != nil {
		return fmt.Errorf("send %s: %w", address, err)
	}
	return nil
}

// sendAll writes messages in order and stops at the first failure.
func (l *oscLink) sendAll(msgs ...*osc.Message) error {
	l.sendMu.Lock()
	defer l.sendMu.Unlock()
	for _, msg := range msgs {
		if err := l.client.Send(msg); err != nil {
			return fmt.Errorf("send %s: %w", msg.Address, err)
		}
	}
	return nil
}

// serve receives DAW traffic until ctx ends. onTraffic runs for every
// datagram, decodable or not, before routing.
func (l *oscLink) serve(ctx context.Context, onTraffic func()) error {
	return l.sock.Run(ctx, l.logger, l.listenHost, l.listenPort, nil, func(dg osclink.Datagram) {
		defer func() {
			if r := recover(); r != nil {
				l.logger.Error("daw handler panicked", "panic", fmt.Sprint(r))
			}
		}()
		if onTraffic != nil {
			onTraffic()
		}
		msgs, err := osclink.Decode(dg.Data)
		if err != nil {
			l.logger.Debug("dropping undecodable daw packet", "error", err.Error())
			return
		}
		for _, msg := range msgs {
			l.router.Dispatch(msg)
		}
	})
}
