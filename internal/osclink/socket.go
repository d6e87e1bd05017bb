package osclink

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/hypebeast/go-osc/osc"
	"github.com/markermatic/markermatic/internal/lifecycle"
)

// RebindDelay is the fixed backoff between failed binds.
const RebindDelay = time.Second

// ErrNotBound is returned when sending before the socket is bound.
var ErrNotBound = errors.New("osc socket not bound")

// Socket keeps one Endpoint bound for the lifetime of a managed goroutine,
// rebinding after failures.
type Socket struct {
	mu sync.RWMutex
	ep *Endpoint
}

// Endpoint returns the bound endpoint or nil.
func (s *Socket) Endpoint() *Endpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ep
}

func (s *Socket) set(ep *Endpoint) {
	s.mu.Lock()
	s.ep = ep
	s.mu.Unlock()
}

// Send encodes msg to dst through the bound endpoint.
func (s *Socket) Send(dst *net.UDPAddr, msg *osc.Message) error {
	ep := s.Endpoint()
	if ep == nil {
		return ErrNotBound
	}
	return ep.Send(dst, msg)
}

// SendRaw writes data to dst through the bound endpoint.
func (s *Socket) SendRaw(dst *net.UDPAddr, data []byte) error {
	ep := s.Endpoint()
	if ep == nil {
		return ErrNotBound
	}
	return ep.SendRaw(dst, data)
}

// Run binds host:port and serves datagrams to fn until ctx ends.
// onBound, when set, runs after every successful bind.
func (s *Socket) Run(ctx context.Context, logger *slog.Logger, host string, port int, onBound func(), fn func(Datagram)) error {
	for ctx.Err() == nil {
		ep, err := Listen(host, port)
		if err != nil {
			logger.Warn("osc bind failed; retrying", "host", host, "port", port, "error", err.Error())
			if !lifecycle.Sleep(ctx, RebindDelay) {
				return nil
			}
			continue
		}

		s.set(ep)
		logger.Info("osc socket bound", "addr", ep.LocalAddr().String())
		if onBound != nil {
			onBound()
		}
		serveErr := ep.Serve(ctx, fn)
		s.set(nil)
		_ = ep.Close()

		if serveErr != nil {
			logger.Warn("osc socket failed; rebinding", "error", serveErr.Error())
			if !lifecycle.Sleep(ctx, RebindDelay) {
				return nil
			}
		}
	}
	return nil
}
