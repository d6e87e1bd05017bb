package console

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/hypebeast/go-osc/osc"
	"github.com/markermatic/markermatic/internal/bus"
	"github.com/markermatic/markermatic/internal/config"
	"github.com/markermatic/markermatic/internal/cue"
	"github.com/markermatic/markermatic/internal/lifecycle"
	"github.com/markermatic/markermatic/internal/osclink"
)

const xairPort = 10024

// XAir follows snapshot recalls on a Behringer X Air / Midas MR mixer.
type XAir struct {
	deps   Deps
	logger *slog.Logger
	router osclink.Router
	sock   osclink.Socket

	host string
	port int

	mu   sync.Mutex
	name string
}

func newXAir(deps Deps) *XAir {
	x := &XAir{
		deps:   deps,
		logger: deps.Logger,
		host:   deps.Config.Console.IP,
		port:   xairPort,
	}
	x.router.Handle("/-snap/name", x.onSnapshotName)
	x.router.Handle("/-snap/index", x.onSnapshotIndex)
	x.router.Handle("/xinfo", x.onInfo)
	return x
}

func (x *XAir) Type() string { return config.ConsoleXAir }

func (x *XAir) Capabilities() cue.Capabilities { return cueNumberOnly }

func (x *XAir) Start(spawn lifecycle.SpawnFunc) {
	spawn("console_connection_thread", func(ctx context.Context) error {
		return x.sock.Run(ctx, x.logger, "0.0.0.0", 0, func() { x.Heartbeat(ctx) }, x.onDatagram)
	})
}

func (x *XAir) Heartbeat(context.Context) {
	for _, addr := range []string{"/xinfo", "/xremotenfb"} {
		if err := x.sock.Send(udpAddr(x.host, x.port), osc.NewMessage(addr)); err != nil {
			x.logger.Warn("console send failed", "address", addr, "error", err.Error())
		}
	}
}

func (x *XAir) onDatagram(dg osclink.Datagram) {
	defer recoverLoop(x.logger, "xair")
	x.deps.seen("")
	msgs, err := osclink.Decode(dg.Data)
	if err != nil {
		x.logger.Debug("dropping undecodable console packet", "error", err.Error())
		return
	}
	for _, msg := range msgs {
		x.router.Dispatch(msg)
	}
}

func (x *XAir) onSnapshotName(msg *osc.Message) {
	name, ok := osclink.String(msg, 0)
	if !ok {
		return
	}
	x.mu.Lock()
	x.name = name
	x.mu.Unlock()
}

func (x *XAir) onSnapshotIndex(msg *osc.Message) {
	idx, ok := osclink.Int(msg, 0)
	if !ok {
		return
	}
	x.mu.Lock()
	name := x.name
	x.mu.Unlock()
	x.deps.Bus.Publish(bus.CueLoaded{Cue: cue.Cue{Label: strconv.Itoa(idx), Name: name}})
}

func (x *XAir) onInfo(msg *osc.Message) {
	if name, ok := osclink.String(msg, 1); ok {
		x.deps.seen(name)
	}
}
