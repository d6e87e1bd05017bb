package console

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/hypebeast/go-osc/osc"
	"github.com/markermatic/markermatic/internal/bus"
	"github.com/markermatic/markermatic/internal/config"
	"github.com/markermatic/markermatic/internal/cue"
	"github.com/markermatic/markermatic/internal/lifecycle"
	"github.com/markermatic/markermatic/internal/osclink"
)

const x32Port = 10023

// x32ShowMode is the console's show control mode.
type x32ShowMode int

const (
	x32ModeCue x32ShowMode = iota
	x32ModeScene
	x32ModeSnippet
)

func (m x32ShowMode) String() string {
	switch m {
	case x32ModeScene:
		return "scene"
	case x32ModeSnippet:
		return "snippet"
	default:
		return "cue"
	}
}

func parseX32ShowMode(s string) (x32ShowMode, bool) {
	switch s {
	case "cue":
		return x32ModeCue, true
	case "scene":
		return x32ModeScene, true
	case "snippet":
		return x32ModeSnippet, true
	default:
		return 0, false
	}
}

// X32 follows the show position of a Behringer X32 / Midas M32.
type X32 struct {
	deps   Deps
	logger *slog.Logger
	router osclink.Router
	sock   osclink.Socket

	host string
	port int

	mu       sync.Mutex
	mode     x32ShowMode
	position int
	cueLabel string
}

func newX32(deps Deps) *X32 {
	x := &X32{
		deps:     deps,
		logger:   deps.Logger,
		host:     deps.Config.Console.IP,
		port:     x32Port,
		position: -1,
	}
	x.router.Handle("/-prefs/show_control", x.onShowControl)
	x.router.Handle("/-show/prepos/current", x.onPosition)
	x.router.Handle("/-show/showfile/cue/*/numb", x.onCueNumber)
	x.router.Handle("/-show/showfile/*/*/name", x.onName)
	x.router.Handle("/xinfo", x.onInfo)
	return x
}

func (x *X32) Type() string { return config.ConsoleX32 }

func (x *X32) Capabilities() cue.Capabilities { return cueNumberOnly }

func (x *X32) Start(spawn lifecycle.SpawnFunc) {
	spawn("console_connection_thread", func(ctx context.Context) error {
		return x.sock.Run(ctx, x.logger, "0.0.0.0", 0, func() { x.Heartbeat(ctx) }, x.onDatagram)
	})
}

// Heartbeat renews the /xremote subscription, which the console drops
// after ten seconds.
func (x *X32) Heartbeat(context.Context) {
	x.send(osc.NewMessage("/xinfo"))
	x.send(osc.NewMessage("/xremote"))
	x.send(osc.NewMessage("/-prefs/show_control"))
}

func (x *X32) send(msg *osc.Message) {
	if err := x.sock.Send(udpAddr(x.host, x.port), msg); err != nil {
		x.logger.Warn("console send failed", "address", msg.Address, "error", err.Error())
	}
}

func (x *X32) onDatagram(dg osclink.Datagram) {
	defer recoverLoop(x.logger, "x32")
	// Any datagram proves the console is alive, decodable or not.
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

func (x *X32) onShowControl(msg *osc.Message) {
	n, ok := osclink.Int(msg, 0)
	if !ok || n < int(x32ModeCue) || n > int(x32ModeSnippet) {
		return
	}
	x.mu.Lock()
	x.mode = x32ShowMode(n)
	x.mu.Unlock()
}

func (x *X32) onPosition(msg *osc.Message) {
	idx, ok := osclink.Int(msg, 0)
	if !ok {
		return
	}
	x.mu.Lock()
	x.position = idx
	x.cueLabel = ""
	mode := x.mode
	x.mu.Unlock()

	if mode == x32ModeCue {
		x.send(osc.NewMessage(fmt.Sprintf("/-show/showfile/cue/%03d/numb", idx)))
	}
	if idx != -1 {
		x.send(osc.NewMessage(fmt.Sprintf("/-show/showfile/%s/%03d/name", mode, idx)))
	}
}

func (x *X32) onCueNumber(msg *osc.Message) {
	n, ok := osclink.Int(msg, 0)
	if !ok {
		return
	}
	x.mu.Lock()
	x.cueLabel = x32CueLabel(n)
	x.mu.Unlock()
}

func (x *X32) onName(msg *osc.Message) {
	parts := strings.Split(msg.Address, "/")
	if len(parts) != 6 {
		return
	}
	addrMode, ok := parseX32ShowMode(parts[3])
	if !ok {
		return
	}
	name, ok := osclink.String(msg, 0)
	if !ok {
		return
	}

	x.mu.Lock()
	mode, position, label := x.mode, x.position, x.cueLabel
	x.mu.Unlock()

	if addrMode != mode || position == -1 {
		return
	}
	if mode != x32ModeCue || label == "" {
		label = strconv.Itoa(position)
	}
	x.deps.Bus.Publish(bus.CueLoaded{Cue: cue.Cue{Label: label, Name: name}})
}

func (x *X32) onInfo(msg *osc.Message) {
	if name, ok := osclink.String(msg, 1); ok {
		x.deps.seen(name)
	}
}

// x32CueLabel renders the console's MMMPS cue number as M, M.P or M.P.S.
func x32CueLabel(n int) string {
	major, point, sub := n/100, (n/10)%10, n%10
	switch {
	case sub != 0:
		return fmt.Sprintf("%d.%d.%d", major, point, sub)
	case point != 0:
		return fmt.Sprintf("%d.%d", major, point)
	default:
		return strconv.Itoa(major)
	}
}
