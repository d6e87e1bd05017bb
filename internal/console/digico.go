package console

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/hypebeast/go-osc/osc"
	"github.com/markermatic/markermatic/internal/bus"
	"github.com/markermatic/markermatic/internal/config"
	"github.com/markermatic/markermatic/internal/cue"
	"github.com/markermatic/markermatic/internal/lifecycle"
	"github.com/markermatic/markermatic/internal/netutil"
	"github.com/markermatic/markermatic/internal/osclink"
)

// DiGiCo speaks the DiGiCo OSC dialect and optionally repeats traffic for
// an iPad tablet that cannot talk to the console directly.
type DiGiCo struct {
	deps   Deps
	logger *slog.Logger
	router osclink.Router

	console  osclink.Socket
	repeater osclink.Socket

	bindHost     string
	consoleAddr  *net.UDPAddr
	repeaterAddr *net.UDPAddr

	mu              sync.Mutex
	pendingMacro    int
	hasPendingMacro bool
}

func newDiGiCo(deps Deps) *DiGiCo {
	cfg := deps.Config
	d := &DiGiCo{
		deps:        deps,
		logger:      deps.Logger,
		bindHost:    netutil.BindHost(cfg.Console.IP),
		consoleAddr: udpAddr(cfg.Console.IP, cfg.Console.SendPort),
	}
	if cfg.Repeater.Enabled {
		d.repeaterAddr = udpAddr(cfg.Repeater.IP, cfg.Repeater.SendPort)
	}

	d.router.Handle("/Snapshots/Recall_Snapshot/*", d.onRecallSnapshot)
	d.router.Handle("/Snapshots/name", d.onSnapshotName)
	d.router.Handle("/Macros/Recall_Macro/*", d.onRecallMacro)
	d.router.Handle("/Macros/name", d.onMacroName)
	d.router.Handle("/Console/Name", d.onConsoleName)
	d.router.Handle("/ConsoleDawLink/Play", func(*osc.Message) { d.publishTransport(cue.ActionPlay) })
	d.router.Handle("/ConsoleDawLink/Stop", func(*osc.Message) { d.publishTransport(cue.ActionStop) })
	d.router.Handle("/ConsoleDawLink/Rec", func(*osc.Message) { d.publishTransport(cue.ActionRecord) })
	d.router.Handle("/ConsoleDawLink/Marker", d.onMarker)
	return d
}

func (d *DiGiCo) Type() string { return config.ConsoleDiGiCo }

func (d *DiGiCo) Capabilities() cue.Capabilities { return digicoCaps }

func (d *DiGiCo) Start(spawn lifecycle.SpawnFunc) {
	spawn("console_connection_thread", func(ctx context.Context) error {
		return d.console.Run(ctx, d.logger, d.bindHost, d.deps.Config.Console.ReceivePort, nil, d.onConsoleDatagram)
	})
	if d.repeaterAddr != nil {
		spawn("repeater_osc_thread", func(ctx context.Context) error {
			return d.repeater.Run(ctx, d.logger, d.bindHost, d.deps.Config.Repeater.ReceivePort, nil, d.onRepeaterDatagram)
		})
	}
}

func (d *DiGiCo) Heartbeat(context.Context) {
	d.send(osc.NewMessage("/Console/Name/?"))
}

func (d *DiGiCo) send(msg *osc.Message) {
	if err := d.console.Send(d.consoleAddr, msg); err != nil {
		d.logger.Warn("console send failed", "address", msg.Address, "error", err.Error())
	}
}

func (d *DiGiCo) onConsoleDatagram(dg osclink.Datagram) {
	defer recoverLoop(d.logger, "digico")
	d.deps.seen("")

	msgs, err := osclink.Decode(dg.Data)
	if d.repeaterAddr != nil && (err != nil || !allLocalOnly(msgs)) {
		if fwdErr := d.repeater.SendRaw(d.repeaterAddr, osclink.PadPacket(dg.Data)); fwdErr != nil {
			d.logger.Debug("repeat to tablet failed", "error", fwdErr.Error())
		}
	}
	if err != nil {
		d.logger.Debug("dropping undecodable console packet", "error", err.Error())
		return
	}
	for _, msg := range msgs {
		d.router.Dispatch(msg)
	}
}

// onRepeaterDatagram forwards tablet traffic to the console byte for byte.
func (d *DiGiCo) onRepeaterDatagram(dg osclink.Datagram) {
	defer recoverLoop(d.logger, "digico repeater")

	data := osclink.PadPacket(dg.Data)
	if msgs, err := osclink.Decode(data); err != nil {
		d.logger.Debug("forwarding opaque tablet packet", "bytes", len(data), "error", err.Error())
	} else if len(msgs) > 0 {
		d.logger.Debug("forwarding tablet packet", "address", msgs[0].Address)
	}

	sock := &d.console
	if sock.Endpoint() == nil {
		sock = &d.repeater
	}
	if err := sock.SendRaw(d.consoleAddr, data); err != nil {
		d.logger.Warn("forward to console failed", "error", err.Error())
	}
}

// allLocalOnly reports whether every message is consumed by the bridge
// and must not reach the tablet.
func allLocalOnly(msgs []*osc.Message) bool {
	if len(msgs) == 0 {
		return false
	}
	for _, msg := range msgs {
		if !strings.HasPrefix(msg.Address, "/Macros/Recall_Macro/") &&
			!strings.HasPrefix(msg.Address, "/ConsoleDawLink/") {
			return false
		}
	}
	return true
}

func (d *DiGiCo) onRecallSnapshot(msg *osc.Message) {
	n, ok := lastSegmentInt(msg.Address)
	if !ok {
		d.logger.Debug("snapshot recall without number", "address", msg.Address)
		return
	}
	d.logger.Info("requested snapshot info", "snapshot", n)
	d.send(osc.NewMessage("/Snapshots/name/?", int32(n)))
}

func (d *DiGiCo) onSnapshotName(msg *osc.Message) {
	number, okNum := osclink.Float(msg, 1)
	name, okName := osclink.String(msg, 3)
	if !okNum || !okName {
		d.logger.Debug("malformed snapshot name reply", "args", len(msg.Arguments))
		return
	}
	d.deps.Bus.Publish(bus.CueLoaded{Cue: cue.Cue{
		Label: fmt.Sprintf("%.2f", number/100),
		Name:  name,
	}})
}

func (d *DiGiCo) onRecallMacro(msg *osc.Message) {
	n, ok := lastSegmentInt(msg.Address)
	if !ok {
		return
	}
	d.mu.Lock()
	d.pendingMacro = n
	d.hasPendingMacro = true
	d.mu.Unlock()
	d.send(osc.NewMessage("/Macros/name/?", int32(n)))
}

func (d *DiGiCo) onMacroName(msg *osc.Message) {
	n, okNum := osclink.Int(msg, 0)
	name, okName := osclink.String(msg, 1)

	d.mu.Lock()
	matched := d.hasPendingMacro && okNum && n == d.pendingMacro
	d.hasPendingMacro = false
	d.mu.Unlock()

	if !matched || !okName {
		return
	}

	act := classifyMacro(name)
	switch act.kind {
	case macroTransport:
		d.publishTransport(act.action)
	case macroMarker:
		d.deps.Bus.Publish(bus.PlaceMarker{Name: MarkerFromConsole})
	case macroMode:
		d.deps.Bus.Publish(bus.PlaybackModeChanged{Mode: act.mode})
	default:
		d.logger.Debug("macro not mapped", "macro", n, "name", name)
	}
}

func (d *DiGiCo) onConsoleName(msg *osc.Message) {
	if name, ok := osclink.String(msg, 0); ok {
		d.deps.seen(name)
	}
}

func (d *DiGiCo) onMarker(msg *osc.Message) {
	name := MarkerFromConsole
	if len(msg.Arguments) > 0 {
		name = fmt.Sprint(msg.Arguments[0])
	}
	d.deps.Bus.Publish(bus.PlaceMarker{Name: name})
}

func (d *DiGiCo) publishTransport(action cue.TransportAction) {
	d.deps.Bus.Publish(bus.TransportRequested{Action: action})
}

func lastSegmentInt(address string) (int, bool) {
	idx := strings.LastIndex(address, "/")
	n, err := strconv.Atoi(address[idx+1:])
	return n, err == nil
}

func udpAddr(ip string, port int) *net.UDPAddr {
	return &net.UDPAddr{IP: net.ParseIP(ip), Port: port}
}
