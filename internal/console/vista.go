package console

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync/atomic"
	"unicode/utf8"

	ber "github.com/go-asn1-ber/asn1-ber"
	"github.com/markermatic/markermatic/internal/bus"
	"github.com/markermatic/markermatic/internal/config"
	"github.com/markermatic/markermatic/internal/cue"
	"github.com/markermatic/markermatic/internal/lifecycle"
)

// lastRecalledLabel is the parameter description the console echoes next
// to every snapshot name.
const lastRecalledLabel = "Last Recalled Snapshot"

var (
	vistaSubscribe = []byte{
		0x7f, 0x8f, 0xff, 0xfe, 0xd9, 0x5c, 0x80, 0x30, 0x80, 0xa1, 0x18, 0x31, 0x16, 0xa2, 0x14, 0x31,
		0x12, 0xa1, 0x10, 0x31, 0x0e, 0xa1, 0x0c, 0x31, 0x0a, 0xe4, 0x08, 0x31, 0x06, 0x7f, 0x20, 0x03,
		0x02, 0x01, 0x01, 0x00, 0x00, 0x00, 0x00,
	}
	vistaKeepAlive = []byte{0x7f, 0x8f, 0xff, 0xfe, 0xd9, 0x5c, 0x80, 0x30, 0x80, 0x00, 0x00, 0x00, 0x00}
)

// Vista reads snapshot recalls from a Studer Vista over its Ember+ tree.
type Vista struct {
	deps   Deps
	logger *slog.Logger
	link   tcpLink

	subscribed atomic.Bool
}

func newVista(deps Deps) *Vista {
	return &Vista{deps: deps, logger: deps.Logger}
}

func (v *Vista) Type() string { return config.ConsoleStuderVista }

func (v *Vista) Capabilities() cue.Capabilities { return cue.Capabilities{} }

func (v *Vista) Start(spawn lifecycle.SpawnFunc) {
	spawn("console_connection_thread", func(ctx context.Context) error {
		cfg := v.deps.Config.Console
		addr := net.JoinHostPort(cfg.IP, strconv.Itoa(cfg.SendPort))
		return v.link.run(ctx, v.logger, addr, func() {
			v.subscribed.Store(false)
			v.Heartbeat(ctx)
		}, v.serve)
	})
}

// Heartbeat resends the subscription until the console answers, then
// switches to the short keep-alive.
func (v *Vista) Heartbeat(context.Context) {
	payload := vistaKeepAlive
	if !v.subscribed.Load() {
		payload = vistaSubscribe
	}
	if err := v.link.write(payload); err != nil {
		v.logger.Debug("console heartbeat not sent", "error", err.Error())
	}
}

func (v *Vista) serve(ctx context.Context, conn net.Conn) error {
	buf := make([]byte, 64*1024)
	for ctx.Err() == nil {
		n, err := readChunk(conn, buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			v.handleChunk(chunk)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (v *Vista) handleChunk(chunk []byte) {
	defer recoverLoop(v.logger, "vista")
	v.deps.seen("")

	packet, err := ber.DecodePacketErr(chunk)
	if err != nil {
		v.logger.Debug("dropping undecodable ember frame", "bytes", len(chunk), "error", err.Error())
		return
	}
	leaves := flattenLeaves(packet, nil)
	if len(leaves) == 0 {
		return
	}
	v.subscribed.Store(true)

	payload := leaves[len(leaves)-1]
	if payload == lastRecalledLabel {
		return
	}
	v.deps.Bus.Publish(bus.CueLoaded{Cue: cue.Cue{Name: payload}})
}

// flattenLeaves walks the tree depth first and collects non-empty leaf values.
func flattenLeaves(p *ber.Packet, out []string) []string {
	if p == nil {
		return out
	}
	if len(p.Children) > 0 {
		for _, child := range p.Children {
			out = flattenLeaves(child, out)
		}
		return out
	}
	if s, ok := leafString(p); ok {
		out = append(out, s)
	}
	return out
}

func leafString(p *ber.Packet) (string, bool) {
	switch v := p.Value.(type) {
	case string:
		return v, v != ""
	case int64:
		return strconv.FormatInt(v, 10), v != 0
	case bool:
		return "true", v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), v != 0
	case nil:
	default:
		return fmt.Sprint(v), true
	}
	if p.ClassType != ber.ClassUniversal && p.Data != nil && p.Data.Len() > 0 {
		raw := p.Data.Bytes()
		if utf8.Valid(raw) {
			return string(raw), true
		}
	}
	return "", false
}
