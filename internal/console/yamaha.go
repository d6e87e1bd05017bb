package console

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"github.com/markermatic/markermatic/internal/bus"
	"github.com/markermatic/markermatic/internal/config"
	"github.com/markermatic/markermatic/internal/cue"
	"github.com/markermatic/markermatic/internal/lifecycle"
)

const (
	yamahaPort        = 49280
	yamahaSceneNotify = "NOTIFY sscurrent_ex MIXER:Lib/Scene"
	yamahaSceneInfo   = "OK ssinfo_ex MIXER:Lib/Scene"
	yamahaProductName = "OK devinfo productname"
)

// Yamaha speaks the newline-delimited remote protocol of CL/QL/Rivage desks.
type Yamaha struct {
	deps   Deps
	logger *slog.Logger
	link   tcpLink

	host string
	port int
}

func newYamaha(deps Deps) *Yamaha {
	return &Yamaha{
		deps:   deps,
		logger: deps.Logger,
		host:   deps.Config.Console.IP,
		port:   yamahaPort,
	}
}

func (y *Yamaha) Type() string { return config.ConsoleYamaha }

func (y *Yamaha) Capabilities() cue.Capabilities { return cueNumberOnly }

func (y *Yamaha) Start(spawn lifecycle.SpawnFunc) {
	spawn("console_connection_thread", func(ctx context.Context) error {
		addr := net.JoinHostPort(y.host, strconv.Itoa(y.port))
		return y.link.run(ctx, y.logger, addr, func() { y.Heartbeat(ctx) }, y.serve)
	})
}

func (y *Yamaha) Heartbeat(context.Context) {
	if err := y.link.write([]byte("devinfo productname\n")); err != nil {
		y.logger.Debug("console heartbeat not sent", "error", err.Error())
	}
}

// maxYamahaLine bounds one unterminated line. Longer input is dropped up to
// the next newline.
const maxYamahaLine = 64 << 10

func (y *Yamaha) serve(ctx context.Context, conn net.Conn) error {
	var pending []byte
	discarding := false
	buf := make([]byte, 4096)
	for ctx.Err() == nil {
		n, err := readChunk(conn, buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			for {
				idx := bytes.IndexByte(pending, '\n')
				if idx < 0 {
					break
				}
				line := strings.TrimRight(string(pending[:idx]), "\r")
				pending = pending[idx+1:]
				if discarding {
					discarding = false
					continue
				}
				y.handleLine(line)
			}
			if len(pending) > maxYamahaLine {
				if !discarding {
					y.logger.Warn("dropping oversized console line", "bytes", len(pending))
				}
				pending = pending[:0]
				discarding = true
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (y *Yamaha) handleLine(line string) {
	defer recoverLoop(y.logger, "yamaha")
	y.deps.seen("")

	switch {
	case strings.HasPrefix(line, yamahaSceneNotify):
		fields := strings.Fields(line)
		id := fields[len(fields)-1]
		y.logger.Info("scene recalled", "scene_id", id)
		if err := y.link.write(fmt.Appendf(nil, "ssinfo_ex MIXER:Lib/Scene %s\n", id)); err != nil {
			y.logger.Warn("scene info request failed", "error", err.Error())
		}
	case strings.HasPrefix(line, yamahaSceneInfo):
		parts := strings.Split(line, `"`)
		if len(parts) < 4 {
			y.logger.Debug("malformed scene info", "line", line)
			return
		}
		y.deps.Bus.Publish(bus.CueLoaded{Cue: cue.Cue{Label: parts[1], Name: parts[3]}})
	case strings.HasPrefix(line, yamahaProductName):
		parts := strings.Split(line, `"`)
		if len(parts) >= 2 {
			y.deps.seen(parts[1])
		}
	}
}
