package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/markermatic/markermatic/internal/cue"
	"github.com/markermatic/markermatic/internal/extcontrol"
	"github.com/markermatic/markermatic/internal/fsm"
	"github.com/markermatic/markermatic/internal/ipc"
)

// IPC command names.
const (
	CommandStatus    = "status"
	CommandReconnect = "reconnect"
	CommandMode      = "mode"
	CommandTransport = "transport"
	CommandMarker    = "marker"
)

var errNoReload = errors.New("no configuration source for reconnect")

// Handle serves IPC commands for a running bridge.
func (b *Bridge) Handle(_ context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case CommandStatus:
		s := b.Status()
		return ipc.Response{OK: true, State: string(s.State), Message: s.String()}
	case CommandReconnect:
		return b.handleReconnect()
	case CommandMode:
		return b.handleMode(req.Args)
	case CommandTransport:
		return b.handleTransport(req.Args)
	case CommandMarker:
		name := strings.TrimSpace(strings.Join(req.Args, " "))
		if name == "" {
			name = extcontrol.DefaultMarkerName
		}
		b.PlaceMarker(name)
		return b.ok(fmt.Sprintf("marker %q requested", name))
	default:
		return b.fail(fmt.Errorf("unknown command: %s", req.Command))
	}
}

func (b *Bridge) handleReconnect() ipc.Response {
	if b.reload == nil {
		return b.fail(errNoReload)
	}
	cfg, err := b.reload()
	if err != nil {
		return b.fail(fmt.Errorf("reload config: %w", err))
	}
	if err := b.Restart(cfg); err != nil {
		return b.fail(err)
	}
	return b.ok("bridge restarted")
}

func (b *Bridge) handleMode(args []string) ipc.Response {
	if len(args) != 1 {
		return b.fail(errors.New("mode requires exactly one argument"))
	}
	mode, err := cue.ParseMode(args[0])
	if err != nil {
		return b.fail(err)
	}
	b.SetMode(mode)
	return b.ok("mode " + string(mode))
}

func (b *Bridge) handleTransport(args []string) ipc.Response {
	if len(args) != 1 {
		return b.fail(errors.New("transport requires exactly one argument"))
	}
	action, err := cue.ParseTransportAction(args[0])
	if err != nil {
		return b.fail(err)
	}
	if b.State() != fsm.StateRunning {
		return b.fail(fmt.Errorf("bridge is %s", b.State()))
	}
	b.RequestTransport(action)
	return b.ok("transport " + string(action) + " requested")
}

func (b *Bridge) ok(message string) ipc.Response {
	return ipc.Response{OK: true, State: string(b.State()), Message: message}
}

func (b *Bridge) fail(err error) ipc.Response {
	return ipc.Response{OK: false, State: string(b.State()), Error: err.Error()}
}
