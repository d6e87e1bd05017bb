// Package doctor runs readiness diagnostics for config, network ports, and DAW endpoints.
package doctor

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/markermatic/markermatic/internal/config"
	"github.com/markermatic/markermatic/internal/console"
	"github.com/markermatic/markermatic/internal/cue"
	"github.com/markermatic/markermatic/internal/daw"
	"github.com/markermatic/markermatic/internal/netutil"
	"github.com/markermatic/markermatic/internal/ptsl"
	"github.com/markermatic/markermatic/internal/py4j"
)

const probeTimeout = 2 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes config, network and DAW checks for a loaded config.
func Run(loaded config.Loaded) Report {
	cfg := loaded.Config
	checks := []Check{}

	message := fmt.Sprintf("loaded %q", loaded.Path)
	if !loaded.Exists {
		message = fmt.Sprintf("using defaults; %q not found", loaded.Path)
	}
	checks = append(checks, Check{Name: "config", Pass: true, Message: message})

	checks = append(checks, checkConsoleSubnet(cfg.Console.IP))

	caps, _ := console.CapabilitiesOf(cfg.Console.Type)
	if caps.Has(cue.CapSeparateReceivePort) {
		checks = append(checks, checkUDPBind("console.receive_port", netutil.BindHost(cfg.Console.IP), cfg.Console.ReceivePort))
	} else {
		checks = append(checks, Check{
			Name:    "console.receive_port",
			Pass:    true,
			Message: fmt.Sprintf("%s replies on the send socket", cfg.Console.Type),
		})
	}
	if cfg.Repeater.Enabled && caps.Has(cue.CapRepeater) {
		checks = append(checks, checkUDPBind("repeater.receive_port", netutil.BindHost(cfg.Console.IP), cfg.Repeater.ReceivePort))
	}

	if cfg.ExternalControl.OSCPort != 0 {
		checks = append(checks, checkUDPBind("external_control.osc_port", "0.0.0.0", cfg.ExternalControl.OSCPort))
	}

	checks = append(checks, checkDAW(cfg.DAW)...)
	return Report{Checks: checks}
}

// checkConsoleSubnet confirms a local interface shares the console's network.
func checkConsoleSubnet(ip string) Check {
	host, err := netutil.LocalIPInSubnet(ip)
	if err != nil {
		return Check{Name: "console.subnet", Pass: false, Message: err.Error()}
	}
	if host == "" {
		return Check{Name: "console.subnet", Pass: false, Message: fmt.Sprintf("no local interface on the subnet of %s", ip)}
	}
	return Check{Name: "console.subnet", Pass: true, Message: fmt.Sprintf("local interface %s reaches %s", host, ip)}
}

// checkUDPBind verifies nothing else holds a receive port.
func checkUDPBind(name, host string, port int) Check {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("cannot bind %s: %v", addr, err)}
	}
	_ = conn.Close()
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("%s is free", addr)}
}

func checkDAW(cfg config.DAWConfig) []Check {
	addr := net.JoinHostPort(cfg.IP, strconv.Itoa(cfg.SendPort))
	switch cfg.Type {
	case config.DAWReaper, config.DAWArdour, config.DAWLiveTrax2:
		return []Check{checkUDPBind("daw.receive_port", "127.0.0.1", cfg.ReceivePort)}
	case config.DAWAudacity:
		to, from := daw.AudacityPipePaths()
		return []Check{checkFIFO("audacity.pipe_to", to), checkFIFO("audacity.pipe_from", from)}
	case config.DAWProTools:
		return []Check{checkProTools(addr)}
	case config.DAWBitwig:
		return []Check{checkBitwig(addr)}
	default:
		return []Check{{Name: "daw", Pass: false, Message: fmt.Sprintf("unknown daw type %q", cfg.Type)}}
	}
}

// checkFIFO validates that mod-script-pipe created its named pipe.
func checkFIFO(name, path string) Check {
	info, err := os.Stat(path)
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("%s missing; enable mod-script-pipe in Audacity", path)}
	}
	if info.Mode()&os.ModeNamedPipe == 0 {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("%s is not a named pipe", path)}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("found %s", path)}
}

// checkProTools waits for the PTSL gRPC channel to become ready.
func checkProTools(addr string) Check {
	client, err := ptsl.Dial(context.Background(), addr, probeTimeout)
	if err != nil {
		return Check{Name: "protools.ptsl", Pass: false, Message: err.Error()}
	}
	_ = client.Close()
	return Check{Name: "protools.ptsl", Pass: true, Message: fmt.Sprintf("ready at %s", addr)}
}

// checkBitwig opens a gateway connection.
func checkBitwig(addr string) Check {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	client, err := py4j.Dial(ctx, addr)
	if err != nil {
		return Check{Name: "bitwig.gateway", Pass: false, Message: err.Error()}
	}
	_ = client.Close()
	return Check{Name: "bitwig.gateway", Pass: true, Message: fmt.Sprintf("reachable at %s", addr)}
}
