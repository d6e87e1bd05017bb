package config

import (
	"fmt"
	"net"
	"slices"
	"strings"

	"github.com/markermatic/markermatic/internal/cue"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if !slices.Contains(ConsoleTypes, cfg.Console.Type) {
		return nil, fmt.Errorf("console.type must be one of: %s", strings.Join(ConsoleTypes, ", "))
	}
	if !slices.Contains(DAWTypes, cfg.DAW.Type) {
		return nil, fmt.Errorf("daw.type must be one of: %s", strings.Join(DAWTypes, ", "))
	}
	if ip := net.ParseIP(strings.TrimSpace(cfg.Console.IP)); ip == nil || ip.To4() == nil {
		return nil, fmt.Errorf("console.ip must be an IPv4 address, got %q", cfg.Console.IP)
	}
	if err := validatePort("console.send_port", cfg.Console.SendPort); err != nil {
		return nil, err
	}
	if cfg.Console.Type == ConsoleDiGiCo {
		if err := validatePort("console.receive_port", cfg.Console.ReceivePort); err != nil {
			return nil, err
		}
	}

	switch cfg.DAW.Type {
	case DAWReaper, DAWArdour, DAWLiveTrax2:
		if strings.TrimSpace(cfg.DAW.IP) == "" {
			return nil, fmt.Errorf("daw.ip must not be empty")
		}
		if err := validatePort("daw.send_port", cfg.DAW.SendPort); err != nil {
			return nil, err
		}
		if err := validatePort("daw.receive_port", cfg.DAW.ReceivePort); err != nil {
			return nil, err
		}
	case DAWProTools, DAWBitwig:
		if err := validatePort("daw.send_port", cfg.DAW.SendPort); err != nil {
			return nil, err
		}
	}

	if cfg.Repeater.Enabled {
		if ip := net.ParseIP(strings.TrimSpace(cfg.Repeater.IP)); ip == nil {
			return nil, fmt.Errorf("repeater.ip must be an IP address, got %q", cfg.Repeater.IP)
		}
		if err := validatePort("repeater.send_port", cfg.Repeater.SendPort); err != nil {
			return nil, err
		}
		if err := validatePort("repeater.receive_port", cfg.Repeater.ReceivePort); err != nil {
			return nil, err
		}
	}

	if _, err := cue.ParseMode(cfg.InitialMode); err != nil {
		return nil, fmt.Errorf("mode: %w", err)
	}

	if cfg.ExternalControl.OSCPort != 0 {
		if err := validatePort("external_control.osc_port", cfg.ExternalControl.OSCPort); err != nil {
			return nil, err
		}
	}

	hb := cfg.Heartbeat
	if hb.TickMS <= 0 {
		return nil, fmt.Errorf("heartbeat.tick_ms must be > 0")
	}
	if hb.ProbeEvery <= 0 {
		return nil, fmt.Errorf("heartbeat.probe_every must be > 0")
	}
	if hb.NudgeAfter <= 0 || hb.TimeoutAfter <= 0 {
		return nil, fmt.Errorf("heartbeat.nudge_after and heartbeat.timeout_after must be > 0")
	}
	if hb.NudgeAfter >= hb.TimeoutAfter {
		return nil, fmt.Errorf("heartbeat.nudge_after (%d) must be less than heartbeat.timeout_after (%d)", hb.NudgeAfter, hb.TimeoutAfter)
	}
	if cfg.ShutdownTimeout < 0 {
		return nil, fmt.Errorf("shutdown_timeout_ms must be >= 0")
	}

	if cfg.NameOnlyMatch && cfg.Console.Type == ConsoleStuderVista {
		warnings = append(warnings, Warning{Message: "name_only_match is ignored for Studer Vista, which has no cue numbers"})
	}
	if !cfg.ExternalControl.MMCEnabled && strings.TrimSpace(cfg.ExternalControl.MIDIPort) != "" {
		warnings = append(warnings, Warning{Message: "external_control.midi_port is set but mmc_enabled is false; MIDI input is ignored"})
	}

	return warnings, nil
}

func validatePort(name string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s must be in 1..65535, got %d", name, port)
	}
	return nil
}
