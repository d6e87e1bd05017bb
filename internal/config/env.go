package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

const envPrefix = "MARKERMATIC_"

// envOverrides holds optional MARKERMATIC_* values; nil means unset.
type envOverrides struct {
	ConsoleType        *string `env:"CONSOLE_TYPE"`
	ConsoleIP          *string `env:"CONSOLE_IP"`
	ConsoleSendPort    *int    `env:"CONSOLE_SEND_PORT"`
	ConsoleReceivePort *int    `env:"CONSOLE_RECEIVE_PORT"`

	DAWType        *string `env:"DAW_TYPE"`
	DAWIP          *string `env:"DAW_IP"`
	DAWSendPort    *int    `env:"DAW_SEND_PORT"`
	DAWReceivePort *int    `env:"DAW_RECEIVE_PORT"`

	RepeaterEnabled     *bool   `env:"REPEATER_ENABLED"`
	RepeaterIP          *string `env:"REPEATER_IP"`
	RepeaterSendPort    *int    `env:"REPEATER_SEND_PORT"`
	RepeaterReceivePort *int    `env:"REPEATER_RECEIVE_PORT"`

	NameOnlyMatch *bool   `env:"NAME_ONLY_MATCH"`
	Mode          *string `env:"MODE"`

	OSCPort    *int    `env:"OSC_PORT"`
	MIDIPort   *string `env:"MIDI_PORT"`
	MMCEnabled *bool   `env:"MMC_ENABLED"`
}

// applyEnv overlays MARKERMATIC_* environment variables on cfg.
func applyEnv(cfg *Config) error {
	var raw envOverrides
	if err := env.ParseWithOptions(&raw, env.Options{Prefix: envPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	setString(&cfg.Console.Type, raw.ConsoleType)
	setString(&cfg.Console.IP, raw.ConsoleIP)
	setInt(&cfg.Console.SendPort, raw.ConsoleSendPort)
	setInt(&cfg.Console.ReceivePort, raw.ConsoleReceivePort)

	if raw.DAWType != nil {
		cfg.DAW.Type = strings.TrimSpace(*raw.DAWType)
		if raw.DAWSendPort == nil && raw.DAWReceivePort == nil {
			cfg.DAW.SendPort, cfg.DAW.ReceivePort = DAWPortDefaults(cfg.DAW.Type)
		}
	}
	setString(&cfg.DAW.IP, raw.DAWIP)
	setInt(&cfg.DAW.SendPort, raw.DAWSendPort)
	setInt(&cfg.DAW.ReceivePort, raw.DAWReceivePort)

	setBool(&cfg.Repeater.Enabled, raw.RepeaterEnabled)
	setString(&cfg.Repeater.IP, raw.RepeaterIP)
	setInt(&cfg.Repeater.SendPort, raw.RepeaterSendPort)
	setInt(&cfg.Repeater.ReceivePort, raw.RepeaterReceivePort)

	setBool(&cfg.NameOnlyMatch, raw.NameOnlyMatch)
	setString(&cfg.InitialMode, raw.Mode)

	setInt(&cfg.ExternalControl.OSCPort, raw.OSCPort)
	setString(&cfg.ExternalControl.MIDIPort, raw.MIDIPort)
	setBool(&cfg.ExternalControl.MMCEnabled, raw.MMCEnabled)
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
