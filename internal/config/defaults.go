package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Console: ConsoleConfig{
			Type:        ConsoleDiGiCo,
			IP:          "10.10.10.1",
			SendPort:    8001,
			ReceivePort: 8000,
		},
		DAW: DAWConfig{
			Type:        DAWReaper,
			IP:          "127.0.0.1",
			SendPort:    49102,
			ReceivePort: 49101,
		},
		Repeater: RepeaterConfig{
			Enabled:     false,
			IP:          "10.10.10.10",
			SendPort:    9999,
			ReceivePort: 9998,
		},
		NameOnlyMatch: false,
		InitialMode:   "PlaybackTrack",
		ExternalControl: ExternalControlConfig{
			OSCPort:    48428,
			MMCEnabled: true,
		},
		Heartbeat: HeartbeatConfig{
			TickMS:       1000,
			ProbeEvery:   1,
			NudgeAfter:   3,
			TimeoutAfter: 8,
		},
		ShutdownTimeout: 3000,
	}
}

// DAWPortDefaults returns the conventional send/receive ports for a DAW selector.
func DAWPortDefaults(dawType string) (send, receive int) {
	switch dawType {
	case DAWArdour, DAWLiveTrax2:
		return 3819, 3820
	case DAWProTools:
		return 31416, 0
	case DAWBitwig:
		return 25333, 0
	case DAWAudacity:
		return 0, 0
	default:
		return 49102, 49101
	}
}
