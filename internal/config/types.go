// Package config resolves, parses, validates, and defaults markermatic configuration.
package config

// Console selectors accepted in console.type.
const (
	ConsoleDiGiCo      = "DiGiCo"
	ConsoleX32         = "Behringer X32"
	ConsoleXAir        = "Behringer X Air"
	ConsoleYamaha      = "Yamaha"
	ConsoleStuderVista = "Studer Vista"
)

// DAW selectors accepted in daw.type.
const (
	DAWReaper    = "Reaper"
	DAWProTools  = "ProTools"
	DAWArdour    = "Ardour"
	DAWBitwig    = "Bitwig"
	DAWAudacity  = "Audacity"
	DAWLiveTrax2 = "LiveTrax2"
)

// ConsoleTypes lists every console selector in display order.
var ConsoleTypes = []string{ConsoleDiGiCo, ConsoleX32, ConsoleXAir, ConsoleYamaha, ConsoleStuderVista}

// DAWTypes lists every DAW selector in display order.
var DAWTypes = []string{DAWReaper, DAWProTools, DAWArdour, DAWBitwig, DAWAudacity, DAWLiveTrax2}

// Config is the immutable snapshot handed to the bridge at Start/Restart.
type Config struct {
	Console         ConsoleConfig
	DAW             DAWConfig
	Repeater        RepeaterConfig
	NameOnlyMatch   bool
	InitialMode     string
	ExternalControl ExternalControlConfig
	Heartbeat       HeartbeatConfig
	ShutdownTimeout int
}

// ConsoleConfig addresses the live-sound console.
type ConsoleConfig struct {
	Type        string
	IP          string
	SendPort    int
	ReceivePort int
}

// DAWConfig addresses the recorder. Ports are only used by network DAWs.
type DAWConfig struct {
	Type        string
	IP          string
	SendPort    int
	ReceivePort int
}

// RepeaterConfig controls the DiGiCo tablet forwarder.
type RepeaterConfig struct {
	Enabled     bool
	IP          string
	SendPort    int
	ReceivePort int
}

// ExternalControlConfig controls the OSC and MIDI control inputs.
type ExternalControlConfig struct {
	OSCPort    int
	MIDIPort   string
	MMCEnabled bool
}

// HeartbeatConfig tunes the liveness monitor. Counts are in ticks.
type HeartbeatConfig struct {
	TickMS       int
	ProbeEvery   int
	NudgeAfter   int
	TimeoutAfter int
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
