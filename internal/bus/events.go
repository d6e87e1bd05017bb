package bus

import "github.com/markermatic/markermatic/internal/cue"

const (
	TopicCueLoaded               Topic = "cue_loaded"
	TopicTransportRequested      Topic = "transport_requested"
	TopicPlaceMarker             Topic = "place_marker"
	TopicPlaybackModeChanged     Topic = "playback_mode_changed"
	TopicConsoleConnectionStatus Topic = "console_connection_status"
	TopicDawConnectionStatus     Topic = "daw_connection_status"
	TopicShutdownRequested       Topic = "shutdown_requested"
	TopicRequestDawRestart       Topic = "request_daw_restart"
)

// CueLoaded is published when a console recalls a snapshot, scene or cue.
type CueLoaded struct {
	Cue cue.Cue
}

func (CueLoaded) Topic() Topic { return TopicCueLoaded }

// TransportRequested asks the active DAW to play, stop or record.
type TransportRequested struct {
	Action cue.TransportAction
}

func (TransportRequested) Topic() Topic { return TopicTransportRequested }

// PlaceMarker asks the active DAW to drop a marker at the playhead.
type PlaceMarker struct {
	Name string
}

func (PlaceMarker) Topic() Topic { return TopicPlaceMarker }

// PlaybackModeChanged selects a new process-wide playback mode.
type PlaybackModeChanged struct {
	Mode cue.PlaybackMode
}

func (PlaybackModeChanged) Topic() Topic { return TopicPlaybackModeChanged }

// ConsoleConnectionStatus reports console liveness transitions.
type ConsoleConnectionStatus struct {
	Connected bool
	Label     string
}

func (ConsoleConnectionStatus) Topic() Topic { return TopicConsoleConnectionStatus }

// DawConnectionStatus reports DAW liveness transitions.
type DawConnectionStatus struct {
	Connected bool
	Label     string
}

func (DawConnectionStatus) Topic() Topic { return TopicDawConnectionStatus }

// ShutdownRequested tells every adapter loop the bridge is stopping.
type ShutdownRequested struct{}

func (ShutdownRequested) Topic() Topic { return TopicShutdownRequested }

// RequestDawRestart signals that vendor preparation changed the DAW's own
// configuration and the DAW application must be restarted to pick it up.
type RequestDawRestart struct {
	DAW string
}

func (RequestDawRestart) Topic() Topic { return TopicRequestDawRestart }
