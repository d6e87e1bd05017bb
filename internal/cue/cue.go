// Package cue defines the show-control vocabulary shared by consoles and DAWs.
package cue

import (
	"fmt"
	"strings"
)

// Cue is one recalled console snapshot/scene, normalized across vendors.
type Cue struct {
	Label string
	Name  string
}

// String renders the composite marker name: "<label> <name>", or the bare name when unlabeled.
func (c Cue) String() string {
	label := strings.TrimSpace(c.Label)
	if label == "" {
		return c.Name
	}
	return label + " " + c.Name
}

// PlaybackMode decides how recalled cues are routed to the DAW.
type PlaybackMode string

const (
	ModeRecording       PlaybackMode = "Recording"
	ModePlaybackTrack   PlaybackMode = "PlaybackTrack"
	ModePlaybackNoTrack PlaybackMode = "PlaybackNoTrack"
)

// ParseMode accepts canonical mode names and the short aliases used by
// console macros and external controllers.
func ParseMode(raw string) (PlaybackMode, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer("_", "", "-", "", " ", "").Replace(key)
	switch key {
	case "recording", "rec", "record":
		return ModeRecording, nil
	case "playbacktrack", "track", "tracking", "pbtrack":
		return ModePlaybackTrack, nil
	case "playbacknotrack", "notrack", "notracking":
		return ModePlaybackNoTrack, nil
	default:
		return "", fmt.Errorf("unknown playback mode %q", raw)
	}
}

// TransportAction is a one-shot transport command.
type TransportAction string

const (
	ActionPlay   TransportAction = "play"
	ActionStop   TransportAction = "stop"
	ActionRecord TransportAction = "rec"
)

// ParseTransportAction accepts play, stop, rec and record (case-insensitive).
func ParseTransportAction(raw string) (TransportAction, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "play":
		return ActionPlay, nil
	case "stop":
		return ActionStop, nil
	case "rec", "record":
		return ActionRecord, nil
	default:
		return "", fmt.Errorf("unknown transport action %q", raw)
	}
}

// TransportState is the DAW-side transport state observed by an adapter.
type TransportState string

const (
	StateStopped   TransportState = "stopped"
	StateStopping  TransportState = "stopping"
	StatePlaying   TransportState = "playing"
	StateRecording TransportState = "recording"
)

// Playing reports whether the playhead is rolling, recording included.
func (s TransportState) Playing() bool {
	return s == StatePlaying || s == StateRecording
}

// Capability is a console variant feature flag.
type Capability string

const (
	CapCueNumber           Capability = "cue_number"
	CapRepeater            Capability = "repeater"
	CapSeparateReceivePort Capability = "separate_receive_port"
)

// Capabilities is the fixed feature set of one console variant.
type Capabilities []Capability

// Has reports whether c is present.
func (cs Capabilities) Has(c Capability) bool {
	for _, have := range cs {
		if have == c {
			return true
		}
	}
	return false
}

// ConnectionStatus is the last published liveness of one bridge role.
type ConnectionStatus struct {
	Connected bool
	Label     string
}

func (s ConnectionStatus) String() string {
	if !s.Connected {
		return "disconnected"
	}
	if s.Label == "" {
		return "connected"
	}
	return "connected (" + s.Label + ")"
}
