package ptsl

import "strconv"

// Command is a PTSL CommandId.
type Command int32

// Command IDs used by the bridge. Values follow PTSL.proto.
const (
	CommandHostReadyCheck       Command = 55
	CommandGetMemoryLocations   Command = 61
	CommandTogglePlayState      Command = 64
	CommandToggleRecordEnable   Command = 65
	CommandGetTransportArmed    Command = 69
	CommandRegisterConnection   Command = 70
	CommandCreateMemoryLocation Command = 71
	CommandGetTransportState    Command = 72
	CommandGetSessionLength     Command = 82
	CommandSetTimelineSelection Command = 84
)

var commandNames = map[Command]string{
	CommandHostReadyCheck:       "HostReadyCheck",
	CommandGetMemoryLocations:   "GetMemoryLocations",
	CommandTogglePlayState:      "TogglePlayState",
	CommandToggleRecordEnable:   "ToggleRecordEnable",
	CommandGetTransportArmed:    "GetTransportArmed",
	CommandRegisterConnection:   "RegisterConnection",
	CommandCreateMemoryLocation: "CreateMemoryLocation",
	CommandGetTransportState:    "GetTransportState",
	CommandGetSessionLength:     "GetSessionLength",
	CommandSetTimelineSelection: "SetTimelineSelection",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "Command(" + strconv.Itoa(int(c)) + ")"
}

// TaskStatus is a PTSL TaskStatus.
type TaskStatus int32

const (
	StatusQueued     TaskStatus = 0
	StatusPending    TaskStatus = 1
	StatusInProgress TaskStatus = 2
	StatusCompleted  TaskStatus = 3
	StatusFailed     TaskStatus = 4
)
