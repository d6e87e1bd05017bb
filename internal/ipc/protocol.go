package ipc

import "errors"

// ErrNoOwner means nothing is listening on the control socket.
var ErrNoOwner = errors.New("no process owns the control socket")

// Request is one control command sent to a running bridge.
type Request struct {
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

// Response is the single reply line for a Request.
type Response struct {
	OK      bool   `json:"ok"`
	State   string `json:"state,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RemoteError carries a handler's refusal back to the caller.
type RemoteError struct {
	Command string
	Message string
}

func (e *RemoteError) Error() string { return e.Message }
