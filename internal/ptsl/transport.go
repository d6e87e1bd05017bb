package ptsl

import (
	"context"
	"strings"

	"github.com/tidwall/gjson"
)

// TransportState is Pro Tools' transport state, for example
// "TS_TransportPlaying".
type TransportState string

func (s TransportState) Recording() bool { return strings.Contains(string(s), "Recording") }

func (s TransportState) Playing() bool {
	return strings.Contains(string(s), "Playing") || s.Recording()
}

// MemoryLocation is one marker or memory location.
type MemoryLocation struct {
	Number    int64
	Name      string
	StartTime string
}

func (c *Client) HostReadyCheck(ctx context.Context) error {
	_, err := c.Call(ctx, CommandHostReadyCheck, nil)
	return err
}

func (c *Client) TransportState(ctx context.Context) (TransportState, error) {
	body, err := c.Call(ctx, CommandGetTransportState, nil)
	if err != nil {
		return "", err
	}
	return TransportState(body.Get("current_setting").String()), nil
}

func (c *Client) TransportArmed(ctx context.Context) (bool, error) {
	body, err := c.Call(ctx, CommandGetTransportArmed, nil)
	if err != nil {
		return false, err
	}
	return body.Get("is_transport_armed").Bool(), nil
}

func (c *Client) TogglePlayState(ctx context.Context) error {
	_, err := c.Call(ctx, CommandTogglePlayState, nil)
	return err
}

func (c *Client) ToggleRecordEnable(ctx context.Context) error {
	_, err := c.Call(ctx, CommandToggleRecordEnable, nil)
	return err
}

// SessionLength returns the session length in the session's time format.
func (c *Client) SessionLength(ctx context.Context) (string, error) {
	body, err := c.Call(ctx, CommandGetSessionLength, nil)
	if err != nil {
		return "", err
	}
	return body.Get("session_length").String(), nil
}

// SetTimelineSelection moves the insertion point to inTime.
func (c *Client) SetTimelineSelection(ctx context.Context, inTime string) error {
	_, err := c.Call(ctx, CommandSetTimelineSelection, map[string]string{"in_time": inTime})
	return err
}

// CreateMemoryLocation drops a marker at the playhead.
func (c *Client) CreateMemoryLocation(ctx context.Context, name string) error {
	_, err := c.Call(ctx, CommandCreateMemoryLocation, map[string]string{
		"name":            name,
		"time_properties": "TProperties_Marker",
		"reference":       "MLReference_Absolute",
		"location":        "MLC_MainRuler",
	})
	return err
}

func (c *Client) MemoryLocations(ctx context.Context) ([]MemoryLocation, error) {
	body, err := c.Call(ctx, CommandGetMemoryLocations, nil)
	if err != nil {
		return nil, err
	}
	var out []MemoryLocation
	body.Get("memory_locations").ForEach(func(_, loc gjson.Result) bool {
		out = append(out, MemoryLocation{
			Number:    loc.Get("number").Int(),
			Name:      loc.Get("name").String(),
			StartTime: loc.Get("start_time").String(),
		})
		return true
	})
	return out, nil
}
