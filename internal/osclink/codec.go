// Package osclink carries OSC 1.0 messages over UDP for console and DAW adapters.
package osclink

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/hypebeast/go-osc/osc"
)

// PadPacket zero-pads raw to the next 4-byte boundary. Some tablet apps emit
// unpadded OSC that consoles reject; forwarding always pads.
func PadPacket(raw []byte) []byte {
	rem := len(raw) % 4
	if rem == 0 {
		return raw
	}
	out := make([]byte, len(raw), len(raw)+4-rem)
	copy(out, raw)
	return append(out, make([]byte, 4-rem)...)
}

// Decode parses one datagram and flattens bundles into their messages in order.
func Decode(raw []byte) ([]*osc.Message, error) {
	if len(raw) == 0 {
		return nil, errors.New("empty OSC datagram")
	}
	packet, err := osc.ParsePacket(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parse OSC packet: %w", err)
	}
	return flatten(packet), nil
}

func flatten(packet osc.Packet) []*osc.Message {
	switch p := packet.(type) {
	case *osc.Message:
		return []*osc.Message{p}
	case *osc.Bundle:
		out := make([]*osc.Message, 0, len(p.Messages))
		out = append(out, p.Messages...)
		for _, nested := range p.Bundles {
			out = append(out, flatten(nested)...)
		}
		return out
	default:
		return nil
	}
}

// Encode marshals msg to wire bytes.
func Encode(msg *osc.Message) ([]byte, error) {
	data, err := msg.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode OSC %s: %w", msg.Address, err)
	}
	return data, nil
}

// Int reads argument i as an integer, accepting the numeric encodings vendors use.
func Int(msg *osc.Message, i int) (int, bool) {
	if msg == nil || i >= len(msg.Arguments) {
		return 0, false
	}
	switch v := msg.Arguments[i].(type) {
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float32:
		return int(math.Round(float64(v))), true
	case float64:
		return int(math.Round(v)), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	default:
		return 0, false
	}
}

// Float reads argument i as a float.
func Float(msg *osc.Message, i int) (float64, bool) {
	if msg == nil || i >= len(msg.Arguments) {
		return 0, false
	}
	switch v := msg.Arguments[i].(type) {
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// String reads argument i as a string.
func String(msg *osc.Message, i int) (string, bool) {
	if msg == nil || i >= len(msg.Arguments) {
		return "", false
	}
	switch v := msg.Arguments[i].(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	default:
		return "", false
	}
}
