package extcontrol

import (
	"context"
	"fmt"
	"time"

	"github.com/markermatic/markermatic/internal/cue"
	"github.com/markermatic/markermatic/internal/lifecycle"
	"gitlab.com/gomidi/midi/v2"
)

// MMC command bytes.
const (
	mmcStop         = 0x01
	mmcPlay         = 0x02
	mmcDeferredPlay = 0x03
	mmcRecordStrobe = 0x06
)

const (
	sysexRealtime = 0x7F
	subIDCommand  = 0x06
	midiRetry     = 5 * time.Second
)

// DecodeMMC maps an MMC sysex message to a transport action. It accepts
// the message with or without F0/F7 framing, in both the addressed form
// 7F <dev> 06 <cmd> and the short form 7F 06 <cmd>.
func DecodeMMC(data []byte) (cue.TransportAction, bool) {
	if len(data) > 0 && data[0] == 0xF0 {
		data = data[1:]
	}
	if len(data) > 0 && data[len(data)-1] == 0xF7 {
		data = data[:len(data)-1]
	}

	var cmd byte
	switch {
	case len(data) == 4 && data[0] == sysexRealtime && data[2] == subIDCommand:
		cmd = data[3]
	case len(data) == 3 && data[0] == sysexRealtime && data[1] == subIDCommand:
		cmd = data[2]
	default:
		return "", false
	}

	switch cmd {
	case mmcPlay:
		return cue.ActionPlay, true
	case mmcStop, mmcDeferredPlay:
		return cue.ActionStop, true
	case mmcRecordStrobe:
		return cue.ActionRecord, true
	default:
		return "", false
	}
}

// midiInput opens a named input port and delivers its messages until stop.
type midiInput interface {
	Listen(port string, fn func(midi.Message), onErr func(error)) (stop func(), err error)
}

// systemMIDI uses whichever driver the binary registered.
type systemMIDI struct{}

func (systemMIDI) Listen(port string, fn func(midi.Message), onErr func(error)) (func(), error) {
	in, err := midi.FindInPort(port)
	if err != nil {
		return nil, fmt.Errorf("find midi input %q: %w", port, err)
	}
	stop, err := midi.ListenTo(in, func(msg midi.Message, _ int32) { fn(msg) },
		midi.UseSysEx(),
		midi.HandleError(onErr),
	)
	if err != nil {
		return nil, fmt.Errorf("listen on midi input %q: %w", port, err)
	}
	return stop, nil
}

// onMIDI publishes the transport action carried by an MMC message.
func (c *Controller) onMIDI(msg midi.Message) {
	var data []byte
	if !msg.GetSysEx(&data) {
		return
	}
	action, ok := DecodeMMC(data)
	if !ok {
		c.logger.Debug("ignoring sysex", "bytes", fmt.Sprintf("% X", data))
		return
	}
	c.requestTransport(action, sourceMIDI)
}

// serveMIDI keeps the input port open, reopening it after failures.
func (c *Controller) serveMIDI(ctx context.Context) error {
	port := c.deps.Config.MIDIPort
	for {
		failed := make(chan error, 1)
		stop, err := c.midi.Listen(port, c.onMIDI, func(err error) {
			select {
			case failed <- err:
			default:
			}
		})
		if err != nil {
			c.logger.Warn("midi input unavailable; retrying", "port", port, "error", err.Error())
		} else {
			c.logger.Info("listening for mmc", "port", port)
			select {
			case <-ctx.Done():
				stop()
				return nil
			case err := <-failed:
				stop()
				c.logger.Warn("midi input failed; reopening", "port", port, "error", err.Error())
			}
		}
		if !lifecycle.Sleep(ctx, midiRetry) {
			return nil
		}
	}
}
