package extcontrol

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/hypebeast/go-osc/osc"
	"github.com/markermatic/markermatic/internal/bus"
	"github.com/markermatic/markermatic/internal/config"
	"github.com/markermatic/markermatic/internal/cue"
	"github.com/markermatic/markermatic/internal/lifecycle"
	"github.com/markermatic/markermatic/internal/osclink"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
)

const waitFor = 3 * time.Second

// recorder captures every control event the controller publishes.
type recorder struct {
	mu     sync.Mutex
	events []bus.Event
}

func (r *recorder) add(evt bus.Event) {
	r.mu.Lock()
	r.events = append(r.events, evt)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []bus.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bus.Event(nil), r.events...)
}

func newRecordedBus() (*bus.Bus, *recorder) {
	b := bus.New(nil)
	rec := &recorder{}
	bus.Subscribe(b, func(evt bus.PlaybackModeChanged) { rec.add(evt) })
	bus.Subscribe(b, func(evt bus.TransportRequested) { rec.add(evt) })
	bus.Subscribe(b, func(evt bus.PlaceMarker) { rec.add(evt) })
	return b, rec
}

func TestOSCRoutesPublishEvents(t *testing.T) {
	tests := []struct {
		name string
		msg  *osc.Message
		want bus.Event
	}{
		{name: "mode path", msg: osc.NewMessage("/markermatic/mode/Recording"), want: bus.PlaybackModeChanged{Mode: cue.ModeRecording}},
		{name: "mode alias", msg: osc.NewMessage("/markermatic/mode/notrack"), want: bus.PlaybackModeChanged{Mode: cue.ModePlaybackNoTrack}},
		{name: "transport path", msg: osc.NewMessage("/markermatic/transport/play"), want: bus.TransportRequested{Action: cue.ActionPlay}},
		{name: "transport record", msg: osc.NewMessage("/markermatic/transport/record"), want: bus.TransportRequested{Action: cue.ActionRecord}},
		{name: "marker default", msg: osc.NewMessage("/markermatic/marker"), want: bus.PlaceMarker{Name: DefaultMarkerName}},
		{name: "marker named", msg: osc.NewMessage("/markermatic/marker", "Encore"), want: bus.PlaceMarker{Name: "Encore"}},
		{name: "arg form mode", msg: osc.NewMessage("/markermatic/v4/mode", "track"), want: bus.PlaybackModeChanged{Mode: cue.ModePlaybackTrack}},
		{name: "arg form transport", msg: osc.NewMessage("/markermatic/v4/transport", "stop"), want: bus.TransportRequested{Action: cue.ActionStop}},
		{name: "arg form marker", msg: osc.NewMessage("/markermatic/v4/marker", "Bridge"), want: bus.PlaceMarker{Name: "Bridge"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b, rec := newRecordedBus()
			c := New(Deps{Bus: b})
			require.True(t, c.router.Dispatch(tc.msg))
			require.Equal(t, []bus.Event{tc.want}, rec.snapshot())
		})
	}
}

func TestOSCIgnoresUnknownValues(t *testing.T) {
	b, rec := newRecordedBus()
	c := New(Deps{Bus: b})

	c.router.Dispatch(osc.NewMessage("/markermatic/mode/karaoke"))
	c.router.Dispatch(osc.NewMessage("/markermatic/transport/rewind"))
	c.router.Dispatch(osc.NewMessage("/markermatic/v4/mode", int32(3)))
	require.False(t, c.router.Dispatch(osc.NewMessage("/other/thing")))
	require.Empty(t, rec.snapshot())
}

func freeUDPPort(t *testing.T) int {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	port := conn.LocalAddr().(*net.UDPAddr).Port
	require.NoError(t, conn.Close())
	return port
}

func TestOSCListenerOverUDP(t *testing.T) {
	b, rec := newRecordedBus()
	port := freeUDPPort(t)
	c := New(Deps{Bus: b, Config: config.ExternalControlConfig{OSCPort: port}})

	group := lifecycle.NewGroup(context.Background(), nil)
	c.Start(group.Spawn)
	t.Cleanup(func() { require.NoError(t, group.Stop(waitFor)) })
	require.Equal(t, []string{"external_osc_thread"}, group.Running())

	sender, err := osclink.Listen("127.0.0.1", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sender.Close() })
	dst := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port}

	require.Eventually(t, func() bool {
		require.NoError(t, sender.Send(dst, osc.NewMessage("/markermatic/transport/play")))
		return len(rec.snapshot()) > 0
	}, waitFor, 20*time.Millisecond)
	require.Equal(t, bus.TransportRequested{Action: cue.ActionPlay}, rec.snapshot()[0])
}

func TestStartSkipsDisabledInputs(t *testing.T) {
	b, _ := newRecordedBus()
	var names []string
	spawn := func(name string, _ func(context.Context) error) { names = append(names, name) }

	New(Deps{Bus: b}).Start(spawn)
	require.Empty(t, names)

	New(Deps{Bus: b, Config: config.ExternalControlConfig{MIDIPort: "IAC Bus 1"}}).Start(spawn)
	require.Empty(t, names)

	New(Deps{Bus: b, Config: config.ExternalControlConfig{OSCPort: 48428, MIDIPort: "IAC Bus 1", MMCEnabled: true}}).Start(spawn)
	require.Equal(t, []string{"external_osc_thread", "external_midi_thread"}, names)
}

func TestDecodeMMC(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		want   cue.TransportAction
		wantOK bool
	}{
		{name: "short play", data: []byte{0xF0, 0x7F, 0x06, 0x02, 0xF7}, want: cue.ActionPlay, wantOK: true},
		{name: "short stop", data: []byte{0xF0, 0x7F, 0x06, 0x03, 0xF7}, want: cue.ActionStop, wantOK: true},
		{name: "short record", data: []byte{0xF0, 0x7F, 0x06, 0x06, 0xF7}, want: cue.ActionRecord, wantOK: true},
		{name: "addressed play", data: []byte{0xF0, 0x7F, 0x7F, 0x06, 0x02, 0xF7}, want: cue.ActionPlay, wantOK: true},
		{name: "addressed stop", data: []byte{0xF0, 0x7F, 0x10, 0x06, 0x01, 0xF7}, want: cue.ActionStop, wantOK: true},
		{name: "addressed device six", data: []byte{0x7F, 0x06, 0x06, 0x06}, want: cue.ActionRecord, wantOK: true},
		{name: "unframed", data: []byte{0x7F, 0x00, 0x06, 0x02}, want: cue.ActionPlay, wantOK: true},
		{name: "unsupported command", data: []byte{0xF0, 0x7F, 0x7F, 0x06, 0x44, 0xF7}},
		{name: "non realtime", data: []byte{0xF0, 0x7E, 0x7F, 0x06, 0x02, 0xF7}},
		{name: "not mmc", data: []byte{0xF0, 0x7F, 0x7F, 0x04, 0x01, 0xF7}},
		{name: "empty", data: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := DecodeMMC(tc.data)
			require.Equal(t, tc.wantOK, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestOnMIDIPublishesTransport(t *testing.T) {
	b, rec := newRecordedBus()
	c := New(Deps{Bus: b})

	c.onMIDI(midi.Message{0xF0, 0x7F, 0x7F, 0x06, 0x06, 0xF7})
	c.onMIDI(midi.Message{0x90, 0x3C, 0x64})
	require.Equal(t, []bus.Event{bus.TransportRequested{Action: cue.ActionRecord}}, rec.snapshot())
}

// fakeMIDI hands the controller a scripted port.
type fakeMIDI struct {
	mu      sync.Mutex
	opens   int
	deliver func(midi.Message)
	fail    func(error)
	stopped chan struct{}
}

func (f *fakeMIDI) Listen(port string, fn func(midi.Message), onErr func(error)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	if port != "IAC Bus 1" {
		return nil, errors.New("no such port")
	}
	f.deliver, f.fail = fn, onErr
	return func() { f.stopped <- struct{}{} }, nil
}

func (f *fakeMIDI) send(msg midi.Message) bool {
	f.mu.Lock()
	deliver := f.deliver
	f.mu.Unlock()
	if deliver == nil {
		return false
	}
	deliver(msg)
	return true
}

func TestServeMIDIListensUntilStopped(t *testing.T) {
	b, rec := newRecordedBus()
	c := New(Deps{Bus: b, Config: config.ExternalControlConfig{MIDIPort: "IAC Bus 1", MMCEnabled: true}})
	fake := &fakeMIDI{stopped: make(chan struct{}, 1)}
	c.midi = fake

	group := lifecycle.NewGroup(context.Background(), nil)
	c.Start(group.Spawn)

	require.Eventually(t, func() bool {
		return fake.send(midi.Message{0xF0, 0x7F, 0x06, 0x02, 0xF7})
	}, waitFor, 10*time.Millisecond)
	require.Equal(t, []bus.Event{bus.TransportRequested{Action: cue.ActionPlay}}, rec.snapshot())

	require.NoError(t, group.Stop(waitFor))
	select {
	case <-fake.stopped:
	case <-time.After(waitFor):
		t.Fatal("midi port was not closed")
	}
}
