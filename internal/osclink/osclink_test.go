package osclink

import (
	"context"
	"testing"
	"time"

	"github.com/hypebeast/go-osc/osc"
	"github.com/stretchr/testify/require"
)

func TestPadPacket(t *testing.T) {
	require.Equal(t, []byte{0x01, 0x02, 0x03, 0x00}, PadPacket([]byte{0x01, 0x02, 0x03}))
	require.Equal(t, []byte{0x01, 0x00, 0x00, 0x00}, PadPacket([]byte{0x01}))
	aligned := []byte{1, 2, 3, 4}
	require.Equal(t, aligned, PadPacket(aligned))
	require.Empty(t, PadPacket(nil))
}

func TestDecodeMessageArguments(t *testing.T) {
	raw, err := Encode(osc.NewMessage("/Snapshots/name", int32(4), float32(1203), int32(0), "Verse 2"))
	require.NoError(t, err)

	msgs, err := Decode(raw)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "/Snapshots/name", msgs[0].Address)

	n, ok := Int(msgs[0], 0)
	require.True(t, ok)
	require.Equal(t, 4, n)

	f, ok := Float(msgs[0], 1)
	require.True(t, ok)
	require.InDelta(t, 1203.0, f, 0.001)

	s, ok := String(msgs[0], 3)
	require.True(t, ok)
	require.Equal(t, "Verse 2", s)

	_, ok = String(msgs[0], 9)
	require.False(t, ok)
	_, ok = Int(msgs[0], 3)
	require.False(t, ok)
}

func TestDecodeFlattensBundles(t *testing.T) {
	bundle := osc.NewBundle(time.Now())
	require.NoError(t, bundle.Append(osc.NewMessage("/-snap/name", "Act 1")))
	require.NoError(t, bundle.Append(osc.NewMessage("/-snap/index", int32(3))))
	raw, err := bundle.MarshalBinary()
	require.NoError(t, err)

	msgs, err := Decode(raw)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "/-snap/name", msgs[0].Address)
	require.Equal(t, "/-snap/index", msgs[1].Address)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode(nil)
	require.Error(t, err)
	_, err = Decode([]byte{0x01, 0x02, 0x03})
	require.Error(t, err)
}

func TestRouterMatchesSingleSegmentWildcards(t *testing.T) {
	var hits []string
	var r Router
	r.Handle("/marker/*/name", func(m *osc.Message) { hits = append(hits, "name:"+m.Address) })
	r.Handle("/play", func(m *osc.Message) { hits = append(hits, "play") })
	r.Default(func(m *osc.Message) { hits = append(hits, "default:"+m.Address) })

	require.True(t, r.Dispatch(osc.NewMessage("/marker/12/name")))
	require.True(t, r.Dispatch(osc.NewMessage("/play")))
	require.False(t, r.Dispatch(osc.NewMessage("/marker/12/number/str")))
	require.False(t, r.Dispatch(nil))

	require.Equal(t, []string{"name:/marker/12/name", "play", "default:/marker/12/number/str"}, hits)
}

func TestEndpointLoopback(t *testing.T) {
	server, err := Listen("127.0.0.1", 0)
	require.NoError(t, err)
	defer server.Close()

	client, err := Listen("127.0.0.1", 0)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan Datagram, 1)
	done := make(chan error, 1)
	go func() {
		done <- server.Serve(ctx, func(d Datagram) { received <- d })
	}()

	require.NoError(t, client.Send(server.LocalAddr(), osc.NewMessage("/xinfo")))

	select {
	case d := <-received:
		msgs, err := Decode(d.Data)
		require.NoError(t, err)
		require.Equal(t, "/xinfo", msgs[0].Address)
		require.Equal(t, client.LocalAddr().Port, d.From.Port)
	case <-time.After(2 * time.Second):
		t.Fatal("datagram not received")
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("serve did not observe cancellation")
	}
}
