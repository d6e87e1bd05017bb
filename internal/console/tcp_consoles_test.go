package console

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net"
	"testing"
	"time"

	ber "github.com/go-asn1-ber/asn1-ber"
	"github.com/markermatic/markermatic/internal/bus"
	"github.com/markermatic/markermatic/internal/cue"
	"github.com/stretchr/testify/require"
)

func acceptOne(t *testing.T) (net.Listener, <-chan net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	conns := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		conns <- conn
	}()
	return ln, conns
}

func nextConn(t *testing.T, conns <-chan net.Conn) net.Conn {
	t.Helper()
	select {
	case conn := <-conns:
		t.Cleanup(func() { _ = conn.Close() })
		require.NoError(t, conn.SetDeadline(time.Now().Add(waitFor)))
		return conn
	case <-time.After(waitFor):
		t.Fatal("adapter never connected")
		return nil
	}
}

func TestYamahaRequestsSceneInfoAndLoadsCue(t *testing.T) {
	ln, conns := acceptOne(t)
	deps, seen := testDeps(testConfig("Yamaha"))
	y := newYamaha(deps)
	y.port = ln.Addr().(*net.TCPAddr).Port
	y.link.backoff = 50 * time.Millisecond
	cues := collect[bus.CueLoaded](t, deps.Bus)
	startAdapter(t, y)

	conn := nextConn(t, conns)
	reader := bufio.NewReader(conn)

	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "devinfo productname\n", line)

	_, err = io.WriteString(conn, "OK devinfo productname \"QL5\"\nNOTIFY sscurrent_ex MIXER:")
	require.NoError(t, err)
	_, err = io.WriteString(conn, "Lib/Scene 12\n")
	require.NoError(t, err)

	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "ssinfo_ex MIXER:Lib/Scene 12\n", line)

	_, err = io.WriteString(conn, "OK ssinfo_ex MIXER:Lib/Scene 12 \"001.00\" \"Opening\" \"\"\n")
	require.NoError(t, err)

	require.Equal(t, cue.Cue{Label: "001.00", Name: "Opening"}, receive(t, cues).Cue)
	require.True(t, seen.has("QL5"))
}

func TestYamahaIgnoresMalformedSceneInfo(t *testing.T) {
	deps, _ := testDeps(testConfig("Yamaha"))
	y := newYamaha(deps)
	cues := collect[bus.CueLoaded](t, deps.Bus)

	y.handleLine(`OK ssinfo_ex MIXER:Lib/Scene 3 "003.00"`)
	y.handleLine("ERROR unknown command")
	require.Empty(t, cues)
}

func TestYamahaDropsOversizedLineAndRecovers(t *testing.T) {
	deps, _ := testDeps(testConfig("Yamaha"))
	y := newYamaha(deps)
	cues := collect[bus.CueLoaded](t, deps.Bus)

	server, client := net.Pipe()
	done := make(chan error, 1)
	go func() { done <- y.serve(context.Background(), server) }()

	junk := bytes.Repeat([]byte("x"), maxYamahaLine+8192)
	_, err := client.Write(junk)
	require.NoError(t, err)
	_, err = io.WriteString(client, "OK ssinfo_ex MIXER:Lib/Scene 12 \"001.00\" \"Fake\" \"\"\n")
	require.NoError(t, err)
	_, err = io.WriteString(client, "OK ssinfo_ex MIXER:Lib/Scene 13 \"002.00\" \"Verse\" \"\"\n")
	require.NoError(t, err)

	require.Equal(t, cue.Cue{Label: "002.00", Name: "Verse"}, receive(t, cues).Cue)
	require.Empty(t, cues)

	require.NoError(t, client.Close())
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("serve did not return after close")
	}
}

func vistaFrame(values ...string) []byte {
	root := ber.Encode(ber.ClassContext, ber.TypeConstructed, 1, nil, "root")
	for _, v := range values {
		root.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagUTF8String, v, ""))
	}
	return root.Bytes()
}

func TestVistaSubscribesThenLoadsLastLeaf(t *testing.T) {
	ln, conns := acceptOne(t)
	cfg := testConfig("Studer Vista")
	cfg.Console.SendPort = ln.Addr().(*net.TCPAddr).Port
	deps, _ := testDeps(cfg)
	v := newVista(deps)
	v.link.backoff = 50 * time.Millisecond
	cues := collect[bus.CueLoaded](t, deps.Bus)
	startAdapter(t, v)

	conn := nextConn(t, conns)
	got := make([]byte, len(vistaSubscribe))
	_, err := io.ReadFull(conn, got)
	require.NoError(t, err)
	require.Equal(t, vistaSubscribe, got)

	_, err = conn.Write(vistaFrame(lastRecalledLabel, "Act 2"))
	require.NoError(t, err)
	require.Equal(t, cue.Cue{Name: "Act 2"}, receive(t, cues).Cue)

	v.Heartbeat(t.Context())
	got = make([]byte, len(vistaKeepAlive))
	_, err = io.ReadFull(conn, got)
	require.NoError(t, err)
	require.Equal(t, vistaKeepAlive, got)
}

func TestVistaDropsGarbageAndLabelOnlyFrames(t *testing.T) {
	deps, _ := testDeps(testConfig("Studer Vista"))
	v := newVista(deps)
	cues := collect[bus.CueLoaded](t, deps.Bus)

	v.handleChunk([]byte{0xff})
	v.handleChunk(vistaFrame(lastRecalledLabel))
	v.handleChunk(vistaFrame(""))
	require.Empty(t, cues)
	require.True(t, v.subscribed.Load())
}

func TestFlattenLeavesDepthFirst(t *testing.T) {
	root := ber.NewSequence("root")
	inner := ber.NewSequence("inner")
	inner.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagUTF8String, "a", ""))
	inner.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, 0, ""))
	root.AppendChild(inner)
	root.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, 7, ""))
	root.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagUTF8String, "b", ""))

	decoded, err := ber.DecodePacketErr(root.Bytes())
	require.NoError(t, err)
	require.Equal(t, []string{"a", "7", "b"}, flattenLeaves(decoded, nil))
}
