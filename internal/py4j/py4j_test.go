package py4j

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeGateway answers each command with the next canned reply and records
// the commands it saw.
func fakeGateway(t *testing.T, replies ...string) (string, <-chan []string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	seen := make(chan []string, len(replies))
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		for _, reply := range replies {
			var cmd []string
			for {
				line, err := r.ReadString('\n')
				if err != nil {
					return
				}
				line = strings.TrimRight(line, "\n")
				if line == "e" {
					break
				}
				cmd = append(cmd, line)
			}
			seen <- cmd
			if _, err := conn.Write([]byte(reply + "\n")); err != nil {
				return
			}
		}
	}()
	return ln.Addr().String(), seen
}

func TestCallChainsObjectReferences(t *testing.T) {
	addr, seen := fakeGateway(t, "!yro1", "!ybtrue", "!ysVerse\\n2<> 12.5")
	client, err := Dial(context.Background(), addr)
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	v, err := client.EntryPoint().Call(ctx, "getTransport")
	require.NoError(t, err)
	transport, err := v.Object()
	require.NoError(t, err)
	require.Equal(t, "o1", transport.ID())
	require.Equal(t, []string{"c", "t", "getTransport"}, <-seen)

	v, err = transport.Call(ctx, "isPlaying")
	require.NoError(t, err)
	playing, err := v.Bool()
	require.NoError(t, err)
	require.True(t, playing)
	require.Equal(t, []string{"c", "o1", "isPlaying"}, <-seen)

	v, err = client.EntryPoint().Call(ctx, "getCueMarkerInfo", 3)
	require.NoError(t, err)
	info, err := v.Text()
	require.NoError(t, err)
	require.Equal(t, "Verse\n2<> 12.5", info)
	require.Equal(t, []string{"c", "t", "getCueMarkerInfo", "i3"}, <-seen)
}

func TestCallReturnsGatewayErrors(t *testing.T) {
	addr, _ := fakeGateway(t, "!xsjava.lang.NullPointerException")
	client, err := Dial(context.Background(), addr)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.EntryPoint().Call(context.Background(), "getTransport")
	require.ErrorIs(t, err, ErrGateway)
	require.Contains(t, err.Error(), "NullPointerException")
}

func TestEncodeArg(t *testing.T) {
	tests := []struct {
		arg  any
		want string
	}{
		{arg: "a\\b\nc", want: `sa\\b\nc`},
		{arg: 7, want: "i7"},
		{arg: int64(7), want: "L7"},
		{arg: 1.5, want: "d1.5"},
		{arg: true, want: "bTrue"},
		{arg: nil, want: "n"},
		{arg: Object{id: "o4"}, want: "ro4"},
	}
	for _, tc := range tests {
		got, err := encodeArg(tc.arg)
		require.NoError(t, err)
		require.Equal(t, tc.want, got)
	}

	_, err := encodeArg(struct{}{})
	require.ErrorIs(t, err, ErrGateway)
}

func TestValueKindMismatch(t *testing.T) {
	v, err := parseReply("!yi12")
	require.NoError(t, err)
	n, err := v.Int()
	require.NoError(t, err)
	require.Equal(t, int64(12), n)

	_, err = v.Bool()
	require.ErrorIs(t, err, ErrGateway)

	v, err = parseReply("!yv")
	require.NoError(t, err)
	require.True(t, v.Void())

	_, err = parseReply("garbage")
	require.ErrorIs(t, err, ErrGateway)
}
