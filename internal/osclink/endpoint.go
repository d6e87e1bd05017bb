package osclink

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/hypebeast/go-osc/osc"
)

// ReadTimeout bounds each blocking read so loops observe cancellation.
const ReadTimeout = time.Second

const maxDatagram = 65535

// Datagram is one received UDP payload.
type Datagram struct {
	Data []byte
	From *net.UDPAddr
}

// Endpoint is a bound UDP socket used both to receive and to send, so
// replies to outbound requests arrive on the same port.
type Endpoint struct {
	conn *net.UDPConn

	sendMu sync.Mutex
}

// Listen binds host:port. Port 0 picks an ephemeral port.
func Listen(host string, port int) (*Endpoint, error) {
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("resolve udp %s:%d: %w", host, port, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen udp %s: %w", addr, err)
	}
	return &Endpoint{conn: conn}, nil
}

// Resolve builds a UDP destination address.
func Resolve(host string, port int) (*net.UDPAddr, error) {
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("resolve udp %s:%d: %w", host, port, err)
	}
	return addr, nil
}

// LocalAddr returns the bound address.
func (e *Endpoint) LocalAddr() *net.UDPAddr {
	return e.conn.LocalAddr().(*net.UDPAddr)
}

// Send encodes msg and writes it to dst.
func (e *Endpoint) Send(dst *net.UDPAddr, msg *osc.Message) error {
	data, err := Encode(msg)
	if err != nil {
		return err
	}
	return e.SendRaw(dst, data)
}

// SendRaw writes data to dst unchanged.
func (e *Endpoint) SendRaw(dst *net.UDPAddr, data []byte) error {
	e.sendMu.Lock()
	defer e.sendMu.Unlock()
	if _, err := e.conn.WriteToUDP(data, dst); err != nil {
		return fmt.Errorf("send udp to %s: %w", dst, err)
	}
	return nil
}

// Serve reads datagrams in arrival order until ctx ends or the socket closes.
func (e *Endpoint) Serve(ctx context.Context, fn func(Datagram)) error {
	buf := make([]byte, maxDatagram)
	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := e.conn.SetReadDeadline(time.Now().Add(ReadTimeout)); err != nil {
			return fmt.Errorf("set read deadline: %w", err)
		}
		n, from, err := e.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read udp: %w", err)
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		fn(Datagram{Data: data, From: from})
	}
}

// Close releases the socket.
func (e *Endpoint) Close() error {
	return e.conn.Close()
}
