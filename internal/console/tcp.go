package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/markermatic/markermatic/internal/lifecycle"
)

const (
	reconnectDelay = 5 * time.Second
	dialTimeout    = 2 * time.Second
	readTimeout    = time.Second
)

var errNotConnected = errors.New("console not connected")

// tcpLink owns one reconnecting TCP connection to a console.
type tcpLink struct {
	backoff time.Duration

	mu   sync.Mutex
	conn net.Conn
}

func (l *tcpLink) current() net.Conn {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn
}

func (l *tcpLink) set(conn net.Conn) {
	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()
}

// write sends data on the live connection. Writes are serialized.
func (l *tcpLink) write(data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return errNotConnected
	}
	if err := l.conn.SetWriteDeadline(time.Now().Add(readTimeout)); err != nil {
		return err
	}
	if _, err := l.conn.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", l.conn.RemoteAddr(), err)
	}
	return nil
}

// run dials addr until ctx ends. serve owns the connection until it returns.
func (l *tcpLink) run(ctx context.Context, logger *slog.Logger, addr string, onConnect func(), serve func(context.Context, net.Conn) error) error {
	backoff := l.backoff
	if backoff <= 0 {
		backoff = reconnectDelay
	}
	dialer := net.Dialer{Timeout: dialTimeout}

	for ctx.Err() == nil {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Warn("could not connect to console", "addr", addr, "error", err.Error())
			if !lifecycle.Sleep(ctx, backoff) {
				return nil
			}
			continue
		}

		logger.Info("connected to console", "addr", addr)
		l.set(conn)
		if onConnect != nil {
			onConnect()
		}
		serveErr := serve(ctx, conn)
		l.set(nil)
		_ = conn.Close()

		if ctx.Err() != nil {
			break
		}
		if serveErr != nil {
			logger.Warn("console connection lost", "addr", addr, "error", serveErr.Error())
		}
		if !lifecycle.Sleep(ctx, backoff) {
			return nil
		}
	}
	logger.Info("closing connection to console", "addr", addr)
	return nil
}

// readChunk reads once with a short deadline. A timeout yields (0, nil).
func readChunk(conn net.Conn, buf []byte) (int, error) {
	if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		return 0, err
	}
	n, err := conn.Read(buf)
	if err != nil && errors.Is(err, os.ErrDeadlineExceeded) {
		return n, nil
	}
	return n, err
}
