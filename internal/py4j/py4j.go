// Package py4j is a small client for the Py4J gateway text protocol.
package py4j

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultAddr is the Py4J GatewayServer default.
const DefaultAddr = "127.0.0.1:25333"

const (
	entryPointID  = "t"
	callTimeout   = 2 * time.Second
	commandCall   = "c"
	commandEnd    = "e"
	replySuccess  = 'y'
	replyError    = 'x'
	kindReference = 'r'
	kindString    = 's'
	kindInteger   = 'i'
	kindLong      = 'L'
	kindDouble    = 'd'
	kindBoolean   = 'b'
	kindVoid      = 'v'
	kindNull      = 'n'
)

// ErrGateway is returned when the gateway reports an exception or speaks
// an unexpected reply.
var ErrGateway = errors.New("py4j gateway error")

// Client is one gateway connection. Calls are serialized.
type Client struct {
	mu   sync.Mutex
	conn net.Conn
	r    *bufio.Reader
}

// Dial connects to a GatewayServer.
func Dial(ctx context.Context, addr string) (*Client, error) {
	if strings.TrimSpace(addr) == "" {
		addr = DefaultAddr
	}
	dialer := net.Dialer{Timeout: callTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial py4j gateway %s: %w", addr, err)
	}
	return &Client{conn: conn, r: bufio.NewReader(conn)}, nil
}

// Close drops the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// EntryPoint is the object the gateway was started with.
func (c *Client) EntryPoint() Object {
	return Object{client: c, id: entryPointID}
}

// Object is a remote Java object reference.
type Object struct {
	client *Client
	id     string
}

// ID returns the gateway object id.
func (o Object) ID() string { return o.id }

// Call invokes method on the object.
func (o Object) Call(ctx context.Context, method string, args ...any) (Value, error) {
	if o.client == nil {
		return Value{}, fmt.Errorf("%w: call %s on nil object", ErrGateway, method)
	}
	var b strings.Builder
	b.WriteString(commandCall + "\n")
	b.WriteString(o.id + "\n")
	b.WriteString(method + "\n")
	for _, arg := range args {
		enc, err := encodeArg(arg)
		if err != nil {
			return Value{}, err
		}
		b.WriteString(enc + "\n")
	}
	b.WriteString(commandEnd + "\n")

	line, err := o.client.roundTrip(ctx, b.String())
	if err != nil {
		return Value{}, fmt.Errorf("py4j %s.%s: %w", o.id, method, err)
	}
	v, err := parseReply(line)
	if err != nil {
		return Value{}, fmt.Errorf("py4j %s.%s: %w", o.id, method, err)
	}
	v.client = o.client
	return v, nil
}

func (c *Client) roundTrip(ctx context.Context, command string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := time.Now().Add(callTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return "", err
	}
	if _, err := c.conn.Write([]byte(command)); err != nil {
		return "", err
	}
	line, err := c.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Value is one decoded reply.
type Value struct {
	client *Client
	kind   byte
	raw    string
}

func parseReply(line string) (Value, error) {
	line = strings.TrimPrefix(line, "!")
	if line == "" {
		return Value{}, fmt.Errorf("%w: empty reply", ErrGateway)
	}
	switch line[0] {
	case replySuccess:
		body := line[1:]
		if body == "" {
			return Value{}, fmt.Errorf("%w: reply without value", ErrGateway)
		}
		return Value{kind: body[0], raw: body[1:]}, nil
	case replyError:
		return Value{}, fmt.Errorf("%w: %s", ErrGateway, unescape(strings.TrimPrefix(line[1:], string(kindString))))
	default:
		return Value{}, fmt.Errorf("%w: unexpected reply %q", ErrGateway, line)
	}
}

// Object returns the referenced remote object.
func (v Value) Object() (Object, error) {
	if v.kind != kindReference {
		return Object{}, fmt.Errorf("%w: expected object reference, got %q", ErrGateway, string(v.kind))
	}
	return Object{client: v.client, id: v.raw}, nil
}

func (v Value) Bool() (bool, error) {
	if v.kind != kindBoolean {
		return false, fmt.Errorf("%w: expected boolean, got %q", ErrGateway, string(v.kind))
	}
	return strings.EqualFold(v.raw, "true"), nil
}

func (v Value) Int() (int64, error) {
	if v.kind != kindInteger && v.kind != kindLong {
		return 0, fmt.Errorf("%w: expected integer, got %q", ErrGateway, string(v.kind))
	}
	n, err := strconv.ParseInt(v.raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	return n, nil
}

func (v Value) Float() (float64, error) {
	switch v.kind {
	case kindDouble, kindInteger, kindLong:
		f, err := strconv.ParseFloat(v.raw, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrGateway, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: expected number, got %q", ErrGateway, string(v.kind))
	}
}

func (v Value) Text() (string, error) {
	switch v.kind {
	case kindString:
		return unescape(v.raw), nil
	case kindNull:
		return "", nil
	default:
		return "", fmt.Errorf("%w: expected string, got %q", ErrGateway, string(v.kind))
	}
}

// Void reports whether the method returned nothing.
func (v Value) Void() bool { return v.kind == kindVoid }

func encodeArg(arg any) (string, error) {
	switch v := arg.(type) {
	case nil:
		return string(kindNull), nil
	case string:
		return string(kindString) + escape(v), nil
	case int:
		return string(kindInteger) + strconv.Itoa(v), nil
	case int32:
		return string(kindInteger) + strconv.FormatInt(int64(v), 10), nil
	case int64:
		return string(kindLong) + strconv.FormatInt(v, 10), nil
	case float64:
		return string(kindDouble) + strconv.FormatFloat(v, 'g', -1, 64), nil
	case bool:
		if v {
			return string(kindBoolean) + "True", nil
		}
		return string(kindBoolean) + "False", nil
	case Object:
		return string(kindReference) + v.id, nil
	default:
		return "", fmt.Errorf("%w: unsupported argument type %T", ErrGateway, arg)
	}
}

var (
	escaper   = strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\r", `\r`)
	unescaper = strings.NewReplacer(`\\`, `\`, `\n`, "\n", `\r`, "\r")
)

func escape(s string) string   { return escaper.Replace(s) }
func unescape(s string) string { return unescaper.Replace(s) }
