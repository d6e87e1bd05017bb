// Package ptsl is a minimal Pro Tools Scripting Library client.
//
// PTSL exposes a single unary gRPC method whose request and response carry
// JSON bodies, so frames are encoded with protowire instead of generated
// stubs.
package ptsl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	// DefaultAddr is where Pro Tools serves PTSL.
	DefaultAddr = "localhost:31416"

	method = "/ptsl.PTSL/SendGrpcRequest"

	apiVersion      = 2023
	apiVersionMinor = 3
)

// ErrCommandFailed is returned when Pro Tools reports a failed task.
var ErrCommandFailed = errors.New("ptsl command failed")

// Client is one PTSL connection.
type Client struct {
	conn *grpc.ClientConn

	mu        sync.RWMutex
	sessionID string
}

// Dial connects and waits for the channel to become ready.
func Dial(ctx context.Context, addr string, timeout time.Duration, opts ...grpc.DialOption) (*Client, error) {
	if strings.TrimSpace(addr) == "" {
		addr = DefaultAddr
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(rawCodec{})),
	}, opts...)
	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("dial ptsl grpc %q: %w", addr, err)
	}

	readyCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	conn.Connect()
	if err := waitForReady(readyCtx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("wait for ptsl grpc readiness: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close releases the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Register performs RegisterConnection and keeps the returned session id
// for every later call.
func (c *Client) Register(ctx context.Context, company, application string) error {
	body, err := c.Call(ctx, CommandRegisterConnection, map[string]string{
		"company_name":     company,
		"application_name": application,
	})
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.sessionID = body.Get("session_id").String()
	c.mu.Unlock()
	return nil
}

// Call sends one command. body is JSON-encoded when non-nil.
func (c *Client) Call(ctx context.Context, cmd Command, body any) (gjson.Result, error) {
	var bodyJSON string
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return gjson.Result{}, fmt.Errorf("encode %s body: %w", cmd, err)
		}
		bodyJSON = string(raw)
	}

	c.mu.RLock()
	session := c.sessionID
	c.mu.RUnlock()

	req := &frame{data: encodeRequest(requestHeader{
		Command:      cmd,
		Version:      apiVersion,
		VersionMinor: apiVersionMinor,
		SessionID:    session,
	}, bodyJSON)}
	resp := &frame{}
	if err := c.conn.Invoke(ctx, method, req, resp); err != nil {
		return gjson.Result{}, fmt.Errorf("ptsl %s: %w", cmd, err)
	}

	decoded, err := decodeResponse(resp.data)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("ptsl %s: %w", cmd, err)
	}
	if decoded.Status == StatusFailed || decoded.ErrorJSON != "" {
		return gjson.Result{}, fmt.Errorf("%w: %s: %s", ErrCommandFailed, cmd, errorMessage(decoded.ErrorJSON))
	}
	return gjson.Parse(decoded.BodyJSON), nil
}

func errorMessage(raw string) string {
	if raw == "" {
		return "no error details"
	}
	if msg := gjson.Get(raw, "errors.0.command_error_message"); msg.Exists() && msg.String() != "" {
		return msg.String()
	}
	if typ := gjson.Get(raw, "errors.0.command_error_type"); typ.Exists() {
		return typ.String()
	}
	return raw
}
