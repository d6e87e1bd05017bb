package ptsl

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
)

var errChannelShutdown = errors.New("ptsl channel shut down")

// waitForReady blocks until conn is Ready. A timeout reports the last state
// seen, which tells "Pro Tools not running" (TRANSIENT_FAILURE) apart from a
// slow handshake (CONNECTING).
func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	state := conn.GetState()
	for state != connectivity.Ready {
		if state == connectivity.Shutdown {
			return errChannelShutdown
		}
		if !conn.WaitForStateChange(ctx, state) {
			if errors.Is(ctx.Err(), context.Canceled) {
				return ctx.Err()
			}
			return fmt.Errorf("ptsl channel not ready (last state %s): %w", state, ctx.Err())
		}
		state = conn.GetState()
	}
	return nil
}
