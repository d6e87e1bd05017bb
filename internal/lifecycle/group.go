// Package lifecycle runs named long-lived goroutines with cooperative cancellation
// and a bounded join.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrJoinTimeout is returned by Stop when some goroutines outlive the join deadline.
var ErrJoinTimeout = errors.New("managed threads did not stop before timeout")

// SpawnFunc launches one named managed goroutine.
type SpawnFunc func(name string, fn func(context.Context) error)

// Group owns a set of managed goroutines sharing one cancellation scope.
type Group struct {
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	eg     errgroup.Group

	mu      sync.Mutex
	running map[string]int
	stopped bool
}

// NewGroup derives the group scope from parent.
func NewGroup(parent context.Context, logger *slog.Logger) *Group {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(parent)
	return &Group{
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		running: make(map[string]int),
	}
}

// Context is cancelled when Stop is called or the parent ends.
func (g *Group) Context() context.Context {
	return g.ctx
}

// Spawn starts fn in its own goroutine. A panic inside fn is recovered and
// reported as that goroutine's error; other goroutines keep running.
// Spawning after Stop is ignored.
func (g *Group) Spawn(name string, fn func(context.Context) error) {
	g.mu.Lock()
	if g.stopped {
		g.mu.Unlock()
		g.logger.Warn("spawn after stop ignored", "component", "lifecycle", "thread", name)
		return
	}
	g.running[name]++
	g.mu.Unlock()

	g.eg.Go(func() (err error) {
		defer g.finish(name)
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("thread %s panicked: %v", name, r)
				g.logger.Error("managed thread panicked",
					"component", "lifecycle",
					"thread", name,
					"panic", fmt.Sprint(r),
					"stack", string(debug.Stack()),
				)
			}
		}()

		g.logger.Debug("managed thread started", "component", "lifecycle", "thread", name)
		err = fn(g.ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			g.logger.Error("managed thread failed", "component", "lifecycle", "thread", name, "error", err.Error())
			return fmt.Errorf("thread %s: %w", name, err)
		}
		g.logger.Debug("managed thread exited", "component", "lifecycle", "thread", name)
		return nil
	})
}

func (g *Group) finish(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.running[name]--
	if g.running[name] <= 0 {
		delete(g.running, name)
	}
}

// Running returns the sorted names of goroutines that have not exited.
func (g *Group) Running() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	names := make([]string, 0, len(g.running))
	for name, n := range g.running {
		for i := 0; i < n; i++ {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Stop cancels the group and waits up to timeout for every goroutine.
// Goroutines still running at the deadline are logged by name and abandoned.
// Stop is idempotent.
func (g *Group) Stop(timeout time.Duration) error {
	g.mu.Lock()
	g.stopped = true
	g.mu.Unlock()
	g.cancel()

	done := make(chan error, 1)
	go func() { done <- g.eg.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		stuck := g.Running()
		g.logger.Warn("managed threads abandoned after join timeout",
			"component", "lifecycle",
			"timeout_ms", timeout.Milliseconds(),
			"threads", stuck,
		)
		return fmt.Errorf("%w: %s", ErrJoinTimeout, strings.Join(stuck, ", "))
	}
}
