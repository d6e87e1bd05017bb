package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/markermatic/markermatic/internal/bridge"
	"github.com/markermatic/markermatic/internal/cli"
	"github.com/markermatic/markermatic/internal/config"
	"github.com/markermatic/markermatic/internal/doctor"
	"github.com/markermatic/markermatic/internal/ipc"
	"github.com/markermatic/markermatic/internal/logging"
	"github.com/markermatic/markermatic/internal/version"
)

const binaryName = "markermatic"

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText(binaryName))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText(binaryName))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logOpts := logging.Options{Debug: parsed.Debug}
	if parsed.Command == cli.CommandRun {
		logOpts.Console = r.Stderr
	}
	logRuntime, err := logging.New(logOpts)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandRun:
		return r.commandRun(ctx, parsed.ConfigPath, cfgLoaded.Config, logger)
	case cli.CommandReconnect, cli.CommandMode, cli.CommandTransport, cli.CommandMarker:
		return r.forwardOrFail(ctx, ipc.Request{Command: string(parsed.Command), Args: parsed.Args})
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "stopped")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.Request{Command: bridge.CommandStatus})
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		switch {
		case resp.Message != "":
			fmt.Fprintln(r.Stdout, resp.Message)
		case resp.State != "":
			fmt.Fprintln(r.Stdout, resp.State)
		default:
			fmt.Fprintln(r.Stdout, "stopped")
		}
		return 0
	}

	fmt.Fprintln(r.Stdout, "stopped")
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, req ipc.Request) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, req)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: no running markermatic bridge\n")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

// commandRun owns the control socket and the bridge until ctx is cancelled.
func (r Runner) commandRun(ctx context.Context, configPath string, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, nil)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	br := bridge.New(bridge.Options{
		Logger: logger,
		Reload: func() (config.Config, error) {
			loaded, err := config.Load(configPath)
			if err != nil {
				return config.Config{}, err
			}
			return loaded.Config, nil
		},
	})
	if err := br.Start(cfg); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("bridge start failed", "error", err.Error())
		return 1
	}

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, listener, br)
	}()

	fmt.Fprintf(r.Stdout, "markermatic running: console=%s daw=%s\n", cfg.Console.Type, cfg.DAW.Type)

	exitCode := 0
	var serverErr error
	select {
	case <-ctx.Done():
		serverCancel()
		serverErr = <-serverErrCh
	case serverErr = <-serverErrCh:
	}
	if serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		exitCode = 1
	}

	stopErr := br.Stop()
	logStopResult(logger, br, stopErr)
	if stopErr != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", stopErr)
		exitCode = 1
	}
	return exitCode
}

func logStopResult(logger *slog.Logger, br *bridge.Bridge, err error) {
	if logger == nil {
		return
	}
	fields := []any{
		"state", br.State(),
		"mode", br.Mode(),
		"lingering", br.Running(),
	}
	if err != nil {
		logger.Error("bridge stop incomplete", append(fields, "error", err.Error())...)
		return
	}
	logger.Info("bridge stopped", fields...)
}

// tryForward reports handled=false only when no bridge owns the socket.
func tryForward(ctx context.Context, socketPath string, req ipc.Request) (ipc.Response, bool, error) {
	resp, err := ipc.Call(ctx, socketPath, req, forwardTimeout(req.Command))
	if errors.Is(err, ipc.ErrNoOwner) {
		return ipc.Response{}, false, nil
	}
	return resp, true, err
}

// forwardTimeout leaves reconnect room for a full stop and start.
func forwardTimeout(command string) time.Duration {
	if command == bridge.CommandReconnect {
		return 15 * time.Second
	}
	return 220 * time.Millisecond
}
