package daw

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/markermatic/markermatic/internal/config"
	"github.com/markermatic/markermatic/internal/cue"
	"github.com/markermatic/markermatic/internal/lifecycle"
	"github.com/tidwall/gjson"
)

const (
	audacityPollInterval = 2 * time.Second
	audacityReplyTimeout = 2 * time.Second
	batchFinishedPrefix  = "BatchCommand finished:"
)

// AudacityPipePaths returns the mod-script-pipe FIFOs for the current user.
func AudacityPipePaths() (to string, from string) {
	uid := strconv.Itoa(os.Getuid())
	return "/tmp/audacity_script_pipe.to." + uid, "/tmp/audacity_script_pipe.from." + uid
}

// scriptPipe is an open mod-script-pipe session.
type scriptPipe struct {
	to   *os.File
	from *os.File
	r    *bufio.Reader
}

func openScriptPipe(toPath, fromPath string) (*scriptPipe, error) {
	for _, p := range []string{toPath, fromPath} {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("audacity pipe %s: %w", p, err)
		}
		if info.Mode()&os.ModeNamedPipe == 0 {
			return nil, fmt.Errorf("audacity pipe %s is not a fifo", p)
		}
	}
	// Read-write opens never block on a fifo, and both ends then honour
	// deadlines through the runtime poller.
	to, err := os.OpenFile(toPath, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", toPath, err)
	}
	from, err := os.OpenFile(fromPath, os.O_RDWR, 0)
	if err != nil {
		_ = to.Close()
		return nil, fmt.Errorf("open %s: %w", fromPath, err)
	}
	return &scriptPipe{to: to, from: from, r: bufio.NewReader(from)}, nil
}

func (p *scriptPipe) Close() error {
	return errors.Join(p.to.Close(), p.from.Close())
}

// do sends one command and returns the reply up to the terminating blank line.
func (p *scriptPipe) do(command string) (string, error) {
	deadline := time.Now().Add(audacityReplyTimeout)
	_ = p.to.SetWriteDeadline(deadline)
	if _, err := p.to.WriteString(command + "\n"); err != nil {
		return "", fmt.Errorf("write %q: %w", command, err)
	}
	_ = p.from.SetReadDeadline(deadline)

	var reply strings.Builder
	for {
		line, err := p.r.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("read reply to %q: %w", command, err)
		}
		if line == "\n" && reply.Len() > 0 {
			return reply.String(), nil
		}
		reply.WriteString(line)
	}
}

// splitReply separates the payload from the trailing batch status line.
func splitReply(reply string) (string, error) {
	body := strings.TrimRight(reply, "\n")
	idx := strings.LastIndex(body, batchFinishedPrefix)
	if idx < 0 {
		return body, nil
	}
	status := strings.TrimSpace(body[idx+len(batchFinishedPrefix):])
	payload := strings.TrimRight(body[:idx], "\n")
	if status != "OK" {
		return payload, fmt.Errorf("audacity command failed: %s", status)
	}
	return payload, nil
}

// audacityLabel is one label in project order.
type audacityLabel struct {
	Start float64
	Text  string
}

// parseLabels flattens GetInfo Type=Labels JSON: [[track, [[start, end, text], ...]], ...].
func parseLabels(payload string) ([]audacityLabel, error) {
	if !gjson.Valid(payload) {
		return nil, fmt.Errorf("audacity labels: invalid json")
	}
	var labels []audacityLabel
	gjson.Parse(payload).ForEach(func(_, track gjson.Result) bool {
		track.Get("1").ForEach(func(_, label gjson.Result) bool {
			labels = append(labels, audacityLabel{
				Start: label.Get("0").Float(),
				Text:  label.Get("2").String(),
			})
			return true
		})
		return true
	})
	return labels, nil
}

// Audacity drives Audacity through mod-script-pipe. Audacity does not
// report transport state, so it is tracked from issued commands.
type Audacity struct {
	deps     Deps
	policy   *Policy
	toPath   string
	fromPath string

	mu        sync.Mutex
	pipe      *scriptPipe
	playing   bool
	recording bool
}

func newAudacity(deps Deps) *Audacity {
	to, from := AudacityPipePaths()
	a := &Audacity{deps: deps, toPath: to, fromPath: from}
	a.policy = NewPolicy(deps, a)
	return a
}

func (a *Audacity) Type() string { return config.DAWAudacity }

func (a *Audacity) Start(spawn lifecycle.SpawnFunc) {
	spawn("daw_connection_thread", func(ctx context.Context) error {
		defer a.disconnect()
		for {
			if _, err := a.command("GetInfo: Type=Selection"); err != nil {
				if ctx.Err() == nil {
					a.deps.Logger.Warn("audacity poll failed", "error", err.Error())
				}
			} else {
				a.deps.seen(config.DAWAudacity)
			}
			if !lifecycle.Sleep(ctx, audacityPollInterval) {
				return nil
			}
		}
	})
}

func (a *Audacity) disconnect() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.disconnectLocked()
}

func (a *Audacity) disconnectLocked() {
	if a.pipe != nil {
		_ = a.pipe.Close()
		a.pipe = nil
	}
}

// command runs one scripting command, opening the pipes on demand. A
// failed exchange drops the pipes so the next command reopens them.
func (a *Audacity) command(cmd string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pipe == nil {
		pipe, err := openScriptPipe(a.toPath, a.fromPath)
		if err != nil {
			return "", err
		}
		a.pipe = pipe
	}
	reply, err := a.pipe.do(cmd)
	if err != nil {
		a.disconnectLocked()
		return "", err
	}
	return splitReply(reply)
}

func (a *Audacity) Nudge(context.Context) { a.disconnect() }

func (a *Audacity) Close() { a.policy.Close() }

func (a *Audacity) State() cue.TransportState {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case a.recording:
		return cue.StateRecording
	case a.playing:
		return cue.StatePlaying
	default:
		return cue.StateStopped
	}
}

func (a *Audacity) Armed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.recording
}

func (a *Audacity) setState(playing, recording bool) {
	a.mu.Lock()
	a.playing, a.recording = playing, recording
	a.mu.Unlock()
}

func (a *Audacity) Play() error {
	if _, err := a.command("Play"); err != nil {
		return err
	}
	a.setState(true, false)
	return nil
}

func (a *Audacity) Stop() error {
	if _, err := a.command("Stop"); err != nil {
		return err
	}
	a.setState(false, false)
	return nil
}

func (a *Audacity) Arm() error { return nil }

func (a *Audacity) SeekToEnd() error {
	_, err := a.command("CursProjectEnd")
	return err
}

func (a *Audacity) Record() error {
	if _, err := a.command("Record1stChoice"); err != nil {
		return err
	}
	a.setState(true, true)
	return nil
}

func (a *Audacity) labels() ([]audacityLabel, error) {
	payload, err := a.command("GetInfo: Type=Labels Format=JSON")
	if err != nil {
		return nil, err
	}
	return parseLabels(payload)
}

// PlaceMarker adds a label at the cursor and names the newest unnamed one.
func (a *Audacity) PlaceMarker(name string) error {
	if _, err := a.command("AddLabel"); err != nil {
		return err
	}
	labels, err := a.labels()
	if err != nil {
		return err
	}
	for i := len(labels) - 1; i >= 0; i-- {
		if labels[i].Text == "" {
			text := strings.ReplaceAll(name, `"`, "'")
			_, err := a.command(fmt.Sprintf(`SetLabel: Label=%d Text="%s"`, i, text))
			return err
		}
	}
	return nil
}

func (a *Audacity) LocateMarker(target string) error {
	labels, err := a.labels()
	if err != nil {
		return err
	}
	for _, label := range labels {
		if cue.MarkerMatches(label.Text, target, a.deps.NameOnly) {
			t := strconv.FormatFloat(label.Start, 'f', -1, 64)
			_, err := a.command(fmt.Sprintf("Select: Start=%s End=%s", t, t))
			return err
		}
	}
	return nil
}
