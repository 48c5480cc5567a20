// Package player stands in for the media monitor: it remembers the seek
// position and zone and hands playback to an external player.
package player

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"

	"github.com/forPelevin/speechcut/internal/domain/timemap"
	"github.com/forPelevin/speechcut/internal/types"
)

// State is what the monitor currently shows.
type State struct {
	ClipID   string
	Position int
	Zone     types.Interval
}

type Adapter struct {
	bin        string
	previewBin string
	log        *slog.Logger

	mu    sync.Mutex
	state State
	cur   *exec.Cmd

	// launch starts a detached process; replaced in tests.
	launch func(name string, args ...string) (*exec.Cmd, error)
}

// New returns a monitor playing zones with bin (mpv by default) and
// playlists with previewBin (melt by default).
func New(bin, previewBin string, log *slog.Logger) *Adapter {
	if bin == "" {
		bin = "mpv"
	}
	if previewBin == "" {
		previewBin = "melt"
	}
	if log == nil {
		log = slog.Default()
	}
	return &Adapter{bin: bin, previewBin: previewBin, log: log, launch: start}
}

func start(name string, args ...string) (*exec.Cmd, error) {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	go func() { _ = cmd.Wait() }()
	return cmd, nil
}

func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Adapter) Seek(ctx context.Context, clip types.Clip, frame int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.ClipID = clip.ID
	a.state.Position = frame
	a.log.Debug("monitor seek", "clip", clip.ID, "frame", frame)
	return nil
}

func (a *Adapter) LoadZone(ctx context.Context, clip types.Clip, zone types.Interval) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.ClipID = clip.ID
	a.state.Zone = zone
	return nil
}

// PlayZone plays [zone.Start, zone.End) of the clip, replacing any playback
// this adapter started before.
func (a *Adapter) PlayZone(ctx context.Context, clip types.Clip, zone types.Interval) error {
	args := []string{
		"--start=" + fmtSeconds(timemap.FramesToSeconds(zone.Start, clip.FPS)),
		"--end=" + fmtSeconds(timemap.FramesToSeconds(zone.End, clip.FPS)),
		clip.URL,
	}
	return a.play(a.bin, args...)
}

// Preview plays a playlist file.
func (a *Adapter) Preview(ctx context.Context, path string) error {
	return a.play(a.previewBin, path)
}

func (a *Adapter) play(name string, args ...string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cur != nil && a.cur.Process != nil {
		_ = a.cur.Process.Kill()
	}
	a.log.Debug("starting player", "bin", name, "args", args)
	cmd, err := a.launch(name, args...)
	if err != nil {
		a.cur = nil
		return fmt.Errorf("start %s: %w", name, err)
	}
	a.cur = cmd
	return nil
}

func fmtSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}
