// Package project is the in-memory clip index of an editing session.
package project

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/forPelevin/speechcut/internal/ports"
	"github.com/forPelevin/speechcut/internal/types"
)

var (
	ErrUnknownClip  = errors.New("unknown clip")
	ErrNoActiveClip = errors.New("no active clip")
)

const defaultFPS = 25

type Index struct {
	probe       ports.MediaProbe
	fpsFallback float64

	mu     sync.Mutex
	clips  map[string]types.Clip
	order  []string
	active string
}

// New returns an empty index. fpsFallback is used for media without a video
// stream.
func New(probe ports.MediaProbe, fpsFallback float64) *Index {
	if fpsFallback <= 0 {
		fpsFallback = defaultFPS
	}
	return &Index{probe: probe, fpsFallback: fpsFallback, clips: map[string]types.Clip{}}
}

// Add probes the media at path, registers it under a fresh id and makes it
// the active clip.
func (x *Index) Add(ctx context.Context, path string) (types.Clip, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return types.Clip{}, err
	}
	if _, err := os.Stat(abs); err != nil {
		return types.Clip{}, fmt.Errorf("stat media: %w", err)
	}
	info, err := x.probe.Probe(ctx, abs)
	if err != nil {
		return types.Clip{}, err
	}
	fps := info.FPS
	if fps <= 0 {
		fps = x.fpsFallback
	}
	clip := types.Clip{
		ID:       uuid.NewString(),
		Name:     filepath.Base(abs),
		URL:      abs,
		FPS:      fps,
		Duration: info.Duration,
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.clips[clip.ID] = clip
	x.order = append(x.order, clip.ID)
	x.active = clip.ID
	return clip, nil
}

func (x *Index) Clip(ctx context.Context, id string) (types.Clip, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	c, ok := x.clips[id]
	if !ok {
		return types.Clip{}, fmt.Errorf("%w: %s", ErrUnknownClip, id)
	}
	return c, nil
}

func (x *Index) Active(ctx context.Context) (types.Clip, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.active == "" {
		return types.Clip{}, ErrNoActiveClip
	}
	return x.clips[x.active], nil
}

func (x *Index) SetActive(id string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, ok := x.clips[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownClip, id)
	}
	x.active = id
	return nil
}

// SetZone sets the clip's in/out zone in frames. The zone is clamped to the
// clip; an empty zone clears it.
func (x *Index) SetZone(id string, zone types.Interval) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	c, ok := x.clips[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownClip, id)
	}
	if last := int(c.Duration * c.FPS); last > 0 && zone.End > last {
		zone.End = last
	}
	zone.Start = max(zone.Start, 0)
	if zone.Empty() {
		zone = types.Interval{}
	}
	c.Zone = zone
	x.clips[id] = c
	return nil
}

// Clips lists clips in the order they were added.
func (x *Index) Clips() []types.Clip {
	x.mu.Lock()
	defer x.mu.Unlock()
	out := make([]types.Clip, 0, len(x.order))
	for _, id := range x.order {
		out = append(out, x.clips[id])
	}
	return out
}
