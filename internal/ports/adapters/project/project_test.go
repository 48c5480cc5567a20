package project

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/forPelevin/speechcut/internal/types"
)

type fakeProbe struct {
	info types.MediaInfo
	err  error
}

func (f fakeProbe) Probe(context.Context, string) (types.MediaInfo, error) { return f.info, f.err }

func media(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "talk.mp4")
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestAdd(t *testing.T) {
	x := New(fakeProbe{info: types.MediaInfo{FPS: 30, Duration: 12}}, 0)
	ctx := context.Background()
	if _, err := x.Active(ctx); !errors.Is(err, ErrNoActiveClip) {
		t.Fatalf("err = %v", err)
	}
	c, err := x.Add(ctx, media(t))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := uuid.Parse(c.ID); err != nil {
		t.Fatalf("id %q: %v", c.ID, err)
	}
	if c.Name != "talk.mp4" || c.FPS != 30 || c.Duration != 12 {
		t.Fatalf("clip = %+v", c)
	}
	active, err := x.Active(ctx)
	if err != nil || active.ID != c.ID {
		t.Fatalf("active = %+v, %v", active, err)
	}
	got, err := x.Clip(ctx, c.ID)
	if err != nil || got != c {
		t.Fatalf("Clip = %+v, %v", got, err)
	}
	if _, err := x.Clip(ctx, "nope"); !errors.Is(err, ErrUnknownClip) {
		t.Fatalf("err = %v", err)
	}
}

func TestAdd_FPSFallbackAndErrors(t *testing.T) {
	ctx := context.Background()
	x := New(fakeProbe{info: types.MediaInfo{Duration: 4}}, 0)
	c, err := x.Add(ctx, media(t))
	if err != nil || c.FPS != defaultFPS {
		t.Fatalf("clip = %+v, %v", c, err)
	}
	if _, err := x.Add(ctx, filepath.Join(t.TempDir(), "missing.mp4")); err == nil {
		t.Fatal("expected stat error")
	}
	boom := errors.New("boom")
	x = New(fakeProbe{err: boom}, 0)
	if _, err := x.Add(ctx, media(t)); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func TestSetZone(t *testing.T) {
	ctx := context.Background()
	x := New(fakeProbe{info: types.MediaInfo{FPS: 25, Duration: 10}}, 0)
	c, _ := x.Add(ctx, media(t))
	if err := x.SetZone(c.ID, types.Interval{Start: -5, End: 1000}); err != nil {
		t.Fatal(err)
	}
	got, _ := x.Clip(ctx, c.ID)
	if got.Zone != (types.Interval{Start: 0, End: 250}) {
		t.Fatalf("zone = %+v", got.Zone)
	}
	_ = x.SetZone(c.ID, types.Interval{Start: 10, End: 10})
	got, _ = x.Clip(ctx, c.ID)
	if !got.Zone.Empty() {
		t.Fatalf("zone should be cleared: %+v", got.Zone)
	}
	if err := x.SetZone("nope", types.Interval{}); !errors.Is(err, ErrUnknownClip) {
		t.Fatalf("err = %v", err)
	}
	if err := x.SetActive("nope"); !errors.Is(err, ErrUnknownClip) {
		t.Fatalf("err = %v", err)
	}
	if len(x.Clips()) != 1 {
		t.Fatalf("clips = %+v", x.Clips())
	}
}
