package mlt

import (
	"context"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/forPelevin/speechcut/internal/types"
)

func TestWritePlaylist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "speech.mlt")
	clip := types.Clip{ID: "c1", URL: "/media/talk.mp4", FPS: 25, Duration: 10}
	ivs := []types.Interval{{Start: 25, End: 75}, {Start: 90, End: 90}, {Start: 125, End: 150}}
	props := map[string]string{"speech": "<html><body><p>a &amp; b</p></body></html>"}

	if err := New().WritePlaylist(context.Background(), clip, path, ivs, props); err != nil {
		t.Fatalf("WritePlaylist: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(b), xml.Header) {
		t.Fatalf("missing header: %s", b)
	}
	var doc Document
	if err := xml.Unmarshal(b, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.Profile.FrameRateNum != 25 || doc.Profile.FrameRateDen != 1 {
		t.Fatalf("profile = %+v", doc.Profile)
	}
	if doc.Producers[0].Out != 249 || doc.Producers[0].Properties[0].Value != clip.URL {
		t.Fatalf("producer = %+v", doc.Producers[0])
	}
	if len(doc.Playlist.Entries) != 2 {
		t.Fatalf("entries = %+v", doc.Playlist.Entries)
	}
	if e := doc.Playlist.Entries[0]; e.In != 25 || e.Out != 74 {
		t.Fatalf("entry 0 = %+v", e)
	}
	if p := doc.Playlist.Properties; len(p) != 1 || p[0].Name != "speech" || p[0].Value != props["speech"] {
		t.Fatalf("properties = %+v", p)
	}
}

func TestRational(t *testing.T) {
	tests := []struct {
		fps      float64
		num, den int
	}{
		{25, 25, 1},
		{30000.0 / 1001, 30000, 1001},
		{0, 25, 1},
	}
	for _, tt := range tests {
		if n, d := rational(tt.fps); n != tt.num || d != tt.den {
			t.Errorf("rational(%v) = %d/%d, want %d/%d", tt.fps, n, d, tt.num, tt.den)
		}
	}
}

func TestWritePlaylist_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := New().WritePlaylist(ctx, types.Clip{}, filepath.Join(t.TempDir(), "x.mlt"), nil, nil); err == nil {
		t.Fatal("expected context error")
	}
}
