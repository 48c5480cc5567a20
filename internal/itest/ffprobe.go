//go:build integration

package itest

import (
	"context"
	"testing"
	"time"

	"github.com/forPelevin/speechcut/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/speechcut/internal/types"
)

// probeMedia reads fps and duration through the same adapter the editor uses.
func probeMedia(t *testing.T, path string) types.MediaInfo {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	info, err := ffmpeg.New("ffmpeg", "ffprobe", "").Probe(ctx, path)
	if err != nil {
		t.Fatalf("probe %s: %v", path, err)
	}
	return info
}
