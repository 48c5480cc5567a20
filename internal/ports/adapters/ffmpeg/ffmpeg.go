package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/forPelevin/speechcut/internal/domain/timemap"
	"github.com/forPelevin/speechcut/internal/types"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
	outDir  string
}

// New returns an adapter writing rendered edits to outDir, or next to the
// source media when outDir is empty.
func New(ffmpegPath, ffprobePath, outDir string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath, outDir: outDir}
}

type probeOutput struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		RFrameRate   string `json:"r_frame_rate"`
		AvgFrameRate string `json:"avg_frame_rate"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe reads the frame rate and duration of a media file. Audio-only files
// report a zero frame rate.
func (a *Adapter) Probe(ctx context.Context, path string) (types.MediaInfo, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "stream=codec_type,r_frame_rate,avg_frame_rate:format=duration",
		"-of", "json",
		path,
	)
	b, err := cmd.Output()
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return types.MediaInfo{}, fmt.Errorf("ffprobe: %w\n%s", err, string(ee.Stderr))
		}
		return types.MediaInfo{}, fmt.Errorf("ffprobe: %w", err)
	}
	return parseProbe(b)
}

func parseProbe(b []byte) (types.MediaInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(b, &out); err != nil {
		return types.MediaInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	var info types.MediaInfo
	if s := strings.TrimSpace(out.Format.Duration); s != "" {
		d, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return types.MediaInfo{}, fmt.Errorf("parse duration %q: %w", s, err)
		}
		info.Duration = d
	}
	for _, st := range out.Streams {
		if st.CodecType != "video" {
			continue
		}
		fps := parseRate(st.AvgFrameRate)
		if fps <= 0 {
			fps = parseRate(st.RFrameRate)
		}
		if fps > 0 {
			info.FPS = fps
			break
		}
	}
	return info, nil
}

// parseRate reads ffprobe's "num/den" rates.
func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !ok {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

// Insert renders the kept intervals of the clip, in order, into
// "<name>_speech.<ext>" and returns its path.
func (a *Adapter) Insert(ctx context.Context, clip types.Clip, intervals []types.Interval) (string, error) {
	if len(intervals) == 0 {
		return "", errors.New("ffmpeg render: no intervals")
	}
	out := a.outputPath(clip.URL)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", fmt.Errorf("ffmpeg render: %w", err)
	}
	args := append([]string{"-y", "-i", clip.URL}, RenderArgs(intervals, clip.FPS)...)
	args = append(args,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "18",
		"-c:a", "aac",
		"-b:a", "192k",
		out,
	)
	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ffmpeg render: %w\n%s", err, string(b))
	}
	return out, nil
}

func (a *Adapter) outputPath(src string) string {
	ext := filepath.Ext(src)
	if ext == "" {
		ext = ".mp4"
	}
	name := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)) + "_speech" + ext
	dir := a.outDir
	if dir == "" {
		dir = filepath.Dir(src)
	}
	return filepath.Join(dir, name)
}

// RenderArgs builds the select filters keeping the intervals. Frames are
// converted to seconds so the same expression works for the audio stream.
func RenderArgs(intervals []types.Interval, fps float64) []string {
	parts := make([]string, 0, len(intervals))
	for _, iv := range intervals {
		parts = append(parts, fmt.Sprintf("between(t,%s,%s)",
			fmtSeconds(timemap.FramesToSeconds(iv.Start, fps)),
			fmtSeconds(timemap.FramesToSeconds(iv.End, fps)),
		))
	}
	expr := strings.Join(parts, "+")
	return []string{
		"-vf", "select='" + expr + "',setpts=N/FRAME_RATE/TB",
		"-af", "aselect='" + expr + "',asetpts=N/SR/TB",
	}
}

func fmtSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}
