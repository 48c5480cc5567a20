// Package pipeline wires the adapters into a usecase.Controller and runs the
// headless transcription flow.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/forPelevin/speechcut/internal/config"
	"github.com/forPelevin/speechcut/internal/domain/subtitles"
	"github.com/forPelevin/speechcut/internal/domain/timemap"
	"github.com/forPelevin/speechcut/internal/domain/transcript"
	"github.com/forPelevin/speechcut/internal/ports"
	"github.com/forPelevin/speechcut/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/speechcut/internal/ports/adapters/mlt"
	"github.com/forPelevin/speechcut/internal/ports/adapters/player"
	"github.com/forPelevin/speechcut/internal/ports/adapters/project"
	"github.com/forPelevin/speechcut/internal/ports/adapters/vosk"
	"github.com/forPelevin/speechcut/internal/types"
	"github.com/forPelevin/speechcut/internal/usecase"
)

type Config struct {
	Media string
	// Settings are the effective settings, environment overrides applied.
	Settings config.Settings
	// Language overrides Settings.LanguageModel when set.
	Language string
	ZoneOnly bool
	// Zone is the clip zone in frames; the zero value means none.
	Zone types.Interval
	// OutDir receives rendered media. If empty, renders go next to the input.
	OutDir  string
	TempDir string
	Log     *slog.Logger
}

func (c Config) Validate() error {
	if c.Media == "" {
		return errors.New("input is empty")
	}
	if _, err := os.Stat(c.Media); err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	if c.Zone.Start < 0 || c.Zone.End < 0 {
		return errors.New("zone bounds must be >= 0")
	}
	if c.hasZone() && c.Zone.End <= c.Zone.Start {
		return errors.New("zone out must be after zone in")
	}
	if c.ZoneOnly && !c.hasZone() {
		return errors.New("zone-only recognition needs a zone")
	}
	if c.Settings.FPSFallback <= 0 {
		return errors.New("fps fallback must be > 0")
	}
	return nil
}

func (c Config) hasZone() bool { return c.Zone != (types.Interval{}) }

func (c Config) language() string {
	if c.Language != "" {
		return c.Language
	}
	return c.Settings.LanguageModel
}

// Session is one opened media file with its Controller and collaborators.
type Session struct {
	Controller *usecase.Controller
	Project    *project.Index
	Player     *player.Adapter
	Clip       types.Clip
	Options    usecase.Options
	Log        *slog.Logger
}

// Open probes the media, registers it as the active clip and builds the
// Controller around the configured adapters.
func Open(ctx context.Context, cfg Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	st := cfg.Settings

	// adapters
	media := ffmpeg.New(st.FFmpeg, st.FFprobe, cfg.OutDir)
	rec := vosk.New(st.Python, st.Script, log.With("component", "recognizer"))
	play := player.New(st.Player, st.PreviewPlayer, log.With("component", "player"))
	idx := project.New(media, st.FPSFallback)

	clip, err := idx.Add(ctx, cfg.Media)
	if err != nil {
		return nil, err
	}
	if cfg.hasZone() {
		if err := idx.SetZone(clip.ID, cfg.Zone); err != nil {
			return nil, err
		}
		if clip, err = idx.Clip(ctx, clip.ID); err != nil {
			return nil, err
		}
	}
	log.Info("media opened", "clip", clip.Name, "fps", clip.FPS, "duration", clip.Duration,
		"zone_in", clip.Zone.Start, "zone_out", clip.Zone.End)

	ctl := usecase.New(usecase.Env{
		Recognizer: rec,
		Project:    idx,
		Monitor:    play,
		Timeline:   media,
		Playlists:  mlt.New(),
		Preview:    play,
		Log:        log,
		TempDir:    cfg.TempDir,
	})
	return &Session{
		Controller: ctl,
		Project:    idx,
		Player:     play,
		Clip:       clip,
		Options: usecase.Options{
			Language: cfg.language(),
			ModelDir: st.ModelDir,
			ZoneOnly: cfg.ZoneOnly,
		},
		Log: log,
	}, nil
}

func (s *Session) Close() error { return s.Controller.Close() }

// Transcribe runs recognition to completion without a UI. Cancelling ctx
// aborts the recognizer; the run still ends through its exit event.
func Transcribe(ctx context.Context, s *Session, onUpdate func(usecase.Update)) error {
	c := s.Controller
	// the recognizer outlives ctx so that an abort is observed as an exit
	run, err := c.Start(context.WithoutCancel(ctx), s.Options)
	if err != nil {
		return err
	}
	done := ctx.Done()
	for {
		select {
		case <-done:
			done = nil
			if err := c.Abort(); err != nil {
				s.Log.Warn("abort recognizer", "err", err)
			}
		case ev, ok := <-run.Events:
			if !ok {
				return errors.New("recognizer closed without exiting")
			}
			upd := c.HandleEvent(run.ID, ev)
			if onUpdate != nil {
				onUpdate(upd)
			}
			if upd.Done {
				return outcome(ctx, c)
			}
		}
	}
}

// outcome turns the final banner into an error for non-interactive callers.
func outcome(ctx context.Context, c *usecase.Controller) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	st := c.Status()
	switch {
	case st.Severity == usecase.SeverityWarning:
		return fmt.Errorf("%w: %s", usecase.ErrRecognizerCrashed, lastLine(c.Log()))
	case c.Document().Empty():
		return usecase.ErrNoSpeechDetected
	}
	return nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	if s == "" {
		return "no recognizer output"
	}
	return s
}

// Outputs selects the files WriteOutputs produces.
type Outputs struct {
	SRT  bool
	VTT  bool
	ASS  bool
	HTML bool
}

func (o Outputs) Any() bool { return o.SRT || o.VTT || o.ASS || o.HTML }

// Manifest describes a transcription run on disk.
type Manifest struct {
	Media    string          `json:"media"`
	ClipID   string          `json:"clip_id"`
	FPS      float64         `json:"fps"`
	Duration float64         `json:"duration"`
	Blocks   []ManifestBlock `json:"blocks"`
	Files    []string        `json:"files"`
}

type ManifestBlock struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Timecode string  `json:"timecode"`
	Silence  bool    `json:"silence,omitempty"`
}

// WriteOutputs writes the transcript into a fresh run directory under outRoot
// and returns that directory.
func WriteOutputs(s *Session, outRoot string, want Outputs) (string, error) {
	if outRoot == "" {
		outRoot = "out"
	}
	runOutDir := buildRunOutDir(outRoot, s.Clip.URL, time.Now().UTC())
	if err := os.MkdirAll(runOutDir, 0o755); err != nil {
		return "", err
	}
	doc := s.Controller.Document()
	name := normalizePathSegment(strings.TrimSuffix(s.Clip.Name, filepath.Ext(s.Clip.Name)))
	if name == "" {
		name = "transcript"
	}

	m := Manifest{Media: s.Clip.URL, ClipID: s.Clip.ID, FPS: s.Clip.FPS, Duration: s.Clip.Duration}
	for i := 0; i < doc.BlockCount(); i++ {
		b, z := doc.Block(i), doc.Zone(i)
		m.Blocks = append(m.Blocks, ManifestBlock{
			Text:     b.Text(),
			Start:    z.Start,
			End:      z.End,
			Timecode: timemap.SecondsTimecode(z.Start, s.Clip.FPS),
			Silence:  b.Silence,
		})
	}

	write := func(file string, fn func(*os.File) error) error {
		p := filepath.Join(runOutDir, file)
		f, err := os.Create(p)
		if err != nil {
			return err
		}
		if err := fn(f); err != nil {
			_ = f.Close()
			return fmt.Errorf("write %s: %w", file, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		m.Files = append(m.Files, file)
		s.Log.Info("output written", "path", p)
		return nil
	}
	subs := func(format transcript.SubtitleFormat) func(*os.File) error {
		return func(f *os.File) error { return doc.WriteSubtitles(f, format) }
	}
	if want.SRT {
		if err := write(name+".srt", subs(transcript.FormatSRT)); err != nil {
			return "", err
		}
	}
	if want.VTT {
		if err := write(name+".vtt", subs(transcript.FormatVTT)); err != nil {
			return "", err
		}
	}
	if want.ASS {
		err := write(name+".ass", func(f *os.File) error {
			return subtitles.WriteKaraokeASS(f, doc.TimedBlocks())
		})
		if err != nil {
			return "", err
		}
	}
	if want.HTML {
		err := write(name+".html", func(f *os.File) error {
			_, err := f.WriteString(doc.HTML())
			return err
		})
		if err != nil {
			return "", err
		}
	}

	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}
	manifestPath := filepath.Join(runOutDir, "manifest.json")
	if err := os.WriteFile(manifestPath, b, 0o644); err != nil {
		return "", err
	}
	s.Log.Info("manifest written", "blocks", len(m.Blocks), "path", manifestPath)
	return runOutDir, nil
}

func buildRunOutDir(outRoot, input string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	name = normalizePathSegment(name)
	if name == "" {
		name = "input"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", input, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var _ ports.Recognizer = (*vosk.Adapter)(nil)
var _ ports.MediaProbe = (*ffmpeg.Adapter)(nil)
var _ ports.Timeline = (*ffmpeg.Adapter)(nil)
var _ ports.ProjectIndex = (*project.Index)(nil)
var _ ports.Monitor = (*player.Adapter)(nil)
var _ ports.Preview = (*player.Adapter)(nil)
var _ ports.PlaylistWriter = (*mlt.Writer)(nil)
