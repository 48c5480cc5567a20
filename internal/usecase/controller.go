// Package usecase holds the Controller: it owns the transcript, the selection,
// the cut list and the running recognizer, and drives the collaborators in
// its Env. The Controller runs on one goroutine, the UI loop.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/forPelevin/speechcut/internal/domain/cuts"
	"github.com/forPelevin/speechcut/internal/domain/recognition"
	"github.com/forPelevin/speechcut/internal/domain/selection"
	"github.com/forPelevin/speechcut/internal/domain/timemap"
	"github.com/forPelevin/speechcut/internal/domain/transcript"
	"github.com/forPelevin/speechcut/internal/ports"
	"github.com/forPelevin/speechcut/internal/types"
)

// StatusTimeout is how long non-error banners stay up.
const StatusTimeout = 5 * time.Second

// Env is everything outside the Controller it talks to.
type Env struct {
	Recognizer ports.Recognizer
	Project    ports.ProjectIndex
	Monitor    ports.Monitor
	Timeline   ports.Timeline
	Playlists  ports.PlaylistWriter
	Preview    ports.Preview
	Log        *slog.Logger
	// TempDir holds the preview playlist; empty means os.TempDir.
	TempDir string
}

type State int

const (
	Idle State = iota
	Recognizing
)

func (s State) String() string {
	if s == Recognizing {
		return "recognizing"
	}
	return "idle"
}

// Status is the transient banner. Seq grows with every new message so a
// stale hide timer cannot close a newer banner.
type Status struct {
	Seq      int
	Text     string
	Severity Severity
	ShowLog  bool
}

func (s Status) Visible() bool  { return s.Text != "" }
func (s Status) AutoHide() bool { return s.Severity != SeverityError }

// Options select the language model and span for a recognition run.
type Options struct {
	Language string
	ModelDir string
	ZoneOnly bool
}

// Run identifies a started recognition. Events must be fed back through
// HandleEvent together with ID.
type Run struct {
	ID     int
	Events <-chan ports.Event
}

type Controller struct {
	env Env
	log *slog.Logger

	doc  *transcript.Document
	sel  *selection.Model
	cuts cuts.Set

	state    State
	run      ports.RecognitionRun
	runID    int
	session  *recognition.Session
	clip     types.Clip
	aborting bool
	progress float64

	stderr strings.Builder
	status Status

	playlist string
	chunks   rate.Sometimes
}

func New(env Env) *Controller {
	log := env.Log
	if log == nil {
		log = slog.Default()
	}
	env.Log = log
	return &Controller{
		env:    env,
		log:    log,
		doc:    transcript.New(log),
		sel:    selection.New(),
		chunks: rate.Sometimes{First: 5, Interval: 2 * time.Second},
	}
}

func (c *Controller) Document() *transcript.Document { return c.doc }
func (c *Controller) Selection() *selection.Model    { return c.sel }
func (c *Controller) State() State                   { return c.state }
func (c *Controller) Progress() float64              { return c.progress }
func (c *Controller) Clip() types.Clip               { return c.clip }
func (c *Controller) Status() Status                 { return c.status }

// Log returns the recognizer's stderr collected so far.
func (c *Controller) Log() string { return c.stderr.String() }

// Cuts returns the frame ranges removed so far.
func (c *Controller) Cuts() []types.Interval { return c.cuts.Intervals() }

// FPS of the transcribed clip, with a fallback before the first run.
func (c *Controller) FPS() float64 {
	if c.clip.FPS > 0 {
		return c.clip.FPS
	}
	return 25
}

// Start launches recognition on the active clip. It returns
// ErrRecognitionRunning without side effects while a run is active; the
// caller decides whether to Abort first.
func (c *Controller) Start(ctx context.Context, opts Options) (Run, error) {
	if c.state == Recognizing {
		return Run{}, ErrRecognitionRunning
	}
	c.HideStatus(c.status.Seq)
	c.stderr.Reset()

	if err := c.env.Recognizer.Check(ctx); err != nil {
		return Run{}, c.report(err)
	}
	if opts.Language == "" {
		return Run{}, c.report(ErrNoLanguageModel)
	}
	clip, err := c.env.Project.Active(ctx)
	if err != nil {
		c.log.Debug("no active clip", "err", err)
		return Run{}, c.report(ErrNoClipSelected)
	}
	if clip.URL == "" {
		return Run{}, c.report(ErrNoClipSelected)
	}

	job, cfg := plan(clip, opts)
	run, err := c.env.Recognizer.Start(ctx, job)
	if err != nil {
		return Run{}, c.report(err)
	}

	c.runID++
	c.run = run
	c.state = Recognizing
	c.clip = clip
	c.aborting = false
	c.progress = 0
	c.cuts.Clear()
	c.sel.Reset()
	c.session = recognition.NewSession(c.doc, clip.ID, cfg)
	c.log.Info("recognition started",
		"run", c.runID, "clip", clip.Name, "language", opts.Language,
		"offset", job.OffsetSec, "duration", job.DurationSec)
	c.setStatus(fmt.Sprintf("Starting speech recognition on %s.", clip.Name), SeverityInfo, false)
	return Run{ID: c.runID, Events: run.Events()}, nil
}

// plan computes the recognizer arguments and the analyzed span. Zone-only
// runs analyze the clip zone; otherwise offset and duration are both zero,
// meaning the whole clip.
func plan(clip types.Clip, opts Options) (types.RecognitionJob, recognition.Config) {
	job := types.RecognitionJob{
		ModelDir: opts.ModelDir,
		Language: opts.Language,
		MediaURL: clip.URL,
	}
	cfg := recognition.Config{FPS: clip.FPS, End: clip.Duration}
	if opts.ZoneOnly && !clip.Zone.Empty() {
		job.OffsetSec = timemap.FramesToSeconds(clip.Zone.Start, clip.FPS)
		job.DurationSec = timemap.FramesToSeconds(clip.Zone.End-clip.Zone.Start, clip.FPS)
		cfg.Offset = job.OffsetSec
		cfg.End = job.OffsetSec + job.DurationSec
	}
	return job, cfg
}

// Abort kills the running recognizer. The run ends with its Exit event.
func (c *Controller) Abort() error {
	if c.state != Recognizing || c.run == nil {
		return nil
	}
	c.aborting = true
	c.log.Info("aborting recognition", "run", c.runID)
	return c.run.Kill()
}

// Update says what an event changed.
type Update struct {
	Blocks   int
	Progress float64
	Done     bool
}

// HandleEvent applies one recognizer event. Events of older runs are dropped.
func (c *Controller) HandleEvent(runID int, ev ports.Event) Update {
	if runID != c.runID || c.state != Recognizing {
		return Update{}
	}
	switch ev := ev.(type) {
	case ports.Sentence:
		out := c.session.Apply(ev.Result)
		c.progress = out.Progress
		c.chunks.Do(func() {
			c.log.Debug("recognized chunk", "words", len(ev.Result.Result), "blocks", c.doc.BlockCount(), "progress", out.Progress)
		})
		return Update{Blocks: out.Blocks, Progress: out.Progress}
	case ports.Log:
		c.stderr.WriteString(ev.Text)
		return Update{Progress: c.progress}
	case ports.Exit:
		return c.finish(ev)
	}
	return Update{}
}

func (c *Controller) finish(ev ports.Exit) Update {
	c.state = Idle
	c.run = nil
	upd := Update{Done: true, Progress: c.progress}
	hasLog := c.stderr.Len() > 0

	switch {
	case ev.Crashed || ev.Code != 0 || c.aborting:
		c.log.Warn("recognition aborted", "run", c.runID, "code", ev.Code, "killed", c.aborting, "err", ev.Err)
		c.setStatus(sentence(ErrRecognizerCrashed.Error()), SeverityWarning, hasLog)
	default:
		out := c.session.Finish()
		upd.Blocks = out.Blocks
		c.progress = 1
		upd.Progress = 1
		if !c.session.HasSpeech() {
			c.setStatus(sentence(ErrNoSpeechDetected.Error()), SeverityInfo, hasLog)
		} else {
			c.setStatus("Speech recognition finished.", SeverityPositive, false)
		}
		c.log.Info("recognition finished", "run", c.runID, "blocks", c.doc.BlockCount())
	}
	c.aborting = false
	c.sel.Caret(0)
	return upd
}

// Close releases the preview playlist.
func (c *Controller) Close() error {
	if c.state == Recognizing {
		_ = c.Abort()
	}
	if c.playlist != "" {
		err := os.Remove(c.playlist)
		c.playlist = ""
		if err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (c *Controller) setStatus(text string, sev Severity, showLog bool) {
	c.status = Status{Seq: c.status.Seq + 1, Text: text, Severity: sev, ShowLog: showLog}
}

// report shows err as a banner and returns it.
func (c *Controller) report(err error) error {
	sev := SeverityOf(err)
	if sev == SeverityError {
		c.log.Error("operation failed", "err", err)
	} else {
		c.log.Debug("operation refused", "err", err)
	}
	c.setStatus(sentence(err.Error()), sev, sev >= SeverityWarning && c.stderr.Len() > 0)
	return err
}

// HideStatus hides the banner if it is still the one numbered seq.
func (c *Controller) HideStatus(seq int) {
	if c.status.Seq == seq && c.status.Visible() {
		c.status = Status{Seq: c.status.Seq}
	}
}
