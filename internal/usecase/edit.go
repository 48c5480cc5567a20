package usecase

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/forPelevin/speechcut/internal/domain/export"
	"github.com/forPelevin/speechcut/internal/domain/selection"
	"github.com/forPelevin/speechcut/internal/domain/transcript"
	"github.com/forPelevin/speechcut/internal/ports"
	"github.com/forPelevin/speechcut/internal/types"
)

func (c *Controller) editable() error {
	if c.state != Idle {
		return ErrBusy
	}
	if c.doc.Empty() {
		return ErrEmptyDocument
	}
	return nil
}

// Delete removes the selected blocks, or the selected words, and records the
// removed media as cuts. Without a selection it drops blocks that hold no
// timed words. It returns how many cuts were added or blocks dropped.
func (c *Controller) Delete() (int, error) {
	if err := c.editable(); err != nil {
		return 0, c.report(err)
	}
	fps := c.FPS()
	switch {
	case c.sel.HasBlocks():
		zones := c.doc.DeleteBlocks(c.sel.SelectedBlocks())
		for _, z := range zones {
			c.cuts.Add(export.Frames(z, fps))
		}
		c.sel.ClearBlocks()
		c.log.Debug("deleted blocks", "count", len(zones), "cuts", c.cuts.Len())
		return len(zones), nil
	case c.sel.HasChar():
		a, b := c.sel.CharRange()
		z, ok := c.doc.DeleteRange(a, b)
		if !ok {
			return 0, nil
		}
		c.cuts.Add(export.Frames(z, fps))
		c.sel.Caret(min(a, c.doc.Len()))
		c.log.Debug("deleted words", "start", z.Start, "end", z.End, "cuts", c.cuts.Len())
		return 1, nil
	default:
		return c.doc.RemoveEmptyBlocks(), nil
	}
}

// Intervals returns the frame ranges an export would use now.
func (c *Controller) Intervals() ([]types.Interval, error) {
	return export.Intervals(c.doc, c.sel, &c.cuts, c.FPS())
}

func (c *Controller) exportIntervals() ([]types.Interval, error) {
	if err := c.editable(); err != nil {
		return nil, c.report(err)
	}
	ivs, err := c.Intervals()
	if err != nil {
		return nil, c.report(err)
	}
	return ivs, nil
}

// InsertJob is a prepared timeline insert. Run touches no Controller state
// and may run off the UI loop; its result goes back through FinishInsert.
type InsertJob struct {
	Intervals []types.Interval

	clip     types.Clip
	timeline ports.Timeline
}

func (j InsertJob) Run(ctx context.Context) (string, error) {
	return j.timeline.Insert(ctx, j.clip, j.Intervals)
}

// PrepareInsert resolves the intervals to hand to the timeline.
func (c *Controller) PrepareInsert() (InsertJob, error) {
	ivs, err := c.exportIntervals()
	if err != nil {
		return InsertJob{}, err
	}
	return InsertJob{Intervals: ivs, clip: c.clip, timeline: c.env.Timeline}, nil
}

// FinishInsert reports the outcome of a job's Run.
func (c *Controller) FinishInsert(j InsertJob, out string, err error) (string, error) {
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", c.report(fmt.Errorf("insert into timeline: %w", err))
	}
	c.log.Info("zones inserted", "count", len(j.Intervals), "output", out)
	c.setStatus(fmt.Sprintf("Inserted %d zones into %s.", len(j.Intervals), out), SeverityPositive, false)
	return out, nil
}

// Insert hands the kept intervals to the timeline and returns its output.
func (c *Controller) Insert(ctx context.Context) (string, error) {
	j, err := c.PrepareInsert()
	if err != nil {
		return "", err
	}
	out, err := j.Run(ctx)
	return c.FinishInsert(j, out, err)
}

// Preview writes the kept intervals and the transcript to the session's
// playlist file and plays it.
func (c *Controller) Preview(ctx context.Context) (string, error) {
	ivs, err := c.exportIntervals()
	if err != nil {
		return "", err
	}
	path, err := c.playlistPath()
	if err != nil {
		return "", c.report(err)
	}
	props := map[string]string{"speech": c.doc.HTML()}
	if err := c.env.Playlists.WritePlaylist(ctx, c.clip, path, ivs, props); err != nil {
		return "", c.report(fmt.Errorf("write playlist: %w", err))
	}
	if err := c.env.Preview.Preview(ctx, path); err != nil {
		return "", c.report(fmt.Errorf("preview: %w", err))
	}
	return path, nil
}

// playlistPath reserves one temporary file for the Controller's lifetime.
func (c *Controller) playlistPath() (string, error) {
	if c.playlist != "" {
		return c.playlist, nil
	}
	f, err := os.CreateTemp(c.env.TempDir, "speechcut-speech-*.mlt")
	if err != nil {
		return "", fmt.Errorf("reserve playlist: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("reserve playlist: %w", err)
	}
	c.playlist = f.Name()
	return c.playlist, nil
}

// ExportSubtitles writes the speech blocks next to the clip's media and
// returns the file written.
func (c *Controller) ExportSubtitles(format transcript.SubtitleFormat) (string, error) {
	if err := c.editable(); err != nil {
		return "", c.report(err)
	}
	base := strings.TrimSuffix(c.clip.URL, filepath.Ext(c.clip.URL))
	f, err := createNumbered(base, "."+string(format))
	if err != nil {
		return "", c.report(err)
	}
	path := f.Name()
	if err := c.doc.WriteSubtitles(f, format); err != nil {
		_ = f.Close()
		return "", c.report(fmt.Errorf("write subtitles: %w", err))
	}
	if err := f.Close(); err != nil {
		return "", c.report(err)
	}
	c.setStatus(fmt.Sprintf("Subtitles written to %s.", path), SeverityPositive, false)
	return path, nil
}

// maxNumbered bounds the "-N" suffixes tried by createNumbered.
const maxNumbered = 999

// createNumbered creates base+ext, or base-1+ext, base-2+ext and so on when
// the name is taken. Existing files are never overwritten.
func createNumbered(base, ext string) (*os.File, error) {
	for i := 0; i <= maxNumbered; i++ {
		path := base + ext
		if i > 0 {
			path = fmt.Sprintf("%s-%d%s", base, i, ext)
		}
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		return f, err
	}
	return nil, fmt.Errorf("no free file name for %s%s", base, ext)
}

type SearchDirection int

const (
	// SearchIncremental searches from the start of the current selection so
	// a growing query keeps its match.
	SearchIncremental SearchDirection = iota
	SearchNext
	SearchPrev
)

type SearchResult int

const (
	// SearchNone means the query is too short to search.
	SearchNone SearchResult = iota
	SearchHit
	SearchMiss
)

// MinSearchLen is the shortest query that is searched.
const MinSearchLen = 3

// Search finds query case-insensitively and selects the words it falls in.
func (c *Controller) Search(query string, dir SearchDirection) (SearchResult, error) {
	if err := c.editable(); err != nil {
		return SearchNone, err
	}
	if len([]rune(query)) < MinSearchLen {
		return SearchNone, nil
	}
	a, b := c.sel.CharRange()
	var (
		s, e int
		ok   bool
	)
	switch dir {
	case SearchPrev:
		s, e, ok = c.doc.Find(query, a, true)
	case SearchNext:
		s, e, ok = c.doc.Find(query, b, false)
	default:
		s, e, ok = c.doc.Find(query, a, false)
	}
	if !ok {
		return SearchMiss, nil
	}
	s, e = c.doc.SnapRange(s, e)
	c.sel.SetChar(s, e)
	return SearchHit, nil
}

// SelectChars updates the character selection while dragging.
func (c *Controller) SelectChars(anchor, head int) {
	c.sel.SetChar(anchor, head)
}

// FinishDrag snaps the dragged selection to whole words.
func (c *Controller) FinishDrag() {
	if !c.sel.HasChar() {
		return
	}
	a, b := c.sel.CharRange()
	a, b = c.doc.SnapRange(a, b)
	c.sel.SetChar(a, b)
}

// ClickWord moves the caret to pos and seeks the monitor to the word there.
func (c *Controller) ClickWord(ctx context.Context, pos int) error {
	c.sel.ClearBlocks()
	c.sel.Caret(pos)
	w, ok := c.doc.WordAt(pos)
	if !ok {
		return nil
	}
	z, ok := c.doc.WordZone(w)
	if !ok {
		return nil
	}
	frame := export.Frames(z, c.FPS()).Start
	if err := c.env.Monitor.Seek(ctx, c.clip, frame); err != nil {
		return c.report(fmt.Errorf("seek: %w", err))
	}
	return nil
}

// ClickBlock applies a gutter click: it updates the block selection, parks
// the caret at the end of the block, seeks the monitor to the block and
// loads its zone. play also starts zone playback.
func (c *Controller) ClickBlock(ctx context.Context, i int, mods selection.Modifiers, play bool) error {
	if i < 0 || i >= c.doc.BlockCount() {
		return nil
	}
	c.sel.Click(i, mods)
	_, end := c.doc.BlockRange(i)
	c.sel.Caret(end)

	zone := export.Frames(c.doc.Zone(i), c.FPS())
	if err := c.env.Monitor.Seek(ctx, c.clip, zone.Start); err != nil {
		return c.report(fmt.Errorf("seek: %w", err))
	}
	if err := c.env.Monitor.LoadZone(ctx, c.clip, zone); err != nil {
		return c.report(fmt.Errorf("load zone: %w", err))
	}
	if play {
		if err := c.env.Monitor.PlayZone(ctx, c.clip, zone); err != nil {
			return c.report(fmt.Errorf("play zone: %w", err))
		}
	}
	return nil
}

// Report shows an error raised outside the Controller in the banner.
func (c *Controller) Report(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}
	return c.report(err)
}
