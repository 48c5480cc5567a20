package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/forPelevin/speechcut/internal/domain/selection"
	"github.com/forPelevin/speechcut/internal/domain/transcript"
	"github.com/forPelevin/speechcut/internal/ports"
	"github.com/forPelevin/speechcut/internal/types"
)

type fakeRun struct {
	events chan ports.Event
	killed int
}

func (r *fakeRun) Events() <-chan ports.Event { return r.events }
func (r *fakeRun) Kill() error                { r.killed++; return nil }

type fakeRecognizer struct {
	checkErr error
	startErr error
	jobs     []types.RecognitionJob
	runs     []*fakeRun
}

func (f *fakeRecognizer) Check(context.Context) error { return f.checkErr }

func (f *fakeRecognizer) Start(_ context.Context, job types.RecognitionJob) (ports.RecognitionRun, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.jobs = append(f.jobs, job)
	r := &fakeRun{events: make(chan ports.Event, 8)}
	f.runs = append(f.runs, r)
	return r, nil
}

type fakeProject struct {
	clip types.Clip
	err  error
}

func (f fakeProject) Clip(context.Context, string) (types.Clip, error) { return f.clip, f.err }
func (f fakeProject) Active(context.Context) (types.Clip, error)       { return f.clip, f.err }

type monitorCall struct {
	op   string
	zone types.Interval
}

type fakeMonitor struct{ calls []monitorCall }

func (m *fakeMonitor) Seek(_ context.Context, _ types.Clip, frame int) error {
	m.calls = append(m.calls, monitorCall{"seek", types.Interval{Start: frame}})
	return nil
}

func (m *fakeMonitor) LoadZone(_ context.Context, _ types.Clip, zone types.Interval) error {
	m.calls = append(m.calls, monitorCall{"zone", zone})
	return nil
}

func (m *fakeMonitor) PlayZone(_ context.Context, _ types.Clip, zone types.Interval) error {
	m.calls = append(m.calls, monitorCall{"play", zone})
	return nil
}

type fakeTimeline struct {
	got [][]types.Interval
	err error
}

func (f *fakeTimeline) Insert(_ context.Context, _ types.Clip, ivs []types.Interval) (string, error) {
	f.got = append(f.got, ivs)
	return "/out/talk_speech.mp4", f.err
}

type fakePlaylists struct {
	path  string
	ivs   []types.Interval
	props map[string]string
}

func (f *fakePlaylists) WritePlaylist(_ context.Context, _ types.Clip, path string, ivs []types.Interval, props map[string]string) error {
	f.path, f.ivs, f.props = path, ivs, props
	return os.WriteFile(path, []byte("<mlt/>"), 0o644)
}

type fakePreview struct{ paths []string }

func (f *fakePreview) Preview(_ context.Context, path string) error {
	f.paths = append(f.paths, path)
	return nil
}

type fixture struct {
	c         *Controller
	rec       *fakeRecognizer
	monitor   *fakeMonitor
	timeline  *fakeTimeline
	playlists *fakePlaylists
	preview   *fakePreview
}

func newFixture(t *testing.T, clip types.Clip) *fixture {
	t.Helper()
	f := &fixture{
		rec:       &fakeRecognizer{},
		monitor:   &fakeMonitor{},
		timeline:  &fakeTimeline{},
		playlists: &fakePlaylists{},
		preview:   &fakePreview{},
	}
	f.c = New(Env{
		Recognizer: f.rec,
		Project:    fakeProject{clip: clip},
		Monitor:    f.monitor,
		Timeline:   f.timeline,
		Playlists:  f.playlists,
		Preview:    f.preview,
		TempDir:    t.TempDir(),
	})
	t.Cleanup(func() { _ = f.c.Close() })
	return f
}

func testClip() types.Clip {
	return types.Clip{ID: "c1", Name: "talk.mp4", URL: "/media/talk.mp4", FPS: 25, Duration: 10}
}

func spoken(words ...types.Word) ports.Sentence {
	return ports.Sentence{Result: types.RecognitionResult{Result: words}}
}

func w(word string, start, end float64) types.Word {
	return types.Word{Word: word, Start: start, End: end}
}

// recognize runs a full recognition with the given sentences.
func (f *fixture) recognize(t *testing.T, sentences ...ports.Sentence) {
	t.Helper()
	run, err := f.c.Start(context.Background(), Options{Language: "en", ModelDir: "/models"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	for _, s := range sentences {
		f.c.HandleEvent(run.ID, s)
	}
	f.c.HandleEvent(run.ID, ports.Sentence{})
	if upd := f.c.HandleEvent(run.ID, ports.Exit{}); !upd.Done {
		t.Fatalf("exit not handled: %+v", upd)
	}
}

func TestStart_Validation(t *testing.T) {
	t.Run("not installed", func(t *testing.T) {
		f := newFixture(t, testClip())
		f.rec.checkErr = ports.ErrRecognizerNotInstalled
		_, err := f.c.Start(context.Background(), Options{Language: "en"})
		if !errors.Is(err, ports.ErrRecognizerNotInstalled) {
			t.Fatalf("err = %v", err)
		}
		if st := f.c.Status(); st.Severity != SeverityWarning || !st.Visible() {
			t.Fatalf("status = %+v", st)
		}
	})
	t.Run("no language", func(t *testing.T) {
		f := newFixture(t, testClip())
		_, err := f.c.Start(context.Background(), Options{})
		if !errors.Is(err, ErrNoLanguageModel) {
			t.Fatalf("err = %v", err)
		}
		if got := f.c.Status().Text; got != "Please install a language model." {
			t.Fatalf("status = %q", got)
		}
	})
	t.Run("no clip", func(t *testing.T) {
		f := newFixture(t, types.Clip{})
		_, err := f.c.Start(context.Background(), Options{Language: "en"})
		if !errors.Is(err, ErrNoClipSelected) {
			t.Fatalf("err = %v", err)
		}
		if st := f.c.Status(); st.Severity != SeverityInfo {
			t.Fatalf("status = %+v", st)
		}
	})
}

func TestRecognition_EndToEnd(t *testing.T) {
	f := newFixture(t, testClip())
	run, err := f.c.Start(context.Background(), Options{Language: "en", ModelDir: "/models"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if f.c.State() != Recognizing {
		t.Fatalf("state = %v", f.c.State())
	}
	if got := f.c.Status().Text; got != "Starting speech recognition on talk.mp4." {
		t.Fatalf("status = %q", got)
	}
	want := types.RecognitionJob{ModelDir: "/models", Language: "en", MediaURL: "/media/talk.mp4"}
	if f.rec.jobs[0] != want {
		t.Fatalf("job = %+v", f.rec.jobs[0])
	}

	f.c.HandleEvent(run.ID, spoken(w("hello", 0.2, 0.6), w("world", 0.7, 1.1)))
	f.c.HandleEvent(run.ID, ports.Log{Text: "LOG (VoskAPI)\n"})
	upd := f.c.HandleEvent(run.ID, spoken(w("again", 3.0, 3.4)))
	if upd.Blocks != 2 || f.c.Document().BlockCount() != 3 {
		t.Fatalf("update = %+v, blocks = %d", upd, f.c.Document().BlockCount())
	}
	f.c.HandleEvent(run.ID, ports.Sentence{})
	upd = f.c.HandleEvent(run.ID, ports.Exit{})
	if !upd.Done || upd.Blocks != 1 || f.c.State() != Idle {
		t.Fatalf("exit update = %+v, state = %v", upd, f.c.State())
	}
	st := f.c.Status()
	if st.Text != "Speech recognition finished." || st.Severity != SeverityPositive || !st.AutoHide() {
		t.Fatalf("status = %+v", st)
	}
	if f.c.Log() != "LOG (VoskAPI)\n" {
		t.Fatalf("log = %q", f.c.Log())
	}
	if f.c.Selection().CaretPos() != 0 {
		t.Fatalf("caret = %d", f.c.Selection().CaretPos())
	}
}

func TestRecognition_ZoneOnly(t *testing.T) {
	clip := testClip()
	clip.Zone = types.Interval{Start: 50, End: 150}
	f := newFixture(t, clip)
	run, err := f.c.Start(context.Background(), Options{Language: "en", ZoneOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if j := f.rec.jobs[0]; j.OffsetSec != 2 || j.DurationSec != 4 {
		t.Fatalf("job = %+v", j)
	}
	f.c.HandleEvent(run.ID, spoken(w("hi", 0.5, 1.0)))
	f.c.HandleEvent(run.ID, ports.Exit{})
	doc := f.c.Document()
	if z := doc.Zone(0); z.Start != 2.5 || z.End != 3 {
		t.Fatalf("zone = %+v", z)
	}
	if z := doc.Zone(doc.BlockCount() - 1); z.End != 6 {
		t.Fatalf("trailing silence = %+v", z)
	}
}

func TestRecognition_NoSpeech(t *testing.T) {
	f := newFixture(t, testClip())
	run, _ := f.c.Start(context.Background(), Options{Language: "en"})
	f.c.HandleEvent(run.ID, ports.Log{Text: "warning"})
	f.c.HandleEvent(run.ID, ports.Sentence{})
	f.c.HandleEvent(run.ID, ports.Exit{})
	st := f.c.Status()
	if st.Text != "No speech detected." || st.Severity != SeverityInfo || !st.ShowLog {
		t.Fatalf("status = %+v", st)
	}
	if !f.c.Document().Empty() {
		t.Fatal("document should be empty")
	}
}

func TestRecognition_AbortAndRestart(t *testing.T) {
	f := newFixture(t, testClip())
	ctx := context.Background()
	first, _ := f.c.Start(ctx, Options{Language: "en"})
	f.c.HandleEvent(first.ID, spoken(w("a", 0, 1)))

	if _, err := f.c.Start(ctx, Options{Language: "en"}); !errors.Is(err, ErrRecognitionRunning) {
		t.Fatalf("err = %v", err)
	}
	if err := f.c.Abort(); err != nil {
		t.Fatal(err)
	}
	if f.rec.runs[0].killed != 1 {
		t.Fatalf("kills = %d", f.rec.runs[0].killed)
	}
	f.c.HandleEvent(first.ID, ports.Log{Text: "killed"})
	f.c.HandleEvent(first.ID, ports.Exit{Crashed: true, Code: -1})
	st := f.c.Status()
	if st.Text != "Speech recognition aborted." || st.Severity != SeverityWarning || !st.ShowLog {
		t.Fatalf("status = %+v", st)
	}

	second, err := f.c.Start(ctx, Options{Language: "en"})
	if err != nil {
		t.Fatal(err)
	}
	if upd := f.c.HandleEvent(first.ID, spoken(w("stale", 5, 6))); upd.Blocks != 0 {
		t.Fatalf("stale event applied: %+v", upd)
	}
	f.c.HandleEvent(second.ID, spoken(w("fresh", 1, 2)))
	if got := f.c.Document().Text(); got != "fresh" {
		t.Fatalf("text = %q", got)
	}
}

func TestEditsRequireIdleAndText(t *testing.T) {
	f := newFixture(t, testClip())
	if _, err := f.c.Delete(); !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("err = %v", err)
	}
	f.c.Start(context.Background(), Options{Language: "en"})
	if _, err := f.c.Insert(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("err = %v", err)
	}
	if res, err := f.c.Search("hello", SearchNext); !errors.Is(err, ErrBusy) || res != SearchNone {
		t.Fatalf("search = %v, %v", res, err)
	}
}

func TestDeleteWords_AddsCut(t *testing.T) {
	f := newFixture(t, testClip())
	f.recognize(t, spoken(w("one", 0, 0.4), w("two", 0.5, 0.9), w("three", 1.0, 1.4), w("four", 1.5, 1.9), w("five", 2.0, 2.4)))
	// "one two three four five"
	f.c.SelectChars(5, 16)
	f.c.FinishDrag()
	if a, b := f.c.Selection().CharRange(); a != 4 || b != 18 {
		t.Fatalf("snapped selection = %d, %d", a, b)
	}
	n, err := f.c.Delete()
	if err != nil || n != 1 {
		t.Fatalf("Delete = %d, %v", n, err)
	}
	if got := f.c.Document().Text(); !strings.HasPrefix(got, "one five") {
		t.Fatalf("text = %q", got)
	}
	if got := f.c.Cuts(); !reflect.DeepEqual(got, []types.Interval{{Start: 12, End: 47}}) {
		t.Fatalf("cuts = %v", got)
	}
	if z := f.c.Document().Zone(0); z.Start != 0 || z.End != 2.4 {
		t.Fatalf("zone = %+v", z)
	}

	// whole-document export now skips the cut
	f.c.Selection().Caret(0)
	ivs, err := f.c.Intervals()
	if err != nil {
		t.Fatal(err)
	}
	if ivs[0] != (types.Interval{Start: 0, End: 12}) || ivs[1].Start != 47 {
		t.Fatalf("intervals = %v", ivs)
	}
}

func TestDeleteBlocksAndEmptyBlocks(t *testing.T) {
	f := newFixture(t, testClip())
	f.recognize(t, spoken(w("a", 0, 1)), spoken(w("b", 2, 3)))
	// a | silence | b | trailing silence
	ctx := context.Background()
	if err := f.c.ClickBlock(ctx, 1, selection.Modifiers{}, false); err != nil {
		t.Fatal(err)
	}
	n, err := f.c.Delete()
	if err != nil || n != 1 {
		t.Fatalf("Delete = %d, %v", n, err)
	}
	if f.c.Document().BlockCount() != 3 || len(f.c.Cuts()) != 1 {
		t.Fatalf("blocks = %d, cuts = %v", f.c.Document().BlockCount(), f.c.Cuts())
	}
	if f.c.Selection().HasBlocks() {
		t.Fatal("block selection should be cleared")
	}
	if n, err := f.c.Delete(); err != nil || n != 0 {
		t.Fatalf("Delete without selection = %d, %v", n, err)
	}
}

func TestClickBlock_DrivesMonitor(t *testing.T) {
	f := newFixture(t, testClip())
	f.recognize(t, spoken(w("hello", 0.2, 0.6), w("world", 0.7, 1.1)))
	if err := f.c.ClickBlock(context.Background(), 0, selection.Modifiers{}, true); err != nil {
		t.Fatal(err)
	}
	zone := types.Interval{Start: 5, End: 27}
	want := []monitorCall{{"seek", types.Interval{Start: 5}}, {"zone", zone}, {"play", zone}}
	if !reflect.DeepEqual(f.monitor.calls, want) {
		t.Fatalf("calls = %+v", f.monitor.calls)
	}
	if got := f.c.Selection().CaretPos(); got != len("hello world") {
		t.Fatalf("caret = %d", got)
	}
	if !f.c.Selection().IsSelected(0) {
		t.Fatal("block 0 should be selected")
	}
}

func TestClickWord_Seeks(t *testing.T) {
	f := newFixture(t, testClip())
	f.recognize(t, spoken(w("hello", 0.2, 0.6), w("world", 0.7, 1.1)))
	if err := f.c.ClickWord(context.Background(), 8); err != nil {
		t.Fatal(err)
	}
	if len(f.monitor.calls) != 1 || f.monitor.calls[0].zone.Start != 17 {
		t.Fatalf("calls = %+v", f.monitor.calls)
	}
}

func TestInsertAndPreview(t *testing.T) {
	f := newFixture(t, testClip())
	f.recognize(t, spoken(w("a", 1, 2)), spoken(w("b", 3, 4)))
	ctx := context.Background()
	f.c.ClickBlock(ctx, 0, selection.Modifiers{}, false)
	f.c.ClickBlock(ctx, 2, selection.Modifiers{Ctrl: true}, false)

	out, err := f.c.Insert(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []types.Interval{{Start: 25, End: 50}, {Start: 75, End: 100}}
	if out != "/out/talk_speech.mp4" || !reflect.DeepEqual(f.timeline.got[0], want) {
		t.Fatalf("insert = %q, %v", out, f.timeline.got)
	}
	if f.c.Status().Severity != SeverityPositive {
		t.Fatalf("status = %+v", f.c.Status())
	}

	path, err := f.c.Preview(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(filepath.Base(path), "speechcut-speech-") || filepath.Ext(path) != ".mlt" {
		t.Fatalf("playlist path = %q", path)
	}
	if !strings.Contains(f.playlists.props["speech"], `<a href="c1#1:2">a</a>`) {
		t.Fatalf("props = %v", f.playlists.props)
	}
	again, _ := f.c.Preview(ctx)
	if again != path || len(f.preview.paths) != 2 {
		t.Fatalf("playlist not reused: %q vs %q", again, path)
	}
	if err := f.c.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("playlist left behind: %v", err)
	}
}

func TestExportSubtitles(t *testing.T) {
	clip := testClip()
	clip.URL = filepath.Join(t.TempDir(), "talk.mp4")
	f := newFixture(t, clip)
	f.recognize(t, spoken(w("hello", 0.2, 0.6), w("world", 0.7, 1.1)))
	path, err := f.c.ExportSubtitles(transcript.FormatSRT)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "talk.srt" {
		t.Fatalf("path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "hello world") || strings.Contains(string(data), transcript.SilenceLabel) {
		t.Fatalf("subtitles = %q", data)
	}
}

func TestExportSubtitles_KeepsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	clip := testClip()
	clip.URL = filepath.Join(dir, "talk.mp4")
	mine := filepath.Join(dir, "talk.srt")
	if err := os.WriteFile(mine, []byte("mine"), 0o644); err != nil {
		t.Fatal(err)
	}
	f := newFixture(t, clip)
	f.recognize(t, spoken(w("hello", 0.2, 0.6)))

	for _, want := range []string{"talk-1.srt", "talk-2.srt"} {
		path, err := f.c.ExportSubtitles(transcript.FormatSRT)
		if err != nil {
			t.Fatal(err)
		}
		if filepath.Base(path) != want {
			t.Fatalf("path = %q, want %s", path, want)
		}
	}
	data, err := os.ReadFile(mine)
	if err != nil || string(data) != "mine" {
		t.Fatalf("existing subtitles = %q, %v", data, err)
	}
}

func TestSearch(t *testing.T) {
	f := newFixture(t, testClip())
	f.recognize(t, spoken(w("Hello", 0, 0.5), w("world", 0.6, 1)), spoken(w("hello", 2, 2.5)))
	if res, _ := f.c.Search("he", SearchIncremental); res != SearchNone {
		t.Fatalf("short query = %v", res)
	}
	if res, _ := f.c.Search("hel", SearchIncremental); res != SearchHit {
		t.Fatalf("first = %v", res)
	}
	if a, b := f.c.Selection().CharRange(); a != 0 || b != 5 {
		t.Fatalf("selection = %d, %d", a, b)
	}
	if res, _ := f.c.Search("hello", SearchIncremental); res != SearchHit {
		t.Fatal("growing query should keep its match")
	}
	if a, _ := f.c.Selection().CharRange(); a != 0 {
		t.Fatalf("incremental moved to %d", a)
	}
	if res, _ := f.c.Search("HELLO", SearchNext); res != SearchHit {
		t.Fatal("next should hit")
	}
	if a, _ := f.c.Selection().CharRange(); a != 22 {
		t.Fatalf("next selected %d", a)
	}
	if res, _ := f.c.Search("hello", SearchNext); res != SearchMiss {
		t.Fatal("no wrap-around expected")
	}
	if res, _ := f.c.Search("hello", SearchPrev); res != SearchHit {
		t.Fatal("prev should hit")
	}
	if a, _ := f.c.Selection().CharRange(); a != 0 {
		t.Fatalf("prev selected %d", a)
	}
}

func TestHideStatus(t *testing.T) {
	f := newFixture(t, testClip())
	f.c.Start(context.Background(), Options{})
	old := f.c.Status().Seq
	f.c.Start(context.Background(), Options{})
	f.c.HideStatus(old)
	if !f.c.Status().Visible() {
		t.Fatal("stale timer hid a newer banner")
	}
	f.c.HideStatus(f.c.Status().Seq)
	if f.c.Status().Visible() {
		t.Fatal("banner still visible")
	}
}

func TestSeverityOf(t *testing.T) {
	tests := []struct {
		err  error
		want Severity
	}{
		{ErrNoSpeechDetected, SeverityInfo},
		{ErrExportEmpty, SeverityInfo},
		{ErrNoClipSelected, SeverityInfo},
		{ErrRecognizerCrashed, SeverityWarning},
		{ports.ErrRecognizerScriptMissing, SeverityWarning},
		{errors.New("disk full"), SeverityError},
	}
	for _, tt := range tests {
		if got := SeverityOf(tt.err); got != tt.want {
			t.Errorf("SeverityOf(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
	if !(Status{Severity: SeverityWarning}).AutoHide() || (Status{Severity: SeverityError}).AutoHide() {
		t.Fatal("only errors stay up")
	}
}
