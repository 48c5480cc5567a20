// Package tui is the interactive editor: the transcript with its timecode
// gutter, mouse and keyboard gestures, the search line and the status banner.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/forPelevin/speechcut/internal/config"
	"github.com/forPelevin/speechcut/internal/domain/gutter"
	"github.com/forPelevin/speechcut/internal/domain/selection"
	"github.com/forPelevin/speechcut/internal/domain/transcript"
	"github.com/forPelevin/speechcut/internal/pipeline"
	"github.com/forPelevin/speechcut/internal/usecase"
)

const (
	gutterWidth  = 11 // HH:MM:SS:FF
	headerHeight = 1
	scrollStep   = 3
)

type mode int

const (
	modeEdit mode = iota
	modeSearch
	modeConfirm
	modeLog
	modeModels
)

type Config struct {
	Session *pipeline.Session
	// Settings is the persisted file; the picker and the zone-only toggle
	// write through it.
	Settings  *config.Settings
	AutoStart bool
	// StatusTimeout overrides usecase.StatusTimeout when set.
	StatusTimeout time.Duration
}

type Model struct {
	ctx      context.Context
	session  *pipeline.Session
	ctl      *usecase.Controller
	settings *config.Settings
	log      *slog.Logger

	layout *gutter.Layout
	gutter *gutter.View
	scroll int
	follow bool

	keys      keyMap
	help      help.Model
	spinner   spinner.Model
	progress  progress.Model
	search    textinput.Model
	searchRes usecase.SearchResult
	logView   viewport.Model
	models    list.Model

	mode       mode
	runID      int
	restart    bool
	dragging   bool
	dragAnchor int
	// hovered word [start, end); empty when the mouse is elsewhere
	hoverStart, hoverEnd int
	rendering  int
	statusSeq  int
	statusTTL  time.Duration
	autoStart  bool

	width, height int
	quitting      bool
}

func New(ctx context.Context, cfg Config) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "search (3+ characters)"
	ti.CharLimit = 256

	ttl := cfg.StatusTimeout
	if ttl <= 0 {
		ttl = usecase.StatusTimeout
	}
	ctl := cfg.Session.Controller
	layout := gutter.NewLayout(ctl.Document(), 60)
	settings := cfg.Settings
	if settings == nil {
		settings = config.Default()
	}
	return Model{
		ctx:       ctx,
		session:   cfg.Session,
		ctl:       ctl,
		settings:  settings,
		log:       cfg.Session.Log,
		layout:    layout,
		gutter:    gutter.NewView(ctl.Document(), layout, cfg.Session.Clip.FPS),
		keys:      defaultKeys(),
		help:      help.New(),
		spinner:   s,
		progress:  progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
		search:    ti,
		logView:   viewport.New(60, 10),
		models:    list.New(nil, list.NewDefaultDelegate(), 60, 10),
		statusTTL: ttl,
		autoStart: cfg.AutoStart,
		width:     80,
		height:    24,
	}
}

// Close detaches the model from the transcript.
func (m Model) Close() { m.layout.Close() }

func (m Model) Init() tea.Cmd {
	if m.autoStart {
		return func() tea.Msg { return startMsg{} }
	}
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m, cmd := m.update(msg)
	m, timer := m.watchStatus()
	return m, tea.Batch(cmd, timer)
}

// watchStatus arms the hide timer whenever the Controller shows a new banner.
func (m Model) watchStatus() (Model, tea.Cmd) {
	st := m.ctl.Status()
	if st.Seq == m.statusSeq {
		return m, nil
	}
	m.statusSeq = st.Seq
	if st.Visible() && st.AutoHide() {
		return m, hideStatusAfter(st.Seq, m.statusTTL)
	}
	return m, nil
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m.resize(), nil

	case tea.KeyMsg:
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modeConfirm:
			return m.updateConfirm(msg)
		case modeLog:
			return m.updateLog(msg)
		case modeModels:
			return m.updateModels(msg)
		}
		return m.updateEdit(msg)

	case tea.MouseMsg:
		if m.mode == modeEdit || m.mode == modeSearch {
			return m.updateMouse(msg)
		}
		return m, nil

	case startMsg:
		return m.startRecognition()

	case recognitionMsg:
		if msg.runID != m.runID {
			// drain a superseded run until it closes
			return m, waitForEvent(msg.runID, msg.events)
		}
		upd := m.ctl.HandleEvent(msg.runID, msg.ev)
		if m.follow && upd.Blocks > 0 {
			m.scroll = max(m.layout.TotalHeight()-m.bodyHeight(), 0)
			m = m.syncViewport()
		}
		if !upd.Done {
			return m, waitForEvent(msg.runID, msg.events)
		}
		m.follow = false
		m.scroll = 0
		m = m.syncViewport()
		if m.restart {
			m.restart = false
			return m.startRecognition()
		}
		return m, nil

	case recognitionClosedMsg:
		return m, nil

	case hideStatusMsg:
		m.ctl.HideStatus(msg.seq)
		return m, nil

	case insertDoneMsg:
		m.rendering--
		_, _ = m.ctl.FinishInsert(msg.job, msg.out, msg.err)
		return m, nil

	case spinner.TickMsg:
		if m.busy() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if m.mode == modeLog {
		var cmd tea.Cmd
		m.logView, cmd = m.logView.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) busy() bool {
	return m.ctl.State() == usecase.Recognizing || m.rendering > 0
}

func (m Model) startRecognition() (Model, tea.Cmd) {
	run, err := m.ctl.Start(m.ctx, m.session.Options)
	if errors.Is(err, usecase.ErrRecognitionRunning) {
		m.mode = modeConfirm
		return m, nil
	}
	if err != nil {
		// the Controller already shows it
		return m, nil
	}
	m.runID = run.ID
	m.follow = true
	m.scroll = 0
	m.searchRes = usecase.SearchNone
	m.gutter.SetFPS(m.ctl.FPS())
	m = m.syncViewport()
	return m, tea.Batch(waitForEvent(run.ID, run.Events), m.spinner.Tick)
}

func (m Model) updateEdit(msg tea.KeyMsg) (Model, tea.Cmd) {
	ctx := m.ctx
	switch {
	case key.Matches(msg, m.keys.Quit):
		_ = m.ctl.Abort()
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Recognize):
		return m.startRecognition()
	case key.Matches(msg, m.keys.Abort):
		_ = m.ctl.Report(m.ctl.Abort())
	case key.Matches(msg, m.keys.Delete):
		if _, err := m.ctl.Delete(); err == nil {
			m = m.ensureCaretVisible()
		}
	case key.Matches(msg, m.keys.Insert):
		job, err := m.ctl.PrepareInsert()
		if err != nil {
			return m, nil
		}
		m.rendering++
		m.log.Info("rendering zones", "count", len(job.Intervals))
		return m, tea.Batch(runInsert(ctx, job), m.spinner.Tick)
	case key.Matches(msg, m.keys.Preview):
		_, _ = m.ctl.Preview(ctx)
	case key.Matches(msg, m.keys.Play):
		if b := m.ctl.Document().BlockAt(m.ctl.Selection().CaretPos()); b >= 0 {
			_ = m.ctl.ClickBlock(ctx, b, selection.Modifiers{}, true)
		}
	case key.Matches(msg, m.keys.Search):
		m.mode = modeSearch
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.SearchNext):
		return m.runSearch(usecase.SearchNext), nil
	case key.Matches(msg, m.keys.SearchPrev):
		return m.runSearch(usecase.SearchPrev), nil
	case key.Matches(msg, m.keys.ExportSRT):
		_, _ = m.ctl.ExportSubtitles(transcript.FormatSRT)
	case key.Matches(msg, m.keys.ExportVTT):
		_, _ = m.ctl.ExportSubtitles(transcript.FormatVTT)
	case key.Matches(msg, m.keys.Models):
		return m.openModels(), nil
	case key.Matches(msg, m.keys.ZoneOnly):
		m.settings.ZoneOnly = !m.settings.ZoneOnly
		m.session.Options.ZoneOnly = m.settings.ZoneOnly
		m.saveSettings()
	case key.Matches(msg, m.keys.ShowLog):
		m.logView.SetContent(m.ctl.Log())
		m.logView.GotoBottom()
		m.mode = modeLog
	case key.Matches(msg, m.keys.Left):
		return m.moveCaret(m.ctl.Selection().CaretPos()-1, false), nil
	case key.Matches(msg, m.keys.Right):
		return m.moveCaret(m.ctl.Selection().CaretPos()+1, false), nil
	case key.Matches(msg, m.keys.Up):
		return m.moveCaret(m.verticalTarget(-1), false), nil
	case key.Matches(msg, m.keys.Down):
		return m.moveCaret(m.verticalTarget(1), false), nil
	case key.Matches(msg, m.keys.SelectLeft):
		return m.moveCaret(m.ctl.Selection().CaretPos()-1, true), nil
	case key.Matches(msg, m.keys.SelectRight):
		return m.moveCaret(m.ctl.Selection().CaretPos()+1, true), nil
	case key.Matches(msg, m.keys.SelectUp):
		return m.moveCaret(m.verticalTarget(-1), true), nil
	case key.Matches(msg, m.keys.SelectDown):
		return m.moveCaret(m.verticalTarget(1), true), nil
	case key.Matches(msg, m.keys.PageUp):
		return m.scrollBy(-m.bodyHeight()), nil
	case key.Matches(msg, m.keys.PageDown):
		return m.scrollBy(m.bodyHeight()), nil
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m.resize(), nil
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeEdit
		m.search.Blur()
		return m, nil
	case "enter", "ctrl+n":
		return m.runSearch(usecase.SearchNext), nil
	case "ctrl+p":
		return m.runSearch(usecase.SearchPrev), nil
	}
	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() != before {
		m = m.runSearch(usecase.SearchIncremental)
	}
	return m, cmd
}

func (m Model) runSearch(dir usecase.SearchDirection) Model {
	res, err := m.ctl.Search(m.search.Value(), dir)
	if err != nil {
		m.log.Debug("search skipped", "err", err)
	}
	m.searchRes = res
	if res == usecase.SearchHit {
		m.follow = false
		m = m.ensureCaretVisible()
	}
	return m
}

func (m Model) updateConfirm(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		m.restart = true
		_ = m.ctl.Report(m.ctl.Abort())
		m.mode = modeEdit
	case "n", "N", "esc":
		m.mode = modeEdit
	}
	return m, nil
}

func (m Model) updateLog(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "l":
		m.mode = modeEdit
		return m, nil
	}
	var cmd tea.Cmd
	m.logView, cmd = m.logView.Update(msg)
	return m, cmd
}

type modelItem string

func (i modelItem) Title() string       { return string(i) }
func (i modelItem) Description() string { return "" }
func (i modelItem) FilterValue() string { return string(i) }

func (m Model) openModels() Model {
	names, err := config.DiscoverModels(m.session.Options.ModelDir)
	if err != nil {
		_ = m.ctl.Report(fmt.Errorf("list language models: %w", err))
		return m
	}
	if len(names) == 0 {
		_ = m.ctl.Report(usecase.ErrNoModelsInstalled)
		return m
	}
	items := make([]list.Item, len(names))
	current := 0
	for i, n := range names {
		items[i] = modelItem(n)
		if n == m.session.Options.Language {
			current = i
		}
	}
	m.models.SetItems(items)
	m.models.Select(current)
	m.models.Title = "Language model"
	m.mode = modeModels
	return m.resize()
}

func (m Model) updateModels(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.models.FilterState() != list.Filtering {
		switch msg.String() {
		case "esc", "q":
			m.mode = modeEdit
			return m, nil
		case "enter":
			if it, ok := m.models.SelectedItem().(modelItem); ok {
				m.settings.LanguageModel = string(it)
				m.session.Options.Language = string(it)
				m.saveSettings()
			}
			m.mode = modeEdit
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.models, cmd = m.models.Update(msg)
	return m, cmd
}

func (m Model) saveSettings() {
	if m.settings.Path() == "" {
		return
	}
	if err := m.settings.Save(); err != nil {
		_ = m.ctl.Report(fmt.Errorf("save settings: %w", err))
		return
	}
	m.log.Debug("settings saved", "path", m.settings.Path())
}

func (m Model) updateMouse(msg tea.MouseMsg) (Model, tea.Cmd) {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		return m.scrollBy(-scrollStep), nil
	case tea.MouseButtonWheelDown:
		return m.scrollBy(scrollStep), nil
	}
	y := msg.Y - headerHeight
	inGutter := msg.X < gutterWidth

	switch msg.Action {
	case tea.MouseActionMotion:
		if m.dragging {
			if pos, ok := m.posAt(msg.X, y); ok {
				m.ctl.SelectChars(m.dragAnchor, pos)
			}
			return m, nil
		}
		m.hoverStart, m.hoverEnd = 0, 0
		if inGutter {
			m.gutter.Hover(y)
			return m, nil
		}
		m.gutter.Hover(-1)
		if pos, ok := m.posAt(msg.X, y); ok {
			if w, ok := m.ctl.Document().WordAt(pos); ok && pos < w.End {
				m.hoverStart, m.hoverEnd = w.Start, w.End
			}
		}
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return m, nil
		}
		if inGutter {
			if b := m.gutter.BlockAt(y); b >= 0 {
				mods := selection.Modifiers{Ctrl: msg.Ctrl, Shift: msg.Shift}
				_ = m.ctl.ClickBlock(m.ctx, b, mods, msg.Alt)
			}
			return m, nil
		}
		pos, ok := m.posAt(msg.X, y)
		if !ok {
			return m, nil
		}
		m.dragging = true
		m.dragAnchor = pos
		_ = m.ctl.ClickWord(m.ctx, pos)
	case tea.MouseActionRelease:
		if m.dragging {
			m.dragging = false
			m.ctl.FinishDrag()
		}
	}
	return m, nil
}

// posAt maps a screen cell of the document area to a character position.
func (m Model) posAt(x, y int) (int, bool) {
	if y < 0 || y >= m.bodyHeight() {
		return 0, false
	}
	return m.layout.PosAt(m.scroll+y, max(x-gutterWidth-1, 0))
}

func (m Model) moveCaret(pos int, extend bool) Model {
	sel := m.ctl.Selection()
	pos = min(max(pos, 0), m.ctl.Document().Len())
	if extend {
		m.ctl.SelectChars(sel.Anchor(), pos)
	} else {
		sel.Caret(pos)
	}
	m.follow = false
	return m.ensureCaretVisible()
}

// verticalTarget keeps the caret column when moving delta display lines.
func (m Model) verticalTarget(delta int) int {
	lines := m.layout.Lines()
	caret := m.ctl.Selection().CaretPos()
	if len(lines) == 0 {
		return caret
	}
	cur := m.layout.LineOf(caret)
	col := caret - lines[cur].Start
	t := min(max(cur+delta, 0), len(lines)-1)
	return min(lines[t].Start+max(col, 0), lines[t].End)
}

func (m Model) ensureCaretVisible() Model {
	line := m.layout.LineOf(m.ctl.Selection().CaretPos())
	h := m.bodyHeight()
	switch {
	case line < m.scroll:
		m.scroll = line
	case line >= m.scroll+h:
		m.scroll = line - h + 1
	}
	return m.syncViewport()
}

func (m Model) scrollBy(delta int) Model {
	m.follow = false
	m.scroll += delta
	return m.syncViewport()
}

func (m Model) syncViewport() Model {
	h := m.bodyHeight()
	m.scroll = min(m.scroll, max(m.layout.TotalHeight()-h, 0))
	m.scroll = max(m.scroll, 0)
	m.gutter.SetViewport(m.scroll, h)
	return m
}

func (m Model) textWidth() int { return max(m.width-gutterWidth-1, 1) }

func (m Model) footerHeight() int {
	return 2 + lipgloss.Height(m.help.View(m.keys))
}

func (m Model) bodyHeight() int {
	return max(m.height-headerHeight-m.footerHeight(), 1)
}

func (m Model) resize() Model {
	m.layout.SetWidth(m.textWidth())
	m.help.Width = m.width
	m.progress.Width = max(min(m.width/3, 40), 10)
	m.search.Width = max(m.width-4, 10)
	m.logView.Width = max(m.width-4, 10)
	m.logView.Height = max(m.bodyHeight()-2, 1)
	m.models.SetSize(m.width, m.bodyHeight())
	return m.syncViewport()
}
