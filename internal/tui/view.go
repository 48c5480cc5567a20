package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/forPelevin/speechcut/internal/domain/gutter"
	"github.com/forPelevin/speechcut/internal/usecase"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var body string
	switch m.mode {
	case modeLog:
		body = BoxStyle.Render(m.logView.View())
	case modeModels:
		body = m.models.View()
	default:
		body = m.renderBody()
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderSearch(),
		m.renderStatus(),
		m.help.View(m.keys),
	)
}

func (m Model) renderHeader() string {
	parts := []string{TitleStyle.Render("speechcut"), TextStyle.Render(filepath.Base(m.session.Clip.Name))}
	lang := m.session.Options.Language
	if lang == "" {
		lang = "none"
	}
	parts = append(parts, DimTextStyle.Render("model: "+lang))
	if m.session.Options.ZoneOnly {
		parts = append(parts, DimTextStyle.Render("zone only"))
	}
	switch {
	case m.ctl.State() == usecase.Recognizing:
		parts = append(parts, m.spinner.View()+m.progress.ViewAs(m.ctl.Progress()))
	case m.rendering > 0:
		parts = append(parts, m.spinner.View()+DimTextStyle.Render("rendering"))
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderBody() string {
	h := m.bodyHeight()
	sel := m.ctl.Selection()
	caretBlock := m.ctl.Document().BlockAt(sel.CaretPos())
	col := gutter.Render(m.gutter.Rows(caretBlock, sel.IsSelected), h, gutterWidth, gutterPalette)
	return lipgloss.JoinHorizontal(lipgloss.Top, col, " ", m.renderText(h))
}

// renderText paints the visible display lines, grouping runs of equally
// styled characters.
func (m Model) renderText(height int) string {
	doc := m.ctl.Document()
	sel := m.ctl.Selection()
	lines := m.layout.Lines()
	a, b := sel.CharRange()
	caret := sel.CaretPos()
	showCaret := !sel.HasChar()
	caretLine := m.layout.LineOf(caret)

	out := make([]string, 0, height)
	for y := 0; y < height; y++ {
		n := m.scroll + y
		if n >= len(lines) {
			out = append(out, "")
			continue
		}
		ln := lines[n]
		base := TextStyle
		if doc.Block(ln.Block).Silence {
			base = SilenceStyle
		}
		if sel.IsSelected(ln.Block) {
			base = BlockSelStyle
		}
		styles := [...]lipgloss.Style{base, SelectionStyle, CaretStyle, base.Underline(true)}
		kindAt := func(p int) int {
			switch {
			case showCaret && p == caret:
				return 2
			case p >= a && p < b:
				return 1
			case p >= m.hoverStart && p < m.hoverEnd:
				return 3
			}
			return 0
		}

		var sb strings.Builder
		runes := m.layout.Text(ln)
		start := 0
		for i := 1; i <= len(runes); i++ {
			if i < len(runes) && kindAt(ln.Start+i) == kindAt(ln.Start+start) {
				continue
			}
			sb.WriteString(styles[kindAt(ln.Start+start)].Render(string(runes[start:i])))
			start = i
		}
		if showCaret && caret == ln.End && caretLine == n {
			sb.WriteString(CaretStyle.Render(" "))
		}
		out = append(out, sb.String())
	}
	if len(lines) == 0 && height > 0 {
		out[0] = DimTextStyle.Render("No transcript yet. Press r to recognize speech.")
	}
	return strings.Join(out, "\n")
}

func (m Model) renderSearch() string {
	bg := searchTint(searchBase, m.searchRes)
	style := lipgloss.NewStyle().Background(bg).Width(max(m.width, 1))
	if m.mode != modeSearch && m.search.Value() == "" {
		return style.Render(DimTextStyle.Background(bg).Render("/ search"))
	}
	return style.Render(m.search.View())
}

func (m Model) renderStatus() string {
	if m.mode == modeConfirm {
		return statusStyle(usecase.SeverityWarning).Render("Speech recognition is running. Abort it and start again? (y/n)")
	}
	st := m.ctl.Status()
	if !st.Visible() {
		return ""
	}
	text := st.Text
	if st.ShowLog {
		text += fmt.Sprintf("  [%s: show log]", m.keys.ShowLog.Help().Key)
	}
	return statusStyle(st.Severity).Render(text)
}
