package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/forPelevin/speechcut/internal/domain/gutter"
	"github.com/forPelevin/speechcut/internal/usecase"
)

var (
	TitleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))
	DimTextStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	TextStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	SilenceStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	SelectionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("6"))
	BlockSelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("24"))
	CaretStyle     = lipgloss.NewStyle().Reverse(true)
	SpinnerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	KeyStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("7")).Bold(true)
	BoxStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8")).Padding(0, 1)
)

var gutterPalette = gutter.Palette{
	Text:            lipgloss.Color("8"),
	Link:            lipgloss.Color("4"),
	HighlightedText: lipgloss.Color("15"),
	Highlight:       lipgloss.Color("24"),
}

// searchBase is the search line background before any feedback.
const searchBase = "#3a3a3a"

func statusStyle(sev usecase.Severity) lipgloss.Style {
	s := lipgloss.NewStyle().Padding(0, 1)
	switch sev {
	case usecase.SeverityPositive:
		return s.Foreground(lipgloss.Color("0")).Background(lipgloss.Color("10"))
	case usecase.SeverityWarning:
		return s.Foreground(lipgloss.Color("0")).Background(lipgloss.Color("11"))
	case usecase.SeverityError:
		return s.Foreground(lipgloss.Color("15")).Background(lipgloss.Color("196"))
	default:
		return s.Foreground(lipgloss.Color("15")).Background(lipgloss.Color("24"))
	}
}

// searchTint scales the green channel of base by 1.5 on a hit and the red
// channel on a miss.
func searchTint(base string, res usecase.SearchResult) lipgloss.Color {
	c, err := colorful.Hex(base)
	if err != nil {
		return lipgloss.Color(base)
	}
	switch res {
	case usecase.SearchHit:
		c.G *= 1.5
	case usecase.SearchMiss:
		c.R *= 1.5
	default:
		return lipgloss.Color(base)
	}
	return lipgloss.Color(c.Clamped().Hex())
}
