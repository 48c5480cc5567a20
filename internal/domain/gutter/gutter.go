// Package gutter lays out the transcript in display lines and paints the
// timecode column next to it.
package gutter

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/forPelevin/speechcut/internal/domain/timemap"
	"github.com/forPelevin/speechcut/internal/domain/transcript"
)

type Role int

const (
	RoleNormal Role = iota
	RoleSelected
	RoleCaret
)

// Row is the gutter entry painted for one block.
type Row struct {
	Block    int
	Y        int // viewport line of the block's first line; may be negative
	Height   int
	Timecode string
	Role     Role
	Selected bool
	Hovered  bool
}

type Palette struct {
	Text            lipgloss.TerminalColor
	Link            lipgloss.TerminalColor
	HighlightedText lipgloss.TerminalColor
	Highlight       lipgloss.TerminalColor
}

// View reads the document through its layout. It never mutates either.
type View struct {
	doc    *transcript.Document
	layout *Layout
	fps    float64

	scroll, height int
	hovered        int
}

func NewView(doc *transcript.Document, layout *Layout, fps float64) *View {
	return &View{doc: doc, layout: layout, fps: fps, hovered: -1}
}

func (v *View) SetFPS(fps float64) { v.fps = fps }

func (v *View) SetViewport(scroll, height int) {
	v.scroll, v.height = max(scroll, 0), max(height, 0)
}

func (v *View) Scroll() int { return v.scroll }

// FirstVisibleBlock returns the first block with a line inside the
// viewport, or BlockCount when the viewport lies below the text.
func (v *View) FirstVisibleBlock() int {
	n := v.doc.BlockCount()
	for i := 0; i < n; i++ {
		if v.layout.BlockTop(i)+v.layout.BlockHeight(i) > v.scroll {
			return i
		}
	}
	return n
}

// Hover records the block under viewport line y and reports whether the
// pointer should show a hand.
func (v *View) Hover(y int) bool {
	v.hovered = v.BlockAt(y)
	return v.hovered >= 0
}

func (v *View) Hovered() int { return v.hovered }

// BlockAt returns the block whose lines cover viewport line y, or -1.
func (v *View) BlockAt(y int) int {
	if y < 0 || y >= v.height {
		return -1
	}
	line := y + v.scroll
	for i := 0; i < v.doc.BlockCount(); i++ {
		top := v.layout.BlockTop(i)
		if line >= top && line < top+v.layout.BlockHeight(i) {
			return i
		}
	}
	return -1
}

// Rows lists the blocks intersecting the viewport.
func (v *View) Rows(caretBlock int, selected func(int) bool) []Row {
	var rows []Row
	for i := v.FirstVisibleBlock(); i < v.doc.BlockCount(); i++ {
		top, h := v.layout.BlockTop(i), v.layout.BlockHeight(i)
		if top >= v.scroll+v.height {
			break
		}
		r := Row{
			Block:    i,
			Y:        top - v.scroll,
			Height:   h,
			Timecode: timemap.SecondsTimecode(v.doc.Zone(i).Start, v.fps),
			Selected: selected != nil && selected(i),
			Hovered:  i == v.hovered,
		}
		switch {
		case i == caretBlock:
			r.Role = RoleCaret
		case r.Selected:
			r.Role = RoleSelected
		}
		rows = append(rows, r)
	}
	return rows
}

// Render paints rows into a column of the viewport height. Timecodes are
// right-aligned; selected blocks get the highlight background on every line.
func Render(rows []Row, height, width int, p Palette) string {
	lines := make([]string, height)
	blank := strings.Repeat(" ", width)
	for i := range lines {
		lines[i] = blank
	}
	for _, r := range rows {
		base := lipgloss.NewStyle().Width(width).Align(lipgloss.Right)
		if r.Selected {
			base = base.Background(p.Highlight)
		}
		if r.Hovered {
			base = base.Underline(true)
		}
		fg := p.Text
		switch r.Role {
		case RoleCaret:
			fg = p.Link
		case RoleSelected:
			fg = p.HighlightedText
		}
		for k := 0; k < r.Height; k++ {
			y := r.Y + k
			if y < 0 || y >= height {
				continue
			}
			if k == 0 {
				lines[y] = base.Foreground(fg).Render(r.Timecode)
			} else if r.Selected {
				lines[y] = base.Render("")
			}
		}
	}
	return strings.Join(lines, "\n")
}
