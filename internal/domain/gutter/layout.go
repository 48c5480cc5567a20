package gutter

import (
	"github.com/mattn/go-runewidth"

	"github.com/forPelevin/speechcut/internal/domain/transcript"
)

// Line is one wrapped display line: the rune range [Start, End) of the
// document text that it shows.
type Line struct {
	Block      int
	Start, End int
}

// Layout wraps the document to a column width and caches the result until
// the document changes or the width does.
type Layout struct {
	doc   *transcript.Document
	width int

	text  []rune
	lines []Line
	tops  []int
	dirty bool

	unsubscribe func()
}

func NewLayout(doc *transcript.Document, width int) *Layout {
	l := &Layout{doc: doc, width: max(width, 1), dirty: true}
	l.unsubscribe = doc.Subscribe(func(transcript.Change) { l.dirty = true })
	return l
}

// Close detaches the layout from its document.
func (l *Layout) Close() {
	if l.unsubscribe != nil {
		l.unsubscribe()
		l.unsubscribe = nil
	}
}

func (l *Layout) SetWidth(w int) {
	w = max(w, 1)
	if w != l.width {
		l.width = w
		l.dirty = true
	}
}

func (l *Layout) Width() int { return l.width }

func (l *Layout) build() {
	if !l.dirty {
		return
	}
	l.text = []rune(l.doc.Text())
	l.lines = l.lines[:0]
	l.tops = l.tops[:0]
	for i := 0; i < l.doc.BlockCount(); i++ {
		s, e := l.doc.BlockRange(i)
		l.tops = append(l.tops, len(l.lines))
		l.lines = append(l.lines, wrap(l.text, i, s, e, l.width)...)
	}
	l.dirty = false
}

func wrap(text []rune, block, start, end, width int) []Line {
	var out []Line
	lineStart, lastSpace, w := start, -1, 0
	for i := start; i < end; i++ {
		rw := runewidth.RuneWidth(text[i])
		if w+rw > width && i > lineStart {
			next := i
			if lastSpace > lineStart {
				out = append(out, Line{Block: block, Start: lineStart, End: lastSpace})
				next = lastSpace + 1
			} else {
				out = append(out, Line{Block: block, Start: lineStart, End: i})
			}
			lineStart, lastSpace = next, -1
			w = runewidth.StringWidth(string(text[lineStart:i]))
		}
		if text[i] == ' ' {
			lastSpace = i
		}
		w += rw
	}
	return append(out, Line{Block: block, Start: lineStart, End: end})
}

// Lines returns every wrapped line of the document.
func (l *Layout) Lines() []Line {
	l.build()
	return l.lines
}

// Text returns the runes of line ln.
func (l *Layout) Text(ln Line) []rune {
	l.build()
	return l.text[ln.Start:ln.End]
}

func (l *Layout) TotalHeight() int { return len(l.Lines()) }

// BlockTop is the first display line of block i.
func (l *Layout) BlockTop(i int) int {
	l.build()
	return l.tops[i]
}

func (l *Layout) BlockHeight(i int) int {
	l.build()
	if i+1 < len(l.tops) {
		return l.tops[i+1] - l.tops[i]
	}
	return len(l.lines) - l.tops[i]
}

// LineOf returns the display line holding the character position pos.
func (l *Layout) LineOf(pos int) int {
	lines := l.Lines()
	for i, ln := range lines {
		if pos <= ln.End {
			if pos >= ln.Start || i == 0 {
				return i
			}
		}
	}
	return max(len(lines)-1, 0)
}

// PosAt maps a display cell (line y, column x) to a character position.
func (l *Layout) PosAt(y, x int) (int, bool) {
	lines := l.Lines()
	if y < 0 || y >= len(lines) {
		return 0, false
	}
	ln := lines[y]
	col := 0
	for p := ln.Start; p < ln.End; p++ {
		rw := runewidth.RuneWidth(l.text[p])
		if x < col+rw {
			return p, true
		}
		col += rw
	}
	return ln.End, true
}
