package transcript

import (
	"html"
	"strings"
	"unicode"

	"github.com/forPelevin/speechcut/internal/types"
)

// DeleteRange removes the words of [a, b) after snapping it to whole words and
// returns the removed span in clip seconds. Nothing is removed when the span
// does not resolve to a positive duration.
func (d *Document) DeleteRange(a, b int) (types.Zone, bool) {
	s, e := d.SnapRange(a, b)
	zone, ok := d.Bounds(s, e)
	if !ok || zone.Start >= zone.End {
		return zone, false
	}

	ix := d.index()
	first, last := -1, -1
	for i, sp := range ix.spans {
		if sp.start >= s && sp.end <= e {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return zone, false
	}
	fs, ls := ix.spans[first], ix.spans[last]
	prefix := d.blocks[fs.block].Tokens[:fs.token]
	suffix := d.blocks[ls.block].Tokens[ls.token+1:]

	merged := Block{Tokens: make([]Token, 0, len(prefix)+len(suffix))}
	merged.Tokens = append(merged.Tokens, prefix...)
	merged.Tokens = append(merged.Tokens, suffix...)
	switch {
	case len(suffix) == 0:
		merged.Silence = d.blocks[fs.block].Silence
	case len(prefix) == 0:
		merged.Silence = d.blocks[ls.block].Silence
	}

	blocks := make([]Block, 0, len(d.blocks))
	blocks = append(blocks, d.blocks[:fs.block]...)
	if len(merged.Tokens) > 0 {
		blocks = append(blocks, merged)
	}
	blocks = append(blocks, d.blocks[ls.block+1:]...)
	d.blocks = blocks
	d.idx = nil
	d.RebuildZones()
	return zone, true
}

// DeleteBlocks removes whole blocks and returns their zones in block order.
func (d *Document) DeleteBlocks(indices []int) []types.Zone {
	drop := map[int]bool{}
	for _, i := range indices {
		if i >= 0 && i < len(d.blocks) {
			drop[i] = true
		}
	}
	if len(drop) == 0 {
		return nil
	}
	var removed []types.Zone
	blocks := make([]Block, 0, len(d.blocks))
	for i, b := range d.blocks {
		if drop[i] {
			removed = append(removed, d.zones[i])
			continue
		}
		blocks = append(blocks, b)
	}
	d.blocks = blocks
	d.idx = nil
	d.RebuildZones()
	return removed
}

// RemoveEmptyBlocks drops blocks without resolvable words and reports how many went.
func (d *Document) RemoveEmptyBlocks() int {
	before := len(d.blocks)
	d.RebuildZones()
	return before - len(d.blocks)
}

// RebuildZones recomputes every block zone from its first and last
// resolvable word, dropping blocks that have none.
func (d *Document) RebuildZones() {
	ix := d.index()
	blocks := make([]Block, 0, len(d.blocks))
	zones := make([]types.Zone, 0, len(d.blocks))
	for bi, b := range d.blocks {
		start, end := ix.blockStart[bi], ix.blockEnd[bi]
		if end <= start {
			continue
		}
		first, s, ok := d.firstResolvable(start, end-1)
		if !ok {
			continue
		}
		_, e, ok := d.lastResolvable(end-1, first.start)
		if !ok {
			continue
		}
		if e < s {
			e = s
		}
		blocks = append(blocks, b)
		zones = append(zones, types.Zone{Start: s + d.offset, End: e + d.offset})
	}
	d.blocks = blocks
	d.zones = zones
	d.notify(ChangeEdited)
}

// Find searches case-insensitively for query starting at from. Backward
// searches return the last match that starts before from.
func (d *Document) Find(query string, from int, backward bool) (int, int, bool) {
	q := lowerRunes(query)
	if len(q) == 0 {
		return 0, 0, false
	}
	text := lowerRunes(d.Text())
	match := func(i int) bool {
		for j := range q {
			if text[i+j] != q[j] {
				return false
			}
		}
		return true
	}
	if backward {
		for i := min(from-1, len(text)-len(q)); i >= 0; i-- {
			if match(i) {
				return i, i + len(q), true
			}
		}
		return 0, 0, false
	}
	for i := max(from, 0); i+len(q) <= len(text); i++ {
		if match(i) {
			return i, i + len(q), true
		}
	}
	return 0, 0, false
}

func lowerRunes(s string) []rune {
	r := []rune(s)
	for i := range r {
		r[i] = unicode.ToLower(r[i])
	}
	return r
}

// HTML renders the document as paragraphs of hyperlinked words.
func (d *Document) HTML() string {
	var b strings.Builder
	b.WriteString("<html><body>\n")
	for _, blk := range d.blocks {
		b.WriteString("<p>")
		for i, t := range blk.Tokens {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(`<a href="`)
			b.WriteString(html.EscapeString(t.Href))
			b.WriteString(`">`)
			b.WriteString(html.EscapeString(t.Text))
			b.WriteString("</a>")
		}
		b.WriteString("</p>\n")
	}
	b.WriteString("</body></html>\n")
	return b.String()
}
