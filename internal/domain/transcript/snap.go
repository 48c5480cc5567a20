package transcript

import (
	"github.com/forPelevin/speechcut/internal/domain/timemap"
	"github.com/forPelevin/speechcut/internal/types"
)

// probe reads the href at the visual center of the word s and decodes it.
func (d *Document) probe(s span) (float64, float64, bool) {
	href := d.AnchorAt(s.start + (s.end-s.start)/2)
	start, end, err := timemap.DecodeHref(href)
	if err != nil {
		d.log.Debug("skipping token", "block", s.block, "token", s.token, "err", err)
		return 0, 0, false
	}
	return start, end, true
}

// firstResolvable walks forward from pos to limit (inclusive) and returns the
// first word whose href decodes.
func (d *Document) firstResolvable(pos, limit int) (span, float64, bool) {
	for p := pos; p <= limit; {
		s, ok := d.covering(p)
		if !ok {
			p++
			continue
		}
		if start, _, ok := d.probe(s); ok {
			return s, start, true
		}
		p = s.end + 1
	}
	return span{}, 0, false
}

// lastResolvable walks backward from pos to limit (inclusive).
func (d *Document) lastResolvable(pos, limit int) (span, float64, bool) {
	for p := pos; p >= limit; {
		s, ok := d.covering(p)
		if !ok {
			p--
			continue
		}
		if _, end, ok := d.probe(s); ok {
			return s, end, true
		}
		p = s.start - 1
	}
	return span{}, 0, false
}

// SnapRange expands [a, b) outward to whole words. Whitespace at either end
// is skipped rather than pulling in the neighbouring word.
func (d *Document) SnapRange(a, b int) (int, int) {
	if a > b {
		a, b = b, a
	}
	if b <= a {
		return a, b
	}
	first, ok := d.firstWord(a, b-1)
	if !ok {
		return a, b
	}
	last, _ := d.lastWord(b-1, a)
	return first.start, last.end
}

func (d *Document) firstWord(pos, limit int) (span, bool) {
	for p := pos; p <= limit; p++ {
		if s, ok := d.covering(p); ok {
			return s, true
		}
	}
	return span{}, false
}

func (d *Document) lastWord(pos, limit int) (span, bool) {
	for p := pos; p >= limit; p-- {
		if s, ok := d.covering(p); ok {
			return s, true
		}
	}
	return span{}, false
}

// Bounds resolves the character range [a, b) to clip seconds using the hrefs
// of its first and last resolvable words.
func (d *Document) Bounds(a, b int) (types.Zone, bool) {
	if a > b {
		a, b = b, a
	}
	if b <= a {
		return types.Zone{}, false
	}
	first, start, ok := d.firstResolvable(a, b-1)
	if !ok {
		return types.Zone{}, false
	}
	_, end, ok := d.lastResolvable(b-1, first.start)
	if !ok {
		return types.Zone{}, false
	}
	return types.Zone{Start: start + d.offset, End: end + d.offset}, true
}

// FullBounds spans the first to the last resolvable word of the document.
func (d *Document) FullBounds() (types.Zone, bool) {
	return d.Bounds(0, d.Len())
}

// WordZone resolves a single word's href to clip seconds.
func (d *Document) WordZone(w Word) (types.Zone, bool) {
	start, end, err := timemap.DecodeHref(w.Href)
	if err != nil {
		return types.Zone{}, false
	}
	return types.Zone{Start: start + d.offset, End: end + d.offset}, true
}
