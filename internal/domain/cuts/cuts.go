// Package cuts subtracts deleted frame ranges from proposed export ranges.
package cuts

import (
	"sort"

	"github.com/forPelevin/speechcut/internal/types"
)

// Set accumulates cut intervals in frames. It stays sorted and merged so
// overlapping deletions never stack up.
type Set struct {
	ivs []types.Interval
}

// Add records a cut. Empty or inverted intervals are ignored.
func (s *Set) Add(iv types.Interval) {
	if iv.Empty() {
		return
	}
	s.ivs = normalize(append(s.ivs, iv))
}

func (s *Set) Clear() { s.ivs = nil }

func (s *Set) Len() int { return len(s.ivs) }

// Intervals returns a copy of the normalized cuts.
func (s *Set) Intervals() []types.Interval {
	return append([]types.Interval(nil), s.ivs...)
}

func normalize(ivs []types.Interval) []types.Interval {
	sort.Slice(ivs, func(i, j int) bool { return ivs[i].Start < ivs[j].Start })
	out := ivs[:0]
	for _, iv := range ivs {
		if iv.Empty() {
			continue
		}
		if n := len(out); n > 0 && iv.Start <= out[n-1].End {
			if iv.End > out[n-1].End {
				out[n-1].End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

// Process removes every cut from every source interval. Intervals are
// half-open; output keeps the source order and fragments within a source run
// left to right. Zero-length fragments are dropped.
func Process(sources []types.Interval, cuts []types.Interval) []types.Interval {
	cs := normalize(append([]types.Interval(nil), cuts...))
	var out []types.Interval
	for _, src := range sources {
		if src.Empty() {
			continue
		}
		cur := src.Start
		for _, c := range cs {
			if c.End <= cur || c.Start >= src.End {
				continue
			}
			if c.Start > cur {
				out = append(out, types.Interval{Start: cur, End: c.Start})
			}
			cur = max(cur, c.End)
			if cur >= src.End {
				break
			}
		}
		if cur < src.End {
			out = append(out, types.Interval{Start: cur, End: src.End})
		}
	}
	return out
}
