// Package export resolves what the user wants to keep into frame intervals.
package export

import (
	"errors"

	"github.com/forPelevin/speechcut/internal/domain/cuts"
	"github.com/forPelevin/speechcut/internal/domain/selection"
	"github.com/forPelevin/speechcut/internal/domain/timemap"
	"github.com/forPelevin/speechcut/internal/domain/transcript"
	"github.com/forPelevin/speechcut/internal/types"
)

// ErrEmpty means nothing survived the cuts.
var ErrEmpty = errors.New("nothing to export")

// Intervals picks the source ranges by priority (selected blocks, then the
// character selection, then the whole transcript) and subtracts the cuts.
func Intervals(doc *transcript.Document, sel *selection.Model, cs *cuts.Set, fps float64) ([]types.Interval, error) {
	var src []types.Interval
	switch {
	case sel != nil && sel.HasBlocks():
		src = blockIntervals(doc, sel.SelectedBlocks(), fps)
	case sel != nil && sel.HasChar():
		a, b := sel.CharRange()
		a, b = doc.SnapRange(a, b)
		if z, ok := doc.Bounds(a, b); ok {
			src = append(src, frames(z, fps))
		}
	default:
		if z, ok := doc.FullBounds(); ok {
			src = append(src, frames(z, fps))
		}
	}
	var cut []types.Interval
	if cs != nil {
		cut = cs.Intervals()
	}
	out := cuts.Process(src, cut)
	if len(out) == 0 {
		return nil, ErrEmpty
	}
	return out, nil
}

// blockIntervals coalesces ascending blocks whose gap is at most one frame.
func blockIntervals(doc *transcript.Document, blocks []int, fps float64) []types.Interval {
	var out []types.Interval
	for _, i := range blocks {
		if i < 0 || i >= doc.BlockCount() {
			continue
		}
		iv := frames(doc.Zone(i), fps)
		if n := len(out); n > 0 && iv.Start-out[n-1].End <= 1 {
			out[n-1].End = max(out[n-1].End, iv.End)
			continue
		}
		out = append(out, iv)
	}
	return out
}

// Frames converts a clip-seconds zone to frames.
func Frames(z types.Zone, fps float64) types.Interval { return frames(z, fps) }

func frames(z types.Zone, fps float64) types.Interval {
	return types.Interval{
		Start: timemap.SecondsToFrames(z.Start, fps),
		End:   timemap.SecondsToFrames(z.End, fps),
	}
}
