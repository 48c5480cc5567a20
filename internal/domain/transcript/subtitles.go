package transcript

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/asticode/go-astisub"

	"github.com/forPelevin/speechcut/internal/domain/timemap"
	"github.com/forPelevin/speechcut/internal/types"
)

// Subtitles converts the speech blocks into subtitle items, one per block.
func (d *Document) Subtitles() *astisub.Subtitles {
	subs := astisub.NewSubtitles()
	for i, b := range d.blocks {
		if b.Silence {
			continue
		}
		z := d.zones[i]
		subs.Items = append(subs.Items, &astisub.Item{
			StartAt: seconds(z.Start),
			EndAt:   seconds(z.End),
			Lines:   []astisub.Line{{Items: []astisub.LineItem{{Text: b.Text()}}}},
		})
	}
	return subs
}

type SubtitleFormat string

const (
	FormatSRT SubtitleFormat = "srt"
	FormatVTT SubtitleFormat = "vtt"
)

func (d *Document) WriteSubtitles(w io.Writer, format SubtitleFormat) error {
	subs := d.Subtitles()
	switch format {
	case FormatSRT:
		return subs.WriteToSRT(w)
	case FormatVTT:
		return subs.WriteToWebVTT(w)
	default:
		return fmt.Errorf("unknown subtitle format %q", format)
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s*1000)) * time.Millisecond
}

// TimedBlock is a speech block with its words resolved to clip seconds.
type TimedBlock struct {
	Zone  types.Zone
	Text  string
	Words []types.Word
}

// TimedBlocks lists the speech blocks. Words whose hrefs do not decode are
// left out.
func (d *Document) TimedBlocks() []TimedBlock {
	var out []TimedBlock
	for i, b := range d.blocks {
		if b.Silence {
			continue
		}
		tb := TimedBlock{Zone: d.zones[i], Text: b.Text()}
		for _, t := range b.Tokens {
			s, e, err := timemap.DecodeHref(t.Href)
			if err != nil {
				continue
			}
			tb.Words = append(tb.Words, types.Word{Word: t.Text, Start: s + d.offset, End: e + d.offset})
		}
		out = append(out, tb)
	}
	return out
}
