// Package subtitles renders karaoke ASS subtitles from a transcript.
package subtitles

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/forPelevin/speechcut/internal/domain/transcript"
)

// RenderKaraokeASS writes one or more karaoke events per speech block. Times
// are clip seconds, so the file lines up with the source media.
func RenderKaraokeASS(blocks []transcript.TimedBlock) string {
	var b strings.Builder
	b.WriteString(assHeader())
	b.WriteString("\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, blk := range blocks {
		words := collectWords(blk)
		if len(words) == 0 {
			// no word timing: show the block text over its zone
			writeDialogue(&b, dur(blk.Zone.Start), dur(blk.Zone.End), sanitizeASS(blk.Text))
			continue
		}
		for _, ln := range packWords(words) {
			var text strings.Builder
			for _, w := range ln.Words {
				durCS := int((w.End - w.Start) / (10 * time.Millisecond))
				if durCS < 1 {
					durCS = 1
				}
				fmt.Fprintf(&text, "{\\k%d}%s ", durCS, w.Text)
			}
			writeDialogue(&b, ln.Start, ln.End, strings.TrimSuffix(text.String(), " "))
		}
	}
	return b.String()
}

func WriteKaraokeASS(w io.Writer, blocks []transcript.TimedBlock) error {
	_, err := io.WriteString(w, RenderKaraokeASS(blocks))
	return err
}

type wword struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

type line struct {
	Start time.Duration
	End   time.Duration
	Words []wword
}

func collectWords(blk transcript.TimedBlock) []wword {
	var out []wword
	for _, w := range blk.Words {
		text := sanitizeASS(w.Word)
		if text == "" {
			continue
		}
		ws, we := dur(w.Start), dur(w.End)
		if we < ws {
			we = ws
		}
		out = append(out, wword{Start: ws, End: we, Text: text})
	}
	return out
}

// packWords splits a block into lines of at most 42 runes and 9 words.
func packWords(words []wword) []line {
	const (
		charBudget = 42
		wordBudget = 9
	)
	var out []line
	cur := line{Start: words[0].Start}
	curLen := 0
	for i, w := range words {
		wl := len([]rune(w.Text))
		nextLen := curLen
		if curLen > 0 {
			nextLen++
		}
		nextLen += wl
		if len(cur.Words) > 0 && (len(cur.Words) >= wordBudget || nextLen > charBudget) {
			cur.End = cur.Words[len(cur.Words)-1].End
			out = append(out, cur)
			cur = line{Start: w.Start}
			curLen = 0
		}
		cur.Words = append(cur.Words, w)
		if curLen > 0 {
			curLen++
		}
		curLen += wl
		if i == len(words)-1 {
			cur.End = w.End
			out = append(out, cur)
		}
	}
	return out
}

func writeDialogue(b *strings.Builder, start, end time.Duration, text string) {
	b.WriteString("Dialogue: 0,")
	b.WriteString(assTime(start))
	b.WriteString(",")
	b.WriteString(assTime(end))
	b.WriteString(",Speech,,0,0,0,,")
	b.WriteString(text)
	b.WriteString("\n")
}

func assHeader() string {
	return strings.TrimSpace(`
[Script Info]
ScriptType: v4.00+
PlayResX: 1920
PlayResY: 1080
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Speech, Inter, 56, &H00FFFFFF, &H00FFD200, &H00000000, &H64000000, 0,0,0,0,100,100,0,0,1,4,1,2, 80,80,60,1
`)
}

func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hs := int(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", hs, ms, s, cs)
}

func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	return strings.TrimSpace(s)
}

func dur(sec float64) time.Duration {
	return time.Duration(math.Round(sec*1000)) * time.Millisecond
}
