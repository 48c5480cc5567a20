package subtitles

import (
	"strings"
	"testing"
	"time"

	"github.com/forPelevin/speechcut/internal/domain/transcript"
	"github.com/forPelevin/speechcut/internal/types"
)

func TestRenderKaraokeASS_HasKTags(t *testing.T) {
	blocks := []transcript.TimedBlock{{
		Zone:  types.Zone{Start: 2, End: 2.8},
		Text:  "Hello world",
		Words: []types.Word{{Word: "Hello", Start: 2, End: 2.3}, {Word: "world", Start: 2.3, End: 2.8}},
	}}
	ass := RenderKaraokeASS(blocks)
	want := "Dialogue: 0,0:00:02.00,0:00:02.80,Speech,,0,0,0,,{\\k30}Hello {\\k50}world\n"
	if !strings.Contains(ass, want) {
		t.Fatalf("missing %q in:\n%s", want, ass)
	}
}

func TestRenderKaraokeASS_PlainFallback(t *testing.T) {
	blocks := []transcript.TimedBlock{{Zone: types.Zone{Start: 1, End: 3}, Text: "a {b}"}}
	ass := RenderKaraokeASS(blocks)
	if !strings.Contains(ass, "0:00:01.00,0:00:03.00,Speech,,0,0,0,,a (b)\n") {
		t.Fatalf("unexpected ASS:\n%s", ass)
	}
}

func TestPackWords_Budgets(t *testing.T) {
	var words []wword
	for i := 0; i < 12; i++ {
		s := time.Duration(i) * time.Second
		words = append(words, wword{Start: s, End: s + time.Second, Text: "w"})
	}
	lines := packWords(words)
	if len(lines) != 2 || len(lines[0].Words) != 9 || len(lines[1].Words) != 3 {
		t.Fatalf("lines = %+v", lines)
	}
	if lines[0].End != 9*time.Second || lines[1].Start != 9*time.Second {
		t.Fatalf("line bounds = %v..%v, %v", lines[0].Start, lines[0].End, lines[1].Start)
	}
}

func TestAssTime_Format(t *testing.T) {
	got := assTime(61*time.Second + 234*time.Millisecond)
	if got != "0:01:01.23" {
		t.Fatalf("unexpected assTime: %s", got)
	}
}
