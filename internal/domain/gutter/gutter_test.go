package gutter

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/forPelevin/speechcut/internal/domain/transcript"
	"github.com/forPelevin/speechcut/internal/types"
)

// "hello world\nNo speech\nagain" wrapped at 8 columns:
//
//	0 hello
//	1 world
//	2 No
//	3 speech
//	4 again
func sample(t *testing.T) (*transcript.Document, *Layout) {
	t.Helper()
	d := transcript.New(nil)
	d.Reset("1", 0)
	d.AppendRecognized([]types.Word{{Word: "hello", Start: 0.2, End: 0.6}, {Word: "world", Start: 0.7, End: 1.1}}, types.Zone{Start: 0.2, End: 1.1})
	d.AppendSilence(1.1, 2.96, "")
	d.AppendRecognized([]types.Word{{Word: "again", Start: 3, End: 3.4}}, types.Zone{Start: 3, End: 3.4})
	l := NewLayout(d, 8)
	t.Cleanup(l.Close)
	return d, l
}

func TestLayoutWrap(t *testing.T) {
	_, l := sample(t)
	if l.TotalHeight() != 5 {
		t.Fatalf("height = %d, lines = %+v", l.TotalHeight(), l.Lines())
	}
	want := []string{"hello", "world", "No", "speech", "again"}
	for i, ln := range l.Lines() {
		if got := string(l.Text(ln)); got != want[i] {
			t.Errorf("line %d = %q, want %q", i, got, want[i])
		}
	}
	if l.BlockTop(2) != 4 || l.BlockHeight(1) != 2 {
		t.Fatalf("tops: block2 = %d, height1 = %d", l.BlockTop(2), l.BlockHeight(1))
	}
	if p, ok := l.PosAt(1, 0); !ok || p != 6 {
		t.Fatalf("PosAt(1,0) = %d", p)
	}
	if p, _ := l.PosAt(0, 99); p != 5 {
		t.Fatalf("PosAt past end = %d", p)
	}
	if _, ok := l.PosAt(9, 0); ok {
		t.Fatal("PosAt below the text should fail")
	}
	if got := l.LineOf(13); got != 2 {
		t.Fatalf("LineOf(13) = %d", got)
	}
}

func TestLayoutInvalidatesOnChange(t *testing.T) {
	d, l := sample(t)
	_ = l.Lines()
	d.AppendSilence(3.4, 5, "")
	if l.TotalHeight() != 7 {
		t.Fatalf("height after append = %d", l.TotalHeight())
	}
	l.SetWidth(40)
	if l.TotalHeight() != 4 {
		t.Fatalf("height at 40 cols = %d", l.TotalHeight())
	}
}

func TestView(t *testing.T) {
	d, l := sample(t)
	v := NewView(d, l, 25)
	v.SetViewport(1, 3)

	if got := v.FirstVisibleBlock(); got != 0 {
		t.Fatalf("FirstVisibleBlock = %d", got)
	}
	if !v.Hover(0) || v.Hovered() != 0 {
		t.Fatalf("hover line 0 = %d", v.Hovered())
	}
	if v.BlockAt(2) != 1 || v.BlockAt(3) != -1 {
		t.Fatalf("BlockAt = %d, %d", v.BlockAt(2), v.BlockAt(3))
	}

	rows := v.Rows(2, func(i int) bool { return i == 1 })
	if len(rows) != 2 {
		t.Fatalf("rows = %+v", rows)
	}
	if rows[0].Y != -1 || rows[0].Role != RoleNormal || !rows[0].Hovered || rows[0].Timecode != "00:00:00:05" {
		t.Fatalf("row 0 = %+v", rows[0])
	}
	if rows[1].Role != RoleSelected || !rows[1].Selected || rows[1].Timecode != "00:00:01:02" {
		t.Fatalf("row 1 = %+v", rows[1])
	}

	v.SetViewport(0, 5)
	rows = v.Rows(2, nil)
	if rows[2].Role != RoleCaret {
		t.Fatalf("caret row = %+v", rows[2])
	}
}

func TestViewFirstVisibleBlock(t *testing.T) {
	d, l := sample(t)
	v := NewView(d, l, 25)
	cases := []struct {
		scroll, height int
		want           int
		rows           int
	}{
		{scroll: 0, height: 5, want: 0, rows: 3},
		{scroll: 2, height: 1, want: 1, rows: 1},
		{scroll: 3, height: 2, want: 1, rows: 2},
		{scroll: 4, height: 3, want: 2, rows: 1},
		{scroll: 9, height: 2, want: 3, rows: 0},
	}
	for _, tc := range cases {
		v.SetViewport(tc.scroll, tc.height)
		if got := v.FirstVisibleBlock(); got != tc.want {
			t.Errorf("scroll %d: FirstVisibleBlock = %d, want %d", tc.scroll, got, tc.want)
		}
		rows := v.Rows(-1, nil)
		if len(rows) != tc.rows {
			t.Errorf("scroll %d: rows = %+v", tc.scroll, rows)
		}
		if len(rows) > 0 && rows[0].Block != tc.want {
			t.Errorf("scroll %d: first row block = %d", tc.scroll, rows[0].Block)
		}
	}
}

func TestRender(t *testing.T) {
	d, l := sample(t)
	v := NewView(d, l, 25)
	v.SetViewport(1, 3)
	p := Palette{Text: lipgloss.Color("7"), Link: lipgloss.Color("4"), HighlightedText: lipgloss.Color("0"), Highlight: lipgloss.Color("6")}
	out := Render(v.Rows(-1, func(i int) bool { return i == 1 }), 3, 12, p)
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %q", lines)
	}
	if strings.TrimSpace(lines[0]) != "" {
		t.Fatalf("continuation line should be blank: %q", lines[0])
	}
	if !strings.Contains(lines[1], "00:00:01:02") {
		t.Fatalf("line 1 = %q", lines[1])
	}
}
