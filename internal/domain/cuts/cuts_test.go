package cuts

import (
	"reflect"
	"testing"

	"github.com/forPelevin/speechcut/internal/types"
)

func iv(s, e int) types.Interval { return types.Interval{Start: s, End: e} }

func TestProcess(t *testing.T) {
	tests := []struct {
		name    string
		sources []types.Interval
		cuts    []types.Interval
		want    []types.Interval
	}{
		{
			name:    "two cuts inside one source",
			sources: []types.Interval{iv(0, 100)},
			cuts:    []types.Interval{iv(60, 80), iv(20, 40)},
			want:    []types.Interval{iv(0, 20), iv(40, 60), iv(80, 100)},
		},
		{
			name:    "cut spanning two sources",
			sources: []types.Interval{iv(0, 50), iv(60, 100)},
			cuts:    []types.Interval{iv(40, 70)},
			want:    []types.Interval{iv(0, 40), iv(70, 100)},
		},
		{
			name:    "cut outside is a no-op",
			sources: []types.Interval{iv(10, 20)},
			cuts:    []types.Interval{iv(30, 40), iv(0, 10)},
			want:    []types.Interval{iv(10, 20)},
		},
		{
			name:    "cut enclosing the source drops it",
			sources: []types.Interval{iv(10, 20), iv(30, 40)},
			cuts:    []types.Interval{iv(5, 25)},
			want:    []types.Interval{iv(30, 40)},
		},
		{
			name:    "overlapping cuts",
			sources: []types.Interval{iv(0, 100)},
			cuts:    []types.Interval{iv(10, 30), iv(20, 50), iv(50, 50)},
			want:    []types.Interval{iv(0, 10), iv(50, 100)},
		},
		{
			name:    "source order is kept",
			sources: []types.Interval{iv(50, 60), iv(0, 10)},
			cuts:    []types.Interval{iv(5, 55)},
			want:    []types.Interval{iv(55, 60), iv(0, 5)},
		},
		{
			name:    "no cuts",
			sources: []types.Interval{iv(0, 5)},
			want:    []types.Interval{iv(0, 5)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Process(tt.sources, tt.cuts)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Process = %v, want %v", got, tt.want)
			}
		})
	}
}

// Every output lies inside its source, misses every cut, and together with
// the cuts covers the source.
func TestProcess_Containment(t *testing.T) {
	cuts := []types.Interval{iv(3, 7), iv(12, 13), iv(18, 30)}
	for start := 0; start < 25; start += 4 {
		src := iv(start, start+9)
		out := Process([]types.Interval{src}, cuts)
		covered := map[int]bool{}
		for _, o := range out {
			if o.Start < src.Start || o.End > src.End || o.Empty() {
				t.Fatalf("src %v: bad fragment %v", src, o)
			}
			for f := o.Start; f < o.End; f++ {
				for _, c := range cuts {
					if f >= c.Start && f < c.End {
						t.Fatalf("src %v: frame %d is cut", src, f)
					}
				}
				covered[f] = true
			}
		}
		for _, c := range cuts {
			for f := max(c.Start, src.Start); f < min(c.End, src.End); f++ {
				covered[f] = true
			}
		}
		for f := src.Start; f < src.End; f++ {
			if !covered[f] {
				t.Fatalf("src %v: frame %d lost", src, f)
			}
		}
	}
}

func TestSet(t *testing.T) {
	var s Set
	s.Add(iv(20, 40))
	s.Add(iv(5, 5))
	s.Add(iv(35, 50))
	s.Add(iv(0, 10))
	want := []types.Interval{iv(0, 10), iv(20, 50)}
	if got := s.Intervals(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Intervals = %v, want %v", got, want)
	}
	s.Clear()
	if s.Len() != 0 {
		t.Fatalf("Len after Clear = %d", s.Len())
	}
}
