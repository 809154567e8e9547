package spatial

import (
	"testing"

	"github.com/matzehuels/tileroute/pkg/design"
	"github.com/matzehuels/tileroute/pkg/geom"
	"github.com/matzehuels/tileroute/pkg/tech"
)

func nets(es []Entry) []int {
	out := make([]int, len(es))
	for i, e := range es {
		out[i] = e.Net
	}
	return out
}

func TestQuery(t *testing.T) {
	x := New(geom.R(0, 0, 4000, 4000), 3, 1000)
	x.Add(design.Shape{Net: 1, Layer: 0, Rect: geom.R(0, 0, 2500, 100)}, 0)
	x.Add(design.Shape{Net: 2, Layer: 0, Rect: geom.R(2500, 0, 2600, 3000)}, 0)
	x.Add(design.Shape{Net: 3, Layer: 1, Rect: geom.R(0, 0, 4000, 4000)}, Fixed)
	x.Add(design.Shape{Net: 4, Layer: 0, Cut: true, Rect: geom.R(100, 0, 150, 50)}, 1)

	tests := []struct {
		name  string
		layer int
		cut   bool
		r     geom.Rect
		want  []int
	}{
		{"touching counts", 0, false, geom.R(2500, 50, 2500, 50), []int{1, 2}},
		{"far bucket", 0, false, geom.R(2550, 2900, 2560, 2950), []int{2}},
		{"empty", 0, false, geom.R(3000, 3000, 3100, 3100), []int{}},
		{"other layer", 1, false, geom.R(10, 10, 20, 20), []int{3}},
		{"cut plane", 0, true, geom.R(0, 0, 4000, 4000), []int{4}},
		{"outside box", 0, false, geom.R(-500, -500, 10, 10), []int{1}},
		{"bad layer", 7, false, geom.R(0, 0, 10, 10), []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nets(x.Query(tt.layer, tt.cut, tt.r))
			if len(got) != len(tt.want) {
				t.Fatalf("Query = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Query = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestRemoveNetKeepsFixed(t *testing.T) {
	x := New(geom.R(0, 0, 1000, 1000), 3, 0)
	x.Add(design.Shape{Net: 5, Layer: 0, Rect: geom.R(0, 0, 100, 100)}, Fixed)
	x.Add(design.Shape{Net: 5, Layer: 0, Rect: geom.R(0, 0, 200, 100)}, 0)
	x.RemoveNet(5)

	got := x.Query(0, false, geom.R(0, 0, 1000, 1000))
	if len(got) != 1 || got[0].Route() {
		t.Errorf("after RemoveNet got %+v, want only the fixed shape", got)
	}
	if x.Len() != 1 {
		t.Errorf("Len = %d, want 1", x.Len())
	}
}

func TestAddNetAndCompact(t *testing.T) {
	tk := tech.Demo()
	x := New(geom.R(0, 0, 1000, 1000), tk.NumLayers(), 500)
	n := &design.Net{ID: 2, Figures: design.FigureList{
		&design.Via{Origin: geom.Pt(500, 500), Def: 0, Bottom: 0},
	}}
	for i := 0; i < 1500; i++ {
		x.AddNet(tk, n)
		x.RemoveNet(n.ID)
	}
	x.AddNet(tk, n)

	if got := x.Len(); got != 3 {
		t.Fatalf("Len = %d, want 3 shapes of one via", got)
	}
	if got := x.Query(0, true, geom.R(500, 500, 500, 500)); len(got) != 1 || got[0].Fig != 0 {
		t.Errorf("cut query = %+v, want the via cut", got)
	}
	if got := len(x.All(1, false)); got != 1 {
		t.Errorf("All(layer 1) = %d entries, want 1", got)
	}
}
