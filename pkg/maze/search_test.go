package maze

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/tileroute/pkg/design"
	"github.com/matzehuels/tileroute/pkg/errors"
	"github.com/matzehuels/tileroute/pkg/geom"
	"github.com/matzehuels/tileroute/pkg/grid"
	"github.com/matzehuels/tileroute/pkg/tech"
)

// demo lattice: x and y at 100, 300, 500, 700, 900 on three layers.
func demoGraph(t *testing.T) (*tech.Tech, *grid.Graph) {
	t.Helper()
	tk := tech.Demo()
	g, err := grid.Build(tk, geom.R(0, 0, 1000, 1000), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return tk, g
}

func idx(x, y, z int) grid.Index { return grid.Index{X: x, Y: y, Z: z} }

func TestRouteStraight(t *testing.T) {
	tk, g := demoGraph(t)
	s := New(tk, g, DefaultWeights())

	path, err := s.Route(Request{Src: []grid.Index{idx(0, 0, 0)}, Dst: []grid.Index{idx(4, 0, 0)}})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	want := []grid.Index{idx(4, 0, 0), idx(3, 0, 0), idx(2, 0, 0), idx(1, 0, 0), idx(0, 0, 0)}
	if diff := cmp.Diff(want, path); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}
	if g.IsDst(idx(4, 0, 0)) {
		t.Error("destination flag left set after search")
	}
	if !g.IsSrc(idx(0, 0, 0)) {
		t.Error("source flag cleared after search")
	}
}

func TestRouteSourceIsDestination(t *testing.T) {
	tk, g := demoGraph(t)
	s := New(tk, g, DefaultWeights())

	path, err := s.Route(Request{
		Src: []grid.Index{idx(0, 0, 0), idx(1, 0, 0)},
		Dst: []grid.Index{idx(3, 3, 0), idx(1, 0, 0)},
	})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if len(path) != 1 || path[0] != idx(1, 0, 0) {
		t.Errorf("path = %v, want [%v]", path, idx(1, 0, 0))
	}
}

func TestRouteNoPath(t *testing.T) {
	tk, g := demoGraph(t)
	src := idx(0, 0, 0)
	for _, d := range grid.Dirs {
		g.SetBlocked(src, d)
	}
	s := New(tk, g, DefaultWeights())

	_, err := s.Route(Request{Src: []grid.Index{src}, Dst: []grid.Index{idx(4, 4, 0)}})
	if err != ErrNoPath {
		t.Fatalf("err = %v, want ErrNoPath", err)
	}
	if !errors.Is(err, errors.ErrCodeUnroutable) {
		t.Errorf("GetCode = %q, want %q", errors.GetCode(err), errors.ErrCodeUnroutable)
	}
}

func TestRouteRejectsEmptyRequest(t *testing.T) {
	tk, g := demoGraph(t)
	s := New(tk, g, DefaultWeights())
	if _, err := s.Route(Request{Dst: []grid.Index{idx(1, 1, 0)}}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("err = %v, want %s", err, errors.ErrCodeInvalidInput)
	}
}

func TestRouteAvoidsCost(t *testing.T) {
	tk, g := demoGraph(t)
	g.Apply(grid.AddRoute, idx(2, 0, 0), grid.Planar)
	s := New(tk, g, DefaultWeights())

	path, err := s.Route(Request{Src: []grid.Index{idx(0, 0, 0)}, Dst: []grid.Index{idx(4, 0, 0)}})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	for _, i := range path {
		if i == idx(2, 0, 0) {
			t.Fatalf("path %v crosses the costed node", path)
		}
	}
}

func TestRouteBlockedEdgeIsImpassable(t *testing.T) {
	tk, g := demoGraph(t)
	// wall every edge into column 2 on every layer except one row
	for z := 0; z < 3; z++ {
		for y := 0; y < 5; y++ {
			if y == 4 {
				continue
			}
			g.SetBlocked(idx(1, y, z), grid.East)
		}
	}
	s := New(tk, g, DefaultWeights())

	path, err := s.Route(Request{Src: []grid.Index{idx(0, 0, 0)}, Dst: []grid.Index{idx(4, 0, 0)}})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	crossed := false
	for k := 1; k < len(path); k++ {
		a, b := path[k], path[k-1]
		if a.X == 1 && b.X == 2 {
			if a.Y != 4 {
				t.Errorf("crossed the wall at row %d", a.Y)
			}
			crossed = true
		}
	}
	if !crossed {
		t.Errorf("path %v never crosses from column 1 to 2", path)
	}
}

func TestRouteGuideModes(t *testing.T) {
	tests := []struct {
		mode    GuideMode
		wantErr bool
	}{
		{GuideOff, false},
		{GuideSoft, false},
		{GuideStrict, true},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			tk, g := demoGraph(t)
			g.MarkGuide(0, geom.R(0, 0, 400, 200))
			s := New(tk, g, DefaultWeights())

			_, err := s.Route(Request{
				Src:   []grid.Index{idx(0, 0, 0)},
				Dst:   []grid.Index{idx(4, 0, 0)},
				Guide: tt.mode,
			})
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRouteSoftGuidePrefersGuide(t *testing.T) {
	tk, g := demoGraph(t)
	// guide runs along row 2; the straight row 0 is outside it
	g.MarkGuide(0, geom.R(0, 0, 200, 600))
	g.MarkGuide(0, geom.R(0, 400, 1000, 600))
	g.MarkGuide(0, geom.R(800, 0, 1000, 600))
	w := DefaultWeights()
	w.Guide = 100
	s := New(tk, g, w)

	path, err := s.Route(Request{
		Src:   []grid.Index{idx(0, 0, 0)},
		Dst:   []grid.Index{idx(4, 0, 0)},
		Guide: GuideSoft,
	})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	for _, i := range path {
		if !g.InGuide(i) && i != idx(4, 0, 0) {
			t.Errorf("path leaves the guide at %v", i)
		}
	}
}

func TestRouteWideWireStaysInBounds(t *testing.T) {
	tk, g := demoGraph(t)
	wide, ok := tk.NDRByName("wide")
	if !ok {
		t.Fatal("demo tech has no wide rule")
	}
	s := New(tk, g, DefaultWeights())
	req := Request{
		Src:    []grid.Index{idx(0, 2, 0)},
		Dst:    []grid.Index{idx(4, 2, 0)},
		Bounds: geom.R(50, 50, 950, 950),
	}

	if _, err := s.Route(req); err != nil {
		t.Fatalf("default net: %v", err)
	}
	req.NDR = wide
	if _, err := s.Route(req); err != ErrNoPath {
		t.Errorf("wide net err = %v, want ErrNoPath", err)
	}
}

func TestRouteDeterministic(t *testing.T) {
	run := func() []grid.Index {
		tk, g := demoGraph(t)
		g.Apply(grid.AddFixed, idx(2, 2, 0), grid.Planar)
		g.Apply(grid.AddRoute, idx(2, 3, 1), grid.Planar)
		s := New(tk, g, DefaultWeights())
		path, err := s.Route(Request{
			Src: []grid.Index{idx(0, 2, 0), idx(0, 1, 0)},
			Dst: []grid.Index{idx(4, 2, 0), idx(4, 3, 2)},
		})
		if err != nil {
			t.Fatalf("Route: %v", err)
		}
		return path
	}
	first := run()
	for i := 0; i < 3; i++ {
		if diff := cmp.Diff(first, run()); diff != "" {
			t.Fatalf("run %d differs (-first +got):\n%s", i, diff)
		}
	}
}

func TestGuideModeText(t *testing.T) {
	for _, m := range []GuideMode{GuideOff, GuideSoft, GuideStrict} {
		b, _ := m.MarshalText()
		var got GuideMode
		if err := got.UnmarshalText(b); err != nil || got != m {
			t.Errorf("round trip %v = %v, %v", m, got, err)
		}
	}
	var m GuideMode
	if err := m.UnmarshalText([]byte("loose")); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("UnmarshalText(loose) err = %v, want %s", err, errors.ErrCodeInvalidConfig)
	}
}

func TestNextTarget(t *testing.T) {
	_, g := demoGraph(t)
	var b Bounds
	b.Add(g, idx(0, 0, 0))
	b.Add(g, idx(1, 0, 0))

	pins := []*design.Pin{
		{Name: "far", APs: []design.AccessPoint{{Point: geom.Pt(900, 900), Layer: 0}}},
		{Name: "up", APs: []design.AccessPoint{{Point: geom.Pt(300, 100), Layer: 2}}},
		{Name: "near", APs: []design.AccessPoint{
			{Point: geom.Pt(900, 900), Layer: 0},
			{Point: geom.Pt(500, 100), Layer: 0},
		}},
	}
	if got := NextTarget(g, pins, &b); got != 2 {
		t.Errorf("NextTarget = %d (%s), want 2 (near)", got, pins[got].Name)
	}
	if got := NextTarget(g, nil, &b); got != -1 {
		t.Errorf("NextTarget(empty) = %d, want -1", got)
	}
}

func TestFirstSource(t *testing.T) {
	_, g := demoGraph(t)
	pins := []*design.Pin{
		{Name: "a", APs: []design.AccessPoint{{Point: geom.Pt(500, 500), Layer: 0}}},
		{Name: "b", APs: []design.AccessPoint{{Point: geom.Pt(300, 500), Layer: 0}}},
		{Name: "c", APs: []design.AccessPoint{{Point: geom.Pt(700, 500), Layer: 0}, {Point: geom.Pt(900, 900), Layer: 0}}},
	}
	if got := FirstSource(g, pins); got != 2 {
		t.Errorf("FirstSource = %d, want 2", got)
	}
}
