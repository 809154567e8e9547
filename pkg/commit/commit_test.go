package commit

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/tileroute/pkg/design"
	"github.com/matzehuels/tileroute/pkg/errors"
	"github.com/matzehuels/tileroute/pkg/geom"
	"github.com/matzehuels/tileroute/pkg/grid"
	"github.com/matzehuels/tileroute/pkg/maze"
	"github.com/matzehuels/tileroute/pkg/tech"
)

func idx(x, y, z int) grid.Index { return grid.Index{X: x, Y: y, Z: z} }

func newWriter(t *testing.T, tk *tech.Tech, opts Options) *Writer {
	t.Helper()
	g, err := grid.Build(tk, geom.R(0, 0, 1000, 1000), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if opts.Weights == (maze.Weights{}) {
		opts.Weights = maze.DefaultWeights()
	}
	return NewWriter(tk, g, opts)
}

func twoPinNet(ndr int, a, b design.AccessPoint) *design.Net {
	return &design.Net{
		ID:   1,
		Name: "n1",
		NDR:  ndr,
		Pins: []*design.Pin{
			{ID: 0, Name: "a", APs: []design.AccessPoint{a}},
			{ID: 1, Name: "b", APs: []design.AccessPoint{b}},
		},
	}
}

func ap(x, y, z int) design.AccessPoint {
	return design.AccessPoint{Point: geom.Pt(x, y), Layer: z}
}

func prepare(t *testing.T, w *Writer, n *design.Net) *Net {
	t.Helper()
	cn, err := w.Prepare(n)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	return cn
}

func TestPathMergesCollinearRun(t *testing.T) {
	w := newWriter(t, tech.Demo(), Options{})
	n := prepare(t, w, twoPinNet(-1, ap(900, 100, 0), ap(100, 100, 0)))

	figs, err := w.Path(n, []grid.Index{idx(4, 0, 0), idx(3, 0, 0), idx(2, 0, 0), idx(1, 0, 0), idx(0, 0, 0)})
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	want := design.FigureList{&design.PathSegment{
		Begin: geom.Pt(100, 100),
		End:   geom.Pt(900, 100),
		Layer: 0,
		Style: design.SegmentStyle{Width: 100, BeginStyle: design.EndTruncated, EndStyle: design.EndTruncated},
	}}
	if diff := cmp.Diff(want, figs); diff != "" {
		t.Errorf("figures mismatch (-want +got):\n%s", diff)
	}
}

func TestPathViasAndExtensions(t *testing.T) {
	w := newWriter(t, tech.Demo(), Options{})
	n := prepare(t, w, twoPinNet(-1, ap(500, 500, 0), ap(500, 900, 0)))

	path := []grid.Index{idx(2, 2, 0), idx(2, 2, 1), idx(2, 3, 1), idx(2, 4, 1), idx(2, 4, 0)}
	figs, err := w.Path(n, path)
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	want := design.FigureList{
		&design.Via{Origin: geom.Pt(500, 500), Def: 0, Bottom: 0},
		&design.PathSegment{
			Begin: geom.Pt(500, 500),
			End:   geom.Pt(500, 900),
			Layer: 1,
			Style: design.SegmentStyle{Width: 100, BeginExt: 50, EndExt: 50},
		},
		&design.Via{Origin: geom.Pt(500, 900), Def: 0, Bottom: 0},
	}
	if diff := cmp.Diff(want, figs); diff != "" {
		t.Errorf("figures mismatch (-want +got):\n%s", diff)
	}
}

func TestPathWrongDirectionWidth(t *testing.T) {
	w := newWriter(t, tech.Demo(), Options{})
	n := prepare(t, w, twoPinNet(-1, ap(100, 100, 0), ap(100, 500, 0)))

	figs, err := w.Path(n, []grid.Index{idx(0, 0, 0), idx(0, 1, 0), idx(0, 2, 0)})
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	seg := figs[0].(*design.PathSegment)
	if seg.Style.Width != 120 {
		t.Errorf("wrong-direction width = %d, want 120", seg.Style.Width)
	}
	if seg.Begin != geom.Pt(100, 100) || seg.End != geom.Pt(100, 500) {
		t.Errorf("segment = %v-%v, want ordered low to high", seg.Begin, seg.End)
	}
}

func TestPathNonDefaultRule(t *testing.T) {
	w := newWriter(t, tech.Demo(), Options{})
	n := prepare(t, w, twoPinNet(0, ap(100, 500, 0), ap(700, 500, 1)))

	path := []grid.Index{idx(0, 2, 0), idx(1, 2, 0), idx(2, 2, 0), idx(3, 2, 0), idx(3, 2, 1)}
	figs, err := w.Path(n, path)
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	if len(figs) != 2 {
		t.Fatalf("got %d figures, want segment and via", len(figs))
	}
	seg := figs[0].(*design.PathSegment)
	want := design.SegmentStyle{Width: 200, BeginExt: 0, BeginStyle: design.EndTruncated, EndExt: 100}
	if diff := cmp.Diff(want, seg.Style); diff != "" {
		t.Errorf("style mismatch (-want +got):\n%s", diff)
	}
	v := figs[1].(*design.Via)
	if name := w.tech.Via(v.Def).Name; name != "VIA12_W" {
		t.Errorf("via = %s, want VIA12_W", name)
	}
}

func TestPathTaperZones(t *testing.T) {
	w := newWriter(t, tech.Demo(), Options{TaperRadius: 1})
	n := prepare(t, w, twoPinNet(0, ap(100, 100, 0), ap(900, 100, 0)))
	if len(n.Taper) != 2 {
		t.Fatalf("taper zones = %v, want one per instance pin", n.Taper)
	}

	figs, err := w.Path(n, []grid.Index{idx(0, 0, 0), idx(1, 0, 0), idx(2, 0, 0), idx(3, 0, 0), idx(4, 0, 0)})
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	type piece struct {
		Begin, End int
		Width      int
		Tapered    bool
	}
	var got []piece
	for _, f := range figs {
		s := f.(*design.PathSegment)
		got = append(got, piece{s.Begin.X, s.End.X, s.Style.Width, s.Tapered})
	}
	want := []piece{
		{100, 300, 100, true},
		{300, 700, 200, false},
		{700, 900, 100, true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("pieces mismatch (-want +got):\n%s", diff)
	}
}

func TestPathMissingVia(t *testing.T) {
	tk := tech.Demo()
	tk.Cuts[1].DefaultVia = -1
	w := newWriter(t, tk, Options{})
	n := prepare(t, w, twoPinNet(-1, ap(100, 100, 1), ap(100, 100, 2)))

	_, err := w.Path(n, []grid.Index{idx(0, 0, 1), idx(0, 0, 2)})
	if !errors.Is(err, errors.ErrCodeMissingVia) {
		t.Errorf("err = %v, want %s", err, errors.ErrCodeMissingVia)
	}
}

func TestPrepareRejectsOffLatticeAccessPoint(t *testing.T) {
	w := newWriter(t, tech.Demo(), Options{})
	_, err := w.Prepare(twoPinNet(-1, ap(150, 100, 0), ap(900, 100, 0)))
	if !errors.Is(err, errors.ErrCodeOutOfBounds) {
		t.Errorf("err = %v, want %s", err, errors.ErrCodeOutOfBounds)
	}
}

func TestTaperZonesSkipNonInstancePins(t *testing.T) {
	n := twoPinNet(0, ap(100, 100, 0), ap(900, 100, 0))
	n.Pins[1].Type = design.PinBoundary
	zones := TaperZones(tech.Demo(), n, 2)
	want := []geom.Rect{geom.R(-300, -300, 500, 500)}
	if diff := cmp.Diff(want, zones); diff != "" {
		t.Errorf("zones mismatch (-want +got):\n%s", diff)
	}
	if z := TaperZones(tech.Demo(), n, 0); z != nil {
		t.Errorf("radius 0 zones = %v, want nil", z)
	}
}
