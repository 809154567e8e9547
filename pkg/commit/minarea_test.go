package commit

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/tileroute/pkg/design"
	"github.com/matzehuels/tileroute/pkg/geom"
	"github.com/matzehuels/tileroute/pkg/grid"
	"github.com/matzehuels/tileroute/pkg/tech"
)

func TestMinAreaPatchBetweenVias(t *testing.T) {
	w := newWriter(t, tech.Demo(), Options{})
	n := prepare(t, w, twoPinNet(-1, ap(300, 300, 0), ap(300, 500, 0)))

	// M2 run of 200 between two vias: 20000 wire + 2 * 6000 credit < 60000
	path := []grid.Index{idx(1, 1, 0), idx(1, 1, 1), idx(1, 2, 1), idx(1, 2, 0)}
	patches := w.MinArea(n, path)
	if len(patches) != 1 {
		t.Fatalf("got %d patches, want 1", len(patches))
	}
	p := patches[0].(*design.PatchWire)
	// begin end would reach y=20, outside the lattice; the end side is free
	want := &design.PatchWire{Origin: geom.Pt(300, 500), Offset: geom.R(-50, 0, 50, 280), Layer: 1}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("patch mismatch (-want +got):\n%s", diff)
	}
	total := int64(200*100) + 2*6000 + p.Rect().Area()
	if total < w.tech.Layer(1).MinArea {
		t.Errorf("area with patch = %d, want >= %d", total, w.tech.Layer(1).MinArea)
	}
}

func TestMinAreaPatchAvoidsCost(t *testing.T) {
	w := newWriter(t, tech.Demo(), Options{})
	n := prepare(t, w, twoPinNet(-1, ap(300, 500, 1), ap(500, 500, 1)))

	// M3 run of 200 between two vias: 20000 wire + 2 * 6000 credit < 40000
	path := []grid.Index{idx(1, 2, 1), idx(1, 2, 2), idx(2, 2, 2), idx(2, 2, 1)}
	base := w.MinArea(n, path)[0].(*design.PatchWire)
	if base.Origin != geom.Pt(300, 500) {
		t.Fatalf("tie chose %v, want the begin end", base.Origin)
	}
	if want := geom.R(-80, -50, 0, 50); base.Offset != want {
		t.Errorf("offset = %v, want %v", base.Offset, want)
	}

	w.g.Apply(grid.AddFixed, idx(1, 2, 2), grid.Planar)
	moved := w.MinArea(n, path)[0].(*design.PatchWire)
	if moved.Origin != geom.Pt(500, 500) {
		t.Errorf("patch at %v, want it moved away from the fixed shape", moved.Origin)
	}
}

func TestMinAreaPathEnds(t *testing.T) {
	path := []grid.Index{idx(1, 0, 0), idx(0, 0, 0)}
	net := twoPinNet(-1, ap(300, 100, 0), ap(100, 100, 0))

	w := newWriter(t, tech.Demo(), Options{})
	if p := w.MinArea(prepare(t, w, net), path); len(p) != 0 {
		t.Errorf("patches without boundary fix = %v, want none", p)
	}

	w = newWriter(t, tech.Demo(), Options{BoundaryMinAreaFix: true})
	patches := w.MinArea(prepare(t, w, net), path)
	if len(patches) != 1 {
		t.Fatalf("got %d patches with boundary fix, want 1", len(patches))
	}
	want := &design.PatchWire{Origin: geom.Pt(300, 100), Offset: geom.R(0, -50, 200, 50), Layer: 0}
	if diff := cmp.Diff(want, patches[0]); diff != "" {
		t.Errorf("patch mismatch (-want +got):\n%s", diff)
	}

	net.Pins[0].APs[0].BeginArea = 20000
	w = newWriter(t, tech.Demo(), Options{BoundaryMinAreaFix: true})
	if p := w.MinArea(prepare(t, w, net), path); len(p) != 0 {
		t.Errorf("patches with credited pin area = %v, want none", p)
	}
}

func TestMinAreaStackedVia(t *testing.T) {
	w := newWriter(t, tech.Demo(), Options{})
	n := prepare(t, w, twoPinNet(-1, ap(500, 500, 0), ap(500, 500, 2)))

	patches := w.MinArea(n, []grid.Index{idx(2, 2, 0), idx(2, 2, 1), idx(2, 2, 2)})
	if len(patches) != 1 {
		t.Fatalf("got %d patches, want 1 on the via landing", len(patches))
	}
	p := patches[0].(*design.PatchWire)
	if p.Layer != 1 || p.Origin != geom.Pt(500, 500) {
		t.Errorf("patch = %+v, want on layer 1 at (500 500)", p)
	}
	if got := p.Rect().H(); got != 480 {
		t.Errorf("patch length = %d, want 480", got)
	}
}

func TestMinAreaNonDefaultWidth(t *testing.T) {
	path := []grid.Index{idx(1, 0, 0), idx(0, 0, 0)}

	// M1 run of 200 at the wide rule's 200 width meets 40000 on its own
	w := newWriter(t, tech.Demo(), Options{BoundaryMinAreaFix: true})
	if p := w.MinArea(prepare(t, w, twoPinNet(0, ap(300, 100, 0), ap(100, 100, 0))), path); len(p) != 0 {
		t.Errorf("patches on a wide M1 run = %v, want none", p)
	}

	// M2 run of 200 at 200 width: 40000 < 60000, the patch is 200 wide
	w = newWriter(t, tech.Demo(), Options{BoundaryMinAreaFix: true})
	n := prepare(t, w, twoPinNet(0, ap(300, 300, 1), ap(300, 500, 1)))
	patches := w.MinArea(n, []grid.Index{idx(1, 1, 1), idx(1, 2, 1)})
	if len(patches) != 1 {
		t.Fatalf("got %d patches, want 1", len(patches))
	}
	want := &design.PatchWire{Origin: geom.Pt(300, 300), Offset: geom.R(-100, -100, 100, 0), Layer: 1}
	if diff := cmp.Diff(want, patches[0]); diff != "" {
		t.Errorf("patch mismatch (-want +got):\n%s", diff)
	}
}
