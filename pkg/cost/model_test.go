package cost

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/tileroute/pkg/design"
	"github.com/matzehuels/tileroute/pkg/geom"
	"github.com/matzehuels/tileroute/pkg/grid"
	"github.com/matzehuels/tileroute/pkg/tech"
)

func demoModel(t *testing.T) (*Model, *grid.Graph, *tech.Tech) {
	t.Helper()
	tc := tech.Demo()
	g, err := grid.Build(tc, geom.R(0, 0, 1000, 1000), nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return New(tc, g, nil), g, tc
}

func TestFigureSymmetry(t *testing.T) {
	m, g, tc := demoModel(t)
	wide, _ := tc.NDRByName("wide")

	figs := []struct {
		name string
		fig  design.Figure
		ndr  *tech.NDR
	}{
		{"segment", &design.PathSegment{Begin: geom.Pt(100, 300), End: geom.Pt(700, 300), Layer: 0,
			Style: design.SegmentStyle{Width: 100, BeginExt: 50, EndExt: 50}}, nil},
		{"ndr segment", &design.PathSegment{Begin: geom.Pt(300, 100), End: geom.Pt(300, 900), Layer: 1,
			Style: design.SegmentStyle{Width: 200, BeginExt: 100, EndExt: 100}}, wide},
		{"via", &design.Via{Origin: geom.Pt(500, 500), Def: 0, Bottom: 0}, nil},
		{"upper via", &design.Via{Origin: geom.Pt(500, 500), Def: 1, Bottom: 1}, nil},
		{"patch", &design.PatchWire{Origin: geom.Pt(700, 700), Offset: geom.R(-50, -50, 50, 250), Layer: 1}, nil},
	}
	for _, tt := range figs {
		t.Run(tt.name, func(t *testing.T) {
			before := g.Clone()
			m.Figure(grid.AddRoute, tt.fig, tt.ndr)
			if g.EqualCosts(before) {
				t.Fatal("Figure(add) changed nothing")
			}
			m.Figure(grid.SubtractRoute, tt.fig, tt.ndr)
			if !g.EqualCosts(before) {
				t.Error("subtract(add(G)) != G")
			}
		})
	}
}

func TestShapeSymmetryWithBlocking(t *testing.T) {
	m, g, _ := demoModel(t)
	shapes := []design.Shape{
		{Net: design.Obstruction, Layer: 1, Rect: geom.R(250, 0, 350, 1000)},
		{Net: design.Obstruction, Layer: 0, Cut: true, Rect: geom.R(475, 475, 525, 525)},
		{Net: 3, Layer: 2, Rect: geom.R(0, 250, 1000, 750)},
	}
	before := g.Clone()
	for _, s := range shapes {
		m.Shape(grid.AddFixed, s)
	}
	if !g.Blocked(grid.Index{X: 1, Y: 2, Z: 1}, grid.North) {
		t.Error("obstruction did not block the track it covers")
	}
	// overlapping obstructions are removed in a different order
	for k := len(shapes) - 1; k >= 0; k-- {
		m.Shape(grid.SubtractFixed, shapes[k])
	}
	if !g.EqualCosts(before) {
		t.Error("fixed shape add/subtract not symmetric")
	}
}

func TestPlanarSpacingIsStrict(t *testing.T) {
	tests := []struct {
		name     string
		box      geom.Rect
		wantRows []int // rows of layer 0 carrying cost at x=500
	}{
		// wire on y=300 spans 250..350: exactly 100 from a box at 450
		{"exact spacing is legal", geom.R(100, 450, 900, 550), []int{2}},
		{"one short is a violation", geom.R(100, 449, 900, 550), []int{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, g, _ := demoModel(t)
			m.planar(grid.AddFixed, tt.box, m.tech.Layer(0), nil)
			var rows []int
			for y := 0; y < 5; y++ {
				if g.HasCost(grid.FixedShape, grid.Index{X: 2, Y: y, Z: 0}, grid.Planar) {
					rows = append(rows, y)
				}
			}
			if len(rows) != len(tt.wantRows) {
				t.Fatalf("rows with cost = %v, want %v", rows, tt.wantRows)
			}
			for i := range rows {
				if rows[i] != tt.wantRows[i] {
					t.Errorf("rows with cost = %v, want %v", rows, tt.wantRows)
				}
			}
		})
	}
}

func TestNDRSpacingWidensHalo(t *testing.T) {
	m, g, tc := demoModel(t)
	wide, _ := tc.NDRByName("wide")
	// a default wire on y=500 spans 450..550; the next track at y=300 is 100 away
	seg := &design.PathSegment{Begin: geom.Pt(100, 500), End: geom.Pt(900, 500), Layer: 0,
		Style: design.SegmentStyle{Width: 100, BeginExt: 50, EndExt: 50}}
	cell := grid.Index{X: 2, Y: 1, Z: 0}

	m.Figure(grid.AddRoute, seg, nil)
	if g.HasCost(grid.RouteShape, cell, grid.Planar) {
		t.Fatal("default spacing should leave the neighbour track free")
	}
	m.Figure(grid.SubtractRoute, seg, nil)

	m.Figure(grid.AddRoute, seg, wide)
	if !g.HasCost(grid.RouteShape, cell, grid.Planar) {
		t.Error("ndr spacing should reach the neighbour track")
	}
}

func TestCutSpacing(t *testing.T) {
	m, g, _ := demoModel(t)
	m.Figure(grid.AddRoute, &design.Via{Origin: geom.Pt(500, 500), Def: 0, Bottom: 0}, nil)
	if !g.HasCost(grid.RouteShape, grid.Index{X: 2, Y: 2, Z: 0}, grid.Via) {
		t.Error("via location itself should carry via cost")
	}
}

func TestUnsupportedRuleLoggedOnce(t *testing.T) {
	tc, err := tech.Parse([]byte(`
[[layer]]
name = "M1"
direction = "h"
width = 10
pitch = 20
[layer.spacing]
kind = "influence"
widths = [0]
values = [[30]]`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	g, err := grid.Build(tc, geom.R(0, 0, 200, 200), []geom.Point{geom.Pt(0, 0), geom.Pt(200, 200)})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	var buf bytes.Buffer
	m := New(tc, g, log.New(&buf))
	before := g.Clone()

	for range 3 {
		m.Shape(grid.AddFixed, design.Shape{Net: 0, Layer: 0, Rect: geom.R(0, 0, 100, 10)})
	}
	if got := strings.Count(buf.String(), "skipping rule"); got != 1 {
		t.Errorf("warnings = %d, want 1\n%s", got, buf.String())
	}
	if !g.EqualCosts(before) {
		t.Error("unsupported rule should not add cost")
	}
}
