package drc

import (
	"testing"

	"github.com/matzehuels/tileroute/pkg/design"
	"github.com/matzehuels/tileroute/pkg/geom"
	"github.com/matzehuels/tileroute/pkg/tech"
)

func TestCheckTile(t *testing.T) {
	tk := tech.Demo()
	box := geom.R(0, 0, 2000, 2000)
	tile := &design.Tile{
		Name:   "t",
		Box:    box,
		ExtBox: box.Bloat(500),
		Nets:   []*design.Net{net(1, seg(100, 100, 1500, 100, 0, 100))},
		Fixed:  []design.Shape{{Net: design.Obstruction, Layer: 0, Rect: geom.R(900, 50, 1000, 150)}},
	}

	ms := CheckTile(tk, tile, nil, nil)
	if count(ms, design.RuleShort) != 1 {
		t.Errorf("markers = %v, want one short against the obstruction", ms)
	}

	// Replacing the nets with an empty result leaves nothing to violate.
	if ms := CheckTile(tk, tile, []*design.Net{}, nil); len(ms) != 0 {
		t.Errorf("markers = %v, want none", ms)
	}
}
