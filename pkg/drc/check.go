package drc

import (
	"github.com/charmbracelet/log"

	"github.com/matzehuels/tileroute/pkg/design"
	"github.com/matzehuels/tileroute/pkg/spatial"
	"github.com/matzehuels/tileroute/pkg/tech"
)

// CheckTile runs a full check of routed nets inside tile. The fixed and
// pin shapes of the tile take part; nets replaces the tile's own nets
// when it is not nil.
func CheckTile(t *tech.Tech, tile *design.Tile, nets []*design.Net, logger *log.Logger) []design.Marker {
	if nets == nil {
		nets = tile.Nets
	}
	ext := tile.ExtBox
	if ext.Area() == 0 {
		ext = tile.Box
	}
	idx := spatial.New(ext, t.NumLayers(), spatial.DefaultBucket)
	for _, s := range tile.Fixed {
		idx.Add(s, spatial.Fixed)
	}
	for _, s := range tile.PinShapes() {
		idx.Add(s, spatial.Fixed)
	}
	for _, n := range nets {
		idx.AddNet(t, n)
	}
	e := New(t, logger)
	e.Init(Region{Box: tile.Box, ExtBox: ext}, idx, nets)
	return append([]design.Marker(nil), e.Run()...)
}
