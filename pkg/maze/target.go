package maze

import (
	"github.com/matzehuels/tileroute/pkg/design"
	"github.com/matzehuels/tileroute/pkg/geom"
	"github.com/matzehuels/tileroute/pkg/grid"
)

// Bounds is the bounding box of a connected component: planar extent in
// DBU and layer range in layer indices.
type Bounds struct {
	Rect       geom.Rect
	ZMin, ZMax int
	valid      bool
}

// Add grows the bounds to include node i.
func (b *Bounds) Add(g *grid.Graph, i grid.Index) {
	p := g.Point(i)
	if !b.valid {
		*b = Bounds{Rect: geom.Rect{XMin: p.X, YMin: p.Y, XMax: p.X, YMax: p.Y}, ZMin: i.Z, ZMax: i.Z, valid: true}
		return
	}
	b.Rect = b.Rect.Merge(p)
	b.ZMin = min(b.ZMin, i.Z)
	b.ZMax = max(b.ZMax, i.Z)
}

// Distance returns dx+dy+dz from p on layer z to the bounds, with dz in
// layer-height units of g.
func (b *Bounds) Distance(g *grid.Graph, p geom.Point, z int) int {
	dx := max(b.Rect.XMin-p.X, p.X-b.Rect.XMax, 0)
	dy := max(b.Rect.YMin-p.Y, p.Y-b.Rect.YMax, 0)
	zp := g.ZPos(z)
	dz := max(g.ZPos(b.ZMin)-zp, zp-g.ZPos(b.ZMax), 0)
	return dx + dy + dz
}

// NextTarget returns the index in pending of the pin whose nearest access
// point is closest to the component bounds. Ties go to the earlier pin. It
// returns -1 when pending is empty.
func NextTarget(g *grid.Graph, pending []*design.Pin, b *Bounds) int {
	best, bestDist := -1, 0
	for i, pin := range pending {
		for _, ap := range pin.APs {
			d := b.Distance(g, ap.Point, ap.Layer)
			if best < 0 || d < bestDist {
				best, bestDist = i, d
			}
		}
	}
	return best
}

// FirstSource returns the index of the pin to start a net from: the pin with
// an access point farthest from the centroid of every pin's first access
// point. Among equally distant pins the later one wins.
func FirstSource(g *grid.Graph, pins []*design.Pin) int {
	if len(pins) == 0 {
		return -1
	}
	var sx, sy, sz, n int64
	for _, pin := range pins {
		if len(pin.APs) == 0 {
			continue
		}
		ap := pin.APs[0]
		sx += int64(ap.Point.X)
		sy += int64(ap.Point.Y)
		sz += int64(g.ZPos(ap.Layer))
		n++
	}
	if n == 0 {
		return 0
	}
	cx, cy, cz := int(sx/n), int(sy/n), int(sz/n)
	best, bestDist := 0, -1
	for i, pin := range pins {
		for _, ap := range pin.APs {
			d := geom.Abs(cx-ap.Point.X) + geom.Abs(cy-ap.Point.Y) + geom.Abs(cz-g.ZPos(ap.Layer))
			if d >= bestDist {
				best, bestDist = i, d
			}
		}
	}
	return best
}
