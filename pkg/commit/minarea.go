package commit

import (
	"math"

	"github.com/matzehuels/tileroute/pkg/design"
	"github.com/matzehuels/tileroute/pkg/geom"
	"github.com/matzehuels/tileroute/pkg/grid"
)

// MinArea returns the patches that bring every layer run of path up to the
// layer's minimum area.
//
// A run is credited with its centerline wire area and half the enclosure
// area of the via at each end. A run ending at the path end is treated as
// satisfied by whatever it connects to, except that with the boundary fix
// enabled an access point end is credited with the access point's pin area.
func (w *Writer) MinArea(n *Net, path []grid.Index) design.FigureList {
	var out design.FigureList
	last := len(path) - 1
	for i := 0; i <= last; {
		j := i
		for j < last && path[j+1].Z == path[i].Z {
			j++
		}
		if p := w.patchRun(n, path, i, j); p != nil {
			out = append(out, p)
		}
		i = j + 1
	}
	return out
}

func (w *Writer) patchRun(n *Net, path []grid.Index, i, j int) *design.PatchWire {
	z := path[i].Z
	l := w.tech.Layer(z)
	req := l.MinArea
	if req <= 0 {
		return nil
	}
	var area int64
	for k := i; k < j; k++ {
		a, b := w.g.Point(path[k]), w.g.Point(path[k+1])
		rule := n.Rule
		if w.taperedStep(n, path[k], path[k+1]) {
			rule = nil
		}
		area += int64(geom.Abs(a.X-b.X)+geom.Abs(a.Y-b.Y)) * int64(w.tech.WireWidth(z, rule))
	}
	area += w.endCredit(n, path, i, i-1, req)
	area += w.endCredit(n, path, j, j+1, req)
	if area >= req {
		return nil
	}

	gap := req - area
	horiz := l.Horizontal()
	beginNeg, endNeg := outward(path, i, j, horiz)

	bp, ep := path[i], path[j]
	widthB, widthE := w.patchWidth(n, bp), w.patchWidth(n, ep)
	lenB, lenE := w.patchLength(gap, widthB), w.patchLength(gap, widthE)
	costB := w.patchCost(bp, horiz, beginNeg, lenB)
	costE := w.patchCost(ep, horiz, endNeg, lenE)
	at, neg, length, width := bp, beginNeg, lenB, widthB
	if costE < costB {
		at, neg, length, width = ep, endNeg, lenE, widthE
	}
	return &design.PatchWire{
		Origin: w.g.Point(at),
		Offset: patchOffset(horiz, neg, length, width),
		Layer:  z,
	}
}

// patchWidth is the wire width a patch at i is drawn with: the net's rule
// width outside its taper zones and the layer default inside them.
func (w *Writer) patchWidth(n *Net, i grid.Index) int {
	rule := n.Rule
	if rule != nil && w.tapered(n, w.g.Point(i)) {
		rule = nil
	}
	return w.tech.WireWidth(i.Z, rule)
}

// patchLength is the length, snapped to the manufacturing grid, that covers
// gap at the given width.
func (w *Writer) patchLength(gap int64, width int) int {
	return w.tech.SnapUp(int((gap + int64(width) - 1) / int64(width)))
}

// endCredit returns the area credited to the run end at path[k]; other is
// the neighbouring path position outside the run.
func (w *Writer) endCredit(n *Net, path []grid.Index, k, other int, req int64) int64 {
	if other < 0 || other >= len(path) {
		if w.opts.BoundaryMinAreaFix {
			if ap, ok := n.aps[path[k]]; ok {
				return ap.BeginArea
			}
		}
		return req
	}
	level := min(path[k].Z, path[other].Z)
	rule := n.Rule
	if rule != nil && w.tapered(n, w.g.Point(path[k])) {
		rule = nil
	}
	def := w.tech.ViaFor(level, rule)
	if def == nil {
		return 0
	}
	// the run sits on the top enclosure when the via goes down from it
	return def.HalfEnclosureArea(path[k].Z > level)
}

// outward reports, for each end of the run path[i..j], whether a patch
// there grows toward lower coordinates along the preferred axis. A run
// with no extent along that axis patches low at its begin and high at its
// end.
func outward(path []grid.Index, i, j int, horiz bool) (beginNeg, endNeg bool) {
	coord := func(k int) int {
		if horiz {
			return path[k].X
		}
		return path[k].Y
	}
	beginNeg, endNeg = true, false
	if i == j {
		return
	}
	switch {
	case coord(i) < coord(i+1):
		beginNeg = true
	case coord(i) > coord(i+1):
		beginNeg = false
	default:
		beginNeg = coord(i) <= coord(j)
	}
	switch {
	case coord(j) < coord(j-1):
		endNeg = true
	case coord(j) > coord(j-1):
		endNeg = false
	default:
		endNeg = coord(j) < coord(i)
	}
	return
}

func patchOffset(horiz, neg bool, length, width int) geom.Rect {
	hw := width / 2
	switch {
	case horiz && neg:
		return geom.Rect{XMin: -length, YMin: -hw, XMax: 0, YMax: hw}
	case horiz:
		return geom.Rect{XMin: 0, YMin: -hw, XMax: length, YMax: hw}
	case neg:
		return geom.Rect{XMin: -hw, YMin: -length, XMax: hw, YMax: 0}
	default:
		return geom.Rect{XMin: -hw, YMin: 0, XMax: hw, YMax: length}
	}
}

// patchCost sums the cost counters along a candidate patch. A patch whose
// far end leaves the lattice costs the maximum.
func (w *Writer) patchCost(at grid.Index, horiz, neg bool, length int) int64 {
	p := w.g.Point(at)
	far := p
	switch {
	case horiz && neg:
		far.X -= length
	case horiz:
		far.X += length
	case neg:
		far.Y -= length
	default:
		far.Y += length
	}
	if !w.g.Box().Contains(far) {
		return math.MaxInt64
	}
	lo, hi := p, far
	if hi.Less(lo) {
		lo, hi = hi, lo
	}
	x0, x1 := w.g.XRange(lo.X, hi.X)
	y0, y1 := w.g.YRange(lo.Y, hi.Y)
	wt := w.opts.Weights
	var c int64
	for x := x0; x <= x1; x++ {
		for y := y0; y <= y1; y++ {
			i := grid.Index{X: x, Y: y, Z: at.Z}
			if w.g.HasCost(grid.RouteShape, i, grid.Planar) {
				c += wt.DRC
			}
			if w.g.HasCost(grid.FixedShape, i, grid.Planar) {
				c += wt.Shape
			}
			if w.g.MarkerCost(i, grid.Planar) > 0 {
				c += wt.Marker
			}
		}
	}
	return c
}
