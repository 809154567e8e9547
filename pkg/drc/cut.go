package drc

import (
	"github.com/matzehuels/tileroute/pkg/design"
	"github.com/matzehuels/tileroute/pkg/geom"
)

func centerDistSq(a, b geom.Rect) int64 {
	ca, cb := a.Center(), b.Center()
	dx, dy := int64(ca.X-cb.X), int64(ca.Y-cb.Y)
	return dx*dx + dy*dy
}

// checkCuts reports cut shorts, cut spacing and adjacent cut spacing on
// level c.
func (e *Engine) checkCuts(c int) {
	cl := e.tech.Cuts[c]
	items := e.gather(c, true)
	reach := max(cl.Spacing, cl.AdjacentSpacing, cl.AdjacentWithin)

	var near [][]int
	if cl.AdjacentCuts > 0 {
		near = make([][]int, len(items))
	}
	pairs(items, reach, func(i, j int) {
		a, b := &items[i], &items[j]
		if near != nil && geom.DistSq(a.Rect, b.Rect) < int64(cl.AdjacentWithin)*int64(cl.AdjacentWithin) {
			near[i] = append(near[i], j)
			near[j] = append(near[j], i)
		}
		if !e.involves(a, b) {
			return
		}
		if a.Rect.Overlaps(b.Rect) {
			e.report(design.NewMarker(design.RuleShort, c, true, a.Rect.Intersect(b.Rect), a.Shape, b.Shape))
			return
		}
		if cl.Spacing <= 0 {
			return
		}
		d := geom.DistSq(a.Rect, b.Rect)
		if cl.CenterToCenter {
			d = centerDistSq(a.Rect, b.Rect)
		}
		if d < int64(cl.Spacing)*int64(cl.Spacing) {
			e.report(design.NewMarker(design.RuleCutSpacing, c, true, gapBox(a.Rect, b.Rect), a.Shape, b.Shape))
		}
	})

	if near == nil || cl.AdjacentSpacing <= 0 {
		return
	}
	req := int64(cl.AdjacentSpacing) * int64(cl.AdjacentSpacing)
	for i := range items {
		if len(near[i]) < cl.AdjacentCuts {
			continue
		}
		a := &items[i]
		for _, j := range near[i] {
			b := &items[j]
			if j < i && len(near[j]) >= cl.AdjacentCuts {
				continue // reported from j
			}
			if !e.involves(a, b) || geom.DistSq(a.Rect, b.Rect) >= req {
				continue
			}
			e.report(design.NewMarker(design.RuleAdjacentCut, c, true, gapBox(a.Rect, b.Rect), a.Shape, b.Shape))
		}
	}
}

// checkInterLayer reports cuts on level c that are too close to cuts of
// another net on level c+1, and stacked cuts where level c+1 forbids
// stacking.
func (e *Engine) checkInterLayer(c int) {
	if c+1 >= len(e.tech.Cuts) {
		return
	}
	sp := e.tech.Cuts[c].InterLayerSpacing
	noStack := e.tech.Cuts[c+1].NoStack
	if sp <= 0 && !noStack {
		return
	}
	for _, a := range e.gather(c, true) {
		for _, en := range e.index.Query(c+1, true, a.Rect.Bloat(max(sp, 0))) {
			b := e.item(en)
			if noStack && a.Rect.Overlaps(b.Rect) && (a.route || b.route) && e.inTarget(&a, &b) {
				e.report(design.NewMarker(design.RuleInterLayerCut, c, true, a.Rect.Intersect(b.Rect), a.Shape, b.Shape))
				continue
			}
			if sp > 0 && e.involves(&a, &b) && geom.DistSq(a.Rect, b.Rect) < int64(sp)*int64(sp) {
				e.report(design.NewMarker(design.RuleInterLayerCut, c, true, gapBox(a.Rect, b.Rect), a.Shape, b.Shape))
			}
		}
	}
}

func (e *Engine) inTarget(a, b *item) bool {
	return !e.hasTarget || a.Net == e.target || b.Net == e.target
}

// checkMinCut reports route vias on level c that land on wide metal of the
// same net with fewer cuts than a minimum-cut rule of that layer requires.
func (e *Engine) checkMinCut(c int) {
	lower, upper := e.tech.Layer(c), e.tech.Layer(c+1)
	if len(lower.MinCut) == 0 && len(upper.MinCut) == 0 {
		return
	}
	type viaKey struct{ net, fig int }
	seen := make(map[viaKey]bool)
	for _, a := range e.gather(c, true) {
		if !a.route || (e.hasTarget && a.Net != e.target) {
			continue
		}
		k := viaKey{a.Net, a.fig}
		if seen[k] {
			continue
		}
		seen[k] = true
		n, ok := e.nets[a.Net]
		if !ok || a.fig >= len(n.Figures) {
			continue
		}
		v, ok := n.Figures[a.fig].(*design.Via)
		if !ok {
			continue
		}
		def := e.tech.Via(v.Def)
		for _, z := range [...]int{c, c + 1} {
			l := e.tech.Layer(z)
			enc := def.Enclosure(z > c).Translate(v.Origin)
			for _, r := range l.MinCut {
				if len(def.Cuts) >= r.Cuts {
					continue
				}
				for _, en := range e.index.Query(z, false, enc) {
					if en.Net != a.Net || en.Rect.MinSide() < r.Width || !en.Rect.Overlaps(enc) {
						continue
					}
					e.report(design.NewMarker(design.RuleMinCut, c, true, def.CutBox().Translate(v.Origin), a.Shape, en.Shape))
					break
				}
			}
		}
	}
}
