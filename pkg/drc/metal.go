package drc

import (
	"github.com/matzehuels/tileroute/pkg/design"
	"github.com/matzehuels/tileroute/pkg/geom"
	"github.com/matzehuels/tileroute/pkg/tech"
)

// checkMetal reports shorts and PRL spacing violations between nets on
// layer z.
func (e *Engine) checkMetal(z int) {
	l := e.tech.Layer(z)
	items := e.gather(z, false)
	spacing := l.Spacing.Supported()
	if !spacing {
		e.warnOnce(l)
	}
	reach := l.Spacing.Max()
	for _, r := range e.tech.NDRs {
		reach = max(reach, r.Layer(z).Spacing)
	}

	pairs(items, reach, func(i, j int) {
		a, b := &items[i], &items[j]
		if !e.involves(a, b) {
			return
		}
		if a.Rect.Overlaps(b.Rect) {
			e.report(design.NewMarker(design.RuleShort, z, false, a.Rect.Intersect(b.Rect), a.Shape, b.Shape))
			return
		}
		if !spacing {
			return
		}
		req := e.spacing(l, a, b)
		if req > 0 && geom.DistSq(a.Rect, b.Rect) < int64(req)*int64(req) {
			e.report(design.NewMarker(design.RuleSpacing, z, false, gapBox(a.Rect, b.Rect), a.Shape, b.Shape))
		}
	})
}

// spacing is the required clearance between two shapes: the table value
// for their widths and parallel run, raised to the non-default spacing of
// either side.
func (e *Engine) spacing(l *tech.Layer, a, b *item) int {
	req := l.Spacing.Find(a.Rect.MinSide(), b.Rect.MinSide(), geom.PRL(a.Rect, b.Rect))
	for _, it := range [...]*item{a, b} {
		if it.rule != nil {
			req = max(req, it.rule.Layer(l.Index).Spacing)
		}
	}
	return req
}

// checkEOL reports other-net shapes inside the end-of-line windows of route
// shapes on layer z.
func (e *Engine) checkEOL(z int) {
	l := e.tech.Layer(z)
	if len(l.EOL) == 0 {
		return
	}
	items := e.gather(z, false)
	for i := range items {
		a := &items[i]
		if !a.route {
			continue
		}
		// with a target set, other nets' line ends only count against it
		other := e.hasTarget && a.Net != e.target
		for _, r := range l.EOL {
			if r.Space <= 0 {
				continue
			}
			for _, w := range eolWindows(a.Rect, r) {
				if e.covered(z, a, w.edge) {
					continue
				}
				for _, en := range e.index.Query(z, false, w.window) {
					if en.Net == a.Net || !en.Rect.Overlaps(w.window) || (other && en.Net != e.target) {
						continue
					}
					e.report(design.NewMarker(design.RuleEOL, z, false, w.window.Intersect(en.Rect), a.Shape, en.Shape))
				}
			}
		}
	}
}

type eolWindow struct {
	// edge is the line end itself, a zero-width rectangle.
	edge   geom.Rect
	window geom.Rect
}

func eolWindows(box geom.Rect, r tech.EOLRule) []eolWindow {
	var out []eolWindow
	if box.W() <= r.Width {
		out = append(out,
			eolWindow{
				edge:   geom.Rect{XMin: box.XMin, YMin: box.YMax, XMax: box.XMax, YMax: box.YMax},
				window: geom.Rect{XMin: box.XMin - r.Within, YMin: box.YMax, XMax: box.XMax + r.Within, YMax: box.YMax + r.Space},
			},
			eolWindow{
				edge:   geom.Rect{XMin: box.XMin, YMin: box.YMin, XMax: box.XMax, YMax: box.YMin},
				window: geom.Rect{XMin: box.XMin - r.Within, YMin: box.YMin - r.Space, XMax: box.XMax + r.Within, YMax: box.YMin},
			})
	}
	if box.H() <= r.Width {
		out = append(out,
			eolWindow{
				edge:   geom.Rect{XMin: box.XMax, YMin: box.YMin, XMax: box.XMax, YMax: box.YMax},
				window: geom.Rect{XMin: box.XMax, YMin: box.YMin - r.Within, XMax: box.XMax + r.Space, YMax: box.YMax + r.Within},
			},
			eolWindow{
				edge:   geom.Rect{XMin: box.XMin, YMin: box.YMin, XMax: box.XMin, YMax: box.YMax},
				window: geom.Rect{XMin: box.XMin - r.Space, YMin: box.YMin - r.Within, XMax: box.XMin, YMax: box.YMax + r.Within},
			})
	}
	return out
}

// covered reports whether another shape of the same net contains the end
// edge, which makes the edge part of a longer outline rather than a line end.
func (e *Engine) covered(z int, a *item, edge geom.Rect) bool {
	for _, en := range e.index.Query(z, false, edge) {
		if en.Net != a.Net || (en.Fig == a.fig && en.Rect == a.Rect) {
			continue
		}
		if en.Rect.ContainsRect(edge) {
			return true
		}
	}
	return false
}
