package drc

import (
	"slices"

	"github.com/matzehuels/tileroute/pkg/design"
	"github.com/matzehuels/tileroute/pkg/geom"
)

// checkMinArea reports connected same-net metal on layer z whose area is
// below the layer minimum. Only components containing route shapes are
// checked. In surgical mode the target net's violations become patches.
func (e *Engine) checkMinArea(z int) {
	l := e.tech.Layer(z)
	if l.MinArea <= 0 {
		return
	}
	items := e.gather(z, false)
	byNet := make(map[int][]int)
	var netOrder []int
	for i := range items {
		n := items[i].Net
		if n < 0 || (e.hasTarget && n != e.target) {
			continue
		}
		if _, ok := byNet[n]; !ok {
			netOrder = append(netOrder, n)
		}
		byNet[n] = append(byNet[n], i)
	}
	slices.Sort(netOrder)

	for _, net := range netOrder {
		for _, comp := range components(items, byNet[net]) {
			route := -1
			rects := make([]geom.Rect, len(comp))
			for k, i := range comp {
				rects[k] = items[i].Rect
				if route < 0 && items[i].route {
					route = i
				}
			}
			if route < 0 {
				continue
			}
			area := unionArea(rects)
			if area >= l.MinArea {
				continue
			}
			bbox := rects[0]
			for _, r := range rects[1:] {
				bbox = bbox.Union(r)
			}
			if e.surgical && e.hasTarget && net == e.target {
				if p := e.patch(z, rects, l.MinArea-area); p != nil {
					e.patches = append(e.patches, Patch{Net: net, Wire: p})
					continue
				}
			}
			sources := make([]design.Shape, len(comp))
			for k, i := range comp {
				sources[k] = items[i].Shape
			}
			e.report(design.NewMarker(design.RuleMinArea, z, false, bbox, sources...))
		}
	}
}

// components groups the items at idx into touching clusters, each in
// ascending item order.
func components(items []item, idx []int) [][]int {
	parent := make([]int, len(idx))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	for a := range idx {
		for b := a + 1; b < len(idx); b++ {
			if items[idx[a]].Rect.Intersects(items[idx[b]].Rect) {
				ra, rb := find(a), find(b)
				if ra != rb {
					parent[max(ra, rb)] = min(ra, rb)
				}
			}
		}
	}
	var out [][]int
	slot := make([]int, len(idx))
	for i := range slot {
		slot[i] = -1
	}
	for a := range idx {
		r := find(a)
		if slot[r] < 0 {
			slot[r] = len(out)
			out = append(out, nil)
		}
		out[slot[r]] = append(out[slot[r]], idx[a])
	}
	return out
}

// unionArea returns the area covered by rects, counting overlaps once.
func unionArea(rects []geom.Rect) int64 {
	xs := make([]int, 0, 2*len(rects))
	for _, r := range rects {
		xs = append(xs, r.XMin, r.XMax)
	}
	slices.Sort(xs)
	xs = slices.Compact(xs)

	var total int64
	type span struct{ lo, hi int }
	var spans []span
	for k := 0; k+1 < len(xs); k++ {
		x0, x1 := xs[k], xs[k+1]
		spans = spans[:0]
		for _, r := range rects {
			if r.XMin <= x0 && r.XMax >= x1 {
				spans = append(spans, span{r.YMin, r.YMax})
			}
		}
		if len(spans) == 0 {
			continue
		}
		slices.SortFunc(spans, func(a, b span) int { return a.lo - b.lo })
		var covered int64
		cur := spans[0]
		for _, s := range spans[1:] {
			if s.lo > cur.hi {
				covered += int64(cur.hi - cur.lo)
				cur = s
				continue
			}
			cur.hi = max(cur.hi, s.hi)
		}
		covered += int64(cur.hi - cur.lo)
		total += covered * int64(x1-x0)
	}
	return total
}

// patch builds a preferred-direction fill of the layer width that extends
// the component beyond its bounding box, on the high side when it stays in
// the context box and on the low side otherwise. Each candidate is centred
// on the component rect that reaches the bounding box edge, so the fill
// always abuts the component.
func (e *Engine) patch(z int, rects []geom.Rect, gap int64) *design.PatchWire {
	l := e.tech.Layer(z)
	w := l.Width
	hw := w / 2
	length := e.tech.SnapUp(int((gap + int64(w) - 1) / int64(w)))

	// extreme returns the first rect maximising key.
	extreme := func(key func(geom.Rect) int) geom.Rect {
		best := rects[0]
		for _, r := range rects[1:] {
			if key(r) > key(best) {
				best = r
			}
		}
		return best
	}

	var cands []*design.PatchWire
	if l.Horizontal() {
		hi := extreme(func(r geom.Rect) int { return r.XMax })
		lo := extreme(func(r geom.Rect) int { return -r.XMin })
		cands = []*design.PatchWire{
			{Origin: geom.Pt(hi.XMax, hi.Center().Y), Offset: geom.Rect{XMin: 0, YMin: -hw, XMax: length, YMax: hw}, Layer: z},
			{Origin: geom.Pt(lo.XMin, lo.Center().Y), Offset: geom.Rect{XMin: -length, YMin: -hw, XMax: 0, YMax: hw}, Layer: z},
		}
	} else {
		hi := extreme(func(r geom.Rect) int { return r.YMax })
		lo := extreme(func(r geom.Rect) int { return -r.YMin })
		cands = []*design.PatchWire{
			{Origin: geom.Pt(hi.Center().X, hi.YMax), Offset: geom.Rect{XMin: -hw, YMin: 0, XMax: hw, YMax: length}, Layer: z},
			{Origin: geom.Pt(lo.Center().X, lo.YMin), Offset: geom.Rect{XMin: -hw, YMin: -length, XMax: hw, YMax: 0}, Layer: z},
		}
	}
	for _, p := range cands {
		if !touches(p.Rect(), rects) {
			continue
		}
		if e.region.ExtBox.ContainsRect(p.Rect()) {
			return p
		}
	}
	return nil
}

// touches reports whether r intersects or abuts any of rects.
func touches(r geom.Rect, rects []geom.Rect) bool {
	for _, o := range rects {
		if r.Intersects(o) {
			return true
		}
	}
	return false
}
