// Package spatial provides the region query structure of a tile: a uniform
// bucket grid per routing layer and cut level holding shape references.
//
// Entries reference figures by net and position in the net's figure list;
// the index never owns geometry. Query results come back in insertion
// order, so checks built on top of the index are deterministic.
package spatial

import (
	"slices"

	"github.com/matzehuels/tileroute/pkg/design"
	"github.com/matzehuels/tileroute/pkg/geom"
	"github.com/matzehuels/tileroute/pkg/tech"
)

// DefaultBucket is the bucket edge length in DBU used when none is given.
const DefaultBucket = 1000

// Fixed marks entries that come from fixed geometry rather than a route
// figure.
const Fixed = -1

// Entry is one indexed shape.
type Entry struct {
	design.Shape
	// Fig is the position of the owning figure in its net's figure list,
	// or Fixed.
	Fig int
}

// Route reports whether the entry belongs to a route figure.
func (e *Entry) Route() bool { return e.Fig != Fixed }

// Index is a bucketed shape index over one box.
type Index struct {
	box      geom.Rect
	bucket   int
	nbx, nby int
	layers   int

	cells   [][][]int32 // [plane][bucket] entry ids
	entries []Entry
	alive   []bool
	dead    int
	byNet   map[int][]int32
}

// New creates an index over box for a technology with the given number of
// routing layers. Shapes outside box land in the border buckets.
func New(box geom.Rect, layers, bucket int) *Index {
	if bucket <= 0 {
		bucket = DefaultBucket
	}
	x := &Index{
		box:    box,
		bucket: bucket,
		nbx:    max(1, (box.W()+bucket-1)/bucket),
		nby:    max(1, (box.H()+bucket-1)/bucket),
		layers: layers,
		byNet:  make(map[int][]int32),
	}
	x.cells = make([][][]int32, 2*layers)
	for p := range x.cells {
		x.cells[p] = make([][]int32, x.nbx*x.nby)
	}
	return x
}

func (x *Index) plane(layer int, cut bool) int {
	if cut {
		return 2*layer + 1
	}
	return 2 * layer
}

func (x *Index) span(r geom.Rect) (bx0, by0, bx1, by1 int) {
	clamp := func(v, n int) int { return min(max(v, 0), n-1) }
	bx0 = clamp((r.XMin-x.box.XMin)/x.bucket, x.nbx)
	bx1 = clamp((r.XMax-x.box.XMin)/x.bucket, x.nbx)
	by0 = clamp((r.YMin-x.box.YMin)/x.bucket, x.nby)
	by1 = clamp((r.YMax-x.box.YMin)/x.bucket, x.nby)
	return
}

// Add indexes one shape. fig is the owning figure's position or Fixed.
func (x *Index) Add(s design.Shape, fig int) {
	if s.Layer < 0 || s.Layer >= x.layers {
		return
	}
	id := int32(len(x.entries))
	x.entries = append(x.entries, Entry{Shape: s, Fig: fig})
	x.alive = append(x.alive, true)
	if fig != Fixed {
		x.byNet[s.Net] = append(x.byNet[s.Net], id)
	}
	cells := x.cells[x.plane(s.Layer, s.Cut)]
	bx0, by0, bx1, by1 := x.span(s.Rect)
	for by := by0; by <= by1; by++ {
		for bx := bx0; bx <= bx1; bx++ {
			b := by*x.nbx + bx
			cells[b] = append(cells[b], id)
		}
	}
}

// AddNet indexes every figure of n.
func (x *Index) AddNet(t *tech.Tech, n *design.Net) {
	for i, f := range n.Figures {
		for _, s := range f.Shapes(t, n.ID) {
			x.Add(s, i)
		}
	}
}

// AddFigure indexes one figure of net at position fig.
func (x *Index) AddFigure(t *tech.Tech, net int, fig int, f design.Figure) {
	for _, s := range f.Shapes(t, net) {
		x.Add(s, fig)
	}
}

// RemoveNet drops every route entry of net. Fixed shapes stay.
func (x *Index) RemoveNet(net int) {
	for _, id := range x.byNet[net] {
		if x.alive[id] {
			x.alive[id] = false
			x.dead++
		}
	}
	delete(x.byNet, net)
	if x.dead > len(x.entries)/2 && x.dead > 1024 {
		x.compact()
	}
}

// Query returns the live entries on a layer or cut level whose rectangles
// intersect r, touching included, in insertion order.
func (x *Index) Query(layer int, cut bool, r geom.Rect) []Entry {
	if layer < 0 || layer >= x.layers {
		return nil
	}
	cells := x.cells[x.plane(layer, cut)]
	var ids []int32
	bx0, by0, bx1, by1 := x.span(r)
	for by := by0; by <= by1; by++ {
		for bx := bx0; bx <= bx1; bx++ {
			for _, id := range cells[by*x.nbx+bx] {
				if x.alive[id] && x.entries[id].Rect.Intersects(r) {
					ids = append(ids, id)
				}
			}
		}
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)
	out := make([]Entry, len(ids))
	for i, id := range ids {
		out[i] = x.entries[id]
	}
	return out
}

// All returns every live entry on a layer or cut level in insertion order.
func (x *Index) All(layer int, cut bool) []Entry {
	var out []Entry
	p := x.plane(layer, cut)
	for id := range x.entries {
		e := &x.entries[id]
		if x.alive[id] && x.plane(e.Layer, e.Cut) == p {
			out = append(out, *e)
		}
	}
	return out
}

// Len returns the number of live entries.
func (x *Index) Len() int { return len(x.entries) - x.dead }

func (x *Index) compact() {
	old := x.entries
	alive := x.alive
	x.entries, x.alive, x.dead = nil, nil, 0
	x.byNet = make(map[int][]int32)
	for p := range x.cells {
		for b := range x.cells[p] {
			x.cells[p][b] = x.cells[p][b][:0]
		}
	}
	for id, e := range old {
		if alive[id] {
			x.Add(e.Shape, e.Fig)
		}
	}
}
