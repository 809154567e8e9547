package grid

import (
	"slices"

	"github.com/matzehuels/tileroute/pkg/geom"
)

// signTable dispatches a counter update by sign. Counters never saturate,
// so applying an operation and then its inverse is an exact no-op.
var signTable = [...]func(c *int32){
	Add:      func(c *int32) { *c++ },
	Subtract: func(c *int32) { *c-- },
}

// Apply performs op on the channel counter of node i.
func (g *Graph) Apply(op CostOp, i Index, ch Channel) {
	signTable[op.Sign](&g.cost[op.Kind][ch][g.Flat(i)])
}

// Cost returns the counter of kind k on channel ch of node i.
func (g *Graph) Cost(k Kind, i Index, ch Channel) int32 {
	return g.cost[k][ch][g.Flat(i)]
}

// HasCost reports whether node i carries positive cost of kind k on ch.
func (g *Graph) HasCost(k Kind, i Index, ch Channel) bool {
	return g.cost[k][ch][g.Flat(i)] > 0
}

// AddMarkerCost adds history cost to node i.
func (g *Graph) AddMarkerCost(i Index, ch Channel, amount int32) {
	f := g.Flat(i)
	g.marker[ch][f] += amount
	if !g.inHist[f] {
		g.inHist[f] = true
		g.histCells = append(g.histCells, int32(f))
	}
}

// MarkerCost returns the history cost of node i.
func (g *Graph) MarkerCost(i Index, ch Channel) int32 {
	return g.marker[ch][g.Flat(i)]
}

// DecayMarkerCost multiplies every history counter by factor and forgets
// nodes whose history has decayed to zero.
func (g *Graph) DecayMarkerCost(factor float64) {
	kept := g.histCells[:0]
	for _, f := range g.histCells {
		alive := false
		for ch := range g.marker {
			c := int32(float64(g.marker[ch][f]) * factor)
			g.marker[ch][f] = c
			alive = alive || c > 0
		}
		if alive {
			kept = append(kept, f)
		} else {
			g.inHist[f] = false
		}
	}
	g.histCells = kept
}

// HistoryNodes returns the number of nodes carrying history cost.
func (g *Graph) HistoryNodes() int { return len(g.histCells) }

// MarkGuide flags every node of layer z inside r as in-guide.
func (g *Graph) MarkGuide(z int, r geom.Rect) {
	if z < 0 || z >= g.nz {
		return
	}
	x0, x1 := g.XRange(r.XMin, r.XMax)
	y0, y1 := g.YRange(r.YMin, r.YMax)
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			g.guide[g.Flat(Index{x, y, z})] = true
		}
	}
}

// SetGuide flags a single node as in-guide.
func (g *Graph) SetGuide(i Index) { g.guide[g.Flat(i)] = true }

// InGuide reports whether node i is inside the current net's guide.
func (g *Graph) InGuide(i Index) bool { return g.guide[g.Flat(i)] }

// ClearGuides drops every guide flag.
func (g *Graph) ClearGuides() { clear(g.guide) }

// Clone returns a deep copy of the graph, scratch included.
func (g *Graph) Clone() *Graph {
	c := *g
	c.edges = slices.Clone(g.edges)
	for b := range g.blocked {
		c.blocked[b] = slices.Clone(g.blocked[b])
	}
	for k := range g.cost {
		for ch := range g.cost[k] {
			c.cost[k][ch] = slices.Clone(g.cost[k][ch])
		}
	}
	for ch := range g.marker {
		c.marker[ch] = slices.Clone(g.marker[ch])
	}
	c.histCells = slices.Clone(g.histCells)
	c.inHist = slices.Clone(g.inHist)
	c.guide = slices.Clone(g.guide)
	c.prev = slices.Clone(g.prev)
	c.best = slices.Clone(g.best)
	c.src = slices.Clone(g.src)
	c.dst = slices.Clone(g.dst)
	return &c
}

// EqualCosts reports whether g and o have identical blocking, route-shape,
// fixed-shape and history state. Search scratch and guides are ignored.
func (g *Graph) EqualCosts(o *Graph) bool {
	if g.nx != o.nx || g.ny != o.ny || g.nz != o.nz {
		return false
	}
	for b := range g.blocked {
		if !slices.Equal(g.blocked[b], o.blocked[b]) {
			return false
		}
	}
	for k := range g.cost {
		for ch := range g.cost[k] {
			if !slices.Equal(g.cost[k][ch], o.cost[k][ch]) {
				return false
			}
		}
	}
	for ch := range g.marker {
		if !slices.Equal(g.marker[ch], o.marker[ch]) {
			return false
		}
	}
	return true
}
