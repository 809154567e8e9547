package grid

import "math"

// Unreached is the best-known cost of a node not yet reached by a search.
const Unreached = math.MaxInt64

// ResetSearch clears all per-search scratch.
func (g *Graph) ResetSearch() {
	for i := range g.prev {
		g.prev[i] = NoDir
		g.best[i] = Unreached
	}
	clear(g.src)
	clear(g.dst)
}

// ResetVisited clears predecessors and best costs but keeps the source and
// destination flags, so the next target of a net can be searched from the
// grown source component.
func (g *Graph) ResetVisited() {
	for i := range g.prev {
		g.prev[i] = NoDir
		g.best[i] = Unreached
	}
}

// SetSrc flags node i as a search source.
func (g *Graph) SetSrc(i Index) { g.src[g.Flat(i)] = true }

// IsSrc reports whether node i is a source.
func (g *Graph) IsSrc(i Index) bool { return g.src[g.Flat(i)] }

// SetDst flags node i as a search destination.
func (g *Graph) SetDst(i Index) { g.dst[g.Flat(i)] = true }

// ResetDst clears the destination flag of node i.
func (g *Graph) ResetDst(i Index) { g.dst[g.Flat(i)] = false }

// IsDst reports whether node i is a destination.
func (g *Graph) IsDst(i Index) bool { return g.dst[g.Flat(i)] }

// SetPrev records the direction that leads from i back to its predecessor.
func (g *Graph) SetPrev(i Index, d Dir) { g.prev[g.Flat(i)] = d }

// Prev returns the direction back to the predecessor of i, or NoDir.
func (g *Graph) Prev(i Index) Dir { return g.prev[g.Flat(i)] }

// Best returns the best-known path cost to i.
func (g *Graph) Best(i Index) int64 { return g.best[g.Flat(i)] }

// SetBest records the best-known path cost to i.
func (g *Graph) SetBest(i Index, c int64) { g.best[g.Flat(i)] = c }
