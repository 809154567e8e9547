package grid

import (
	"slices"
	"sort"

	"github.com/matzehuels/tileroute/pkg/errors"
	"github.com/matzehuels/tileroute/pkg/geom"
	"github.com/matzehuels/tileroute/pkg/tech"
)

// ViaLengthFactor scales a layer pitch into the length of a via edge.
const ViaLengthFactor = 4

// edge bits stored on the lower endpoint
const (
	bitEast uint8 = 1 << iota
	bitNorth
	bitUp
)

// Graph is the routing lattice of one tile.
type Graph struct {
	xs, ys     []int
	nx, ny, nz int
	horizontal []bool
	viaLen     []int
	zPos       []int

	edges   []uint8
	blocked [3][]uint16 // East, North, Up

	cost      [2][2][]int32 // [Kind][Channel]
	marker    [2][]int32    // [Channel]
	histCells []int32
	inHist    []bool
	guide     []bool

	prev []Dir
	best []int64
	src  []bool
	dst  []bool
}

// Build creates the lattice of box for technology t. The coordinates are
// the preferred-direction tracks of every layer inside box plus the
// coordinates of the extra points (access points), which must lie inside
// box.
func Build(t *tech.Tech, box geom.Rect, extra []geom.Point) (*Graph, error) {
	var xs, ys []int
	for _, l := range t.Layers {
		if l.Horizontal() {
			ys = append(ys, l.Tracks(box.YMin, box.YMax)...)
		} else {
			xs = append(xs, l.Tracks(box.XMin, box.XMax)...)
		}
	}
	for _, p := range extra {
		if !box.Contains(p) {
			return nil, errors.New(errors.ErrCodeOutOfBounds, "point %v outside route box %v", p, box)
		}
		xs = append(xs, p.X)
		ys = append(ys, p.Y)
	}
	return New(t, xs, ys)
}

// New creates a lattice from explicit coordinates. Duplicates are removed.
func New(t *tech.Tech, xs, ys []int) (*Graph, error) {
	xs = sortedUnique(xs)
	ys = sortedUnique(ys)
	if len(xs) == 0 || len(ys) == 0 || t.NumLayers() == 0 {
		return nil, errors.New(errors.ErrCodeInvalidTile, "empty routing lattice (%d x %d x %d)", len(xs), len(ys), t.NumLayers())
	}
	g := &Graph{xs: xs, ys: ys, nx: len(xs), ny: len(ys), nz: t.NumLayers()}
	g.horizontal = make([]bool, g.nz)
	g.viaLen = make([]int, g.nz)
	g.zPos = make([]int, g.nz)
	for z, l := range t.Layers {
		g.horizontal[z] = l.Horizontal()
		if z+1 < g.nz {
			g.viaLen[z] = ViaLengthFactor * l.Pitch
			g.zPos[z+1] = g.zPos[z] + g.viaLen[z]
		}
	}

	n := g.nx * g.ny * g.nz
	g.edges = make([]uint8, n)
	for b := range g.blocked {
		g.blocked[b] = make([]uint16, n)
	}
	for k := range g.cost {
		for c := range g.cost[k] {
			g.cost[k][c] = make([]int32, n)
		}
	}
	for c := range g.marker {
		g.marker[c] = make([]int32, n)
	}
	g.inHist = make([]bool, n)
	g.guide = make([]bool, n)
	g.prev = make([]Dir, n)
	g.best = make([]int64, n)
	g.src = make([]bool, n)
	g.dst = make([]bool, n)

	for z := 0; z < g.nz; z++ {
		hasVia := z+1 < g.nz && t.DefaultVia(z) != nil
		for y := 0; y < g.ny; y++ {
			for x := 0; x < g.nx; x++ {
				var bits uint8
				if x+1 < g.nx {
					bits |= bitEast
				}
				if y+1 < g.ny {
					bits |= bitNorth
				}
				if hasVia {
					bits |= bitUp
				}
				g.edges[g.Flat(Index{x, y, z})] = bits
			}
		}
	}
	g.ResetSearch()
	return g, nil
}

func sortedUnique(v []int) []int {
	out := slices.Clone(v)
	slices.Sort(out)
	return slices.Compact(out)
}

// Dims returns the lattice size.
func (g *Graph) Dims() (nx, ny, nz int) { return g.nx, g.ny, g.nz }

// Size returns the number of nodes.
func (g *Graph) Size() int { return len(g.edges) }

// Flat returns the slice offset of i. i must be inside the lattice.
func (g *Graph) Flat(i Index) int { return (i.Z*g.ny+i.Y)*g.nx + i.X }

// Unflat is the inverse of Flat.
func (g *Graph) Unflat(f int) Index {
	x := f % g.nx
	f /= g.nx
	return Index{X: x, Y: f % g.ny, Z: f / g.ny}
}

// Contains reports whether i is inside the lattice.
func (g *Graph) Contains(i Index) bool {
	return i.X >= 0 && i.X < g.nx && i.Y >= 0 && i.Y < g.ny && i.Z >= 0 && i.Z < g.nz
}

// Point returns the DBU location of i.
func (g *Graph) Point(i Index) geom.Point { return geom.Point{X: g.xs[i.X], Y: g.ys[i.Y]} }

// XCoord returns the x coordinate of column x.
func (g *Graph) XCoord(x int) int { return g.xs[x] }

// YCoord returns the y coordinate of row y.
func (g *Graph) YCoord(y int) int { return g.ys[y] }

// ZPos returns the cumulative via length from layer 0 to layer z, the
// layer-height unit used for vertical distances.
func (g *Graph) ZPos(z int) int { return g.zPos[z] }

// Horizontal reports whether layer z prefers horizontal wires.
func (g *Graph) Horizontal(z int) bool { return g.horizontal[z] }

// Preferred reports whether a planar move in d follows the preferred
// direction of layer z.
func (g *Graph) Preferred(z int, d Dir) bool {
	if g.horizontal[z] {
		return d == East || d == West
	}
	return d == North || d == South
}

// Box returns the rectangle spanned by the lattice coordinates.
func (g *Graph) Box() geom.Rect {
	return geom.Rect{XMin: g.xs[0], YMin: g.ys[0], XMax: g.xs[g.nx-1], YMax: g.ys[g.ny-1]}
}

// Lookup returns the node at p on layer z. p must be a lattice coordinate.
func (g *Graph) Lookup(p geom.Point, z int) (Index, error) {
	x, okx := slices.BinarySearch(g.xs, p.X)
	y, oky := slices.BinarySearch(g.ys, p.Y)
	if !okx || !oky || z < 0 || z >= g.nz {
		return Index{}, errors.New(errors.ErrCodeOutOfBounds, "point %v on layer %d is not a lattice node", p, z)
	}
	return Index{X: x, Y: y, Z: z}, nil
}

// XRange returns the inclusive column range whose coordinates lie in
// [lo, hi]. The range is empty when first > last.
func (g *Graph) XRange(lo, hi int) (first, last int) { return coordRange(g.xs, lo, hi) }

// YRange returns the inclusive row range whose coordinates lie in [lo, hi].
func (g *Graph) YRange(lo, hi int) (first, last int) { return coordRange(g.ys, lo, hi) }

func coordRange(cs []int, lo, hi int) (int, int) {
	first := sort.SearchInts(cs, lo)
	last := sort.Search(len(cs), func(i int) bool { return cs[i] > hi }) - 1
	return first, last
}

// lower returns the node that stores the edge (i, d) and the edge slot.
func (g *Graph) lower(i Index, d Dir) (Index, int) {
	switch d {
	case East:
		return i, 0
	case West:
		return Index{i.X - 1, i.Y, i.Z}, 0
	case North:
		return i, 1
	case South:
		return Index{i.X, i.Y - 1, i.Z}, 1
	case Up:
		return i, 2
	default:
		return Index{i.X, i.Y, i.Z - 1}, 2
	}
}

// HasEdge reports whether the edge from i in direction d exists.
func (g *Graph) HasEdge(i Index, d Dir) bool {
	lo, slot := g.lower(i, d)
	if !g.Contains(lo) || !g.Contains(i) {
		return false
	}
	return g.edges[g.Flat(lo)]&(1<<slot) != 0
}

// Blocked reports whether the edge from i in direction d is blocked.
// Missing edges count as blocked.
func (g *Graph) Blocked(i Index, d Dir) bool {
	if !g.HasEdge(i, d) {
		return true
	}
	lo, slot := g.lower(i, d)
	return g.blocked[slot][g.Flat(lo)] > 0
}

// SetBlocked blocks the edge from i in direction d. Blocks are counted,
// so overlapping obstructions can be added and removed independently.
func (g *Graph) SetBlocked(i Index, d Dir) {
	if !g.HasEdge(i, d) {
		return
	}
	lo, slot := g.lower(i, d)
	g.blocked[slot][g.Flat(lo)]++
}

// ResetBlocked removes one block from the edge from i in direction d.
func (g *Graph) ResetBlocked(i Index, d Dir) {
	if !g.HasEdge(i, d) {
		return
	}
	lo, slot := g.lower(i, d)
	if f := g.Flat(lo); g.blocked[slot][f] > 0 {
		g.blocked[slot][f]--
	}
}

// EdgeLength returns the DBU length of the edge from i in direction d.
func (g *Graph) EdgeLength(i Index, d Dir) int {
	switch d {
	case East:
		return g.xs[i.X+1] - g.xs[i.X]
	case West:
		return g.xs[i.X] - g.xs[i.X-1]
	case North:
		return g.ys[i.Y+1] - g.ys[i.Y]
	case South:
		return g.ys[i.Y] - g.ys[i.Y-1]
	case Up:
		return g.viaLen[i.Z]
	default:
		return g.viaLen[i.Z-1]
	}
}
