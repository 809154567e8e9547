package maze

import (
	"fmt"

	"github.com/matzehuels/tileroute/pkg/errors"
	"github.com/matzehuels/tileroute/pkg/geom"
	"github.com/matzehuels/tileroute/pkg/grid"
	"github.com/matzehuels/tileroute/pkg/tech"
)

// ErrNoPath is returned when no destination can be reached from the sources.
var ErrNoPath = errors.New(errors.ErrCodeUnroutable, "no path to target")

// GuideMode controls how route guides constrain the search.
type GuideMode int

// Guide modes.
const (
	GuideOff    GuideMode = iota // guides are ignored
	GuideSoft                    // edges leaving the guide pay Weights.Guide
	GuideStrict                  // nodes outside the guide are never entered
)

var guideModeNames = [...]string{"off", "soft", "strict"}

func (m GuideMode) String() string {
	if m >= 0 && int(m) < len(guideModeNames) {
		return guideModeNames[m]
	}
	return fmt.Sprintf("GuideMode(%d)", int(m))
}

// MarshalText implements encoding.TextMarshaler.
func (m GuideMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *GuideMode) UnmarshalText(b []byte) error {
	for i, name := range guideModeNames {
		if string(b) == name {
			*m = GuideMode(i)
			return nil
		}
	}
	return errors.New(errors.ErrCodeInvalidConfig, "unknown guide mode %q (want off, soft or strict)", b)
}

// Weights scale the cost counters into path cost. Every weight except Bend
// is multiplied by the edge length.
type Weights struct {
	DRC      int64 // route shapes of other nets
	Shape    int64 // fixed shapes
	Marker   int64 // history at past violations
	Guide    int64 // leaving the guide in soft mode
	WrongWay int64 // planar edges against the preferred direction
	Bend     int64
}

// Default weights.
const (
	DefaultDRCCost      = 8
	DefaultShapeCost    = 32
	DefaultMarkerCost   = 32
	DefaultGuideCost    = 1
	DefaultWrongWayCost = 1
	DefaultBendCost     = 1
)

// DefaultWeights returns the default cost weights.
func DefaultWeights() Weights {
	return Weights{
		DRC:      DefaultDRCCost,
		Shape:    DefaultShapeCost,
		Marker:   DefaultMarkerCost,
		Guide:    DefaultGuideCost,
		WrongWay: DefaultWrongWayCost,
		Bend:     DefaultBendCost,
	}
}

// Request describes one search from the connected component of a net to one
// of its pins.
type Request struct {
	Src []grid.Index // connected component
	Dst []grid.Index // access points of the target pin
	// NDR is the net's non-default rule, nil for default nets.
	NDR *tech.NDR
	// Taper lists the boxes in which an NDR net is routed at default width.
	Taper []geom.Rect
	// Bounds is the box wide wires must stay inside. The zero Rect means
	// unbounded.
	Bounds geom.Rect
	Guide  GuideMode
}

// Searcher runs maze searches on one grid.
type Searcher struct {
	tech *tech.Tech
	g    *grid.Graph
	w    Weights
	open queue

	req    *Request
	dstBox geom.Rect
	dstZ   [2]int
}

// New creates a searcher for grid g.
func New(t *tech.Tech, g *grid.Graph, w Weights) *Searcher {
	return &Searcher{tech: t, g: g, w: w}
}

// Weights returns the cost weights in use.
func (s *Searcher) Weights() Weights { return s.w }

// SetWeights replaces the cost weights.
func (s *Searcher) SetWeights(w Weights) { s.w = w }

// Route finds the cheapest path from any source to any destination. The
// returned cells run from the reached destination back to a source. When a
// destination is already a source the path is that single cell.
//
// Sources stay flagged on the grid afterwards; destinations are cleared.
func (s *Searcher) Route(req Request) ([]grid.Index, error) {
	if len(req.Src) == 0 || len(req.Dst) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "search needs sources and destinations (%d, %d)", len(req.Src), len(req.Dst))
	}
	g := s.g
	for _, i := range req.Src {
		g.SetSrc(i)
	}
	for _, i := range req.Dst {
		if g.IsSrc(i) {
			return []grid.Index{i}, nil
		}
	}
	for _, i := range req.Dst {
		g.SetDst(i)
	}
	defer func() {
		for _, i := range req.Dst {
			g.ResetDst(i)
		}
		s.req = nil
	}()

	s.req = &req
	s.setDstBounds(req.Dst)
	g.ResetVisited()
	s.open.reset()
	for _, i := range req.Src {
		if g.Best(i) == 0 {
			continue
		}
		g.SetBest(i, 0)
		s.open.push(entry{f: s.estimate(i), g: 0, flat: g.Flat(i)})
	}

	for s.open.Len() > 0 {
		e := s.open.pop()
		cur := g.Unflat(e.flat)
		if e.g > g.Best(cur) {
			continue
		}
		if g.IsDst(cur) {
			return s.trace(cur), nil
		}
		for _, d := range grid.Dirs {
			s.expand(cur, e.g, d)
		}
	}
	return nil, ErrNoPath
}

func (s *Searcher) expand(cur grid.Index, cost int64, d grid.Dir) {
	g := s.g
	if g.Blocked(cur, d) || d == g.Prev(cur) {
		return
	}
	next := cur.Step(d)
	if g.IsSrc(next) {
		return
	}
	if s.req.Guide == GuideStrict && !g.InGuide(next) && !g.IsDst(next) {
		return
	}
	if s.req.NDR != nil && d.Planar() && !s.fits(next) {
		return
	}
	c := cost + s.edgeCost(cur, d, next)
	if c >= g.Best(next) {
		return
	}
	g.SetBest(next, c)
	g.SetPrev(next, d.Reverse())
	s.open.push(entry{f: c + s.estimate(next), g: c, flat: g.Flat(next)})
}

func (s *Searcher) trace(dst grid.Index) []grid.Index {
	path := []grid.Index{dst}
	for cur := dst; !s.g.IsSrc(cur); {
		cur = cur.Step(s.g.Prev(cur))
		path = append(path, cur)
	}
	return path
}

// fits reports whether a wide wire centred on i stays inside the bounds.
func (s *Searcher) fits(i grid.Index) bool {
	b := s.req.Bounds
	if b == (geom.Rect{}) {
		return true
	}
	hw := s.tech.WireWidth(i.Z, s.req.NDR) / 2
	return b.ContainsRect(geom.RectAround(s.g.Point(i), hw))
}

func (s *Searcher) setDstBounds(dst []grid.Index) {
	p := s.g.Point(dst[0])
	s.dstBox = geom.Rect{XMin: p.X, YMin: p.Y, XMax: p.X, YMax: p.Y}
	s.dstZ = [2]int{s.g.ZPos(dst[0].Z), s.g.ZPos(dst[0].Z)}
	for _, i := range dst[1:] {
		s.dstBox = s.dstBox.Merge(s.g.Point(i))
		z := s.g.ZPos(i.Z)
		s.dstZ[0] = min(s.dstZ[0], z)
		s.dstZ[1] = max(s.dstZ[1], z)
	}
}

// estimate is the A* heuristic: the axis distances to the destination box
// plus one bend when both planar distances are non-zero.
func (s *Searcher) estimate(i grid.Index) int64 {
	p := s.g.Point(i)
	dx := max(s.dstBox.XMin-p.X, p.X-s.dstBox.XMax, 0)
	dy := max(s.dstBox.YMin-p.Y, p.Y-s.dstBox.YMax, 0)
	z := s.g.ZPos(i.Z)
	dz := max(s.dstZ[0]-z, z-s.dstZ[1], 0)
	h := int64(dx + dy + dz)
	if dx > 0 && dy > 0 {
		h += s.w.Bend
	}
	return h
}

func (s *Searcher) edgeCost(cur grid.Index, d grid.Dir, next grid.Index) int64 {
	g := s.g
	el := int64(g.EdgeLength(cur, d))
	c := el
	if d.Planar() && !g.Preferred(cur.Z, d) {
		c += s.w.WrongWay * el
	}
	if in := g.Prev(cur).Reverse(); in != grid.NoDir && in != d {
		c += s.w.Bend
	}
	if s.req.NDR != nil && !s.tapered(cur, next) {
		c += s.wideCost(cur, d) * el
	} else {
		c += s.presence(cur, d) * el
	}
	if s.req.Guide == GuideSoft && !g.InGuide(next) && !g.IsDst(next) {
		c += s.w.Guide * el
	}
	return c
}

// presence is the weighted sum of the cost kinds present on the edge.
func (s *Searcher) presence(cur grid.Index, d grid.Dir) int64 {
	g := s.g
	a, b, ch := cur, cur.Step(d), grid.Planar
	if !d.Planar() {
		ch = grid.Via
		if d == grid.Down {
			a = b
		}
		b = a
	}
	var c int64
	if g.HasCost(grid.RouteShape, a, ch) || g.HasCost(grid.RouteShape, b, ch) {
		c += s.w.DRC
	}
	if g.HasCost(grid.FixedShape, a, ch) || g.HasCost(grid.FixedShape, b, ch) {
		c += s.w.Shape
	}
	if g.MarkerCost(a, ch) > 0 || g.MarkerCost(b, ch) > 0 {
		c += s.w.Marker
	}
	return c
}

// wideCost sums the presence of every parallel edge within the clearance
// of a wide wire, so an NDR net keeps clear of neighbours a default-width
// wire would not see.
func (s *Searcher) wideCost(cur grid.Index, d grid.Dir) int64 {
	z := cur.Z
	if d == grid.Down {
		z--
	}
	if !d.Planar() && s.tech.ViaFor(z, s.req.NDR) == s.tech.DefaultVia(z) {
		return s.presence(cur, d)
	}
	l := s.tech.Layer(cur.Z)
	lw := s.tech.WireWidth(cur.Z, s.req.NDR)
	sp := max(s.req.NDR.Layer(cur.Z).Spacing, l.Spacing.Find(lw, l.Width, 0))
	r := lw/2 + sp + l.Width/2 - 1

	p := s.g.Point(cur)
	x0, x1 := cur.X, cur.X
	y0, y1 := cur.Y, cur.Y
	switch d {
	case grid.East, grid.West:
		y0, y1 = s.g.YRange(p.Y-r, p.Y+r)
	case grid.North, grid.South:
		x0, x1 = s.g.XRange(p.X-r, p.X+r)
	default:
		x0, x1 = s.g.XRange(p.X-r, p.X+r)
		y0, y1 = s.g.YRange(p.Y-r, p.Y+r)
	}
	var c int64
	for x := x0; x <= x1; x++ {
		for y := y0; y <= y1; y++ {
			i := grid.Index{X: x, Y: y, Z: cur.Z}
			if !s.g.HasEdge(i, d) {
				continue
			}
			c += s.presence(i, d)
		}
	}
	return c
}

// tapered reports whether the edge lies inside a taper zone: both of its
// ends must be inside the same zone.
func (s *Searcher) tapered(a, b grid.Index) bool {
	pa, pb := s.g.Point(a), s.g.Point(b)
	for _, r := range s.req.Taper {
		if r.Contains(pa) && r.Contains(pb) {
			return true
		}
	}
	return false
}
