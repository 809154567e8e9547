// Package cost translates geometry and technology rules into routing-grid
// cost and blocking updates.
//
// Every update is parameterised by a [grid.CostOp]. The same geometry applied
// with an operation and then with its inverse leaves the grid unchanged,
// which is what lets the controller rip a net up by replaying its figures
// with the opposite sign.
//
// The halos follow one pattern: compute the clearance a default-width wire
// (or default via) at a lattice node would need from the shape, scan the
// lattice nodes inside the shape bloated by that clearance, and touch the
// nodes whose wire or via would be closer than the requirement. Distances are
// compared squared and strictly: a node exactly at the required spacing is
// legal.
package cost

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/tileroute/pkg/design"
	"github.com/matzehuels/tileroute/pkg/errors"
	"github.com/matzehuels/tileroute/pkg/geom"
	"github.com/matzehuels/tileroute/pkg/grid"
	"github.com/matzehuels/tileroute/pkg/tech"
)

// Model applies rule-derived costs to one grid.
type Model struct {
	tech   *tech.Tech
	g      *grid.Graph
	logger *log.Logger
	warned []bool
}

// New creates a cost model. A nil logger discards warnings.
func New(t *tech.Tech, g *grid.Graph, logger *log.Logger) *Model {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Model{tech: t, g: g, logger: logger, warned: make([]bool, t.NumLayers())}
}

// Figure applies op for one route figure of a net with non-default rule
// ndr (nil for default nets). Tapered figures use default spacing.
func (m *Model) Figure(op grid.CostOp, fig design.Figure, ndr *tech.NDR) {
	switch f := fig.(type) {
	case *design.PathSegment:
		if f.Tapered {
			ndr = nil
		}
		m.metal(op, f.Rect(), f.Layer, ndr)
	case *design.PatchWire:
		m.metal(op, f.Rect(), f.Layer, ndr)
	case *design.Via:
		if f.Tapered {
			ndr = nil
		}
		def := m.tech.Via(f.Def)
		m.metal(op, def.Bottom.Translate(f.Origin), f.Bottom, ndr)
		m.metal(op, def.Top.Translate(f.Origin), f.Bottom+1, ndr)
		for _, c := range def.Cuts {
			m.cut(op, c.Translate(f.Origin), f.Bottom)
		}
		m.noStack(op, f.Origin, f.Bottom)
	}
}

// Shape applies op for one fixed shape. Obstructions also block every edge
// whose default wire or via would overlap them, and wide shapes carry
// minimum-cut cost.
func (m *Model) Shape(op grid.CostOp, s design.Shape) {
	if s.Cut {
		m.cut(op, s.Rect, s.Layer)
		if s.Net == design.Obstruction {
			m.blockCut(op.Sign, s.Rect, s.Layer)
		}
		return
	}
	m.metal(op, s.Rect, s.Layer, nil)
	m.minCut(op, s.Rect, s.Layer)
	if s.Net == design.Obstruction {
		m.blockMetal(op.Sign, s.Rect, s.Layer)
	}
}

func (m *Model) metal(op grid.CostOp, box geom.Rect, z int, ndr *tech.NDR) {
	l := m.tech.Layer(z)
	if !l.Spacing.Supported() {
		m.warnOnce(l)
		return
	}
	m.planar(op, box, l, ndr)
	m.viaSpacing(op, box, l, true, ndr)
	m.viaSpacing(op, box, l, false, ndr)
	m.eol(op, box, l)
}

func (m *Model) warnOnce(l *tech.Layer) {
	if l.Spacing.Empty() || m.warned[l.Index] {
		return
	}
	m.warned[l.Index] = true
	m.logger.Warn("skipping rule", "err", &errors.UnsupportedRuleError{Layer: l.Name, Rule: l.Spacing.Kind})
}

// each visits every lattice node of layer plane inside r.
func (m *Model) each(r geom.Rect, fn func(x, y int, p geom.Point)) {
	x0, x1 := m.g.XRange(r.XMin, r.XMax)
	y0, y1 := m.g.YRange(r.YMin, r.YMax)
	for x := x0; x <= x1; x++ {
		for y := y0; y <= y1; y++ {
			fn(x, y, geom.Point{X: m.g.XCoord(x), Y: m.g.YCoord(y)})
		}
	}
}

// planar touches the nodes of layer l where a default-width wire would be
// closer to box than the required spacing.
func (m *Model) planar(op grid.CostOp, box geom.Rect, l *tech.Layer, ndr *tech.NDR) {
	hw := l.Width / 2
	bloat := l.Spacing.Find(box.MinSide(), l.Width, box.MaxSide())
	if r := ndr.Layer(l.Index); r.Spacing > bloat {
		bloat = r.Spacing
	}
	req := int64(bloat) * int64(bloat)
	m.each(box.Bloat(bloat+hw-1), func(x, y int, p geom.Point) {
		if cornerDistSq(p, hw, box) < req {
			m.g.Apply(op, grid.Index{X: x, Y: y, Z: l.Index}, grid.Planar)
		}
	})
}

// cornerDistSq is the smallest squared distance from a corner of the square
// of half side hw centered on p to box.
func cornerDistSq(p geom.Point, hw int, box geom.Rect) int64 {
	d := geom.PointDistSq(geom.Pt(p.X+hw, p.Y-hw), box)
	d = min(d, geom.PointDistSq(geom.Pt(p.X+hw, p.Y+hw), box))
	d = min(d, geom.PointDistSq(geom.Pt(p.X-hw, p.Y-hw), box))
	return min(d, geom.PointDistSq(geom.Pt(p.X-hw, p.Y+hw), box))
}

// viaSpacing touches the via edges whose default via enclosure on layer l
// would violate spacing to box. upper selects the via going up from l.
func (m *Model) viaSpacing(op grid.CostOp, box geom.Rect, l *tech.Layer, upper bool, ndr *tech.NDR) {
	level := l.Index
	if !upper {
		level--
	}
	def := m.tech.DefaultVia(level)
	if def == nil {
		return
	}
	enc := def.Enclosure(!upper)
	bloat := l.Spacing.Find(box.MinSide(), enc.MinSide(), max(box.MaxSide(), enc.MaxSide()))
	ndrSpacing := ndr.Layer(l.Index).Spacing
	bloat = max(bloat, ndrSpacing)
	scan := geom.Rect{
		XMin: box.XMin - bloat - enc.XMax + 1,
		YMin: box.YMin - bloat - enc.YMax + 1,
		XMax: box.XMax + bloat - enc.XMin - 1,
		YMax: box.YMax + bloat - enc.YMin - 1,
	}
	m.each(scan, func(x, y int, p geom.Point) {
		at := enc.Translate(p)
		req := max(l.Spacing.Find(box.MinSide(), enc.MinSide(), geom.PRL(box, at)), ndrSpacing)
		if geom.DistSq(box, at) < int64(req)*int64(req) {
			m.g.Apply(op, grid.Index{X: x, Y: y, Z: level}, grid.Via)
		}
	})
}

// eol touches the nodes in front of the line ends of box.
func (m *Model) eol(op grid.CostOp, box geom.Rect, l *tech.Layer) {
	for _, r := range l.EOL {
		if r.Space == 0 {
			continue
		}
		var tests []geom.Rect
		if box.W() <= r.Width {
			tests = append(tests,
				geom.Rect{XMin: box.XMin - r.Within, YMin: box.YMax, XMax: box.XMax + r.Within, YMax: box.YMax + r.Space},
				geom.Rect{XMin: box.XMin - r.Within, YMin: box.YMin - r.Space, XMax: box.XMax + r.Within, YMax: box.YMin})
		}
		if box.H() <= r.Width {
			tests = append(tests,
				geom.Rect{XMin: box.XMax, YMin: box.YMin - r.Within, XMax: box.XMax + r.Space, YMax: box.YMax + r.Within},
				geom.Rect{XMin: box.XMin - r.Space, YMin: box.YMin - r.Within, XMax: box.XMin, YMax: box.YMax + r.Within})
		}
		for _, tb := range tests {
			m.eolWindow(op, tb, l)
		}
	}
}

func (m *Model) eolWindow(op grid.CostOp, tb geom.Rect, l *tech.Layer) {
	hw := l.Width / 2
	m.each(tb.Bloat(hw-1), func(x, y int, _ geom.Point) {
		m.g.Apply(op, grid.Index{X: x, Y: y, Z: l.Index}, grid.Planar)
	})
	for _, upper := range [...]bool{false, true} {
		level := l.Index
		if !upper {
			level--
		}
		def := m.tech.DefaultVia(level)
		if def == nil {
			continue
		}
		enc := def.Enclosure(!upper)
		scan := geom.Rect{
			XMin: tb.XMin - enc.XMax + 1, YMin: tb.YMin - enc.YMax + 1,
			XMax: tb.XMax - enc.XMin - 1, YMax: tb.YMax - enc.YMin - 1,
		}
		m.each(scan, func(x, y int, _ geom.Point) {
			m.g.Apply(op, grid.Index{X: x, Y: y, Z: level}, grid.Via)
		})
	}
}

// minCut touches the via edges whose default via would land on box with
// fewer cuts than a minimum-cut rule of the layer requires.
func (m *Model) minCut(op grid.CostOp, box geom.Rect, z int) {
	l := m.tech.Layer(z)
	for _, r := range l.MinCut {
		if box.MinSide() < r.Width {
			continue
		}
		for _, level := range [...]int{z - 1, z} {
			def := m.tech.DefaultVia(level)
			if def == nil || len(def.Cuts) >= r.Cuts {
				continue
			}
			cb := def.CutBox()
			m.each(geom.Rect{
				XMin: box.XMin - cb.XMax, YMin: box.YMin - cb.YMax,
				XMax: box.XMax - cb.XMin, YMax: box.YMax - cb.YMin,
			}, func(x, y int, _ geom.Point) {
				m.g.Apply(op, grid.Index{X: x, Y: y, Z: level}, grid.Via)
			})
		}
	}
}

// cut touches the via edges whose default via on the same level, or the
// level above or below, would violate cut spacing to box.
func (m *Model) cut(op grid.CostOp, box geom.Rect, level int) {
	cl := m.tech.Cuts[level]
	m.cutHalo(op, box, level, cl.Spacing, cl.CenterToCenter)
	if cl.InterLayerSpacing > 0 && level+1 < len(m.tech.Cuts) {
		m.cutHalo(op, box, level+1, cl.InterLayerSpacing, false)
	}
	if level > 0 {
		if below := m.tech.Cuts[level-1]; below.InterLayerSpacing > 0 {
			m.cutHalo(op, box, level-1, below.InterLayerSpacing, false)
		}
	}
}

func (m *Model) cutHalo(op grid.CostOp, box geom.Rect, level, spacing int, c2c bool) {
	def := m.tech.DefaultVia(level)
	if def == nil || spacing <= 0 {
		return
	}
	req := int64(spacing) * int64(spacing)
	cb := def.CutBox()
	scan := geom.Rect{
		XMin: box.XMin - spacing - cb.XMax + 1, YMin: box.YMin - spacing - cb.YMax + 1,
		XMax: box.XMax + spacing - cb.XMin - 1, YMax: box.YMax + spacing - cb.YMin - 1,
	}
	center := box.Center()
	m.each(scan, func(x, y int, p geom.Point) {
		for _, c := range def.Cuts {
			at := c.Translate(p)
			var d int64
			if c2c {
				ac := at.Center()
				dx, dy := int64(ac.X-center.X), int64(ac.Y-center.Y)
				d = dx*dx + dy*dy
			} else {
				d = geom.DistSq(box, at)
			}
			if d < req {
				m.g.Apply(op, grid.Index{X: x, Y: y, Z: level}, grid.Via)
				return
			}
		}
	})
}

// noStack blocks the via edges directly above and below a via at origin
// when the technology forbids stacking there.
func (m *Model) noStack(op grid.CostOp, origin geom.Point, level int) {
	var targets []int
	if level+1 < len(m.tech.Cuts) && m.tech.Cuts[level+1].NoStack {
		targets = append(targets, level+1)
	}
	if level > 0 && m.tech.Cuts[level].NoStack {
		targets = append(targets, level-1)
	}
	for _, z := range targets {
		i, err := m.g.Lookup(origin, z)
		if err != nil {
			continue
		}
		m.setBlocked(op.Sign, i, grid.Up)
	}
}

func (m *Model) setBlocked(sign grid.Sign, i grid.Index, d grid.Dir) {
	if sign == grid.Add {
		m.g.SetBlocked(i, d)
	} else {
		m.g.ResetBlocked(i, d)
	}
}

// blockMetal blocks planar edges at nodes whose default wire would overlap
// box, and via edges whose enclosure would.
func (m *Model) blockMetal(sign grid.Sign, box geom.Rect, z int) {
	hw := m.tech.Layer(z).Width / 2
	m.each(box.Bloat(hw-1), func(x, y int, _ geom.Point) {
		i := grid.Index{X: x, Y: y, Z: z}
		for _, d := range [...]grid.Dir{grid.East, grid.West, grid.North, grid.South} {
			m.setBlocked(sign, i, d)
		}
	})
	for _, level := range [...]int{z - 1, z} {
		def := m.tech.DefaultVia(level)
		if def == nil {
			continue
		}
		enc := def.Enclosure(level < z)
		m.each(geom.Rect{
			XMin: box.XMin - enc.XMax + 1, YMin: box.YMin - enc.YMax + 1,
			XMax: box.XMax - enc.XMin - 1, YMax: box.YMax - enc.YMin - 1,
		}, func(x, y int, _ geom.Point) {
			m.setBlocked(sign, grid.Index{X: x, Y: y, Z: level}, grid.Up)
		})
	}
}

// blockCut blocks via edges whose cut would overlap a cut obstruction.
func (m *Model) blockCut(sign grid.Sign, box geom.Rect, level int) {
	def := m.tech.DefaultVia(level)
	if def == nil {
		return
	}
	cb := def.CutBox()
	m.each(geom.Rect{
		XMin: box.XMin - cb.XMax + 1, YMin: box.YMin - cb.YMax + 1,
		XMax: box.XMax - cb.XMin - 1, YMax: box.YMax - cb.YMin - 1,
	}, func(x, y int, _ geom.Point) {
		m.setBlocked(sign, grid.Index{X: x, Y: y, Z: level}, grid.Up)
	})
}
