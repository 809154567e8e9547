// Package drc checks the routed geometry of a tile against the technology
// rules and reports violations as markers.
//
// The engine is independent of the routing grid: it reads shapes through
// the tile's spatial index and evaluates the exact rules (metal short and
// spacing, end-of-line, cut spacing, adjacent and inter-layer cut spacing,
// minimum cut and minimum area) on rectangles.
//
// Typical use:
//
//	e := drc.New(t, logger)
//	e.Init(drc.Region{Box: tile.Box, ExtBox: tile.ExtBox}, index, tile.Nets)
//	markers := e.Run()
//
// For incremental checks after routing one net, restrict the run with
// SetTargetNet and optionally EnableSurgicalFix, which lets the engine fix
// minimum-area violations of that net itself. The synthesized patches are
// collected with ApplyPatches.
package drc

import (
	"io"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/tileroute/pkg/design"
	"github.com/matzehuels/tileroute/pkg/errors"
	"github.com/matzehuels/tileroute/pkg/geom"
	"github.com/matzehuels/tileroute/pkg/spatial"
	"github.com/matzehuels/tileroute/pkg/tech"
)

// Region is the area one run looks at.
type Region struct {
	// Box is the route box. Markers that do not touch it are dropped.
	Box geom.Rect
	// ExtBox is the context box. Shapes inside it take part in checks so
	// violations across the route box boundary are seen.
	ExtBox geom.Rect
}

// Patch is a minimum-area fill synthesized by the engine for one net.
type Patch struct {
	Net  int
	Wire *design.PatchWire
}

// Engine is a design-rule checker over one tile.
type Engine struct {
	tech   *tech.Tech
	logger *log.Logger

	region Region
	index  *spatial.Index
	nets   map[int]*design.Net

	target    int
	hasTarget bool
	surgical  bool

	markers []design.Marker
	patches []Patch
	warned  []bool
}

// New creates an engine for technology t. A nil logger discards output.
func New(t *tech.Tech, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Engine{tech: t, logger: logger, warned: make([]bool, t.NumLayers())}
}

// Init points the engine at a region, the index holding its shapes and the
// nets owning the route entries of the index.
func (e *Engine) Init(r Region, index *spatial.Index, nets []*design.Net) {
	e.region = r
	e.index = index
	e.nets = make(map[int]*design.Net, len(nets))
	for _, n := range nets {
		e.nets[n.ID] = n
	}
	e.patches = nil
}

// SetTargetNet restricts checks to violations involving net.
func (e *Engine) SetTargetNet(net int) {
	e.target = net
	e.hasTarget = true
}

// ClearTargetNet removes the net restriction.
func (e *Engine) ClearTargetNet() { e.hasTarget = false }

// EnableSurgicalFix lets the engine synthesize minimum-area patches for the
// target net instead of reporting the violations.
func (e *Engine) EnableSurgicalFix(on bool) { e.surgical = on }

// ApplyPatches returns the patches synthesized since the last call and
// forgets them.
func (e *Engine) ApplyPatches() []Patch {
	p := e.patches
	e.patches = nil
	return p
}

// Run checks the region and returns the violations sorted by
// design.CompareMarkers.
func (e *Engine) Run() []design.Marker {
	e.markers = e.markers[:0]
	for z := range e.tech.Layers {
		e.checkMetal(z)
		e.checkEOL(z)
		e.checkMinArea(z)
	}
	for c := range e.tech.Cuts {
		e.checkCuts(c)
		e.checkInterLayer(c)
		e.checkMinCut(c)
	}

	out := make([]design.Marker, 0, len(e.markers))
	for _, m := range e.markers {
		if m.BBox.Intersects(e.region.Box) {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, design.CompareMarkers)
	out = slices.CompactFunc(out, func(a, b design.Marker) bool { return design.CompareMarkers(a, b) == 0 })
	e.logger.Debug("drc run", "markers", len(out), "patches", len(e.patches), "target", e.targetName())
	return out
}

func (e *Engine) targetName() string {
	if !e.hasTarget {
		return "all"
	}
	if n, ok := e.nets[e.target]; ok {
		return n.Name
	}
	return "?"
}

func (e *Engine) report(m design.Marker) { e.markers = append(e.markers, m) }

func (e *Engine) warnOnce(l *tech.Layer) {
	if l.Spacing.Empty() || e.warned[l.Index] {
		return
	}
	e.warned[l.Index] = true
	e.logger.Warn("skipping rule", "err", &errors.UnsupportedRuleError{Layer: l.Name, Rule: l.Spacing.Kind})
}

// item is one shape under check.
type item struct {
	design.Shape
	fig   int
	route bool
	// rule is the net's non-default rule for non-tapered route shapes.
	rule *tech.NDR
}

func (e *Engine) item(en spatial.Entry) item {
	it := item{Shape: en.Shape, fig: en.Fig, route: en.Route()}
	if !it.route {
		return it
	}
	n, ok := e.nets[en.Net]
	if !ok || !n.HasNDR() || en.Fig >= len(n.Figures) {
		return it
	}
	switch f := n.Figures[en.Fig].(type) {
	case *design.PathSegment:
		if f.Tapered {
			return it
		}
	case *design.Via:
		if f.Tapered {
			return it
		}
	}
	if n.NDR < len(e.tech.NDRs) {
		it.rule = e.tech.NDRs[n.NDR]
	}
	return it
}

func (e *Engine) gather(layer int, cut bool) []item {
	return e.items(e.index.Query(layer, cut, e.region.ExtBox))
}

func (e *Engine) items(es []spatial.Entry) []item {
	out := make([]item, len(es))
	for i, en := range es {
		out[i] = e.item(en)
	}
	return out
}

// involves reports whether a pair is in scope: different nets, at least one
// route shape, and the target net when one is set.
func (e *Engine) involves(a, b *item) bool {
	if a.Net == b.Net || (!a.route && !b.route) {
		return false
	}
	return !e.hasTarget || a.Net == e.target || b.Net == e.target
}

// pairs calls fn for every pair of items whose rectangles come within reach
// of each other, using a sweep over XMin.
func pairs(items []item, reach int, fn func(i, j int)) {
	order := make([]int, len(items))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int { return items[a].Rect.XMin - items[b].Rect.XMin })
	for k, i := range order {
		a := items[i].Rect
		for _, j := range order[k+1:] {
			b := items[j].Rect
			if b.XMin > a.XMax+reach {
				break
			}
			if b.YMin > a.YMax+reach || a.YMin > b.YMax+reach {
				continue
			}
			fn(min(i, j), max(i, j))
		}
	}
}

// gapBox is the region between two rectangles, or their overlap.
func gapBox(a, b geom.Rect) geom.Rect {
	span := func(alo, ahi, blo, bhi int) (int, int) {
		lo, hi := max(alo, blo), min(ahi, bhi)
		if lo > hi {
			lo, hi = hi, lo
		}
		return lo, hi
	}
	var r geom.Rect
	r.XMin, r.XMax = span(a.XMin, a.XMax, b.XMin, b.XMax)
	r.YMin, r.YMax = span(a.YMin, a.YMax, b.YMin, b.YMax)
	return r
}
