// Package commit turns search paths into route figures.
//
// A path is a list of lattice nodes. Collinear planar steps on one layer
// become a single [design.PathSegment]; every layer change becomes a
// [design.Via]. After a path is written, each layer run is checked against
// the layer's minimum area and short runs receive a [design.PatchWire].
package commit

import (
	"github.com/matzehuels/tileroute/pkg/design"
	"github.com/matzehuels/tileroute/pkg/errors"
	"github.com/matzehuels/tileroute/pkg/geom"
	"github.com/matzehuels/tileroute/pkg/grid"
	"github.com/matzehuels/tileroute/pkg/maze"
	"github.com/matzehuels/tileroute/pkg/tech"
)

// Options configures a Writer.
type Options struct {
	// TaperRadius grows the taper zone around instance pins of NDR nets, in
	// pitches of the access point layer. Zero disables tapering.
	TaperRadius int
	// BoundaryMinAreaFix credits path ends at access points with the pin
	// area recorded on the access point instead of assuming the pin
	// satisfies minimum area.
	BoundaryMinAreaFix bool
	// Weights price the candidate ends of a minimum-area patch.
	Weights maze.Weights
}

// Writer converts paths of one grid into figures.
type Writer struct {
	tech *tech.Tech
	g    *grid.Graph
	opts Options
}

// NewWriter creates a writer for grid g.
func NewWriter(t *tech.Tech, g *grid.Graph, opts Options) *Writer {
	return &Writer{tech: t, g: g, opts: opts}
}

// Net is the per-net state used while committing paths.
type Net struct {
	*design.Net
	Rule  *tech.NDR
	Taper []geom.Rect
	// Pins holds the lattice nodes of every pin's access points, indexed
	// like Net.Pins.
	Pins [][]grid.Index

	aps map[grid.Index]design.AccessPoint
}

// IsAccessPoint reports whether i is an access point of any pin of the net.
func (n *Net) IsAccessPoint(i grid.Index) bool {
	_, ok := n.aps[i]
	return ok
}

// Prepare resolves the access points of n onto the lattice and computes its
// taper zones.
func (w *Writer) Prepare(n *design.Net) (*Net, error) {
	cn := &Net{Net: n, aps: make(map[grid.Index]design.AccessPoint)}
	if n.HasNDR() {
		if n.NDR >= len(w.tech.NDRs) {
			return nil, errors.New(errors.ErrCodeInvalidTile, "net %s: unknown non-default rule %d", n.Name, n.NDR)
		}
		cn.Rule = w.tech.NDRs[n.NDR]
		cn.Taper = TaperZones(w.tech, n, w.opts.TaperRadius)
	}
	cn.Pins = make([][]grid.Index, len(n.Pins))
	for pi, p := range n.Pins {
		if len(p.APs) == 0 {
			return nil, errors.New(errors.ErrCodeInvalidTile, "net %s: pin %s has no access points", n.Name, p.Name)
		}
		for _, ap := range p.APs {
			i, err := w.g.Lookup(ap.Point, ap.Layer)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeOutOfBounds, err, "net %s: pin %s", n.Name, p.Name)
			}
			cn.Pins[pi] = append(cn.Pins[pi], i)
			if _, dup := cn.aps[i]; !dup {
				cn.aps[i] = ap
			}
		}
	}
	return cn, nil
}

// TaperZones returns the zones around the instance pins of an NDR net in
// which the net is routed at default width: each pin's access point box
// grown by radius pitches.
func TaperZones(t *tech.Tech, n *design.Net, radius int) []geom.Rect {
	if radius <= 0 || !n.HasNDR() {
		return nil
	}
	var out []geom.Rect
	for _, p := range n.Pins {
		if p.Type != design.PinInstance || len(p.APs) == 0 {
			continue
		}
		pitch := t.Layer(p.APs[0].Layer).Pitch
		out = append(out, p.APBox().Bloat(radius*pitch))
	}
	return out
}

// Path writes the segments and vias of path. path runs from the reached
// access point back to the connected component, as returned by the search.
func (w *Writer) Path(n *Net, path []grid.Index) (design.FigureList, error) {
	var figs design.FigureList
	last := len(path) - 1
	for i := 0; i < last; {
		a, b := path[i], path[i+1]
		if a.Z != b.Z {
			v, err := w.via(n, a, b)
			if err != nil {
				return nil, err
			}
			figs = append(figs, v)
			i++
			continue
		}
		d := step(a, b)
		tap := w.taperedStep(n, a, b)
		j := i + 1
		for j < last && path[j+1].Z == a.Z && step(path[j], path[j+1]) == d && w.taperedStep(n, path[j], path[j+1]) == tap {
			j++
		}
		figs = append(figs, w.segment(n, path, i, j, tap))
		i = j
	}
	return figs, nil
}

func step(a, b grid.Index) grid.Dir {
	switch {
	case b.X > a.X:
		return grid.East
	case b.X < a.X:
		return grid.West
	case b.Y > a.Y:
		return grid.North
	case b.Y < a.Y:
		return grid.South
	case b.Z > a.Z:
		return grid.Up
	default:
		return grid.Down
	}
}

func (w *Writer) taperedStep(n *Net, a, b grid.Index) bool {
	pa, pb := w.g.Point(a), w.g.Point(b)
	for _, r := range n.Taper {
		if r.Contains(pa) && r.Contains(pb) {
			return true
		}
	}
	return false
}

func (w *Writer) tapered(n *Net, p geom.Point) bool {
	for _, r := range n.Taper {
		if r.Contains(p) {
			return true
		}
	}
	return false
}

func (w *Writer) via(n *Net, a, b grid.Index) (*design.Via, error) {
	level := min(a.Z, b.Z)
	p := w.g.Point(a)
	rule := n.Rule
	tap := rule != nil && w.tapered(n, p)
	if tap {
		rule = nil
	}
	def := w.tech.ViaFor(level, rule)
	if def == nil {
		return nil, errors.New(errors.ErrCodeMissingVia, "net %s: no via between layers %d and %d at %v", n.Name, level, level+1, p)
	}
	return &design.Via{Origin: p, Def: def.ID, Bottom: level, Tapered: tap}, nil
}

// segment builds the wire for path[i..j].
func (w *Writer) segment(n *Net, path []grid.Index, i, j int, tap bool) *design.PathSegment {
	a, b := path[i], path[j]
	z := a.Z
	l := w.tech.Layer(z)
	rule := n.Rule
	if tap {
		rule = nil
	}
	width := w.tech.WireWidth(z, rule)
	if (a.Y == b.Y) != l.Horizontal() {
		width = max(width, l.WrongDirWidth)
	}
	hw := width / 2
	end := func(k int) (int, design.EndStyle) {
		terminal := k == 0 || k == len(path)-1
		if terminal && n.IsAccessPoint(path[k]) {
			return 0, design.EndTruncated
		}
		if rule != nil && (terminal || viaAt(path, k)) {
			return max(rule.Layer(z).WireExt, hw), design.EndExtended
		}
		return hw, design.EndExtended
	}

	seg := &design.PathSegment{Begin: w.g.Point(a), End: w.g.Point(b), Layer: z, Tapered: tap}
	seg.Style.Width = width
	seg.Style.BeginExt, seg.Style.BeginStyle = end(i)
	seg.Style.EndExt, seg.Style.EndStyle = end(j)
	if seg.End.Less(seg.Begin) {
		seg.Begin, seg.End = seg.End, seg.Begin
		seg.Style.BeginExt, seg.Style.EndExt = seg.Style.EndExt, seg.Style.BeginExt
		seg.Style.BeginStyle, seg.Style.EndStyle = seg.Style.EndStyle, seg.Style.BeginStyle
	}
	return seg
}

func viaAt(path []grid.Index, k int) bool {
	return (k > 0 && path[k-1].Z != path[k].Z) || (k+1 < len(path) && path[k+1].Z != path[k].Z)
}
