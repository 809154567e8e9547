package tech

import (
	"fmt"

	"github.com/matzehuels/tileroute/pkg/geom"
)

// Direction is the preferred routing direction of a layer.
type Direction int

// Routing directions.
const (
	Horizontal Direction = iota
	Vertical
)

func (d Direction) String() string {
	if d == Vertical {
		return "vertical"
	}
	return "horizontal"
}

// EOLRule is an end-of-line spacing rule: a wire end narrower than Width
// needs Space clearance in front of it, over a window extending Within past
// both sides of the end edge.
type EOLRule struct {
	Space  int `toml:"space" json:"space"`
	Width  int `toml:"width" json:"width"`
	Within int `toml:"within" json:"within"`
}

// MinCutRule requires at least Cuts cuts for a via landing on metal that is
// at least Width wide.
type MinCutRule struct {
	Width int `toml:"width" json:"width"`
	Cuts  int `toml:"cuts" json:"cuts"`
}

// Layer is one routing layer.
type Layer struct {
	Name          string
	Index         int
	Direction     Direction
	Width         int
	WrongDirWidth int
	Pitch         int
	Offset        int
	MinArea       int64
	Spacing       SpacingTable
	EOL           []EOLRule
	MinCut        []MinCutRule
}

// Horizontal reports whether the preferred direction is horizontal.
func (l *Layer) Horizontal() bool { return l.Direction == Horizontal }

// MinSpacing returns the table spacing for two default-width wires with no
// parallel run.
func (l *Layer) MinSpacing() int { return l.Spacing.Find(l.Width, l.Width, 0) }

// Tracks returns the preferred-direction track coordinates inside [lo, hi].
// Horizontal layers return y coordinates, vertical layers x coordinates.
func (l *Layer) Tracks(lo, hi int) []int {
	if l.Pitch <= 0 {
		return nil
	}
	k := floorDiv(lo-l.Offset, l.Pitch)
	var out []int
	for c := l.Offset + k*l.Pitch; c <= hi; c += l.Pitch {
		if c >= lo {
			out = append(out, c)
		}
	}
	return out
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// CutLevel is the cut layer between routing layers Index and Index+1.
type CutLevel struct {
	Name  string
	Index int
	// Spacing is the minimum cut-to-cut spacing; CenterToCenter selects
	// center distance instead of edge distance.
	Spacing        int
	CenterToCenter bool
	// AdjacentSpacing applies when a cut has AdjacentCuts or more
	// neighbours within AdjacentWithin.
	AdjacentSpacing int
	AdjacentCuts    int
	AdjacentWithin  int
	// InterLayerSpacing is the spacing to cuts on the level above.
	InterLayerSpacing int
	// NoStack forbids a via on this level directly over a via on the level
	// below.
	NoStack    bool
	DefaultVia int
}

// ViaDef is a via definition. Rectangles are relative to the via origin.
type ViaDef struct {
	ID     int
	Name   string
	Level  int
	Bottom geom.Rect
	Cuts   []geom.Rect
	Top    geom.Rect
}

// Enclosure returns the metal rectangle on the bottom or top layer.
func (v *ViaDef) Enclosure(top bool) geom.Rect {
	if top {
		return v.Top
	}
	return v.Bottom
}

// CutBox returns the bounding box of all cuts.
func (v *ViaDef) CutBox() geom.Rect {
	b := v.Cuts[0]
	for _, c := range v.Cuts[1:] {
		b = b.Union(c)
	}
	return b
}

// HalfEnclosureArea returns half the metal area of the via on one layer,
// the credit used by minimum-area bookkeeping so a via shared by two runs
// is not counted twice.
func (v *ViaDef) HalfEnclosureArea(top bool) int64 {
	return v.Enclosure(top).Area() / 2
}

// NDRLayer is the per-layer part of a non-default rule. Zero fields fall
// back to the layer defaults.
type NDRLayer struct {
	Width   int
	Spacing int
	WireExt int
}

// NDR is a non-default routing rule applied to individual nets.
type NDR struct {
	Name   string
	Layers []NDRLayer // indexed by routing layer
	Vias   []int      // preferred via per cut level, -1 for default
}

// Layer returns the rule for routing layer z.
func (n *NDR) Layer(z int) NDRLayer {
	if n == nil || z < 0 || z >= len(n.Layers) {
		return NDRLayer{}
	}
	return n.Layers[z]
}

// Tech is a complete technology rule set.
type Tech struct {
	Name              string
	ManufacturingGrid int
	Layers            []*Layer
	Cuts              []*CutLevel
	Vias              []*ViaDef
	NDRs              []*NDR

	layerByName map[string]int
	viaByName   map[string]int
	ndrByName   map[string]int
}

// NumLayers returns the number of routing layers.
func (t *Tech) NumLayers() int { return len(t.Layers) }

// Layer returns routing layer z.
func (t *Tech) Layer(z int) *Layer { return t.Layers[z] }

// LayerByName resolves a routing layer name.
func (t *Tech) LayerByName(name string) (*Layer, bool) {
	i, ok := t.layerByName[name]
	if !ok {
		return nil, false
	}
	return t.Layers[i], true
}

// Via returns the via definition with the given ID.
func (t *Tech) Via(id int) *ViaDef { return t.Vias[id] }

// ViaByName resolves a via definition name.
func (t *Tech) ViaByName(name string) (*ViaDef, bool) {
	i, ok := t.viaByName[name]
	if !ok {
		return nil, false
	}
	return t.Vias[i], true
}

// NDRByName resolves a non-default rule name.
func (t *Tech) NDRByName(name string) (*NDR, bool) {
	i, ok := t.ndrByName[name]
	if !ok {
		return nil, false
	}
	return t.NDRs[i], true
}

// DefaultVia returns the default via between layers level and level+1, or
// nil when the level has none.
func (t *Tech) DefaultVia(level int) *ViaDef {
	if level < 0 || level >= len(t.Cuts) {
		return nil
	}
	id := t.Cuts[level].DefaultVia
	if id < 0 {
		return nil
	}
	return t.Vias[id]
}

// ViaFor returns the via used by a net with the given rule on a level: the
// rule's preferred via when it names one, otherwise the level default.
func (t *Tech) ViaFor(level int, ndr *NDR) *ViaDef {
	if ndr != nil && level >= 0 && level < len(ndr.Vias) && ndr.Vias[level] >= 0 {
		return t.Vias[ndr.Vias[level]]
	}
	return t.DefaultVia(level)
}

// WireWidth returns the width of a wire on layer z for a net with the given
// rule. Non-default widths never go below the layer default.
func (t *Tech) WireWidth(z int, ndr *NDR) int {
	w := t.Layers[z].Width
	if r := ndr.Layer(z); r.Width > w {
		w = r.Width
	}
	return w
}

// SnapUp rounds v up to the manufacturing grid.
func (t *Tech) SnapUp(v int) int {
	g := t.ManufacturingGrid
	if g <= 1 {
		return v
	}
	return (v + g - 1) / g * g
}

func (t *Tech) String() string {
	return fmt.Sprintf("%s (%d layers, %d vias, %d ndrs)", t.Name, len(t.Layers), len(t.Vias), len(t.NDRs))
}
