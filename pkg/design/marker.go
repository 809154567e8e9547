package design

import (
	"fmt"
	"slices"
	"strings"

	"github.com/matzehuels/tileroute/pkg/errors"
	"github.com/matzehuels/tileroute/pkg/geom"
)

// Rule identifies the design rule a marker violates.
type Rule int

// Checked rules.
const (
	RuleShort Rule = iota
	RuleSpacing
	RuleEOL
	RuleCutSpacing
	RuleAdjacentCut
	RuleInterLayerCut
	RuleMinCut
	RuleMinArea
)

var ruleNames = [...]string{"short", "spacing", "eol", "cut_spacing", "adjacent_cut", "inter_layer_cut", "min_cut", "min_area"}

func (r Rule) String() string {
	if int(r) < len(ruleNames) {
		return ruleNames[r]
	}
	return fmt.Sprintf("Rule(%d)", int(r))
}

// MarshalText implements encoding.TextMarshaler.
func (r Rule) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Rule) UnmarshalText(b []byte) error {
	s := strings.ToLower(string(b))
	for i, n := range ruleNames {
		if n == s {
			*r = Rule(i)
			return nil
		}
	}
	return errors.New(errors.ErrCodeInvalidInput, "unknown rule %q", s)
}

// Marker is one design-rule violation. Markers are never modified after the
// checker creates them.
type Marker struct {
	BBox  geom.Rect `json:"bbox"`
	Layer int       `json:"layer"`
	Cut   bool      `json:"cut,omitempty"`
	Rule  Rule      `json:"rule"`
	// Nets are the contributing net IDs in ascending order; obstructions
	// appear as Obstruction.
	Nets    []int   `json:"nets"`
	Sources []Shape `json:"sources"`
}

// NewMarker builds a marker with its net list deduplicated and sorted.
func NewMarker(rule Rule, layer int, cut bool, bbox geom.Rect, sources ...Shape) Marker {
	nets := make([]int, 0, len(sources))
	for _, s := range sources {
		nets = append(nets, s.Net)
	}
	slices.Sort(nets)
	return Marker{
		BBox:    bbox,
		Layer:   layer,
		Cut:     cut,
		Rule:    rule,
		Nets:    slices.Compact(nets),
		Sources: sources,
	}
}

// Involves reports whether net contributes to the marker.
func (m *Marker) Involves(net int) bool {
	_, ok := slices.BinarySearch(m.Nets, net)
	return ok
}

// CompareMarkers orders markers by layer, rule, box and nets.
func CompareMarkers(a, b Marker) int {
	if a.Cut != b.Cut {
		if !a.Cut {
			return -1
		}
		return 1
	}
	if c := a.Layer - b.Layer; c != 0 {
		return c
	}
	if c := int(a.Rule) - int(b.Rule); c != 0 {
		return c
	}
	for _, c := range [...]int{
		a.BBox.XMin - b.BBox.XMin, a.BBox.YMin - b.BBox.YMin,
		a.BBox.XMax - b.BBox.XMax, a.BBox.YMax - b.BBox.YMax,
	} {
		if c != 0 {
			return c
		}
	}
	return slices.Compare(a.Nets, b.Nets)
}

func (m Marker) String() string {
	kind := "layer"
	if m.Cut {
		kind = "cut"
	}
	return fmt.Sprintf("%s on %s %d at %v nets %v", m.Rule, kind, m.Layer, m.BBox, m.Nets)
}
