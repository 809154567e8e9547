package design

import (
	"fmt"
	"strings"

	"github.com/matzehuels/tileroute/pkg/errors"
	"github.com/matzehuels/tileroute/pkg/geom"
)

// Obstruction is the net ID of shapes that belong to no net.
const Obstruction = -1

// PinType classifies where a pin comes from.
type PinType int

// Pin types.
const (
	PinInstance PinType = iota // terminal of a placed instance
	PinBoundary                // crossing of the tile boundary
	PinIO                      // top-level I/O terminal
)

var pinTypeNames = [...]string{"instance", "boundary", "io"}

func (t PinType) String() string {
	if int(t) < len(pinTypeNames) {
		return pinTypeNames[t]
	}
	return fmt.Sprintf("PinType(%d)", int(t))
}

// MarshalText implements encoding.TextMarshaler.
func (t PinType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *PinType) UnmarshalText(b []byte) error {
	s := strings.ToLower(string(b))
	for i, n := range pinTypeNames {
		if n == s {
			*t = PinType(i)
			return nil
		}
	}
	if s == "" {
		*t = PinInstance
		return nil
	}
	return errors.New(errors.ErrCodeInvalidTile, "unknown pin type %q", s)
}

// Shape is a rectangle on a routing layer, or on a cut level when Cut is set.
type Shape struct {
	Net   int       `json:"net"`
	Layer int       `json:"layer"`
	Cut   bool      `json:"cut,omitempty"`
	Rect  geom.Rect `json:"rect"`
}

// AccessPoint is a grid-aligned location where a route may attach to a pin.
type AccessPoint struct {
	Point geom.Point `json:"point"`
	Layer int        `json:"layer"`
	// BeginArea is the metal area of the pin already present on Layer,
	// credited by the boundary minimum-area fix.
	BeginArea int64 `json:"begin_area,omitempty"`
	Cost      int   `json:"cost,omitempty"`
}

// Pin is one terminal of a net.
type Pin struct {
	ID     int           `json:"id"`
	Name   string        `json:"name"`
	Type   PinType       `json:"type"`
	Shapes []Shape       `json:"shapes,omitempty"`
	APs    []AccessPoint `json:"access_points"`
}

// APBox returns the bounding box of the pin's access points.
func (p *Pin) APBox() geom.Rect {
	b := geom.Rect{XMin: p.APs[0].Point.X, YMin: p.APs[0].Point.Y, XMax: p.APs[0].Point.X, YMax: p.APs[0].Point.Y}
	for _, ap := range p.APs[1:] {
		b = b.Merge(ap.Point)
	}
	return b
}

// Guide is one rectangle of a net's coarse route on a layer.
type Guide struct {
	Layer int       `json:"layer"`
	Rect  geom.Rect `json:"rect"`
}

// Net is an electrical net to be routed inside a tile.
type Net struct {
	ID     int     `json:"id"`
	Name   string  `json:"name"`
	Pins   []*Pin  `json:"pins"`
	NDR    int     `json:"ndr"` // index into the technology NDRs, -1 for none
	Guides []Guide `json:"guides,omitempty"`
	// Locked nets keep their figures and are never ripped up.
	Locked  bool       `json:"locked,omitempty"`
	Figures FigureList `json:"figures,omitempty"`
	Ripup   bool       `json:"-"`
}

// HasNDR reports whether the net uses a non-default rule.
func (n *Net) HasNDR() bool { return n.NDR >= 0 }

// Routable reports whether the net has anything to connect.
func (n *Net) Routable() bool { return !n.Locked && len(n.Pins) >= 2 }

// PinBox returns the bounding box of all access points of the net.
func (n *Net) PinBox() geom.Rect {
	var b geom.Rect
	first := true
	for _, p := range n.Pins {
		for _, ap := range p.APs {
			if first {
				b = geom.Rect{XMin: ap.Point.X, YMin: ap.Point.Y, XMax: ap.Point.X, YMax: ap.Point.Y}
				first = false
				continue
			}
			b = b.Merge(ap.Point)
		}
	}
	return b
}

// Clone returns a copy of the net whose figure list can be changed
// independently. Pins and guides are shared.
func (n *Net) Clone() *Net {
	c := *n
	c.Figures = append(FigureList(nil), n.Figures...)
	return &c
}

// Tile is the routing problem of one bounded region.
type Tile struct {
	Name string `json:"name"`
	// Box is the route box; markers outside it are not reported.
	Box geom.Rect `json:"box"`
	// ExtBox is the context box: geometry inside it is visible to cost and
	// rule checks, and wires may not leave it.
	ExtBox geom.Rect `json:"ext_box"`
	Nets   []*Net    `json:"nets"`
	Fixed  []Shape   `json:"fixed,omitempty"`
}

// NetByName returns the net with the given name.
func (t *Tile) NetByName(name string) (*Net, bool) {
	for _, n := range t.Nets {
		if n.Name == name {
			return n, true
		}
	}
	return nil, false
}

// PinShapes returns every pin shape of every net, tagged with its net.
func (t *Tile) PinShapes() []Shape {
	var out []Shape
	for _, n := range t.Nets {
		for _, p := range n.Pins {
			for _, s := range p.Shapes {
				s.Net = n.ID
				out = append(out, s)
			}
		}
	}
	return out
}
