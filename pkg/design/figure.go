package design

import (
	"encoding/json"
	"fmt"

	"github.com/matzehuels/tileroute/pkg/geom"
	"github.com/matzehuels/tileroute/pkg/tech"
)

// Figure is a piece of routed geometry owned by a net. The set of
// implementations is closed: PathSegment, Via and PatchWire.
type Figure interface {
	// Shapes returns the metal and cut rectangles of the figure.
	Shapes(t *tech.Tech, net int) []Shape
	figure()
}

// EndStyle is the end-cap style of a path segment end.
type EndStyle int

// End styles.
const (
	EndExtended  EndStyle = iota // extended by the segment's extension
	EndTruncated                 // flush with the end point
)

func (s EndStyle) String() string {
	if s == EndTruncated {
		return "truncated"
	}
	return "extended"
}

// SegmentStyle is the width and end treatment of a path segment.
type SegmentStyle struct {
	Width      int      `json:"width"`
	BeginExt   int      `json:"begin_ext"`
	EndExt     int      `json:"end_ext"`
	BeginStyle EndStyle `json:"begin_style"`
	EndStyle   EndStyle `json:"end_style"`
}

// PathSegment is an axis-aligned wire. Begin is never greater than End.
type PathSegment struct {
	Begin   geom.Point   `json:"begin"`
	End     geom.Point   `json:"end"`
	Layer   int          `json:"layer"`
	Style   SegmentStyle `json:"style"`
	Tapered bool         `json:"tapered,omitempty"`
}

// Horizontal reports whether the segment runs along X.
func (s *PathSegment) Horizontal() bool { return s.Begin.Y == s.End.Y && s.Begin.X != s.End.X }

// Length returns the centerline length.
func (s *PathSegment) Length() int {
	return geom.Abs(s.End.X-s.Begin.X) + geom.Abs(s.End.Y-s.Begin.Y)
}

// Rect returns the metal rectangle of the segment.
func (s *PathSegment) Rect() geom.Rect {
	hw := s.Style.Width / 2
	bx, ex := s.Style.BeginExt, s.Style.EndExt
	if s.Style.BeginStyle == EndTruncated {
		bx = 0
	}
	if s.Style.EndStyle == EndTruncated {
		ex = 0
	}
	if s.Horizontal() {
		return geom.Rect{XMin: s.Begin.X - bx, YMin: s.Begin.Y - hw, XMax: s.End.X + ex, YMax: s.End.Y + hw}
	}
	return geom.Rect{XMin: s.Begin.X - hw, YMin: s.Begin.Y - bx, XMax: s.End.X + hw, YMax: s.End.Y + ex}
}

// Shapes implements Figure.
func (s *PathSegment) Shapes(_ *tech.Tech, net int) []Shape {
	return []Shape{{Net: net, Layer: s.Layer, Rect: s.Rect()}}
}

func (*PathSegment) figure() {}

// Via connects routing layers Bottom and Bottom+1 at Origin.
type Via struct {
	Origin  geom.Point `json:"origin"`
	Def     int        `json:"def"`
	Bottom  int        `json:"bottom"`
	Tapered bool       `json:"tapered,omitempty"`
}

// Shapes implements Figure: bottom enclosure, cuts, then top enclosure.
func (v *Via) Shapes(t *tech.Tech, net int) []Shape {
	def := t.Via(v.Def)
	out := make([]Shape, 0, len(def.Cuts)+2)
	out = append(out, Shape{Net: net, Layer: v.Bottom, Rect: def.Bottom.Translate(v.Origin)})
	for _, c := range def.Cuts {
		out = append(out, Shape{Net: net, Layer: v.Bottom, Cut: true, Rect: c.Translate(v.Origin)})
	}
	out = append(out, Shape{Net: net, Layer: v.Bottom + 1, Rect: def.Top.Translate(v.Origin)})
	return out
}

func (*Via) figure() {}

// PatchWire is a fill rectangle added to satisfy minimum area.
type PatchWire struct {
	Origin geom.Point `json:"origin"`
	Offset geom.Rect  `json:"offset"`
	Layer  int        `json:"layer"`
}

// Rect returns the absolute patch rectangle.
func (p *PatchWire) Rect() geom.Rect { return p.Offset.Translate(p.Origin) }

// Shapes implements Figure.
func (p *PatchWire) Shapes(_ *tech.Tech, net int) []Shape {
	return []Shape{{Net: net, Layer: p.Layer, Rect: p.Rect()}}
}

func (*PatchWire) figure() {}

// FigureList is an ordered list of figures with a tagged JSON encoding.
type FigureList []Figure

type figureJSON struct {
	Type    string       `json:"type"`
	Segment *PathSegment `json:"segment,omitempty"`
	Via     *Via         `json:"via,omitempty"`
	Patch   *PatchWire   `json:"patch,omitempty"`
}

// MarshalFigure encodes one figure with its type tag.
func MarshalFigure(f Figure) ([]byte, error) {
	var rec figureJSON
	switch f := f.(type) {
	case *PathSegment:
		rec = figureJSON{Type: "segment", Segment: f}
	case *Via:
		rec = figureJSON{Type: "via", Via: f}
	case *PatchWire:
		rec = figureJSON{Type: "patch", Patch: f}
	default:
		return nil, fmt.Errorf("unknown figure %T", f)
	}
	return json.Marshal(rec)
}

// UnmarshalFigure decodes one tagged figure.
func UnmarshalFigure(data []byte) (Figure, error) {
	var rec figureJSON
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	switch {
	case rec.Type == "segment" && rec.Segment != nil:
		return rec.Segment, nil
	case rec.Type == "via" && rec.Via != nil:
		return rec.Via, nil
	case rec.Type == "patch" && rec.Patch != nil:
		return rec.Patch, nil
	}
	return nil, fmt.Errorf("invalid figure record %q", rec.Type)
}

// MarshalJSON implements json.Marshaler.
func (l FigureList) MarshalJSON() ([]byte, error) {
	raw := make([]json.RawMessage, len(l))
	for i, f := range l {
		b, err := MarshalFigure(f)
		if err != nil {
			return nil, err
		}
		raw[i] = b
	}
	return json.Marshal(raw)
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *FigureList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(FigureList, len(raw))
	for i, r := range raw {
		f, err := UnmarshalFigure(r)
		if err != nil {
			return fmt.Errorf("figure %d: %w", i, err)
		}
		out[i] = f
	}
	*l = out
	return nil
}
