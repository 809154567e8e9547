// Package geom provides integer point and rectangle primitives in database
// units (DBU) shared by the technology, design and routing packages.
//
// Rectangles are closed: a Rect covers [XMin, XMax] x [YMin, YMax]. Two
// rectangles that share only an edge therefore intersect with zero area,
// which is the convention the design-rule checks rely on when they treat
// abutting metal as connected.
package geom

import "fmt"

// Point is a location in DBU.
type Point struct {
	X int `json:"x" toml:"x"`
	Y int `json:"y" toml:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y int) Point { return Point{X: x, Y: y} }

// Add returns p translated by q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Less orders points by X, then Y.
func (p Point) Less(q Point) bool {
	if p.X != q.X {
		return p.X < q.X
	}
	return p.Y < q.Y
}

func (p Point) String() string { return fmt.Sprintf("(%d %d)", p.X, p.Y) }

// Rect is an axis-aligned closed rectangle in DBU.
type Rect struct {
	XMin int `json:"xl" toml:"xl"`
	YMin int `json:"yl" toml:"yl"`
	XMax int `json:"xh" toml:"xh"`
	YMax int `json:"yh" toml:"yh"`
}

// R builds a normalized rectangle from two corners.
func R(x1, y1, x2, y2 int) Rect {
	return Rect{min(x1, x2), min(y1, y2), max(x1, x2), max(y1, y2)}
}

// RectAround returns the square of side 2*half centered on p.
func RectAround(p Point, half int) Rect {
	return Rect{p.X - half, p.Y - half, p.X + half, p.Y + half}
}

// Empty reports whether r is degenerate in either axis with inverted bounds.
func (r Rect) Empty() bool { return r.XMin > r.XMax || r.YMin > r.YMax }

// W returns the width along X.
func (r Rect) W() int { return r.XMax - r.XMin }

// H returns the height along Y.
func (r Rect) H() int { return r.YMax - r.YMin }

// Area returns W*H as int64.
func (r Rect) Area() int64 { return int64(r.W()) * int64(r.H()) }

// MinSide returns the shorter side.
func (r Rect) MinSide() int { return min(r.W(), r.H()) }

// MaxSide returns the longer side.
func (r Rect) MaxSide() int { return max(r.W(), r.H()) }

// Center returns the integer center.
func (r Rect) Center() Point { return Point{(r.XMin + r.XMax) / 2, (r.YMin + r.YMax) / 2} }

// Bloat grows r by d on every side. Negative d shrinks.
func (r Rect) Bloat(d int) Rect { return Rect{r.XMin - d, r.YMin - d, r.XMax + d, r.YMax + d} }

// Translate moves r by p.
func (r Rect) Translate(p Point) Rect {
	return Rect{r.XMin + p.X, r.YMin + p.Y, r.XMax + p.X, r.YMax + p.Y}
}

// Contains reports whether p lies in r, boundary included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.XMin && p.X <= r.XMax && p.Y >= r.YMin && p.Y <= r.YMax
}

// ContainsRect reports whether o lies fully inside r.
func (r Rect) ContainsRect(o Rect) bool {
	return o.XMin >= r.XMin && o.XMax <= r.XMax && o.YMin >= r.YMin && o.YMax <= r.YMax
}

// Intersects reports whether r and o share at least one point.
func (r Rect) Intersects(o Rect) bool {
	return r.XMin <= o.XMax && o.XMin <= r.XMax && r.YMin <= o.YMax && o.YMin <= r.YMax
}

// Overlaps reports whether r and o share a region of positive area.
func (r Rect) Overlaps(o Rect) bool {
	return r.XMin < o.XMax && o.XMin < r.XMax && r.YMin < o.YMax && o.YMin < r.YMax
}

// Intersect returns the common rectangle; the result is Empty when the
// rectangles do not intersect.
func (r Rect) Intersect(o Rect) Rect {
	return Rect{max(r.XMin, o.XMin), max(r.YMin, o.YMin), min(r.XMax, o.XMax), min(r.YMax, o.YMax)}
}

// Union returns the bounding box of r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{min(r.XMin, o.XMin), min(r.YMin, o.YMin), max(r.XMax, o.XMax), max(r.YMax, o.YMax)}
}

// Merge extends r to cover p.
func (r Rect) Merge(p Point) Rect {
	return Rect{min(r.XMin, p.X), min(r.YMin, p.Y), max(r.XMax, p.X), max(r.YMax, p.Y)}
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d %d %d %d)", r.XMin, r.YMin, r.XMax, r.YMax)
}

// Gap returns the per-axis separation between r and o. A component is zero
// when the projections touch or overlap.
func Gap(r, o Rect) (dx, dy int) {
	dx = max(0, max(r.XMin, o.XMin)-min(r.XMax, o.XMax))
	dy = max(0, max(r.YMin, o.YMin)-min(r.YMax, o.YMax))
	return dx, dy
}

// DistSq returns the squared Euclidean edge-to-edge distance.
func DistSq(r, o Rect) int64 {
	dx, dy := Gap(r, o)
	return int64(dx)*int64(dx) + int64(dy)*int64(dy)
}

// PointDistSq returns the squared distance from p to the nearest point of r.
func PointDistSq(p Point, r Rect) int64 {
	return DistSq(Rect{p.X, p.Y, p.X, p.Y}, r)
}

// PRL returns the parallel run length of r and o: the larger of the X and Y
// projection overlaps. It is negative when the rectangles are diagonal to
// each other (no projection overlaps), and then equals minus the smaller
// gap, so callers can treat any PRL <= 0 as the "no overlap" case.
func PRL(r, o Rect) int {
	px := min(r.XMax, o.XMax) - max(r.XMin, o.XMin)
	py := min(r.YMax, o.YMax) - max(r.YMin, o.YMin)
	return max(px, py)
}

// Abs returns |v|.
func Abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
