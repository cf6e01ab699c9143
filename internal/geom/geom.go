// Package geom provides the 2-D primitives shared by layout and rendering:
// points, bounding boxes and the camera transform that maps graph
// coordinates to device pixels.
package geom

import "math"

// Point is a position in graph (model) coordinates unless stated otherwise.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Scale returns p multiplied by f.
func (p Point) Scale(f float64) Point {
	return Point{X: p.X * f, Y: p.Y * f}
}

// Len is the distance of p from the origin.
func (p Point) Len() float64 {
	return math.Hypot(p.X, p.Y)
}

// Rect is an axis-aligned bounding box. A Rect with X1 > X2 is empty.
type Rect struct {
	X1, Y1, X2, Y2 float64
}

// EmptyRect returns the identity element for Union.
func EmptyRect() Rect {
	return Rect{X1: math.Inf(1), Y1: math.Inf(1), X2: math.Inf(-1), Y2: math.Inf(-1)}
}

// RectAround returns the box of size w×h centered on c.
func RectAround(c Point, w, h float64) Rect {
	return Rect{X1: c.X - w/2, Y1: c.Y - h/2, X2: c.X + w/2, Y2: c.Y + h/2}
}

// Empty reports whether the rect contains no area and no points.
func (r Rect) Empty() bool {
	return r.X1 > r.X2 || r.Y1 > r.Y2
}

// Width returns the horizontal extent, 0 for an empty rect.
func (r Rect) Width() float64 {
	if r.Empty() {
		return 0
	}
	return r.X2 - r.X1
}

// Height returns the vertical extent, 0 for an empty rect.
func (r Rect) Height() float64 {
	if r.Empty() {
		return 0
	}
	return r.Y2 - r.Y1
}

// Center returns the midpoint of the rect.
func (r Rect) Center() Point {
	return Point{X: (r.X1 + r.X2) / 2, Y: (r.Y1 + r.Y2) / 2}
}

// Union returns the smallest rect containing both r and o.
func (r Rect) Union(o Rect) Rect {
	if o.Empty() {
		return r
	}
	if r.Empty() {
		return o
	}
	return Rect{
		X1: math.Min(r.X1, o.X1),
		Y1: math.Min(r.Y1, o.Y1),
		X2: math.Max(r.X2, o.X2),
		Y2: math.Max(r.Y2, o.Y2),
	}
}

// Expand grows the rect by d on every side.
func (r Rect) Expand(d float64) Rect {
	if r.Empty() {
		return r
	}
	return Rect{X1: r.X1 - d, Y1: r.Y1 - d, X2: r.X2 + d, Y2: r.Y2 + d}
}

// Translate moves the rect by (dx, dy).
func (r Rect) Translate(dx, dy float64) Rect {
	if r.Empty() {
		return r
	}
	return Rect{X1: r.X1 + dx, Y1: r.Y1 + dy, X2: r.X2 + dx, Y2: r.Y2 + dy}
}

// Intersects reports whether r and o overlap with positive area.
func (r Rect) Intersects(o Rect) bool {
	if r.Empty() || o.Empty() {
		return false
	}
	return r.X1 < o.X2 && o.X1 < r.X2 && r.Y1 < o.Y2 && o.Y1 < r.Y2
}
