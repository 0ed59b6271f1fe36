// Package geometry - Vector shapes used by annotation files.
package geometry

import (
	"fmt"
	"image"
	"strings"
)

// Polygon is an ordered list of integer vertices in image pixel space. It is
// implicitly closed: the last vertex connects back to the first. No
// guarantees are made about self-intersection.
type Polygon []image.Point

// Bounds returns the smallest rectangle containing every vertex. Max is
// exclusive, like image.Rectangle, so a vertex at (x, y) is inside the
// returned rectangle.
func (p Polygon) Bounds() image.Rectangle {
	if len(p) == 0 {
		return image.Rectangle{}
	}
	r := image.Rectangle{Min: p[0], Max: p[0].Add(image.Pt(1, 1))}
	for _, v := range p[1:] {
		r.Min.X = min(r.Min.X, v.X)
		r.Min.Y = min(r.Min.Y, v.Y)
		r.Max.X = max(r.Max.X, v.X+1)
		r.Max.Y = max(r.Max.Y, v.Y+1)
	}
	return r
}

// Area returns the absolute shoelace area of the polygon in square pixels.
func (p Polygon) Area() float64 {
	if len(p) < 3 {
		return 0
	}
	var twice int64
	for i := range p {
		a, b := p[i], p[(i+1)%len(p)]
		twice += int64(a.X)*int64(b.Y) - int64(b.X)*int64(a.Y)
	}
	if twice < 0 {
		twice = -twice
	}
	return float64(twice) / 2
}

func (p Polygon) String() string {
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = fmt.Sprintf("(%d,%d)", v.X, v.Y)
	}
	return strings.Join(parts, " ")
}

// Box is an axis-aligned rectangle as written by the box annotation dialect:
// width and height followed by the top-left corner.
type Box struct {
	Width, Height int
	X, Y          int
}

// Polygon converts the box into its four corners in the order
// (x,y), (x,y+h), (x+w,y+h), (x+w,y).
//
// @example
// box := Box{Width: 2, Height: 3, X: 10, Y: 20}
// box.Polygon() // (10,20) (10,23) (12,23) (12,20)
func (b Box) Polygon() Polygon {
	return Polygon{
		{X: b.X, Y: b.Y},
		{X: b.X, Y: b.Y + b.Height},
		{X: b.X + b.Width, Y: b.Y + b.Height},
		{X: b.X + b.Width, Y: b.Y},
	}
}

// ToRect converts the box to an image.Rectangle.
func (b Box) ToRect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height).Canon()
}

// Intersection returns the number of pixels two boxes share.
//
// @example
// a := Box{Width: 100, Height: 100}
// b := Box{Width: 100, Height: 100, X: 50, Y: 50}
// a.Intersection(b) // 2500
func (b Box) Intersection(other Box) int64 {
	size := b.ToRect().Intersect(other.ToRect()).Size()
	return int64(size.X) * int64(size.Y)
}

// Union returns the number of pixels covered by either box.
func (b Box) Union(other Box) int64 {
	r1, r2 := b.ToRect().Size(), other.ToRect().Size()
	return int64(r1.X)*int64(r1.Y) + int64(r2.X)*int64(r2.Y) - b.Intersection(other)
}

// IoU returns the analytic intersection over union of two boxes, 0 when both
// are empty.
func (b Box) IoU(other Box) float64 {
	union := b.Union(other)
	if union == 0 {
		return 0
	}
	return float64(b.Intersection(other)) / float64(union)
}

func (b Box) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", b.Width, b.Height, b.X, b.Y)
}
