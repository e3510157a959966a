package geometry

import "fmt"

// Point is a position in pixel space.
type Point struct {
	X float64
	Y float64
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Line is an oriented boundary through (X1,Y1) and (X2,Y2). The order of the
// endpoints decides which half-plane is negative.
type Line struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Side returns (y2-y1)*px + (x1-x2)*py + (x2*y1 - x1*y2).
//
// Only the sign is meaningful: the magnitude scales with the line length and is
// not a distance in pixels.
func (l Line) Side(p Point) float64 {
	return (l.Y2-l.Y1)*p.X + (l.X1-l.X2)*p.Y + (l.X2*l.Y1 - l.X1*l.Y2)
}

// IsDegenerate reports whether both endpoints coincide. Every point is on a
// degenerate line, so sidedness tests against it never change sign.
func (l Line) IsDegenerate() bool {
	return l.X1 == l.X2 && l.Y1 == l.Y2
}

// Start returns the first endpoint.
func (l Line) Start() Point { return Point{X: l.X1, Y: l.Y1} }

// End returns the second endpoint.
func (l Line) End() Point { return Point{X: l.X2, Y: l.Y2} }

func (l Line) String() string {
	return fmt.Sprintf("(%g,%g)-(%g,%g)", l.X1, l.Y1, l.X2, l.Y2)
}
