package geometry

import "math"

// Center returns the center point of the rect.
func (r Rect) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Box converts the rect into corner form.
func (r Rect) Box() Box {
	return Box{X: r.X, Y: r.Y, X2: r.X + r.Width, Y2: r.Y + r.Height}
}

// Union returns the smallest rect containing both rects. Empty rects take
// part like any other; callers filter them first if needed.
func (r Rect) Union(other Rect) Rect {
	return r.Box().Union(other.Box()).Rect()
}

// Rect converts the box into origin/size form.
func (b Box) Rect() Rect {
	return Rect{X: b.X, Y: b.Y, Width: b.X2 - b.X, Height: b.Y2 - b.Y}
}

// Union returns the smallest box containing both boxes.
func (b Box) Union(other Box) Box {
	return Box{
		X:  math.Min(b.X, other.X),
		Y:  math.Min(b.Y, other.Y),
		X2: math.Max(b.X2, other.X2),
		Y2: math.Max(b.Y2, other.Y2),
	}
}

// EmptyBounds is the starting accumulator for bounds unions over a set.
func EmptyBounds() Box {
	return Box{X: math.Inf(1), Y: math.Inf(1), X2: math.Inf(-1), Y2: math.Inf(-1)}
}

// BoundsOfRects returns the union of all rects, or the zero rect if none.
func BoundsOfRects(rects ...Rect) Rect {
	if len(rects) == 0 {
		return Rect{}
	}
	box := EmptyBounds()
	for _, r := range rects {
		box = box.Union(r.Box())
	}
	return box.Rect()
}

// OverlappingArea returns the area shared by a and b, rounded up.
func OverlappingArea(a, b Rect) float64 {
	xOverlap := math.Max(0, math.Min(a.X+a.Width, b.X+b.Width)-math.Max(a.X, b.X))
	yOverlap := math.Max(0, math.Min(a.Y+a.Height, b.Y+b.Height)-math.Max(a.Y, b.Y))
	return math.Ceil(xOverlap * yOverlap)
}
