// Package geometry holds the pure math used by the flow engine: positions,
// rectangles, boxes, extents, viewport transforms and the helpers that convert
// between screen space and canvas (renderer) space.
package geometry

import "math"

// XYPosition is a point in either screen or canvas space.
type XYPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dimensions is a width/height pair.
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect is an axis-aligned rectangle given by its top-left corner and size.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Box is an axis-aligned rectangle given by two corners.
type Box struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// CoordinateExtent is [[minX, minY], [maxX, maxY]].
type CoordinateExtent [2][2]float64

// NodeOrigin is the normalized anchor inside a node box that its position
// refers to. [0, 0] is the top-left corner, [0.5, 0.5] the center.
type NodeOrigin [2]float64

// SnapGrid is the grid step on each axis.
type SnapGrid [2]float64

// Viewport is the pan/zoom state of the canvas.
type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// InfiniteExtent does not constrain anything.
var InfiniteExtent = CoordinateExtent{
	{math.Inf(-1), math.Inf(-1)},
	{math.Inf(1), math.Inf(1)},
}

// DefaultSnapGrid is the grid used when snapping is enabled without a grid.
var DefaultSnapGrid = SnapGrid{15, 15}

// Valid reports whether the lower corner does not exceed the upper corner.
// Clamping into an invalid extent does not panic; the upper bound wins.
func (e CoordinateExtent) Valid() bool {
	return e[0][0] <= e[1][0] && e[0][1] <= e[1][1]
}

// Shift returns the extent translated by (dx, dy).
func (e CoordinateExtent) Shift(dx, dy float64) CoordinateExtent {
	return CoordinateExtent{
		{e[0][0] + dx, e[0][1] + dy},
		{e[1][0] + dx, e[1][1] + dy},
	}
}

// ExtentFromRect converts a rect into an extent.
func ExtentFromRect(r Rect) CoordinateExtent {
	return CoordinateExtent{{r.X, r.Y}, {r.X + r.Width, r.Y + r.Height}}
}

// Clamp limits val to [lo, hi].
func Clamp(val, lo, hi float64) float64 {
	return math.Min(math.Max(val, lo), hi)
}

// ClampPosition keeps a box of the given dimensions, positioned at pos,
// inside extent.
func ClampPosition(pos XYPosition, extent CoordinateExtent, dims Dimensions) XYPosition {
	return XYPosition{
		X: Clamp(pos.X, extent[0][0], extent[1][0]-dims.Width),
		Y: Clamp(pos.Y, extent[0][1], extent[1][1]-dims.Height),
	}
}

// IsNumeric reports whether n is a finite number.
func IsNumeric(n float64) bool {
	return !math.IsNaN(n) && !math.IsInf(n, 0)
}

// SnapPosition rounds a position to the nearest grid point.
func SnapPosition(pos XYPosition, grid SnapGrid) XYPosition {
	if grid[0] == 0 || grid[1] == 0 {
		return pos
	}
	return XYPosition{
		X: grid[0] * math.Round(pos.X/grid[0]),
		Y: grid[1] * math.Round(pos.Y/grid[1]),
	}
}
