package geometry

// Transform is the viewport transform in array form.
// Layout: [tx, ty, scale] representing
// | scale  0     tx |
// | 0      scale ty |
// | 0      0     1  |
//
// Screen = canvas * scale + t.
type Transform [3]float64

// IdentityTransform returns the transform that maps canvas to screen 1:1.
func IdentityTransform() Transform {
	return Transform{0, 0, 1}
}

// X returns the horizontal translation.
func (t Transform) X() float64 { return t[0] }

// Y returns the vertical translation.
func (t Transform) Y() float64 { return t[1] }

// K returns the scale factor.
func (t Transform) K() float64 { return t[2] }

// Apply maps a canvas point to screen space.
func (t Transform) Apply(p XYPosition) XYPosition {
	return XYPosition{X: p.X*t[2] + t[0], Y: p.Y*t[2] + t[1]}
}

// Invert maps a screen point to canvas space.
func (t Transform) Invert(p XYPosition) XYPosition {
	return XYPosition{X: (p.X - t[0]) / t[2], Y: (p.Y - t[1]) / t[2]}
}

// InvertX maps a screen x coordinate to canvas space.
func (t Transform) InvertX(x float64) float64 { return (x - t[0]) / t[2] }

// InvertY maps a screen y coordinate to canvas space.
func (t Transform) InvertY(y float64) float64 { return (y - t[1]) / t[2] }

// Translate moves the transform by (x, y) canvas units.
func (t Transform) Translate(x, y float64) Transform {
	if x == 0 && y == 0 {
		return t
	}
	return Transform{t[0] + t[2]*x, t[1] + t[2]*y, t[2]}
}

// Equal compares two transforms exactly.
func (t Transform) Equal(other Transform) bool {
	return t[0] == other[0] && t[1] == other[1] && t[2] == other[2]
}

// Viewport returns the transform as a viewport.
func (t Transform) Viewport() Viewport {
	return Viewport{X: t[0], Y: t[1], Zoom: t[2]}
}

// Transform returns the viewport as a transform.
func (v Viewport) Transform() Transform {
	return Transform{v.X, v.Y, v.Zoom}
}

// PointToRendererPoint converts a screen point (relative to the container)
// into canvas space and optionally snaps it.
func PointToRendererPoint(p XYPosition, t Transform, snapToGrid bool, grid SnapGrid) XYPosition {
	pos := t.Invert(p)
	if snapToGrid {
		return SnapPosition(pos, grid)
	}
	return pos
}

// RendererPointToPoint converts a canvas point into screen space.
func RendererPointToPoint(p XYPosition, t Transform) XYPosition {
	return t.Apply(p)
}
