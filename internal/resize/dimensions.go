// Package resize implements resizing a node by one of its eight control
// handles, honoring min/max sizes, the parent's box, the boxes of
// constrained children and an optional locked aspect ratio.
package resize

import (
	"math"
	"strings"

	"github.com/tiger-colonel/xyflow-study/internal/geometry"
)

// ControlPosition names a resize handle.
type ControlPosition string

const (
	TopLeft     ControlPosition = "top-left"
	Top         ControlPosition = "top"
	TopRight    ControlPosition = "top-right"
	Right       ControlPosition = "right"
	BottomRight ControlPosition = "bottom-right"
	Bottom      ControlPosition = "bottom"
	BottomLeft  ControlPosition = "bottom-left"
	Left        ControlPosition = "left"
)

// Direction limits a resize to one dimension. The zero value allows both.
type Direction string

const (
	Both       Direction = ""
	Horizontal Direction = "horizontal"
	Vertical   Direction = "vertical"
)

// ControlDirection tells which edges a handle moves. AffectsX and AffectsY
// are set when the handle moves the left or top edge, which moves the node's
// position as well as its size.
type ControlDirection struct {
	IsHorizontal bool
	IsVertical   bool
	AffectsX     bool
	AffectsY     bool
}

// GetControlDirection resolves the edges moved by a handle.
func GetControlDirection(pos ControlPosition) ControlDirection {
	s := string(pos)
	return ControlDirection{
		IsHorizontal: strings.Contains(s, "right") || strings.Contains(s, "left"),
		IsVertical:   strings.Contains(s, "bottom") || strings.Contains(s, "top"),
		AffectsX:     strings.Contains(s, "left"),
		AffectsY:     strings.Contains(s, "top"),
	}
}

// Boundaries are the size limits of a resize.
type Boundaries struct {
	MinWidth  float64
	MinHeight float64
	MaxWidth  float64
	MaxHeight float64
}

// DefaultBoundaries allows any size from 10x10 up.
func DefaultBoundaries() Boundaries {
	return Boundaries{MinWidth: 10, MinHeight: 10, MaxWidth: math.Inf(1), MaxHeight: math.Inf(1)}
}

// Values are a node's parent-relative position and size during a resize.
type Values struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// StartValues snapshot the node and the pointer when a resize starts.
type StartValues struct {
	Values
	PointerX    float64
	PointerY    float64
	AspectRatio float64
}

func sizeClamp(size, lo, hi float64) float64 {
	return math.Max(0, math.Max(lo-size, size-hi))
}

func upperExtentClamp(bound, upper float64) float64 {
	return math.Max(0, bound-upper)
}

func lowerExtentClamp(bound, lower float64) float64 {
	return math.Max(0, lower-bound)
}

func sign(affects bool, d float64) float64 {
	if affects {
		return -d
	}
	return d
}

// DimensionsAfterResize computes the node's box for a resize that started at
// start with the pointer now at pointer (canvas space, snapped). extent is
// the parent's box in parent-relative coordinates and childExtent the union
// of the boxes the node's constrained children need; either may be nil.
//
// Every constraint computes how far it alone would shrink the pointer delta
// and the largest shrink is applied. With keepAspectRatio the cross-axis
// effect of each constraint is included before the other axis is derived.
func DimensionsAfterResize(
	start StartValues,
	dir ControlDirection,
	pointer geometry.XYPosition,
	bounds Boundaries,
	keepAspectRatio bool,
	nodeOrigin geometry.NodeOrigin,
	extent, childExtent *geometry.CoordinateExtent,
) Values {
	affectsX, affectsY := dir.AffectsX, dir.AffectsY
	isDiagonal := dir.IsHorizontal && dir.IsVertical
	ar := start.AspectRatio

	var distX, distY float64
	if dir.IsHorizontal {
		distX = math.Floor(pointer.X - start.PointerX)
	}
	if dir.IsVertical {
		distY = math.Floor(pointer.Y - start.PointerY)
	}

	newWidth := start.Width + sign(affectsX, distX)
	newHeight := start.Height + sign(affectsY, distY)
	originOffsetX := -nodeOrigin[0] * start.Width
	originOffsetY := -nodeOrigin[1] * start.Height

	clampX := sizeClamp(newWidth, bounds.MinWidth, bounds.MaxWidth)
	clampY := sizeClamp(newHeight, bounds.MinHeight, bounds.MaxHeight)

	if extent != nil {
		var xc, yc float64
		if affectsX && distX < 0 {
			xc = lowerExtentClamp(start.X+distX+originOffsetX, extent[0][0])
		} else if !affectsX && distX > 0 {
			xc = upperExtentClamp(start.X+newWidth+originOffsetX, extent[1][0])
		}
		if affectsY && distY < 0 {
			yc = lowerExtentClamp(start.Y+distY+originOffsetY, extent[0][1])
		} else if !affectsY && distY > 0 {
			yc = upperExtentClamp(start.Y+newHeight+originOffsetY, extent[1][1])
		}
		clampX = math.Max(clampX, xc)
		clampY = math.Max(clampY, yc)
	}

	if childExtent != nil {
		var xc, yc float64
		if affectsX && distX > 0 {
			xc = upperExtentClamp(start.X+distX, childExtent[0][0])
		} else if !affectsX && distX < 0 {
			xc = lowerExtentClamp(start.X+newWidth, childExtent[1][0])
		}
		if affectsY && distY > 0 {
			yc = upperExtentClamp(start.Y+distY, childExtent[0][1])
		} else if !affectsY && distY < 0 {
			yc = lowerExtentClamp(start.Y+newHeight, childExtent[1][1])
		}
		clampX = math.Max(clampX, xc)
		clampY = math.Max(clampY, yc)
	}

	if keepAspectRatio {
		if dir.IsHorizontal {
			clampX = math.Max(clampX, sizeClamp(newWidth/ar, bounds.MinHeight, bounds.MaxHeight)*ar)
			farEdge := (!affectsX && !affectsY) || (affectsX && !affectsY && isDiagonal)
			if extent != nil {
				var c float64
				if farEdge {
					c = upperExtentClamp(start.Y+originOffsetY+newWidth/ar, extent[1][1]) * ar
				} else {
					c = lowerExtentClamp(start.Y+originOffsetY+sign(!affectsX, distX)/ar, extent[0][1]) * ar
				}
				clampX = math.Max(clampX, c)
			}
			if childExtent != nil {
				var c float64
				if farEdge {
					c = lowerExtentClamp(start.Y+newWidth/ar, childExtent[1][1]) * ar
				} else {
					c = upperExtentClamp(start.Y+sign(!affectsX, distX)/ar, childExtent[0][1]) * ar
				}
				clampX = math.Max(clampX, c)
			}
		}

		if dir.IsVertical {
			clampY = math.Max(clampY, sizeClamp(newHeight*ar, bounds.MinWidth, bounds.MaxWidth)/ar)
			farEdge := (!affectsX && !affectsY) || (affectsY && !affectsX && isDiagonal)
			if extent != nil {
				var c float64
				if farEdge {
					c = upperExtentClamp(start.X+newHeight*ar+originOffsetX, extent[1][0]) / ar
				} else {
					c = lowerExtentClamp(start.X+sign(!affectsY, distY)*ar+originOffsetX, extent[0][0]) / ar
				}
				clampY = math.Max(clampY, c)
			}
			if childExtent != nil {
				var c float64
				if farEdge {
					c = lowerExtentClamp(start.X+newHeight*ar, childExtent[1][0]) / ar
				} else {
					c = upperExtentClamp(start.X+sign(!affectsY, distY)*ar, childExtent[0][0]) / ar
				}
				clampY = math.Max(clampY, c)
			}
		}
	}

	if distY < 0 {
		distY += clampY
	} else {
		distY -= clampY
	}
	if distX < 0 {
		distX += clampX
	} else {
		distX -= clampX
	}

	if keepAspectRatio {
		switch {
		case isDiagonal:
			if newWidth > newHeight*ar {
				distY = sign(affectsX != affectsY, distX) / ar
			} else {
				distX = sign(affectsX != affectsY, distY) * ar
			}
		case dir.IsHorizontal:
			distY = distX / ar
			affectsY = affectsX
		default:
			distX = distY * ar
			affectsX = affectsY
		}
	}

	x, y := start.X, start.Y
	if affectsX {
		x += distX
	}
	if affectsY {
		y += distY
	}
	return Values{
		Width:  start.Width + sign(affectsX, distX),
		Height: start.Height + sign(affectsY, distY),
		X:      nodeOrigin[0]*sign(affectsX, distX) + x,
		Y:      nodeOrigin[1]*sign(affectsY, distY) + y,
	}
}

// resizeDirection reports the growth direction per axis in screen terms:
// 1 grows right/down, -1 grows left/up.
func resizeDirection(v, prev Values, affectsX, affectsY bool) [2]int {
	dir := [2]int{signum(v.Width - prev.Width), signum(v.Height - prev.Height)}
	if affectsX {
		dir[0] = -dir[0]
	}
	if affectsY {
		dir[1] = -dir[1]
	}
	return dir
}

func signum(d float64) int {
	switch {
	case d > 0:
		return 1
	case d < 0:
		return -1
	}
	return 0
}
