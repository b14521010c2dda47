package geometry

import "math"

const (
	// DefaultAutoPanSpeed is the maximum pan step per frame in pixels.
	DefaultAutoPanSpeed = 15
	// DefaultAutoPanDistance is the edge margin that triggers auto-pan.
	DefaultAutoPanDistance = 40
)

// autoPanVelocity returns a factor in [-1, 1] for one axis. It is zero while
// value lies in [lo, hi] and grows with the distance past the margin.
func autoPanVelocity(value, lo, hi float64) float64 {
	switch {
	case value < lo:
		return Clamp(math.Abs(value-lo), 1, lo) / lo
	case value > hi:
		return -Clamp(math.Abs(value-hi), 1, lo) / lo
	}
	return 0
}

// CalcAutoPan returns the pan step [x, y] for a pointer at pos inside a
// container of the given bounds.
func CalcAutoPan(pos XYPosition, bounds Dimensions, speed, distance float64) [2]float64 {
	if distance <= 0 {
		return [2]float64{0, 0}
	}
	return [2]float64{
		autoPanVelocity(pos.X, distance, bounds.Width-distance) * speed,
		autoPanVelocity(pos.Y, distance, bounds.Height-distance) * speed,
	}
}
