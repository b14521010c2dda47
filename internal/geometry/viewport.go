package geometry

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// PaddingUnit tells how a padding value is interpreted.
type PaddingUnit int

const (
	// PaddingFraction is a fraction of the viewport (0.1 = 10% of the zoomed size).
	PaddingFraction PaddingUnit = iota
	// PaddingPixels is an absolute pixel value ("10px").
	PaddingPixels
	// PaddingPercent is a percentage of the viewport ("5%").
	PaddingPercent
)

// PaddingValue is one padding amount with its unit.
type PaddingValue struct {
	Value float64
	Unit  PaddingUnit
}

// Fraction builds a fractional padding value.
func Fraction(v float64) PaddingValue { return PaddingValue{Value: v, Unit: PaddingFraction} }

// Pixels builds a pixel padding value.
func Pixels(v float64) PaddingValue { return PaddingValue{Value: v, Unit: PaddingPixels} }

// Percent builds a percentage padding value.
func Percent(v float64) PaddingValue { return PaddingValue{Value: v, Unit: PaddingPercent} }

// ParsePaddingValue parses "0.1", "10px" or "5%".
func ParsePaddingValue(s string) (PaddingValue, error) {
	s = strings.TrimSpace(s)
	unit := PaddingFraction
	num := s
	switch {
	case strings.HasSuffix(s, "px"):
		unit, num = PaddingPixels, strings.TrimSuffix(s, "px")
	case strings.HasSuffix(s, "%"):
		unit, num = PaddingPercent, strings.TrimSuffix(s, "%")
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return PaddingValue{}, fmt.Errorf("parse padding %q: %w", s, err)
	}
	return PaddingValue{Value: v, Unit: unit}, nil
}

// UnmarshalJSON accepts a number or a string with unit.
func (p *PaddingValue) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*p = Fraction(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid padding: %w", err)
	}
	v, err := ParsePaddingValue(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// resolve converts the value to pixels for a viewport side of length size.
func (p PaddingValue) resolve(size float64) float64 {
	switch p.Unit {
	case PaddingPixels:
		return math.Floor(p.Value)
	case PaddingPercent:
		return math.Floor(size * p.Value * 0.01)
	default:
		return math.Floor((size - size/(1+p.Value)) * 0.5)
	}
}

// Padding is the space kept around fitted bounds. Per-side values override
// the axis values, which override All.
type Padding struct {
	All                      PaddingValue
	X, Y                     *PaddingValue
	Top, Right, Bottom, Left *PaddingValue
}

// UniformPadding applies the same value on every side.
func UniformPadding(v PaddingValue) Padding { return Padding{All: v} }

type resolvedPadding struct {
	top, right, bottom, left float64
	x, y                     float64
}

func pick(values ...*PaddingValue) *PaddingValue {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func (p Padding) resolve(width, height float64) resolvedPadding {
	side := func(v *PaddingValue, size float64) float64 {
		if v == nil {
			return p.All.resolve(size)
		}
		return v.resolve(size)
	}
	top := side(pick(p.Top, p.Y), height)
	bottom := side(pick(p.Bottom, p.Y), height)
	left := side(pick(p.Left, p.X), width)
	right := side(pick(p.Right, p.X), width)
	return resolvedPadding{top: top, right: right, bottom: bottom, left: left, x: left + right, y: top + bottom}
}

// GetViewportForBounds returns the viewport that centers bounds inside a
// width x height container with the given padding, with zoom clamped to
// [minZoom, maxZoom].
func GetViewportForBounds(bounds Rect, width, height, minZoom, maxZoom float64, padding Padding) Viewport {
	p := padding.resolve(width, height)

	xZoom := (width - p.x) / bounds.Width
	yZoom := (height - p.y) / bounds.Height
	zoom := math.Min(xZoom, yZoom)
	if !IsNumeric(zoom) {
		zoom = maxZoom
	}
	clampedZoom := Clamp(zoom, minZoom, maxZoom)

	cx, cy := bounds.Center()
	x := width/2 - cx*clampedZoom
	y := height/2 - cy*clampedZoom

	// When the zoom was clamped the requested padding may not hold on
	// every side; shift so that it does where possible.
	t := Transform{x, y, clampedZoom}
	topLeft := t.Apply(XYPosition{X: bounds.X, Y: bounds.Y})
	bottomRight := t.Apply(XYPosition{X: bounds.X + bounds.Width, Y: bounds.Y + bounds.Height})

	offsetLeft := math.Min(math.Floor(topLeft.X)-p.left, 0)
	offsetTop := math.Min(math.Floor(topLeft.Y)-p.top, 0)
	offsetRight := math.Min(math.Floor(width-bottomRight.X)-p.right, 0)
	offsetBottom := math.Min(math.Floor(height-bottomRight.Y)-p.bottom, 0)

	return Viewport{
		X:    x - offsetLeft + offsetRight,
		Y:    y - offsetTop + offsetBottom,
		Zoom: clampedZoom,
	}
}
