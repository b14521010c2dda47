package panzoom

import (
	"math"
	"time"

	"github.com/tiger-colonel/xyflow-study/internal/geometry"
)

// Constrain clamps t's scale to [minZoom, maxZoom] and then shifts it so a
// viewport of the given extent (screen space, usually [[0,0],[w,h]]) stays
// inside translateExtent (canvas space). When the viewport is larger than
// translateExtent on an axis it is centered on that axis.
func Constrain(t geometry.Transform, extent, translateExtent geometry.CoordinateExtent, minZoom, maxZoom float64) geometry.Transform {
	t = scale(t, minZoom, maxZoom, t.K())
	dx0 := t.InvertX(extent[0][0]) - translateExtent[0][0]
	dx1 := t.InvertX(extent[1][0]) - translateExtent[1][0]
	dy0 := t.InvertY(extent[0][1]) - translateExtent[0][1]
	dy1 := t.InvertY(extent[1][1]) - translateExtent[1][1]
	return t.Translate(shift(dx0, dx1), shift(dy0, dy1))
}

func shift(d0, d1 float64) float64 {
	if d1 > d0 {
		return (d0 + d1) / 2
	}
	if v := math.Min(0, d0); v != 0 {
		return v
	}
	return math.Max(0, d1)
}

// scale returns t with scale k clamped to [lo, hi], keeping the translation.
func scale(t geometry.Transform, lo, hi, k float64) geometry.Transform {
	k = geometry.Clamp(k, lo, hi)
	if k == t.K() {
		return t
	}
	return geometry.Transform{t.X(), t.Y(), k}
}

// anchor returns t translated so that the canvas point p1 lies under the
// screen point p0.
func anchor(t geometry.Transform, p0, p1 geometry.XYPosition) geometry.Transform {
	x, y := p0.X-p1.X*t.K(), p0.Y-p1.Y*t.K()
	if x == t.X() && y == t.Y() {
		return t
	}
	return geometry.Transform{x, y, t.K()}
}

// Easing maps linear progress in [0, 1] to eased progress.
type Easing func(t float64) float64

// CubicInOut accelerates until halfway and then decelerates.
func CubicInOut(t float64) float64 {
	t *= 2
	if t <= 1 {
		return t * t * t / 2
	}
	t -= 2
	return (t*t*t + 2) / 2
}

// Interpolation selects how a transition moves between two viewports.
type Interpolation string

const (
	// Smooth zooms out and back in along the shortest perceived path.
	Smooth Interpolation = "smooth"
	Linear Interpolation = "linear"
)

// view is a viewport center in canvas space plus the visible width.
type view [3]float64

type interpolator func(t float64) view

func linearView(a, b view) interpolator {
	return func(t float64) view {
		return view{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t, a[2] + (b[2]-a[2])*t}
	}
}

const (
	rho     = math.Sqrt2
	rho2    = 2.0
	rho4    = 4.0
	epsilon = 1e-12
)

// smoothView interpolates with the zoom path of van Wijk and Nuij,
// "Smooth and efficient zooming and panning".
func smoothView(a, b view) interpolator {
	ux0, uy0, w0 := a[0], a[1], a[2]
	ux1, uy1, w1 := b[0], b[1], b[2]
	dx, dy := ux1-ux0, uy1-uy0
	d2 := dx*dx + dy*dy

	if d2 < epsilon {
		s := math.Log(w1/w0) / rho
		return func(t float64) view {
			return view{ux0 + t*dx, uy0 + t*dy, w0 * math.Exp(rho*t*s)}
		}
	}

	d1 := math.Sqrt(d2)
	b0 := (w1*w1 - w0*w0 + rho4*d2) / (2 * w0 * rho2 * d1)
	b1 := (w1*w1 - w0*w0 - rho4*d2) / (2 * w1 * rho2 * d1)
	r0 := math.Log(math.Sqrt(b0*b0+1) - b0)
	r1 := math.Log(math.Sqrt(b1*b1+1) - b1)
	s := (r1 - r0) / rho
	coshr0 := math.Cosh(r0)
	return func(t float64) view {
		st := t * s
		u := w0 / (rho2 * d1) * (coshr0*math.Tanh(rho*st+r0) - math.Sinh(r0))
		return view{ux0 + u*dx, uy0 + u*dy, w0 * coshr0 / math.Cosh(rho*st+r0)}
	}
}

// TransitionOptions animate a programmatic viewport change. A zero
// Duration applies the change at once.
type TransitionOptions struct {
	Duration      time.Duration
	Ease          Easing
	Interpolation Interpolation
}

type transition struct {
	from, to geometry.Transform
	start    time.Duration
	duration time.Duration
	ease     Easing
	interp   interpolator
	point    geometry.XYPosition
	width    float64
	done     chan struct{}
}

func newTransition(from, to geometry.Transform, point geometry.XYPosition, width float64, start time.Duration, opts TransitionOptions) *transition {
	tr := &transition{
		from:     from,
		to:       to,
		start:    start,
		duration: opts.Duration,
		ease:     opts.Ease,
		point:    point,
		width:    width,
		done:     make(chan struct{}),
	}
	if tr.ease == nil {
		tr.ease = CubicInOut
	}
	a := from.Invert(point)
	b := to.Invert(point)
	va := view{a.X, a.Y, width / from.K()}
	vb := view{b.X, b.Y, width / to.K()}
	if opts.Interpolation == Linear {
		tr.interp = linearView(va, vb)
	} else {
		tr.interp = smoothView(va, vb)
	}
	return tr
}

// at returns the transform at clock now and whether the transition is over.
func (tr *transition) at(now time.Duration) (geometry.Transform, bool) {
	elapsed := now - tr.start
	if elapsed >= tr.duration {
		return tr.to, true
	}
	v := tr.interp(tr.ease(float64(elapsed) / float64(tr.duration)))
	k := tr.width / v[2]
	return geometry.Transform{tr.point.X - v[0]*k, tr.point.Y - v[1]*k, k}, false
}
