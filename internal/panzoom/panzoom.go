// Package panzoom keeps the viewport transform of a flow canvas and drives it
// from pointer drags, wheel and trackpad input, pinches, double clicks and
// programmatic, optionally animated, viewport changes. Every change passes
// through Constrain.
package panzoom

import (
	"slices"
	"time"

	"github.com/tiger-colonel/xyflow-study/internal/geometry"
	"github.com/tiger-colonel/xyflow-study/internal/gesture"
	"github.com/tiger-colonel/xyflow-study/internal/loop"
)

// ScrollMode restricts pan-on-scroll to axes.
type ScrollMode string

const (
	ScrollFree       ScrollMode = "free"
	ScrollVertical   ScrollMode = "vertical"
	ScrollHorizontal ScrollMode = "horizontal"
)

// Classes that mark nodes and edges. A middle-button press on them always
// pans.
const (
	NodeClass = "xy-flow__node"
	EdgeClass = "xy-flow__edge"
)

const (
	wheelIdle           = 150 * time.Millisecond
	doubleClickDuration = 250 * time.Millisecond
)

// Options configure which input pans and zooms.
type Options struct {
	MinZoom         float64
	MaxZoom         float64
	TranslateExtent geometry.CoordinateExtent

	ZoomOnScroll      bool
	ZoomOnPinch       bool
	ZoomOnDoubleClick bool
	PanOnScroll       bool
	PanOnScrollSpeed  float64
	PanOnScrollMode   ScrollMode
	// PanOnDrag pans with any of the primary and middle buttons.
	PanOnDrag bool
	// PanOnDragButtons, when set, limits drag panning to these buttons and
	// enables it on its own. Including the secondary button turns a
	// right-click without movement into a pane context menu.
	PanOnDragButtons []int

	ZoomActivationKeyPressed bool
	UserSelectionActive      bool
	ConnectionInProgress     bool
	// PreventScrolling lets wheel input zoom the canvas instead of
	// scrolling the page.
	PreventScrolling bool

	NoPanClass        string
	NoWheelClass      string
	IsMac             bool
	PaneClickDistance float64
}

// DefaultOptions returns the usual editor behavior.
func DefaultOptions() Options {
	return Options{
		MinZoom:           0.5,
		MaxZoom:           2,
		TranslateExtent:   geometry.InfiniteExtent,
		ZoomOnScroll:      true,
		ZoomOnPinch:       true,
		ZoomOnDoubleClick: true,
		PanOnScrollSpeed:  0.5,
		PanOnScrollMode:   ScrollFree,
		PanOnDrag:         true,
		PreventScrolling:  true,
		NoPanClass:        "nopan",
		NoWheelClass:      "nowheel",
	}
}

func (o Options) panOnDrag() bool { return o.PanOnDrag || len(o.PanOnDragButtons) > 0 }

func (o Options) rightClickPan(button int) bool {
	return button == gesture.ButtonSecondary && slices.Contains(o.PanOnDragButtons, gesture.ButtonSecondary)
}

// Source tells what caused a viewport change.
type Source string

const (
	SourceMouse       Source = "mouse"
	SourceTouch       Source = "touch"
	SourceWheel       Source = "wheel"
	SourceDoubleClick Source = "dblclick"
	// SourceProgrammatic marks SetViewport, ScaleTo and friends.
	SourceProgrammatic Source = "programmatic"
)

// Event is passed to pan/zoom callbacks.
type Event struct {
	Source   Source
	Viewport geometry.Viewport
}

// Callbacks are optional hooks.
type Callbacks struct {
	// OnTransformChange sees every transform change, including ones made
	// by pan-on-scroll. It is not called by SyncViewport.
	OnTransformChange func(geometry.Transform)
	OnPanZoomStart    func(Event)
	OnPanZoom         func(Event)
	// OnPanZoomEnd fires after a gesture ends with a changed viewport.
	OnPanZoomEnd func(Event)
	// OnDraggingChange reports whether the pane is being dragged.
	OnDraggingChange  func(bool)
	OnPaneContextMenu func(gesture.PointerEvent)
}

// Animator is the clock and frame source.
type Animator interface {
	Now() time.Duration
	RequestFrame(fn func(now time.Duration)) loop.FrameID
	CancelFrame(id loop.FrameID)
	SetTimeout(d time.Duration, fn func()) loop.TimerID
	ClearTimeout(id loop.TimerID)
}

type touch struct {
	id     int
	screen geometry.XYPosition
	canvas geometry.XYPosition
}

// PanZoom owns one viewport transform.
type PanZoom struct {
	opts      Options
	callbacks Callbacks
	animator  Animator

	transform geometry.Transform
	size      geometry.Dimensions

	// Gesture state shared by all input kinds.
	active         bool
	source         Source
	internal       bool
	prevViewport   geometry.Viewport
	mouseButton    int
	usedRightMouse bool
	endTimer       loop.TimerID

	// Drag pan.
	dragging  bool
	pointerID int
	mouse     [2]geometry.XYPosition
	downAt    geometry.XYPosition
	moved     bool

	// Pinch.
	touches []touch

	// Wheel zoom.
	wheelTimer  loop.TimerID
	wheelMouse  [2]geometry.XYPosition
	wheeling    bool
	panScroll   bool
	scrollTimer loop.TimerID

	tr      *transition
	trFrame loop.FrameID
}

// New returns a PanZoom at the identity transform.
func New(animator Animator, opts Options, callbacks Callbacks) *PanZoom {
	return &PanZoom{
		opts:      opts,
		callbacks: callbacks,
		animator:  animator,
		transform: geometry.IdentityTransform(),
	}
}

// Update replaces the options.
func (p *PanZoom) Update(opts Options) { p.opts = opts }

// Options returns the current options.
func (p *PanZoom) Options() Options { return p.opts }

// SetSize sets the container size in screen pixels.
func (p *PanZoom) SetSize(d geometry.Dimensions) { p.size = d }

// Size returns the container size.
func (p *PanZoom) Size() geometry.Dimensions { return p.size }

// Transform returns the current transform.
func (p *PanZoom) Transform() geometry.Transform { return p.transform }

// Viewport returns the current transform as a viewport.
func (p *PanZoom) Viewport() geometry.Viewport { return p.transform.Viewport() }

// SetScaleExtent changes the zoom limits.
func (p *PanZoom) SetScaleExtent(minZoom, maxZoom float64) {
	p.opts.MinZoom, p.opts.MaxZoom = minZoom, maxZoom
}

// SetTranslateExtent changes the pannable area.
func (p *PanZoom) SetTranslateExtent(e geometry.CoordinateExtent) {
	p.opts.TranslateExtent = e
}

func (p *PanZoom) extent() geometry.CoordinateExtent {
	return geometry.CoordinateExtent{{0, 0}, {p.size.Width, p.size.Height}}
}

func (p *PanZoom) translateExtent() geometry.CoordinateExtent {
	if p.opts.TranslateExtent == (geometry.CoordinateExtent{}) {
		return geometry.InfiniteExtent
	}
	return p.opts.TranslateExtent
}

func (p *PanZoom) constrain(t geometry.Transform) geometry.Transform {
	return Constrain(t, p.extent(), p.translateExtent(), p.opts.MinZoom, p.opts.MaxZoom)
}

func (p *PanZoom) center() geometry.XYPosition {
	return geometry.XYPosition{X: p.size.Width / 2, Y: p.size.Height / 2}
}

// start begins a gesture unless one is running.
func (p *PanZoom) start(src Source) {
	if p.active {
		return
	}
	p.active = true
	p.source = src
	p.mouseButton = 0
	p.prevViewport = p.transform.Viewport()
	if src == SourceMouse {
		p.callDragging(true)
	}
	if p.callbacks.OnPanZoomStart != nil {
		p.callbacks.OnPanZoomStart(Event{Source: src, Viewport: p.prevViewport})
	}
}

// zoom applies t as part of the running gesture.
func (p *PanZoom) zoom(t geometry.Transform) {
	p.usedRightMouse = p.callbacks.OnPaneContextMenu != nil && p.opts.rightClickPan(p.mouseButton)
	if t.Equal(p.transform) {
		return
	}
	p.transform = t
	if p.callbacks.OnTransformChange != nil {
		p.callbacks.OnTransformChange(t)
	}
	if !p.internal && p.callbacks.OnPanZoom != nil {
		p.callbacks.OnPanZoom(Event{Source: p.source, Viewport: t.Viewport()})
	}
}

// end finishes the running gesture.
func (p *PanZoom) end(ptr *gesture.PointerEvent) {
	if !p.active {
		return
	}
	p.active = false
	if ptr != nil && p.callbacks.OnPaneContextMenu != nil && p.opts.rightClickPan(p.mouseButton) && !p.usedRightMouse {
		p.callbacks.OnPaneContextMenu(*ptr)
	}
	p.usedRightMouse = false
	p.callDragging(false)

	vp := p.transform.Viewport()
	if p.callbacks.OnPanZoomEnd != nil && vp != p.prevViewport {
		p.prevViewport = vp
		src := p.source
		delay := time.Duration(0)
		if p.opts.PanOnScroll {
			delay = wheelIdle
		}
		p.animator.ClearTimeout(p.endTimer)
		p.endTimer = p.animator.SetTimeout(delay, func() {
			p.callbacks.OnPanZoomEnd(Event{Source: src, Viewport: vp})
		})
	}
}

func (p *PanZoom) callDragging(v bool) {
	if p.callbacks.OnDraggingChange != nil {
		p.callbacks.OnDraggingChange(v)
	}
}

// interrupt stops a running transition. Its done channel is closed.
func (p *PanZoom) interrupt() {
	if p.tr == nil {
		return
	}
	p.animator.CancelFrame(p.trFrame)
	close(p.tr.done)
	p.tr = nil
	p.end(nil)
}

func closed() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// apply moves to t, animated when opts has a duration. point is the screen
// point that zoom transitions keep fixed. The returned channel is closed
// once the change has been applied or was interrupted.
func (p *PanZoom) apply(t geometry.Transform, point geometry.XYPosition, opts TransitionOptions) <-chan struct{} {
	return p.applyFrom(SourceProgrammatic, t, point, opts)
}

func (p *PanZoom) applyFrom(src Source, t geometry.Transform, point geometry.XYPosition, opts TransitionOptions) <-chan struct{} {
	p.interrupt()
	if opts.Duration <= 0 {
		p.start(src)
		p.zoom(t)
		p.end(nil)
		return closed()
	}

	w := max(p.size.Width, p.size.Height)
	if w == 0 {
		w = 1
	}
	tr := newTransition(p.transform, t, point, w, p.animator.Now(), opts)
	p.tr = tr
	p.start(src)
	var step func(now time.Duration)
	step = func(now time.Duration) {
		next, finished := tr.at(now)
		p.zoom(next)
		if !finished {
			p.trFrame = p.animator.RequestFrame(step)
			return
		}
		p.tr = nil
		close(tr.done)
		p.end(nil)
	}
	p.trFrame = p.animator.RequestFrame(step)
	return tr.done
}

// SetViewport moves to v after constraining it.
func (p *PanZoom) SetViewport(v geometry.Viewport, opts TransitionOptions) <-chan struct{} {
	return p.apply(p.constrain(v.Transform()), p.center(), opts)
}

// SetViewportConstrained constrains v to the given extents, applies it at
// once and reports whether the transform changed.
func (p *PanZoom) SetViewportConstrained(v geometry.Viewport, extent, translateExtent geometry.CoordinateExtent) bool {
	prev := p.transform
	next := Constrain(v.Transform(), extent, translateExtent, p.opts.MinZoom, p.opts.MaxZoom)
	p.apply(next, p.center(), TransitionOptions{})
	return !p.transform.Equal(prev)
}

// SyncViewport sets the transform without notifying OnTransformChange, for
// viewports driven from outside.
func (p *PanZoom) SyncViewport(v geometry.Viewport) {
	p.interrupt()
	p.transform = p.constrain(v.Transform())
}

// PanBy pans by delta screen pixels and reports whether anything moved.
func (p *PanZoom) PanBy(delta geometry.XYPosition) bool {
	t := p.transform
	next := geometry.Viewport{X: t.X() + delta.X, Y: t.Y() + delta.Y, Zoom: t.K()}
	return p.SetViewportConstrained(next, p.extent(), p.translateExtent())
}

// ScaleTo zooms to k around the container center.
func (p *PanZoom) ScaleTo(k float64, opts TransitionOptions) <-chan struct{} {
	return p.scaleAround(k, p.center(), opts)
}

// ScaleBy multiplies the zoom by factor around the container center.
func (p *PanZoom) ScaleBy(factor float64, opts TransitionOptions) <-chan struct{} {
	return p.scaleAround(p.transform.K()*factor, p.center(), opts)
}

func (p *PanZoom) scaleAround(k float64, p0 geometry.XYPosition, opts TransitionOptions) <-chan struct{} {
	t0 := p.transform
	p1 := t0.Invert(p0)
	t1 := p.constrain(anchor(scale(t0, p.opts.MinZoom, p.opts.MaxZoom, k), p0, p1))
	return p.apply(t1, p0, opts)
}

// Destroy stops transitions and pending timers.
func (p *PanZoom) Destroy() {
	p.interrupt()
	p.animator.ClearTimeout(p.endTimer)
	p.animator.ClearTimeout(p.wheelTimer)
	p.animator.ClearTimeout(p.scrollTimer)
}
