package panzoom

import (
	"math"
	"slices"

	"github.com/tiger-colonel/xyflow-study/internal/geometry"
	"github.com/tiger-colonel/xyflow-study/internal/gesture"
)

type inputKind int

const (
	inputMouseDown inputKind = iota
	inputTouchStart
	inputWheel
	inputDoubleClick
)

type input struct {
	kind    inputKind
	button  int
	ctrl    bool
	touches int
	path    gesture.Path
}

func (p *PanZoom) filter(in input) bool {
	o := p.opts
	zoomScroll := o.ZoomActivationKeyPressed || o.ZoomOnScroll
	pinchZoom := o.ZoomOnPinch && in.ctrl
	wheel := in.kind == inputWheel
	panOnDrag := o.panOnDrag()

	switch {
	case in.button == gesture.ButtonAuxiliary && in.kind == inputMouseDown &&
		(in.path.HasClass(NodeClass) || in.path.HasClass(EdgeClass)):
		return true
	case !panOnDrag && !zoomScroll && !o.PanOnScroll && !o.ZoomOnDoubleClick && !o.ZoomOnPinch:
		return false
	case o.UserSelectionActive:
		return false
	case o.ConnectionInProgress && !wheel:
		return false
	case wheel && o.NoWheelClass != "" && in.path.HasClass(o.NoWheelClass):
		return false
	case o.NoPanClass != "" && in.path.HasClass(o.NoPanClass) && (!wheel || (o.PanOnScroll && !o.ZoomActivationKeyPressed)):
		return false
	case !o.ZoomOnPinch && in.ctrl && wheel:
		return false
	case !o.ZoomOnPinch && in.kind == inputTouchStart && in.touches > 1:
		return false
	case !zoomScroll && !o.PanOnScroll && !pinchZoom && wheel:
		return false
	case !panOnDrag && (in.kind == inputMouseDown || in.kind == inputTouchStart):
		return false
	case len(o.PanOnDragButtons) > 0 && !slices.Contains(o.PanOnDragButtons, in.button) && in.kind == inputMouseDown:
		return false
	}
	buttonAllowed := slices.Contains(o.PanOnDragButtons, in.button) || in.button <= gesture.ButtonAuxiliary
	return (!in.ctrl || wheel) && buttonAllowed
}

func pointerInput(kind inputKind, ev gesture.PointerEvent) input {
	return input{kind: kind, button: ev.Button, ctrl: ev.Modifiers.Ctrl, touches: ev.Touches, path: ev.Path}
}

// PointerDown starts a drag pan, or a pinch for the second touch. It
// reports whether the pane took the pointer.
func (p *PanZoom) PointerDown(ev gesture.PointerEvent) bool {
	if ev.PointerType == "touch" {
		return p.touchStart(ev)
	}
	if p.dragging || !p.filter(pointerInput(inputMouseDown, ev)) {
		return false
	}
	p.interrupt()
	p.dragging = true
	p.pointerID = ev.PointerID
	p.downAt = ev.Position
	p.moved = false
	p.mouse = [2]geometry.XYPosition{ev.Position, p.transform.Invert(ev.Position)}
	p.start(SourceMouse)
	p.mouseButton = ev.Button
	return true
}

// PointerMove pans while dragging or pinching.
func (p *PanZoom) PointerMove(ev gesture.PointerEvent) {
	if ev.PointerType == "touch" {
		p.touchMove(ev)
		return
	}
	if !p.dragging || ev.PointerID != p.pointerID {
		return
	}
	if !p.moved {
		dx, dy := ev.Position.X-p.downAt.X, ev.Position.Y-p.downAt.Y
		p.moved = dx*dx+dy*dy > p.opts.PaneClickDistance*p.opts.PaneClickDistance
	}
	p.mouse[0] = ev.Position
	p.zoom(p.constrain(anchor(p.transform, p.mouse[0], p.mouse[1])))
}

// PointerUp ends a drag pan. It reports a click when the pointer stayed
// within the pane click distance.
func (p *PanZoom) PointerUp(ev gesture.PointerEvent) bool {
	if ev.PointerType == "touch" {
		p.touchEnd(ev)
		return false
	}
	if !p.dragging || ev.PointerID != p.pointerID {
		return false
	}
	p.dragging = false
	p.end(&ev)
	return !p.moved
}

func (p *PanZoom) touchStart(ev gesture.PointerEvent) bool {
	if !p.filter(pointerInput(inputTouchStart, ev)) {
		return false
	}
	t := touch{id: ev.PointerID, screen: ev.Position, canvas: p.transform.Invert(ev.Position)}
	switch {
	case len(p.touches) == 0:
		p.touches = []touch{t}
		p.interrupt()
		p.start(SourceTouch)
	case len(p.touches) == 1 && p.touches[0].id != ev.PointerID:
		p.touches = append(p.touches, t)
	default:
		return false
	}
	return true
}

func (p *PanZoom) touchMove(ev gesture.PointerEvent) {
	i := slices.IndexFunc(p.touches, func(t touch) bool { return t.id == ev.PointerID })
	if i < 0 {
		return
	}
	p.touches[i].screen = ev.Position

	t := p.transform
	var screen, canvas geometry.XYPosition
	if len(p.touches) == 2 {
		a, b := p.touches[0], p.touches[1]
		dp := sq(b.screen.X-a.screen.X) + sq(b.screen.Y-a.screen.Y)
		dl := sq(b.canvas.X-a.canvas.X) + sq(b.canvas.Y-a.canvas.Y)
		if dl > 0 {
			t = scale(t, p.opts.MinZoom, p.opts.MaxZoom, math.Sqrt(dp/dl))
		}
		screen = geometry.XYPosition{X: (a.screen.X + b.screen.X) / 2, Y: (a.screen.Y + b.screen.Y) / 2}
		canvas = geometry.XYPosition{X: (a.canvas.X + b.canvas.X) / 2, Y: (a.canvas.Y + b.canvas.Y) / 2}
	} else {
		screen, canvas = p.touches[0].screen, p.touches[0].canvas
	}
	p.zoom(p.constrain(anchor(t, screen, canvas)))
}

func (p *PanZoom) touchEnd(ev gesture.PointerEvent) {
	i := slices.IndexFunc(p.touches, func(t touch) bool { return t.id == ev.PointerID })
	if i < 0 {
		return
	}
	p.touches = slices.Delete(p.touches, i, i+1)
	if len(p.touches) > 0 {
		p.touches[0].canvas = p.transform.Invert(p.touches[0].screen)
		return
	}
	p.end(&ev)
}

func sq(v float64) float64 { return v * v }

func (p *PanZoom) wheelDelta(ev gesture.WheelEvent) float64 {
	factor := 1.0
	if ev.Modifiers.Ctrl && p.opts.IsMac {
		factor = 10
	}
	mode := 0.002
	switch ev.DeltaMode {
	case gesture.DeltaPixel:
	case gesture.DeltaLine:
		mode = 0.05
	default:
		mode = 1
	}
	return -ev.DeltaY * mode * factor
}

// Wheel handles wheel and trackpad input. It reports whether the event was
// consumed, in which case the page must not scroll.
func (p *PanZoom) Wheel(ev gesture.WheelEvent) bool {
	o := p.opts
	if o.PanOnScroll && !o.ZoomActivationKeyPressed && !o.UserSelectionActive {
		return p.panOnScroll(ev)
	}
	noWheel := o.NoWheelClass != "" && ev.Path.HasClass(o.NoWheelClass)
	if noWheel || (!o.PreventScrolling && !ev.Modifiers.Ctrl) {
		// A pinch over a no-wheel element must not zoom the page either.
		return noWheel && ev.Modifiers.Ctrl
	}
	p.wheelZoom(ev)
	return true
}

func (p *PanZoom) wheelZoom(ev gesture.WheelEvent) {
	in := input{kind: inputWheel, ctrl: ev.Modifiers.Ctrl, path: ev.Path}
	if !p.filter(in) {
		return
	}
	t := p.transform
	k := geometry.Clamp(t.K()*math.Pow(2, p.wheelDelta(ev)), p.opts.MinZoom, p.opts.MaxZoom)
	pt := ev.Position

	switch {
	case p.wheeling:
		if p.wheelMouse[0] != pt {
			p.wheelMouse = [2]geometry.XYPosition{pt, t.Invert(pt)}
		}
		p.animator.ClearTimeout(p.wheelTimer)
	case t.K() == k:
		return
	default:
		p.wheelMouse = [2]geometry.XYPosition{pt, t.Invert(pt)}
		p.interrupt()
		p.start(SourceWheel)
		p.wheeling = true
	}

	p.wheelTimer = p.animator.SetTimeout(wheelIdle, func() {
		p.wheeling = false
		p.end(nil)
	})
	p.zoom(p.constrain(anchor(scale(t, p.opts.MinZoom, p.opts.MaxZoom, k), p.wheelMouse[0], p.wheelMouse[1])))
}

// translateInternal moves the viewport without pan/zoom callbacks; the
// pan-on-scroll handler reports those itself.
func (p *PanZoom) translateInternal(t geometry.Transform) {
	p.interrupt()
	p.internal = true
	p.zoom(p.constrain(t))
	p.internal = false
}

func (p *PanZoom) panOnScroll(ev gesture.WheelEvent) bool {
	o := p.opts
	if o.NoWheelClass != "" && ev.Path.HasClass(o.NoWheelClass) {
		return false
	}
	t := p.transform
	k := t.K()
	if k == 0 {
		k = 1
	}

	// Trackpad pinches arrive as wheel events with Ctrl set.
	if ev.Modifiers.Ctrl && o.ZoomOnPinch {
		p0 := ev.Position
		t1 := p.constrain(anchor(scale(t, o.MinZoom, o.MaxZoom, k*math.Pow(2, p.wheelDelta(ev))), p0, t.Invert(p0)))
		p.interrupt()
		p.start(SourceWheel)
		p.zoom(t1)
		p.end(nil)
		return true
	}

	// Firefox reports lines.
	norm := 1.0
	if ev.DeltaMode == gesture.DeltaLine {
		norm = 20
	}
	var dx, dy float64
	if o.PanOnScrollMode != ScrollVertical {
		dx = ev.DeltaX * norm
	}
	if o.PanOnScrollMode != ScrollHorizontal {
		dy = ev.DeltaY * norm
	}
	// Shift+scroll pans horizontally outside macOS.
	if !o.IsMac && ev.Modifiers.Shift && o.PanOnScrollMode != ScrollVertical {
		dx, dy = ev.DeltaY*norm, 0
	}

	speed := o.PanOnScrollSpeed
	p.translateInternal(t.Translate(-(dx/k)*speed, -(dy/k)*speed))

	next := p.transform.Viewport()
	p.animator.ClearTimeout(p.scrollTimer)
	if !p.panScroll {
		p.panScroll = true
		if p.callbacks.OnPanZoomStart != nil {
			p.callbacks.OnPanZoomStart(Event{Source: SourceWheel, Viewport: next})
		}
	}
	if p.callbacks.OnPanZoom != nil {
		p.callbacks.OnPanZoom(Event{Source: SourceWheel, Viewport: next})
	}
	p.scrollTimer = p.animator.SetTimeout(wheelIdle, func() {
		if p.callbacks.OnPanZoomEnd != nil {
			p.callbacks.OnPanZoomEnd(Event{Source: SourceWheel, Viewport: next})
		}
		p.panScroll = false
	})
	return true
}

// DoubleClick zooms in by 2, or out by 2 with Shift, around the pointer.
func (p *PanZoom) DoubleClick(ev gesture.PointerEvent) bool {
	if !p.opts.ZoomOnDoubleClick || !p.filter(pointerInput(inputDoubleClick, ev)) {
		return false
	}
	t0 := p.transform
	p0 := ev.Position
	factor := 2.0
	if ev.Modifiers.Shift {
		factor = 0.5
	}
	t1 := p.constrain(anchor(scale(t0, p.opts.MinZoom, p.opts.MaxZoom, t0.K()*factor), p0, t0.Invert(p0)))
	p.applyFrom(SourceDoubleClick, t1, p0, TransitionOptions{Duration: doubleClickDuration})
	return true
}
