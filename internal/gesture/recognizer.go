package gesture

import (
	"math"
)

// Handler receives the phases of one gesture.
type Handler interface {
	Start(ev PointerEvent)
	Drag(ev PointerEvent)
	End(ev PointerEvent)
}

// Filter decides whether a pointer down may start a gesture.
type Filter func(ev PointerEvent) bool

// DefaultFilter accepts the primary button without Ctrl.
func DefaultFilter(ev PointerEvent) bool {
	return ev.Button == ButtonPrimary && !ev.Modifiers.Ctrl
}

// Recognizer tracks one gesture at a time for a single pointer.
type Recognizer struct {
	filter        Filter
	clickDistance float64
	handler       Handler

	active    bool
	pointerID int
	origin    [2]float64
	moved     float64
}

// NewRecognizer returns a recognizer reporting to h. A nil filter uses
// DefaultFilter.
func NewRecognizer(h Handler, filter Filter) *Recognizer {
	if filter == nil {
		filter = DefaultFilter
	}
	return &Recognizer{handler: h, filter: filter}
}

// SetFilter replaces the activation filter.
func (r *Recognizer) SetFilter(f Filter) {
	if f == nil {
		f = DefaultFilter
	}
	r.filter = f
}

// SetClickDistance sets how far the pointer may travel between down and up
// for the gesture to still count as a click.
func (r *Recognizer) SetClickDistance(d float64) { r.clickDistance = d }

// Active reports whether a gesture is in progress.
func (r *Recognizer) Active() bool { return r.active }

// PointerDown starts a gesture if none is active and the filter accepts ev.
func (r *Recognizer) PointerDown(ev PointerEvent) bool {
	if r.active || !r.filter(ev) {
		return false
	}
	r.active = true
	r.pointerID = ev.PointerID
	r.origin = [2]float64{ev.Position.X, ev.Position.Y}
	r.moved = 0
	r.handler.Start(ev)
	return true
}

// PointerMove forwards moves of the tracking pointer. Moves of other
// pointers are forwarded too so that the handler can see extra touches.
func (r *Recognizer) PointerMove(ev PointerEvent) {
	if !r.active {
		return
	}
	if ev.PointerID == r.pointerID {
		dx, dy := ev.Position.X-r.origin[0], ev.Position.Y-r.origin[1]
		r.moved = math.Max(r.moved, math.Hypot(dx, dy))
	}
	r.handler.Drag(ev)
}

// PointerUp ends the gesture of the tracking pointer. It reports whether the
// gesture stayed within the click distance.
func (r *Recognizer) PointerUp(ev PointerEvent) (click bool) {
	if !r.active || ev.PointerID != r.pointerID {
		return false
	}
	r.active = false
	r.handler.End(ev)
	return r.moved <= r.clickDistance
}

// Cancel ends an active gesture, reporting ev as its last event.
func (r *Recognizer) Cancel(ev PointerEvent) {
	if !r.active {
		return
	}
	r.active = false
	r.handler.End(ev)
}
