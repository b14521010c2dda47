package resize

import (
	"log/slog"
	"math"

	"github.com/tiger-colonel/xyflow-study/internal/flow"
	"github.com/tiger-colonel/xyflow-study/internal/geometry"
	"github.com/tiger-colonel/xyflow-study/internal/gesture"
	"github.com/tiger-colonel/xyflow-study/internal/metrics"
)

// Config is the engine state a resize reads.
type Config struct {
	NodeOrigin geometry.NodeOrigin
	SnapToGrid bool
	SnapGrid   geometry.SnapGrid
}

// Store is the engine side of a resize.
type Store interface {
	ResizeConfig() Config
	NodeLookup() *flow.NodeLookup
	Transform() geometry.Transform
}

// Change is what one resize frame changes on the node. Position is set when
// the node moved and Dimensions when its size changed.
type Change struct {
	Position   *geometry.XYPosition
	Dimensions *geometry.Dimensions
}

// ChildChange moves a child back so it keeps its absolute position while
// its parent's top or left edge moves.
type ChildChange struct {
	ID       string
	Position geometry.XYPosition
	Extent   flow.Extent
}

// Event is passed to resize callbacks.
type Event struct {
	Pointer gesture.PointerEvent
	Values
	// Direction is the growth per axis, 1 right/down and -1 left/up.
	Direction [2]int
}

// Params configure the handle a Resizer is bound to.
type Params struct {
	Control         ControlPosition
	Boundaries      Boundaries
	KeepAspectRatio bool
	ResizeDirection Direction

	OnResizeStart func(Event)
	OnResize      func(Event)
	OnResizeEnd   func(Event)
	// ShouldResize can reject a single frame; later frames still resize.
	ShouldResize func(Event) bool
}

type child struct {
	id       string
	position geometry.XYPosition
	extent   flow.Extent
}

// Resizer is the resize state machine of one node handle.
type Resizer struct {
	nodeID   string
	store    Store
	onChange func(Change, []ChildChange)
	onEnd    func(Values)
	gesture  *gesture.Recognizer

	params      Params
	dir         ControlDirection
	node        *flow.InternalNode
	prev        Values
	start       StartValues
	children    []*child
	parent      *flow.InternalNode
	parentBox   *geometry.CoordinateExtent
	childExtent *geometry.CoordinateExtent
}

// New returns a resizer for nodeID. onChange receives every accepted frame
// and onEnd the final values.
func New(nodeID string, store Store, onChange func(Change, []ChildChange), onEnd func(Values)) *Resizer {
	r := &Resizer{nodeID: nodeID, store: store, onChange: onChange, onEnd: onEnd}
	r.gesture = gesture.NewRecognizer(r, nil)
	return r
}

// Update binds the resizer to a handle and its options. Zero boundaries
// use DefaultBoundaries and a zero maximum means unbounded.
func (r *Resizer) Update(p Params) {
	if p.Boundaries == (Boundaries{}) {
		p.Boundaries = DefaultBoundaries()
	}
	if p.Boundaries.MaxWidth == 0 {
		p.Boundaries.MaxWidth = math.Inf(1)
	}
	if p.Boundaries.MaxHeight == 0 {
		p.Boundaries.MaxHeight = math.Inf(1)
	}
	r.params = p
	r.dir = GetControlDirection(p.Control)
}

// PointerDown feeds a pointer down into the resizer.
func (r *Resizer) PointerDown(ev gesture.PointerEvent) bool { return r.gesture.PointerDown(ev) }

// PointerMove feeds a pointer move into the resizer.
func (r *Resizer) PointerMove(ev gesture.PointerEvent) { r.gesture.PointerMove(ev) }

// PointerUp feeds a pointer up into the resizer.
func (r *Resizer) PointerUp(ev gesture.PointerEvent) { r.gesture.PointerUp(ev) }

func (r *Resizer) pointer(ev gesture.PointerEvent) geometry.XYPosition {
	cfg := r.store.ResizeConfig()
	return geometry.PointToRendererPoint(ev.Position, r.store.Transform(), cfg.SnapToGrid, cfg.SnapGrid)
}

func parentBox(parent *flow.InternalNode) *geometry.CoordinateExtent {
	dims := parent.Dimensions()
	return &geometry.CoordinateExtent{{0, 0}, {dims.Width, dims.Height}}
}

func childBox(c, parent *flow.InternalNode, origin geometry.NodeOrigin) geometry.CoordinateExtent {
	x := parent.Position.X + c.Position.X
	y := parent.Position.Y + c.Position.Y
	dims := c.Dimensions()
	ox, oy := origin[0]*dims.Width, origin[1]*dims.Height
	return geometry.CoordinateExtent{{x - ox, y - oy}, {x + dims.Width - ox, y + dims.Height - oy}}
}

func union(a *geometry.CoordinateExtent, b geometry.CoordinateExtent) *geometry.CoordinateExtent {
	if a == nil {
		return &b
	}
	return &geometry.CoordinateExtent{
		{min(a[0][0], b[0][0]), min(a[0][1], b[0][1])},
		{max(a[1][0], b[1][0]), max(a[1][1], b[1][1])},
	}
}

// Start implements gesture.Handler.
func (r *Resizer) Start(ev gesture.PointerEvent) {
	lookup := r.store.NodeLookup()
	node, ok := lookup.Get(r.nodeID)
	if !ok {
		r.node = nil
		return
	}
	r.node = node
	cfg := r.store.ResizeConfig()
	pos := r.pointer(ev)

	dims := node.Dimensions()
	r.prev = Values{X: node.Position.X, Y: node.Position.Y, Width: dims.Width, Height: dims.Height}
	ar := 1.0
	if r.prev.Height != 0 {
		ar = r.prev.Width / r.prev.Height
	}
	r.start = StartValues{Values: r.prev, PointerX: pos.X, PointerY: pos.Y, AspectRatio: ar}

	r.parent, r.parentBox = nil, nil
	if node.ParentID != "" && (node.Extent.IsParent() || node.ExpandParent) {
		if p, ok := lookup.Get(node.ParentID); ok {
			r.parent = p
			if node.Extent.IsParent() {
				r.parentBox = parentBox(p)
			}
		}
	}

	r.children, r.childExtent = nil, nil
	for id, c := range lookup.All() {
		if c.ParentID != r.nodeID {
			continue
		}
		r.children = append(r.children, &child{id: id, position: c.Position, extent: c.Extent})
		if c.Extent.IsParent() || c.ExpandParent {
			origin := cfg.NodeOrigin
			if c.Origin != nil {
				origin = *c.Origin
			}
			r.childExtent = union(r.childExtent, childBox(c, node, origin))
		}
	}

	if r.params.OnResizeStart != nil {
		r.params.OnResizeStart(Event{Pointer: ev, Values: r.prev})
	}
}

// Drag implements gesture.Handler.
func (r *Resizer) Drag(ev gesture.PointerEvent) {
	if r.node == nil {
		return
	}
	if !r.store.NodeLookup().Has(r.nodeID) {
		slog.Debug("resize aborted", "node", r.nodeID)
		metrics.GestureAbortedTotal.WithLabelValues("resize", "removed").Inc()
		r.node = nil
		return
	}
	cfg := r.store.ResizeConfig()
	origin := cfg.NodeOrigin
	if r.node.Origin != nil {
		origin = *r.node.Origin
	}

	prev := r.prev
	next := DimensionsAfterResize(r.start, r.dir, r.pointer(ev), r.params.Boundaries, r.params.KeepAspectRatio, origin, r.parentBox, r.childExtent)

	widthChanged := next.Width != prev.Width
	heightChanged := next.Height != prev.Height
	xChanged := next.X != prev.X && widthChanged
	yChanged := next.Y != prev.Y && heightChanged
	if !xChanged && !yChanged && !widthChanged && !heightChanged {
		return
	}

	var change Change
	var childChanges []ChildChange
	if xChanged || yChanged || origin[0] == 1 || origin[1] == 1 {
		p := geometry.XYPosition{X: prev.X, Y: prev.Y}
		if xChanged {
			p.X = next.X
		}
		if yChanged {
			p.Y = next.Y
		}
		change.Position = &p
		r.prev.X, r.prev.Y = p.X, p.Y

		dx, dy := next.X-prev.X, next.Y-prev.Y
		for _, c := range r.children {
			c.position = geometry.XYPosition{
				X: c.position.X - dx + origin[0]*(next.Width-prev.Width),
				Y: c.position.Y - dy + origin[1]*(next.Height-prev.Height),
			}
			childChanges = append(childChanges, ChildChange{ID: c.id, Position: c.position, Extent: c.extent})
		}
	}

	if widthChanged || heightChanged {
		d := geometry.Dimensions{Width: prev.Width, Height: prev.Height}
		if widthChanged && r.params.ResizeDirection != Vertical {
			d.Width = next.Width
		}
		if heightChanged && r.params.ResizeDirection != Horizontal {
			d.Height = next.Height
		}
		change.Dimensions = &d
		r.prev.Width, r.prev.Height = d.Width, d.Height
	}

	// An expanding child resized from its top or left must not move past
	// its parent's origin; the overshoot is carried into the start values.
	if r.parent != nil && r.node.ExpandParent && change.Position != nil {
		var w, h float64
		if change.Dimensions != nil {
			w, h = change.Dimensions.Width, change.Dimensions.Height
		}
		if xLimit := origin[0] * w; change.Position.X != 0 && change.Position.X < xLimit {
			r.prev.X = xLimit
			r.start.X -= change.Position.X - xLimit
		}
		if yLimit := origin[1] * h; change.Position.Y != 0 && change.Position.Y < yLimit {
			r.prev.Y = yLimit
			r.start.Y -= change.Position.Y - yLimit
		}
	}

	e := Event{
		Pointer:   ev,
		Values:    r.prev,
		Direction: resizeDirection(r.prev, prev, r.dir.AffectsX, r.dir.AffectsY),
	}
	if r.params.ShouldResize != nil && !r.params.ShouldResize(e) {
		return
	}
	if r.params.OnResize != nil {
		r.params.OnResize(e)
	}
	if r.onChange != nil {
		r.onChange(change, childChanges)
	}
}

// End implements gesture.Handler.
func (r *Resizer) End(ev gesture.PointerEvent) {
	if r.node == nil {
		return
	}
	r.node = nil
	if r.params.OnResizeEnd != nil {
		r.params.OnResizeEnd(Event{Pointer: ev, Values: r.prev})
	}
	if r.onEnd != nil {
		r.onEnd(r.prev)
	}
}
