package drag

import (
	"log/slog"
	"math"
	"time"

	"github.com/tiger-colonel/xyflow-study/internal/flow"
	"github.com/tiger-colonel/xyflow-study/internal/geometry"
	"github.com/tiger-colonel/xyflow-study/internal/gesture"
	"github.com/tiger-colonel/xyflow-study/internal/loop"
	"github.com/tiger-colonel/xyflow-study/internal/metrics"
)

// Config is the engine state a drag reads at every step.
type Config struct {
	NodeOrigin           geometry.NodeOrigin
	NodeExtent           geometry.CoordinateExtent
	SnapToGrid           bool
	SnapGrid             geometry.SnapGrid
	NodesDraggable       bool
	MultiSelectionActive bool
	SelectNodesOnDrag    bool
	NodeDragThreshold    float64
	AutoPanOnNodeDrag    bool
	AutoPanSpeed         float64
}

// Store is the engine side of a drag.
type Store interface {
	DragConfig() Config
	NodeLookup() *flow.NodeLookup
	Transform() geometry.Transform
	// ContainerSize is the size of the canvas container on screen.
	ContainerSize() geometry.Dimensions
	UnselectNodesAndEdges()
	// UpdateNodePositions writes the item positions through to the nodes.
	UpdateNodePositions(items *Items, dragging bool)
	// PanBy pans the viewport by delta screen pixels and reports whether
	// anything moved.
	PanBy(delta geometry.XYPosition) bool
	ReportError(err *flow.Error)
}

// Animator provides animation frames.
type Animator interface {
	RequestFrame(fn func(now time.Duration)) loop.FrameID
	CancelFrame(id loop.FrameID)
}

// Event is passed to drag callbacks.
type Event struct {
	Pointer gesture.PointerEvent
	Items   *Items
	// NodeID is empty for a selection drag.
	NodeID string
	Node   *flow.Node
	Nodes  []*flow.Node
}

// Callbacks are optional hooks fired by a drag.
type Callbacks struct {
	// OnNodeMouseDown fires when a drag starts on a selectable node with
	// select-on-drag enabled.
	OnNodeMouseDown func(id string)
	OnStart         func(Event)
	OnDrag          func(Event)
	OnStop          func(Event)
}

// Options bind a drag to what it drags.
type Options struct {
	// NodeID is the dragged node; empty drags the selection.
	NodeID       string
	IsSelectable bool
	// NoDragClass blocks drags that start on an element with this class.
	NoDragClass string
	// HandleSelector, when set, limits drag starts to matching elements.
	HandleSelector string
	ClickDistance  float64
}

// Drag is the drag state machine for one node or for the selection.
type Drag struct {
	store     Store
	animator  Animator
	callbacks Callbacks
	opts      Options
	gesture   *gesture.Recognizer

	items         *Items
	lastPos       geometry.XYPosition
	mousePosition geometry.XYPosition
	container     geometry.Dimensions
	autoPanID     loop.FrameID
	autoPanning   bool
	started       bool
	aborted       bool
	event         gesture.PointerEvent
}

// New returns an idle drag.
func New(store Store, animator Animator, callbacks Callbacks, opts Options) *Drag {
	d := &Drag{
		store:     store,
		animator:  animator,
		callbacks: callbacks,
		items:     flow.NewLookup[*Item](),
	}
	d.gesture = gesture.NewRecognizer(d, nil)
	d.Update(opts)
	return d
}

// Update rebinds the drag, e.g. when the node's selectability changed.
func (d *Drag) Update(opts Options) {
	d.opts = opts
	d.gesture.SetClickDistance(opts.ClickDistance)
	d.gesture.SetFilter(func(ev gesture.PointerEvent) bool {
		if ev.Button != gesture.ButtonPrimary {
			return false
		}
		if opts.NoDragClass != "" && ev.Path.HasClass(opts.NoDragClass) {
			return false
		}
		return opts.HandleSelector == "" || ev.Path.Has(opts.HandleSelector)
	})
}

// Dragging reports whether the drag passed its threshold and is moving nodes.
func (d *Drag) Dragging() bool { return d.started }

// Items returns the items of the current or last gesture.
func (d *Drag) Items() *Items { return d.items }

// PointerDown feeds a pointer down into the drag.
func (d *Drag) PointerDown(ev gesture.PointerEvent) bool { return d.gesture.PointerDown(ev) }

// PointerMove feeds a pointer move into the drag.
func (d *Drag) PointerMove(ev gesture.PointerEvent) { d.gesture.PointerMove(ev) }

// PointerUp feeds a pointer up into the drag and reports a click.
func (d *Drag) PointerUp(ev gesture.PointerEvent) bool { return d.gesture.PointerUp(ev) }

// Destroy stops any auto-pan frame.
func (d *Drag) Destroy() {
	d.stopAutoPan()
}

func (d *Drag) pointerPosition(ev gesture.PointerEvent, cfg Config) (pos, snapped geometry.XYPosition) {
	pos = geometry.PointToRendererPoint(ev.Position, d.store.Transform(), false, cfg.SnapGrid)
	snapped = pos
	if cfg.SnapToGrid {
		snapped = geometry.SnapPosition(pos, cfg.SnapGrid)
	}
	return pos, snapped
}

// Start implements gesture.Handler.
func (d *Drag) Start(ev gesture.PointerEvent) {
	cfg := d.store.DragConfig()
	d.container = d.store.ContainerSize()
	d.stopAutoPan()
	d.started = false
	d.aborted = false
	d.items = flow.NewLookup[*Item]()
	d.event = ev

	if cfg.NodeDragThreshold == 0 {
		d.startDrag(ev, cfg)
	}
	d.lastPos, _ = d.pointerPosition(ev, cfg)
	d.mousePosition = ev.Position
}

func (d *Drag) startDrag(ev gesture.PointerEvent, cfg Config) {
	lookup := d.store.NodeLookup()
	d.started = true

	if (!cfg.SelectNodesOnDrag || !d.opts.IsSelectable) && !cfg.MultiSelectionActive && d.opts.NodeID != "" {
		if n, ok := lookup.Get(d.opts.NodeID); !ok || !n.IsSelected() {
			d.store.UnselectNodesAndEdges()
		}
	}
	if d.opts.IsSelectable && cfg.SelectNodesOnDrag && d.opts.NodeID != "" && d.callbacks.OnNodeMouseDown != nil {
		d.callbacks.OnNodeMouseDown(d.opts.NodeID)
	}

	pos, _ := d.pointerPosition(ev, cfg)
	d.lastPos = pos
	d.items = GetDragItems(d.store.NodeLookup(), cfg.NodesDraggable, pos, d.opts.NodeID)

	if d.items.Len() > 0 && d.callbacks.OnStart != nil {
		d.callbacks.OnStart(d.newEvent(ev, true))
	}
}

func (d *Drag) newEvent(ev gesture.PointerEvent, dragging bool) Event {
	node, nodes := EventNodes(d.opts.NodeID, d.items, d.store.NodeLookup(), dragging)
	return Event{Pointer: ev, Items: d.items, NodeID: d.opts.NodeID, Node: node, Nodes: nodes}
}

// Drag implements gesture.Handler.
func (d *Drag) Drag(ev gesture.PointerEvent) {
	cfg := d.store.DragConfig()
	_, snapped := d.pointerPosition(ev, cfg)
	d.event = ev

	if ev.Touches > 1 || (d.opts.NodeID != "" && !d.store.NodeLookup().Has(d.opts.NodeID)) {
		if !d.aborted {
			reason := "removed"
			if ev.Touches > 1 {
				reason = "multitouch"
			}
			slog.Debug("drag aborted", "node", d.opts.NodeID, "reason", reason)
			metrics.GestureAbortedTotal.WithLabelValues("drag", reason).Inc()
		}
		d.aborted = true
		d.stopAutoPan()
	}
	if d.aborted {
		return
	}

	if !d.autoPanning && cfg.AutoPanOnNodeDrag && d.started {
		d.autoPanning = true
		d.autoPan(0)
	}

	// The threshold is measured in flow coordinates, from the snapped
	// pointer to where the gesture began.
	if !d.started {
		if math.Hypot(snapped.X-d.lastPos.X, snapped.Y-d.lastPos.Y) > cfg.NodeDragThreshold {
			d.startDrag(ev, cfg)
		}
	}

	if (d.lastPos.X != snapped.X || d.lastPos.Y != snapped.Y) && d.started {
		d.mousePosition = ev.Position
		pos, _ := d.pointerPosition(ev, cfg)
		d.updateNodes(pos, cfg)
	}
}

// End implements gesture.Handler.
func (d *Drag) End(ev gesture.PointerEvent) {
	started := d.started
	d.started = false
	d.stopAutoPan()
	if d.aborted {
		d.items = flow.NewLookup[*Item]()
		return
	}
	if !started {
		return
	}

	if d.items.Len() == 0 {
		return
	}
	d.store.UpdateNodePositions(d.items, false)
	if d.callbacks.OnStop != nil {
		d.callbacks.OnStop(d.newEvent(ev, false))
	}
}

func (d *Drag) stopAutoPan() {
	d.autoPanning = false
	if d.autoPanID != 0 {
		d.animator.CancelFrame(d.autoPanID)
		d.autoPanID = 0
	}
}

func (d *Drag) updateNodes(pos geometry.XYPosition, cfg Config) {
	lookup := d.store.NodeLookup()
	d.lastPos = pos

	extent := cfg.NodeExtent
	if extent == (geometry.CoordinateExtent{}) {
		extent = geometry.InfiniteExtent
	}
	multi := d.items.Len() > 1
	var box geometry.Box
	if multi {
		box = itemsBounds(d.items)
	}

	changed := false
	for id, it := range d.items.All() {
		// The node may have been deleted while dragging.
		if !lookup.Has(id) {
			continue
		}
		next := geometry.XYPosition{X: pos.X - it.Distance.X, Y: pos.Y - it.Distance.Y}
		if cfg.SnapToGrid {
			next = geometry.SnapPosition(next, cfg.SnapGrid)
		}

		// With several nodes the extent is shifted per node so the
		// selection is clamped as one box.
		adjusted := extent
		if multi && it.Extent.IsZero() {
			abs := it.PositionAbsolute
			adjusted = geometry.CoordinateExtent{
				{abs.X - box.X + extent[0][0], abs.Y - box.Y + extent[0][1]},
				{abs.X + it.Measured.Width - box.X2 + extent[1][0], abs.Y + it.Measured.Height - box.Y2 + extent[1][1]},
			}
		}

		position, positionAbsolute := flow.CalculateNodePosition(id, next, lookup, cfg.NodeOrigin, adjusted, d.store.ReportError)
		changed = changed || it.Position != position
		it.Position = position
		it.PositionAbsolute = positionAbsolute
	}
	if !changed {
		return
	}

	d.store.UpdateNodePositions(d.items, true)
	if d.callbacks.OnDrag != nil {
		d.callbacks.OnDrag(d.newEvent(d.event, true))
	}
}

func (d *Drag) autoPan(time.Duration) {
	cfg := d.store.DragConfig()
	if !cfg.AutoPanOnNodeDrag {
		d.stopAutoPan()
		return
	}
	speed := cfg.AutoPanSpeed
	if speed == 0 {
		speed = geometry.DefaultAutoPanSpeed
	}
	move := geometry.CalcAutoPan(d.mousePosition, d.container, speed, geometry.DefaultAutoPanDistance)
	if move[0] != 0 || move[1] != 0 {
		k := d.store.Transform().K()
		d.lastPos.X -= move[0] / k
		d.lastPos.Y -= move[1] / k
		if d.store.PanBy(geometry.XYPosition{X: move[0], Y: move[1]}) {
			d.updateNodes(d.lastPos, cfg)
		}
	}
	d.autoPanID = d.animator.RequestFrame(d.autoPan)
}
