package engine

import (
	"math"

	"github.com/tiger-colonel/xyflow-study/internal/drag"
	"github.com/tiger-colonel/xyflow-study/internal/flow"
	"github.com/tiger-colonel/xyflow-study/internal/geometry"
	"github.com/tiger-colonel/xyflow-study/internal/resize"
)

var (
	_ drag.Store   = (*Store)(nil)
	_ resize.Store = (*Store)(nil)
)

// DragConfig implements drag.Store.
func (s *Store) DragConfig() drag.Config {
	return drag.Config{
		NodeOrigin:           s.opts.NodeOrigin,
		NodeExtent:           s.opts.NodeExtent,
		SnapToGrid:           s.opts.SnapToGrid,
		SnapGrid:             s.opts.SnapGrid,
		NodesDraggable:       s.opts.NodesDraggable,
		MultiSelectionActive: s.multiSelectionActive,
		SelectNodesOnDrag:    s.opts.SelectNodesOnDrag,
		NodeDragThreshold:    s.opts.NodeDragThreshold,
		AutoPanOnNodeDrag:    s.opts.AutoPanOnNodeDrag,
		AutoPanSpeed:         s.opts.AutoPanSpeed,
	}
}

// ResizeConfig implements resize.Store.
func (s *Store) ResizeConfig() resize.Config {
	return resize.Config{
		NodeOrigin: s.opts.NodeOrigin,
		SnapToGrid: s.opts.SnapToGrid,
		SnapGrid:   s.opts.SnapGrid,
	}
}

// UpdateNodePositions writes drag item positions through as position
// changes. Items of expanding children are kept at non-negative positions
// and grow their parents.
func (s *Store) UpdateNodePositions(items *drag.Items, dragging bool) {
	var (
		changes   []flow.NodeChange
		expanding []flow.ParentExpandChild
	)
	for id, it := range items.All() {
		pos := it.Position
		n, ok := s.nodeLookup.Get(id)
		if ok && n.ExpandParent && n.ParentID != "" {
			pos = geometry.XYPosition{X: math.Max(0, pos.X), Y: math.Max(0, pos.Y)}
			expanding = append(expanding, flow.ParentExpandChild{ID: id, ParentID: n.ParentID, Rect: it.Rect()})
		}
		changes = append(changes, flow.PositionChange(id, pos, flow.Bool(dragging)))
	}
	if len(expanding) > 0 {
		changes = append(changes, flow.HandleExpandParent(expanding, s.nodeLookup, s.parentLookup, s.opts.NodeOrigin)...)
	}
	s.TriggerNodeChanges(changes)
}

// NodeDrag returns a drag bound to this store. An empty opts.NodeID drags
// the current selection.
func (s *Store) NodeDrag(opts drag.Options) *drag.Drag {
	return drag.New(s, s.sched, drag.Callbacks{
		OnNodeMouseDown: func(id string) { s.HandleNodeClick(id, false) },
		OnStart:         s.callbacks.OnNodeDragStart,
		OnDrag:          s.callbacks.OnNodeDrag,
		OnStop:          s.callbacks.OnNodeDragStop,
	}, opts)
}

// NodeResizer is a resize handle of one node, wired to its store.
type NodeResizer struct {
	*resize.Resizer
	store     *Store
	nodeID    string
	direction resize.Direction
}

// NodeResizer returns a resizer for a handle of nodeID.
func (s *Store) NodeResizer(nodeID string, params resize.Params) *NodeResizer {
	nr := &NodeResizer{store: s, nodeID: nodeID}
	nr.Resizer = resize.New(nodeID, s, nr.onChange, nr.onEnd)
	nr.Update(params)
	return nr
}

// Update rebinds the handle.
func (nr *NodeResizer) Update(p resize.Params) {
	nr.direction = p.ResizeDirection
	nr.Resizer.Update(p)
}

func (nr *NodeResizer) onChange(change resize.Change, children []resize.ChildChange) {
	s := nr.store
	var changes []flow.NodeChange
	next := change.Position

	n, ok := s.nodeLookup.Get(nr.nodeID)
	if ok && n.ExpandParent && n.ParentID != "" {
		origin := s.opts.NodeOrigin
		if n.Origin != nil {
			origin = *n.Origin
		}
		dims := n.Dimensions()
		if change.Dimensions != nil {
			dims = *change.Dimensions
		}
		pos := n.Position
		if change.Position != nil {
			pos = *change.Position
		}
		abs := flow.EvaluateAbsolutePosition(pos, dims, n.ParentID, s.nodeLookup, origin)
		changes = append(changes, flow.HandleExpandParent([]flow.ParentExpandChild{{
			ID:       n.ID,
			ParentID: n.ParentID,
			Rect:     geometry.Rect{X: abs.X, Y: abs.Y, Width: dims.Width, Height: dims.Height},
		}}, s.nodeLookup, s.parentLookup, s.opts.NodeOrigin)...)

		// A child may not move past its parent's top-left corner; an
		// unchanged axis leaves the node where it is.
		next = nil
		if change.Position != nil && change.Position.X != 0 && change.Position.Y != 0 {
			next = &geometry.XYPosition{
				X: math.Max(origin[0]*dims.Width, change.Position.X),
				Y: math.Max(origin[1]*dims.Height, change.Position.Y),
			}
		}
	}

	if next != nil {
		changes = append(changes, flow.PositionChange(nr.nodeID, *next, nil))
	}
	if change.Dimensions != nil {
		dims := *change.Dimensions
		changes = append(changes, flow.NodeChange{
			Type:          flow.ChangeDimensions,
			ID:            nr.nodeID,
			Dimensions:    &dims,
			Resizing:      flow.Bool(true),
			SetAttributes: setAttributes(nr.direction),
		})
	}
	for _, c := range children {
		changes = append(changes, flow.PositionChange(c.ID, c.Position, nil))
	}
	s.TriggerNodeChanges(changes)
}

func (nr *NodeResizer) onEnd(v resize.Values) {
	nr.store.TriggerNodeChanges([]flow.NodeChange{{
		Type:       flow.ChangeDimensions,
		ID:         nr.nodeID,
		Dimensions: &geometry.Dimensions{Width: v.Width, Height: v.Height},
		Resizing:   flow.Bool(false),
	}})
}

func setAttributes(d resize.Direction) flow.SetAttributes {
	switch d {
	case resize.Horizontal:
		return flow.SetWidth
	case resize.Vertical:
		return flow.SetHeight
	}
	return flow.SetWidthAndHeight
}
