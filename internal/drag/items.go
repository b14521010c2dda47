// Package drag implements pointer-driven dragging of one node or of the
// current selection, including snapping, extents, auto-pan at the container
// edges and parent expansion.
package drag

import (
	"github.com/tiger-colonel/xyflow-study/internal/flow"
	"github.com/tiger-colonel/xyflow-study/internal/geometry"
)

// Item is the per-node state of one drag gesture.
type Item struct {
	ID string
	// Position is the live parent-relative position.
	Position geometry.XYPosition
	// Distance is the pointer offset from the node's absolute position,
	// fixed when the drag starts.
	Distance         geometry.XYPosition
	Extent           flow.Extent
	ParentID         string
	Origin           *geometry.NodeOrigin
	ExpandParent     bool
	PositionAbsolute geometry.XYPosition
	Measured         geometry.Dimensions
}

// Rect returns the item's box in canvas space.
func (it *Item) Rect() geometry.Rect {
	return geometry.Rect{
		X:      it.PositionAbsolute.X,
		Y:      it.PositionAbsolute.Y,
		Width:  it.Measured.Width,
		Height: it.Measured.Height,
	}
}

// Items holds the drag items of a gesture in node lookup order.
type Items = flow.Lookup[*Item]

// isDraggable uses the node's own flag, falling back to the global one.
func isDraggable(n *flow.InternalNode, nodesDraggable bool) bool {
	if n.Draggable != nil {
		return *n.Draggable
	}
	return nodesDraggable
}

// GetDragItems collects the nodes that move with a drag started at mousePos
// (canvas space): the selected nodes plus nodeID, minus nodes that already
// move with a selected ancestor and nodes that are not draggable.
func GetDragItems(lookup *flow.NodeLookup, nodesDraggable bool, mousePos geometry.XYPosition, nodeID string) *Items {
	items := flow.NewLookup[*Item]()
	for id, n := range lookup.All() {
		if !n.IsSelected() && id != nodeID {
			continue
		}
		if n.ParentID != "" && flow.IsParentSelected(&n.Node, lookup) {
			continue
		}
		if !isDraggable(n, nodesDraggable) {
			continue
		}
		var dims geometry.Dimensions
		if n.Measured != nil {
			dims = *n.Measured
		}
		abs := n.Internals.PositionAbsolute
		items.Set(id, &Item{
			ID:               id,
			Position:         n.Position,
			Distance:         geometry.XYPosition{X: mousePos.X - abs.X, Y: mousePos.Y - abs.Y},
			Extent:           n.Extent,
			ParentID:         n.ParentID,
			Origin:           n.Origin,
			ExpandParent:     n.ExpandParent,
			PositionAbsolute: abs,
			Measured:         dims,
		})
	}
	return items
}

func itemsBounds(items *Items) geometry.Box {
	box := geometry.EmptyBounds()
	for _, it := range items.All() {
		box = box.Union(it.Rect().Box())
	}
	return box
}

// EventNodes returns the node being dragged and all dragged nodes, as copies
// of the user nodes carrying the live drag positions. Without nodeID the
// first dragged node stands for the selection.
func EventNodes(nodeID string, items *Items, lookup *flow.NodeLookup, dragging bool) (*flow.Node, []*flow.Node) {
	var nodes []*flow.Node
	for id, it := range items.All() {
		n, ok := lookup.Get(id)
		if !ok || n.Internals.UserNode == nil {
			continue
		}
		cp := *n.Internals.UserNode
		cp.Position = it.Position
		cp.Dragging = dragging
		nodes = append(nodes, &cp)
	}

	var first *flow.Node
	if len(nodes) > 0 {
		first = nodes[0]
	}
	if nodeID == "" {
		return first, nodes
	}
	n, ok := lookup.Get(nodeID)
	if !ok || n.Internals.UserNode == nil {
		return first, nodes
	}
	cp := *n.Internals.UserNode
	if it, ok := items.Get(nodeID); ok {
		cp.Position = it.Position
	}
	cp.Dragging = dragging
	return &cp, nodes
}
