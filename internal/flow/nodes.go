package flow

import (
	"github.com/tiger-colonel/xyflow-study/internal/geometry"
)

// NodeRect returns the box of a user node, resolving its origin.
func NodeRect(n *Node, nodeOrigin geometry.NodeOrigin) geometry.Rect {
	pos := n.PositionWithOrigin(nodeOrigin)
	dims := n.Dimensions()
	return geometry.Rect{X: pos.X, Y: pos.Y, Width: dims.Width, Height: dims.Height}
}

// NodesBounds returns the union of the given nodes' boxes. With a lookup,
// each node is resolved to its internal node so the absolute position is
// used; nodes missing from the lookup count as an empty box at the origin.
func NodesBounds(nodes []*Node, nodeOrigin geometry.NodeOrigin, lookup *NodeLookup) geometry.Rect {
	if len(nodes) == 0 {
		return geometry.Rect{}
	}
	box := geometry.EmptyBounds()
	for _, n := range nodes {
		var b geometry.Box
		if lookup == nil {
			b = NodeRect(n, nodeOrigin).Box()
		} else if internal, ok := lookup.Get(n.ID); ok {
			b = internal.Rect().Box()
		}
		box = box.Union(b)
	}
	return box.Rect()
}

// InternalNodesBounds returns the union of all internal nodes accepted by
// filter (nil accepts all), or the zero rect if none are.
func InternalNodesBounds(lookup *NodeLookup, filter func(*InternalNode) bool) geometry.Rect {
	box := geometry.EmptyBounds()
	found := false
	for _, n := range lookup.All() {
		if filter != nil && !filter(n) {
			continue
		}
		box = box.Union(n.Rect().Box())
		found = true
	}
	if !found {
		return geometry.Rect{}
	}
	return box.Rect()
}

// NodesInside returns the nodes visible within a screen-space rect under
// transform t. With partially set, any overlap counts. Nodes not yet
// measured for handles are always included so they get rendered once.
func NodesInside(lookup *NodeLookup, rect geometry.Rect, t geometry.Transform, partially, excludeNonSelectable bool) []*InternalNode {
	topLeft := geometry.PointToRendererPoint(geometry.XYPosition{X: rect.X, Y: rect.Y}, t, false, geometry.SnapGrid{})
	pane := geometry.Rect{X: topLeft.X, Y: topLeft.Y, Width: rect.Width / t.K(), Height: rect.Height / t.K()}

	var visible []*InternalNode
	for _, n := range lookup.All() {
		if (excludeNonSelectable && !n.IsSelectable()) || n.Hidden {
			continue
		}
		dims := n.Dimensions()
		overlap := geometry.OverlappingArea(pane, n.Rect())
		area := dims.Width * dims.Height
		forceInitialRender := n.Internals.HandleBounds == nil
		if forceInitialRender || (partially && overlap > 0) || overlap >= area || n.Dragging {
			visible = append(visible, n)
		}
	}
	return visible
}

// EvaluateAbsolutePosition resolves a parent-relative position into canvas
// space, accounting for the parent's origin applied to dims.
func EvaluateAbsolutePosition(pos geometry.XYPosition, dims geometry.Dimensions, parentID string, lookup *NodeLookup, nodeOrigin geometry.NodeOrigin) geometry.XYPosition {
	parent, ok := lookup.Get(parentID)
	if !ok {
		return pos
	}
	origin := parent.originOr(nodeOrigin)
	return geometry.XYPosition{
		X: pos.X + parent.Internals.PositionAbsolute.X - dims.Width*origin[0],
		Y: pos.Y + parent.Internals.PositionAbsolute.Y - dims.Height*origin[1],
	}
}

// IsParentSelected reports whether any ancestor of n is selected. A parent
// chain that loops back on itself stops the walk.
func IsParentSelected(n *Node, lookup *NodeLookup) bool {
	seen := map[string]struct{}{n.ID: {}}
	for id := n.ParentID; id != ""; {
		if _, loop := seen[id]; loop {
			return false
		}
		seen[id] = struct{}{}
		parent, ok := lookup.Get(id)
		if !ok {
			return false
		}
		if parent.IsSelected() {
			return true
		}
		id = parent.ParentID
	}
	return false
}

// ClampPositionToParent keeps a child box inside its parent's box.
func ClampPositionToParent(pos geometry.XYPosition, dims geometry.Dimensions, parent *InternalNode) geometry.XYPosition {
	return geometry.ClampPosition(pos, geometry.ExtentFromRect(parent.Rect()), dims)
}

// CalculateNodePosition resolves where a node dragged to nextPosition
// (absolute, top-left) ends up, given its extent rules. It returns the
// parent-relative, origin-adjusted position and the absolute position.
func CalculateNodePosition(
	id string,
	nextPosition geometry.XYPosition,
	lookup *NodeLookup,
	nodeOrigin geometry.NodeOrigin,
	nodeExtent geometry.CoordinateExtent,
	onError ErrorHandler,
) (position, positionAbsolute geometry.XYPosition) {
	n, ok := lookup.Get(id)
	if !ok {
		onError.report(ErrNodeNotFound, id)
		return nextPosition, nextPosition
	}
	var parent *InternalNode
	var parentPos geometry.XYPosition
	if n.ParentID != "" {
		if p, ok := lookup.Get(n.ParentID); ok {
			parent = p
			parentPos = p.Internals.PositionAbsolute
		}
	}
	origin := n.originOr(nodeOrigin)

	extent, bounded := nodeExtent, true
	if own, ok := n.Extent.Coordinates(); ok {
		extent = own
	} else if n.Extent.IsParent() {
		bounded = false
	}

	switch {
	case n.Extent.IsParent() && !n.ExpandParent:
		if parent == nil {
			onError.report(ErrParentExtentWithoutParent)
		} else if parent.Measured != nil && parent.Measured.Width != 0 && parent.Measured.Height != 0 {
			extent = geometry.CoordinateExtent{
				{parentPos.X, parentPos.Y},
				{parentPos.X + parent.Measured.Width, parentPos.Y + parent.Measured.Height},
			}
			bounded = true
		}
	case parent != nil:
		if own, ok := n.Extent.Coordinates(); ok {
			extent = own.Shift(parentPos.X, parentPos.Y)
		}
	}

	var measured geometry.Dimensions
	if n.Measured != nil {
		measured = *n.Measured
	} else {
		onError.report(ErrNodeNotInitialized)
	}

	positionAbsolute = nextPosition
	if bounded {
		positionAbsolute = geometry.ClampPosition(nextPosition, extent, measured)
	}
	position = geometry.XYPosition{
		X: positionAbsolute.X - parentPos.X + measured.Width*origin[0],
		Y: positionAbsolute.Y - parentPos.Y + measured.Height*origin[1],
	}
	return position, positionAbsolute
}
