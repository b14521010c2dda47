package flow

import (
	"log/slog"

	"github.com/tiger-colonel/xyflow-study/internal/geometry"
)

// AdoptOptions configures how user nodes become internal nodes.
type AdoptOptions struct {
	NodeOrigin geometry.NodeOrigin
	// NodeExtent bounds every node without a concrete extent of its own.
	NodeExtent           geometry.CoordinateExtent
	ElevateNodesOnSelect bool
	// CheckEquality reuses the stored internal node when the user node
	// pointer did not change.
	CheckEquality bool
}

// DefaultAdoptOptions returns unbounded, top-left-origin options with
// elevation and equality checks enabled.
func DefaultAdoptOptions() AdoptOptions {
	return AdoptOptions{
		NodeExtent:           geometry.InfiniteExtent,
		ElevateNodesOnSelect: true,
		CheckEquality:        true,
	}
}

// extent returns NodeExtent, treating the zero extent as unbounded.
func (o AdoptOptions) extent() geometry.CoordinateExtent {
	if o.NodeExtent == (geometry.CoordinateExtent{}) {
		return geometry.InfiniteExtent
	}
	return o.NodeExtent
}

func (o AdoptOptions) selectedZ() int {
	if o.ElevateNodesOnSelect {
		return SelectedNodeZ
	}
	return 0
}

// AdoptUserNodes rebuilds nodeLookup and parentLookup from nodes, in order.
// Parents must precede their children; a child whose parent is not yet in
// the lookup keeps its unparented placement and a warning is logged. It
// reports whether every visible node has been measured.
func AdoptUserNodes(nodes []*Node, nodeLookup *NodeLookup, parentLookup *ParentLookup, opts AdoptOptions) bool {
	initialized := len(nodes) > 0
	previous := nodeLookup.Copy()
	selectedZ := opts.selectedZ()

	nodeLookup.Clear()
	parentLookup.Clear()

	for _, user := range nodes {
		internal, ok := previous.Get(user.ID)
		if !opts.CheckEquality || !ok || internal.Internals.UserNode != user {
			internal = newInternalNode(user, internal, opts, selectedZ)
		}
		nodeLookup.Set(user.ID, internal)

		if internal.Measured == nil && !internal.Hidden {
			initialized = false
		}
		if user.ParentID != "" {
			updateChildNode(internal, nodeLookup, parentLookup, opts)
		}
	}
	return initialized
}

func newInternalNode(user *Node, prev *InternalNode, opts AdoptOptions, selectedZ int) *InternalNode {
	dims := user.Dimensions()
	extent := opts.extent()
	if own, ok := user.Extent.Coordinates(); ok {
		extent = own
	}
	internal := &InternalNode{Node: *user}
	if user.Measured != nil {
		m := *user.Measured
		internal.Measured = &m
		// Handle bounds survive only while the node stays measured.
		if prev != nil {
			internal.Internals.HandleBounds = prev.Internals.HandleBounds
		}
	}
	internal.Internals.PositionAbsolute = geometry.ClampPosition(user.PositionWithOrigin(opts.NodeOrigin), extent, dims)
	internal.Internals.Z = user.z(selectedZ)
	internal.Internals.UserNode = user
	return internal
}

// UpdateAbsolutePositions re-derives the absolute position of every node in
// lookup order, e.g. after the default origin or extent changed.
func UpdateAbsolutePositions(nodeLookup *NodeLookup, parentLookup *ParentLookup, opts AdoptOptions) {
	for id, n := range nodeLookup.All() {
		if n.ParentID != "" {
			updateChildNode(n, nodeLookup, parentLookup, opts)
			continue
		}
		extent := opts.extent()
		if own, ok := n.Extent.Coordinates(); ok {
			extent = own
		}
		pos := geometry.ClampPosition(n.PositionWithOrigin(opts.NodeOrigin), extent, n.Dimensions())
		if pos != n.Internals.PositionAbsolute {
			cp := n.clone()
			cp.Internals.PositionAbsolute = pos
			nodeLookup.Set(id, cp)
		}
	}
}

// updateChildNode places a child relative to its parent and records it in
// parentLookup. The lookup entry is only replaced when position or z moved.
func updateChildNode(n *InternalNode, nodeLookup *NodeLookup, parentLookup *ParentLookup, opts AdoptOptions) {
	parent, ok := nodeLookup.Get(n.ParentID)
	if !ok {
		slog.Warn("parent node not found, parents must come before their children",
			"parent", n.ParentID, "node", n.ID)
		return
	}

	pos, z := calculateChildXYZ(n, parent, opts)
	if pos != n.Internals.PositionAbsolute || z != n.Internals.Z {
		n = n.clone()
		n.Internals.PositionAbsolute = pos
		n.Internals.Z = z
		nodeLookup.Set(n.ID, n)
	}

	children, ok := parentLookup.Get(n.ParentID)
	if !ok {
		children = NewNodeLookup()
		parentLookup.Set(n.ParentID, children)
	}
	children.Set(n.ID, n)
}

func calculateChildXYZ(child, parent *InternalNode, opts AdoptOptions) (geometry.XYPosition, int) {
	dims := child.Dimensions()
	pos := child.PositionWithOrigin(opts.NodeOrigin)
	if own, ok := child.Extent.Coordinates(); ok {
		pos = geometry.ClampPosition(pos, own, dims)
	}

	abs := geometry.ClampPosition(geometry.XYPosition{
		X: parent.Internals.PositionAbsolute.X + pos.X,
		Y: parent.Internals.PositionAbsolute.Y + pos.Y,
	}, opts.extent(), dims)
	if child.Extent.IsParent() {
		abs = ClampPositionToParent(abs, dims, parent)
	}

	return abs, max(parent.Internals.Z, child.z(opts.selectedZ()))
}
