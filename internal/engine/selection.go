package engine

import (
	"github.com/tiger-colonel/xyflow-study/internal/flow"
	"github.com/tiger-colonel/xyflow-study/internal/geometry"
)

// SetMultiSelectionActive toggles additive selection, usually bound to a
// modifier key.
func (s *Store) SetMultiSelectionActive(active bool) { s.multiSelectionActive = active }

// MultiSelectionActive reports whether additive selection is on.
func (s *Store) MultiSelectionActive() bool { return s.multiSelectionActive }

// AddSelectedNodes selects ids. Unless multi-selection is active every
// other node and every edge is unselected.
func (s *Store) AddSelectedNodes(ids ...string) {
	if s.multiSelectionActive {
		changes := make([]flow.NodeChange, 0, len(ids))
		for _, id := range ids {
			changes = append(changes, flow.NodeSelectChange(id, true))
		}
		s.TriggerNodeChanges(changes)
		return
	}
	s.TriggerNodeChanges(flow.NodeSelectionChanges(s.nodeLookup, flow.IDSet(ids...), true))
	s.TriggerEdgeChanges(flow.EdgeSelectionChanges(s.edgeLookup, flow.IDSet(), false))
}

// AddSelectedEdges is AddSelectedNodes for edges.
func (s *Store) AddSelectedEdges(ids ...string) {
	if s.multiSelectionActive {
		changes := make([]flow.EdgeChange, 0, len(ids))
		for _, id := range ids {
			changes = append(changes, flow.EdgeSelectChange(id, true))
		}
		s.TriggerEdgeChanges(changes)
		return
	}
	s.TriggerEdgeChanges(flow.EdgeSelectionChanges(s.edgeLookup, flow.IDSet(ids...), false))
	s.TriggerNodeChanges(flow.NodeSelectionChanges(s.nodeLookup, flow.IDSet(), true))
}

// UnselectNodesAndEdges unselects every node and edge.
func (s *Store) UnselectNodesAndEdges() {
	s.UnselectElements(s.nodeLookup.Keys(), s.edgeLookup.Keys())
}

// UnselectElements unselects the given nodes and edges.
func (s *Store) UnselectElements(nodeIDs, edgeIDs []string) {
	nodeChanges := make([]flow.NodeChange, 0, len(nodeIDs))
	for _, id := range nodeIDs {
		n, ok := s.nodeLookup.Get(id)
		if !ok {
			continue
		}
		n.Selected = flow.Bool(false)
		nodeChanges = append(nodeChanges, flow.NodeSelectChange(id, false))
	}
	edgeChanges := make([]flow.EdgeChange, 0, len(edgeIDs))
	for _, id := range edgeIDs {
		if !s.edgeLookup.Has(id) {
			continue
		}
		edgeChanges = append(edgeChanges, flow.EdgeSelectChange(id, false))
	}
	s.TriggerNodeChanges(nodeChanges)
	s.TriggerEdgeChanges(edgeChanges)
}

// ResetSelectedElements unselects whatever is selected.
func (s *Store) ResetSelectedElements() {
	var nodeChanges []flow.NodeChange
	for id, n := range s.nodeLookup.All() {
		if n.IsSelected() {
			nodeChanges = append(nodeChanges, flow.NodeSelectChange(id, false))
		}
	}
	var edgeChanges []flow.EdgeChange
	for id, e := range s.edgeLookup.All() {
		if e.IsSelected() {
			edgeChanges = append(edgeChanges, flow.EdgeSelectChange(id, false))
		}
	}
	s.TriggerNodeChanges(nodeChanges)
	s.TriggerEdgeChanges(edgeChanges)
}

// HandleNodeClick selects an unselected node. A selected node is unselected
// when unselect is set or multi-selection is active.
func (s *Store) HandleNodeClick(id string, unselect bool) {
	n, ok := s.nodeLookup.Get(id)
	if !ok {
		s.ReportError(flow.NewError(flow.ErrNodeNotFound, id))
		return
	}
	if !n.IsSelectable() {
		return
	}
	switch {
	case !n.IsSelected():
		s.AddSelectedNodes(id)
	case unselect || s.multiSelectionActive:
		s.UnselectElements([]string{id}, nil)
	}
}

// NodesInside returns the visible nodes within rect, given in screen space.
func (s *Store) NodesInside(rect geometry.Rect, partially bool) []*flow.InternalNode {
	return flow.NodesInside(s.nodeLookup, rect, s.Transform(), partially, false)
}

// SelectNodesInside is the selection box: it selects the selectable nodes
// within rect plus every edge touching them and unselects the rest.
func (s *Store) SelectNodesInside(rect geometry.Rect, partially bool) {
	nodes := flow.NodesInside(s.nodeLookup, rect, s.Transform(), partially, true)
	nodeIDs := make(map[string]struct{}, len(nodes))
	edgeIDs := make(map[string]struct{})
	for _, n := range nodes {
		nodeIDs[n.ID] = struct{}{}
		conns, ok := s.connectionLookup.Get(n.ID)
		if !ok {
			continue
		}
		for _, c := range conns.All() {
			if s.edgeLookup.Has(c.EdgeID) {
				edgeIDs[c.EdgeID] = struct{}{}
			}
		}
	}
	s.TriggerNodeChanges(flow.NodeSelectionChanges(s.nodeLookup, nodeIDs, true))
	s.TriggerEdgeChanges(flow.EdgeSelectionChanges(s.edgeLookup, edgeIDs, true))
}
