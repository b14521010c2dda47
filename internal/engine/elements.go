package engine

import (
	"maps"
	"slices"

	"github.com/tiger-colonel/xyflow-study/internal/batch"
	"github.com/tiger-colonel/xyflow-study/internal/flow"
	"github.com/tiger-colonel/xyflow-study/internal/typeid"
)

// AddNodes queues nodes to be appended. Nodes without an id get a
// generated one; the caller's values are not modified.
func (s *Store) AddNodes(nodes ...*flow.Node) {
	added := make([]*flow.Node, 0, len(nodes))
	for _, n := range nodes {
		if n.ID == "" {
			cp := *n
			cp.ID = typeid.NewNodeID()
			n = &cp
		}
		added = append(added, n)
	}
	s.QueueNodes(batch.Apply(func(cur []*flow.Node) []*flow.Node {
		return append(slices.Clip(cur), added...)
	}))
}

// AddEdges queues edges to be appended. Edges without an id get a
// generated one.
func (s *Store) AddEdges(edges ...*flow.Edge) {
	added := make([]*flow.Edge, 0, len(edges))
	for _, e := range edges {
		if e.ID == "" {
			cp := *e
			cp.ID = typeid.NewEdgeID()
			e = &cp
		}
		added = append(added, e)
	}
	s.QueueEdges(batch.Apply(func(cur []*flow.Edge) []*flow.Edge {
		return append(slices.Clip(cur), added...)
	}))
}

// Connect queues an edge for conn unless an edge between the same handles
// exists. The id is derived from the endpoints.
func (s *Store) Connect(conn flow.Connection) {
	params := &flow.Edge{
		Source:       conn.Source,
		Target:       conn.Target,
		SourceHandle: conn.SourceHandle,
		TargetHandle: conn.TargetHandle,
	}
	s.QueueEdges(batch.Apply(func(cur []*flow.Edge) []*flow.Edge {
		next, err := flow.AddEdge(params, cur, nil)
		if err != nil {
			s.reportErr(err)
		}
		return next
	}))
}

// ReconnectEdge queues moving edge id onto the endpoints of conn.
func (s *Store) ReconnectEdge(id string, conn flow.Connection, replaceID bool) {
	s.QueueEdges(batch.Apply(func(cur []*flow.Edge) []*flow.Edge {
		old := &flow.Edge{ID: id}
		if i := slices.IndexFunc(cur, func(e *flow.Edge) bool { return e.ID == id }); i >= 0 {
			old = cur[i]
		}
		next, err := flow.ReconnectEdge(old, conn, cur, replaceID, nil)
		if err != nil {
			s.reportErr(err)
		}
		return next
	}))
}

// UpdateNode queues replacing node id with fn applied to a copy of it.
func (s *Store) UpdateNode(id string, fn func(flow.Node) flow.Node) {
	s.QueueNodes(batch.Apply(func(cur []*flow.Node) []*flow.Node {
		i := slices.IndexFunc(cur, func(n *flow.Node) bool { return n.ID == id })
		if i < 0 {
			s.ReportError(flow.NewError(flow.ErrNodeNotFound, id))
			return cur
		}
		next := slices.Clone(cur)
		updated := fn(*cur[i])
		next[i] = &updated
		return next
	}))
}

// UpdateNodeData merges data into the node's data, or replaces it.
func (s *Store) UpdateNodeData(id string, data map[string]any, replace bool) {
	s.UpdateNode(id, func(n flow.Node) flow.Node {
		n.Data = mergeData(n.Data, data, replace)
		return n
	})
}

// UpdateEdge queues replacing edge id with fn applied to a copy of it.
func (s *Store) UpdateEdge(id string, fn func(flow.Edge) flow.Edge) {
	s.QueueEdges(batch.Apply(func(cur []*flow.Edge) []*flow.Edge {
		i := slices.IndexFunc(cur, func(e *flow.Edge) bool { return e.ID == id })
		if i < 0 {
			return cur
		}
		next := slices.Clone(cur)
		updated := fn(*cur[i])
		next[i] = &updated
		return next
	}))
}

// UpdateEdgeData merges data into the edge's data, or replaces it.
func (s *Store) UpdateEdgeData(id string, data map[string]any, replace bool) {
	s.UpdateEdge(id, func(e flow.Edge) flow.Edge {
		e.Data = mergeData(e.Data, data, replace)
		return e
	})
}

func mergeData(cur, data map[string]any, replace bool) map[string]any {
	if replace {
		return data
	}
	merged := maps.Clone(cur)
	if merged == nil {
		merged = make(map[string]any, len(data))
	}
	maps.Copy(merged, data)
	return merged
}

// DeleteElements removes the given nodes and edges, together with the
// children of removed nodes and every edge connected to a removed node.
// OnBeforeDelete may narrow or cancel the removal. Edge removals are
// reported before node removals.
func (s *Store) DeleteElements(nodeIDs, edgeIDs []string) flow.Removal {
	nodes := make([]*flow.Node, len(nodeIDs))
	for i, id := range nodeIDs {
		nodes[i] = &flow.Node{ID: id}
	}
	edges := make([]*flow.Edge, len(edgeIDs))
	for i, id := range edgeIDs {
		edges[i] = &flow.Edge{ID: id}
	}
	removal := flow.ElementsToRemove(nodes, edges, s.nodes, s.edges, s.callbacks.OnBeforeDelete)
	if len(removal.Nodes) == 0 && len(removal.Edges) == 0 {
		return removal
	}

	if len(removal.Edges) > 0 {
		changes := make([]flow.EdgeChange, len(removal.Edges))
		for i, e := range removal.Edges {
			changes[i] = flow.EdgeRemoveChange(e.ID)
		}
		s.TriggerEdgeChanges(changes)
	}
	if len(removal.Nodes) > 0 {
		changes := make([]flow.NodeChange, len(removal.Nodes))
		for i, n := range removal.Nodes {
			changes[i] = flow.NodeRemoveChange(n.ID)
		}
		s.TriggerNodeChanges(changes)
	}
	if s.callbacks.OnDelete != nil {
		s.callbacks.OnDelete(removal)
	}
	return removal
}
