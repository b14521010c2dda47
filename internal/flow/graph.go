package flow

import "fmt"

// ConnectedEdges returns the edges with at least one endpoint in nodes.
func ConnectedEdges(nodes []*Node, edges []*Edge) []*Edge {
	ids := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		ids[n.ID] = struct{}{}
	}
	var out []*Edge
	for _, e := range edges {
		_, src := ids[e.Source]
		_, tgt := ids[e.Target]
		if src || tgt {
			out = append(out, e)
		}
	}
	return out
}

// Incomers returns the nodes with an edge pointing at node.
func Incomers(node *Node, nodes []*Node, edges []*Edge) []*Node {
	ids := make(map[string]struct{})
	for _, e := range edges {
		if e.Target == node.ID {
			ids[e.Source] = struct{}{}
		}
	}
	return filterNodes(nodes, ids)
}

// Outgoers returns the nodes node has an edge pointing at.
func Outgoers(node *Node, nodes []*Node, edges []*Edge) []*Node {
	ids := make(map[string]struct{})
	for _, e := range edges {
		if e.Source == node.ID {
			ids[e.Target] = struct{}{}
		}
	}
	return filterNodes(nodes, ids)
}

func filterNodes(nodes []*Node, ids map[string]struct{}) []*Node {
	var out []*Node
	for _, n := range nodes {
		if _, ok := ids[n.ID]; ok {
			out = append(out, n)
		}
	}
	return out
}

// Removal is a set of nodes and edges about to be deleted.
type Removal struct {
	Nodes []*Node
	Edges []*Edge
}

// BeforeDeleteFunc can veto (ok false) or narrow a removal.
type BeforeDeleteFunc func(Removal) (Removal, bool)

// ElementsToRemove expands a removal request: children of removed nodes go
// with them, as do edges connected to any removed node. Elements marked
// non-deletable are kept. Nodes are visited in list order, so a child is
// only cascaded when its parent comes first.
func ElementsToRemove(nodesToRemove []*Node, edgesToRemove []*Edge, nodes []*Node, edges []*Edge, beforeDelete BeforeDeleteFunc) Removal {
	requested := make(map[string]struct{}, len(nodesToRemove))
	for _, n := range nodesToRemove {
		requested[n.ID] = struct{}{}
	}

	var matchingNodes []*Node
	matched := make(map[string]struct{})
	for _, n := range nodes {
		if n.Deletable != nil && !*n.Deletable {
			continue
		}
		_, included := requested[n.ID]
		_, parentHit := matched[n.ParentID]
		if included || (n.ParentID != "" && parentHit) {
			matchingNodes = append(matchingNodes, n)
			matched[n.ID] = struct{}{}
		}
	}

	var deletable []*Edge
	for _, e := range edges {
		if e.Deletable == nil || *e.Deletable {
			deletable = append(deletable, e)
		}
	}
	matchingEdges := ConnectedEdges(matchingNodes, deletable)
	seen := make(map[string]struct{}, len(matchingEdges))
	for _, e := range matchingEdges {
		seen[e.ID] = struct{}{}
	}
	requestedEdges := make(map[string]struct{}, len(edgesToRemove))
	for _, e := range edgesToRemove {
		requestedEdges[e.ID] = struct{}{}
	}
	for _, e := range deletable {
		_, asked := requestedEdges[e.ID]
		_, dup := seen[e.ID]
		if asked && !dup {
			matchingEdges = append(matchingEdges, e)
			seen[e.ID] = struct{}{}
		}
	}

	removal := Removal{Nodes: matchingNodes, Edges: matchingEdges}
	if beforeDelete == nil {
		return removal
	}
	narrowed, ok := beforeDelete(removal)
	if !ok {
		return Removal{}
	}
	return narrowed
}

// EdgeIDFunc derives an id for a new edge.
type EdgeIDFunc func(*Edge) string

// DefaultEdgeID is "xy-edge__<source><sourceHandle>-<target><targetHandle>".
func DefaultEdgeID(e *Edge) string {
	return fmt.Sprintf("xy-edge__%s%s-%s%s", e.Source, e.SourceHandle, e.Target, e.TargetHandle)
}

func connectionExists(e *Edge, edges []*Edge) bool {
	for _, el := range edges {
		if el.Source == e.Source && el.Target == e.Target &&
			el.SourceHandle == e.SourceHandle && el.TargetHandle == e.TargetHandle {
			return true
		}
	}
	return false
}

// AddEdge appends a copy of params to edges unless an edge between the same
// handles already exists. A missing id is derived with idFunc, or
// DefaultEdgeID when nil.
func AddEdge(params *Edge, edges []*Edge, idFunc EdgeIDFunc) ([]*Edge, error) {
	if params.Source == "" || params.Target == "" {
		return edges, NewError(ErrEdgeEndpointMissing)
	}
	e := *params
	if e.ID == "" {
		if idFunc == nil {
			idFunc = DefaultEdgeID
		}
		e.ID = idFunc(&e)
	}
	if connectionExists(&e, edges) {
		return edges, nil
	}
	return append(edges[:len(edges):len(edges)], &e), nil
}

// ReconnectEdge moves oldEdge onto the endpoints of conn. With replaceID the
// edge gets a new id derived like AddEdge does; otherwise it keeps its id.
func ReconnectEdge(oldEdge *Edge, conn Connection, edges []*Edge, replaceID bool, idFunc EdgeIDFunc) ([]*Edge, error) {
	if conn.Source == "" || conn.Target == "" {
		return edges, NewError(ErrEdgeEndpointMissing)
	}
	found := false
	for _, e := range edges {
		if e.ID == oldEdge.ID {
			found = true
			break
		}
	}
	if !found {
		return edges, NewError(ErrEdgeNotFound, oldEdge.ID)
	}

	e := *oldEdge
	e.Source, e.Target = conn.Source, conn.Target
	e.SourceHandle, e.TargetHandle = conn.SourceHandle, conn.TargetHandle
	if replaceID {
		if idFunc == nil {
			idFunc = DefaultEdgeID
		}
		e.ID = idFunc(&e)
	}

	out := make([]*Edge, 0, len(edges))
	for _, el := range edges {
		if el.ID != oldEdge.ID {
			out = append(out, el)
		}
	}
	return append(out, &e), nil
}
