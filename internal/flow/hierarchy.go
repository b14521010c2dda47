package flow

import (
	"errors"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// ErrParentCycle is returned when nodes form a parent loop.
var ErrParentCycle = errors.New("parent cycle")

// SortByHierarchy returns nodes reordered so every parent precedes its
// children, keeping the input order wherever the hierarchy allows it.
// Children of unknown parents keep their relative place.
func SortByHierarchy(nodes []*Node) ([]*Node, error) {
	index := make(map[string]int64, len(nodes))
	g := simple.NewDirectedGraph()
	for i, n := range nodes {
		if _, dup := index[n.ID]; dup {
			return nil, fmt.Errorf("duplicate node id %q", n.ID)
		}
		index[n.ID] = int64(i)
		g.AddNode(simple.Node(i))
	}
	for i, n := range nodes {
		if n.ParentID == "" {
			continue
		}
		if n.ParentID == n.ID {
			return nil, fmt.Errorf("node %q: %w", n.ID, ErrParentCycle)
		}
		parent, ok := index[n.ParentID]
		if !ok {
			continue
		}
		g.SetEdge(g.NewEdge(simple.Node(parent), simple.Node(i)))
	}

	order := func(ns []graph.Node) {
		slices.SortFunc(ns, func(a, b graph.Node) int {
			return int(a.ID() - b.ID())
		})
	}
	sorted, err := topo.SortStabilized(g, order)
	if err != nil {
		var cycles topo.Unorderable
		if errors.As(err, &cycles) && len(cycles) > 0 {
			ids := make([]string, 0, len(cycles[0]))
			for _, n := range cycles[0] {
				ids = append(ids, nodes[n.ID()].ID)
			}
			return nil, fmt.Errorf("nodes %v: %w", ids, ErrParentCycle)
		}
		return nil, fmt.Errorf("sort nodes: %w", err)
	}

	out := make([]*Node, 0, len(sorted))
	for _, n := range sorted {
		out = append(out, nodes[n.ID()])
	}
	return out, nil
}
