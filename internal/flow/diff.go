package flow

// NodesDiffChanges returns the changes that turn the nodes stored in lookup
// into items. Identity is by pointer: a node that is value-equal but not the
// same *Node yields a replace. Adds carry their index in items; removals
// follow in lookup order.
func NodesDiffChanges(items []*Node, lookup *NodeLookup) []NodeChange {
	return diffChanges(items, lookup, func(n *InternalNode) *Node {
		return n.Internals.UserNode
	}, NodeReplaceChange, NodeAddChange, NodeRemoveChange)
}

// EdgesDiffChanges is NodesDiffChanges for edges.
func EdgesDiffChanges(items []*Edge, lookup *EdgeLookup) []EdgeChange {
	return diffChanges(items, lookup, func(e *Edge) *Edge { return e },
		EdgeReplaceChange, EdgeAddChange, EdgeRemoveChange)
}

func diffChanges[T any, P element[T], S any, C any](
	items []P,
	lookup *Lookup[S],
	stored func(S) P,
	replace func(P) C,
	add func(P, *int) C,
	remove func(string) C,
) []C {
	var changes []C
	next := make(map[string]struct{}, len(items))
	for i, item := range items {
		id := item.ElementID()
		next[id] = struct{}{}
		s, ok := lookup.Get(id)
		if !ok {
			changes = append(changes, add(item, &i))
			continue
		}
		if stored(s) != item {
			changes = append(changes, replace(item))
		}
	}
	for id := range lookup.All() {
		if _, ok := next[id]; !ok {
			changes = append(changes, remove(id))
		}
	}
	return changes
}

// selectionChanges reports whether an element with the given selected state
// needs a select change to reach willBeSelected. Elements that were never
// selected and stay unselected produce none.
func selectionChanges(selected *bool, willBeSelected bool) bool {
	if selected == nil {
		return willBeSelected
	}
	return *selected != willBeSelected
}

// NodeSelectionChanges returns select changes that make exactly the ids in
// selected selected. With mutate set, the stored nodes are updated in place
// so that later reads in the same gesture see the new state.
func NodeSelectionChanges(lookup *NodeLookup, selected map[string]struct{}, mutate bool) []NodeChange {
	var changes []NodeChange
	for id, n := range lookup.All() {
		_, will := selected[id]
		if !selectionChanges(n.Selected, will) {
			continue
		}
		if mutate {
			n.Selected = Bool(will)
		}
		changes = append(changes, NodeSelectChange(id, will))
	}
	return changes
}

// EdgeSelectionChanges is NodeSelectionChanges for edges.
func EdgeSelectionChanges(lookup *EdgeLookup, selected map[string]struct{}, mutate bool) []EdgeChange {
	var changes []EdgeChange
	for id, e := range lookup.All() {
		_, will := selected[id]
		if !selectionChanges(e.Selected, will) {
			continue
		}
		if mutate {
			e.Selected = Bool(will)
		}
		changes = append(changes, EdgeSelectChange(id, will))
	}
	return changes
}

// IDSet builds a set from ids.
func IDSet(ids ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
