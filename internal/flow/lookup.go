package flow

import (
	"iter"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Lookup is an insertion-ordered map keyed by element id. Overwriting a key
// keeps its original position. The zero value is ready to use.
type Lookup[V any] struct {
	m *orderedmap.OrderedMap[string, V]
}

// NewLookup returns an empty lookup.
func NewLookup[V any]() *Lookup[V] {
	return &Lookup[V]{m: orderedmap.New[string, V]()}
}

func (l *Lookup[V]) init() {
	if l.m == nil {
		l.m = orderedmap.New[string, V]()
	}
}

func (l *Lookup[V]) Get(id string) (V, bool) {
	l.init()
	return l.m.Get(id)
}

// Value returns the entry for id or the zero value.
func (l *Lookup[V]) Value(id string) V {
	v, _ := l.Get(id)
	return v
}

func (l *Lookup[V]) Has(id string) bool {
	_, ok := l.Get(id)
	return ok
}

func (l *Lookup[V]) Set(id string, v V) {
	l.init()
	l.m.Set(id, v)
}

func (l *Lookup[V]) Delete(id string) {
	l.init()
	l.m.Delete(id)
}

func (l *Lookup[V]) Len() int {
	if l == nil || l.m == nil {
		return 0
	}
	return l.m.Len()
}

// Clear removes every entry.
func (l *Lookup[V]) Clear() {
	l.m = orderedmap.New[string, V]()
}

// Copy returns a lookup with the same entries in the same order.
func (l *Lookup[V]) Copy() *Lookup[V] {
	cp := NewLookup[V]()
	for id, v := range l.All() {
		cp.Set(id, v)
	}
	return cp
}

// All iterates entries in insertion order. Values may be replaced with Set
// while iterating; adding or deleting keys is not supported.
func (l *Lookup[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		if l == nil || l.m == nil {
			return
		}
		for pair := l.m.Oldest(); pair != nil; pair = pair.Next() {
			if !yield(pair.Key, pair.Value) {
				return
			}
		}
	}
}

// Values returns the values in insertion order.
func (l *Lookup[V]) Values() []V {
	out := make([]V, 0, l.Len())
	for _, v := range l.All() {
		out = append(out, v)
	}
	return out
}

// Keys returns the ids in insertion order.
func (l *Lookup[V]) Keys() []string {
	out := make([]string, 0, l.Len())
	for id := range l.All() {
		out = append(out, id)
	}
	return out
}

// NodeLookup maps node id to its internal node.
type NodeLookup = Lookup[*InternalNode]

// ParentLookup maps parent id to its direct children.
type ParentLookup = Lookup[*NodeLookup]

// EdgeLookup maps edge id to edge.
type EdgeLookup = Lookup[*Edge]

// NewNodeLookup returns an empty node lookup.
func NewNodeLookup() *NodeLookup { return NewLookup[*InternalNode]() }

// NewParentLookup returns an empty parent lookup.
func NewParentLookup() *ParentLookup { return NewLookup[*NodeLookup]() }

// NewEdgeLookup returns an empty edge lookup.
func NewEdgeLookup() *EdgeLookup { return NewLookup[*Edge]() }

// UserNodes returns the user node behind every internal node, in order.
func UserNodes(lookup *NodeLookup) []*Node {
	out := make([]*Node, 0, lookup.Len())
	for _, n := range lookup.All() {
		out = append(out, n.Internals.UserNode)
	}
	return out
}
