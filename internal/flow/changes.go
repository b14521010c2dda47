package flow

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/tiger-colonel/xyflow-study/internal/geometry"
)

// ChangeType identifies the kind of a change record.
type ChangeType string

const (
	ChangeAdd        ChangeType = "add"
	ChangeRemove     ChangeType = "remove"
	ChangeReplace    ChangeType = "replace"
	ChangeSelect     ChangeType = "select"
	ChangePosition   ChangeType = "position"
	ChangeDimensions ChangeType = "dimensions"
)

// SetAttributes tells a dimensions change which top-level size fields to
// write besides the measured size.
type SetAttributes int

const (
	SetNoAttributes SetAttributes = iota
	SetWidthAndHeight
	SetWidth
	SetHeight
)

func (s SetAttributes) width() bool  { return s == SetWidthAndHeight || s == SetWidth }
func (s SetAttributes) height() bool { return s == SetWidthAndHeight || s == SetHeight }

func (s SetAttributes) MarshalJSON() ([]byte, error) {
	switch s {
	case SetWidthAndHeight:
		return []byte("true"), nil
	case SetWidth:
		return []byte(`"width"`), nil
	case SetHeight:
		return []byte(`"height"`), nil
	}
	return []byte("false"), nil
}

func (s *SetAttributes) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v {
	case true:
		*s = SetWidthAndHeight
	case false, nil:
		*s = SetNoAttributes
	case "width":
		*s = SetWidth
	case "height":
		*s = SetHeight
	default:
		return fmt.Errorf("invalid setAttributes %s", data)
	}
	return nil
}

// NodeChange describes one modification of a node list. Which fields are
// meaningful depends on Type.
type NodeChange struct {
	Type  ChangeType `json:"type"`
	ID    string     `json:"id,omitempty"`
	Item  *Node      `json:"item,omitempty"`
	Index *int       `json:"index,omitempty"`

	// select
	Selected bool `json:"selected"`

	// position
	Position         *geometry.XYPosition `json:"position,omitempty"`
	PositionAbsolute *geometry.XYPosition `json:"positionAbsolute,omitempty"`
	Dragging         *bool                `json:"dragging,omitempty"`

	// dimensions
	Dimensions    *geometry.Dimensions `json:"dimensions,omitempty"`
	Resizing      *bool                `json:"resizing,omitempty"`
	SetAttributes SetAttributes        `json:"setAttributes,omitzero"`
}

func (c NodeChange) changeType() ChangeType { return c.Type }
func (c NodeChange) changeID() string {
	if c.Type == ChangeAdd && c.Item != nil {
		return c.Item.ID
	}
	return c.ID
}
func (c NodeChange) changeItem() *Node { return c.Item }
func (c NodeChange) changeIndex() *int { return c.Index }

// EdgeChange describes one modification of an edge list.
type EdgeChange struct {
	Type     ChangeType `json:"type"`
	ID       string     `json:"id,omitempty"`
	Item     *Edge      `json:"item,omitempty"`
	Index    *int       `json:"index,omitempty"`
	Selected bool       `json:"selected"`
}

func (c EdgeChange) changeType() ChangeType { return c.Type }
func (c EdgeChange) changeID() string {
	if c.Type == ChangeAdd && c.Item != nil {
		return c.Item.ID
	}
	return c.ID
}
func (c EdgeChange) changeItem() *Edge { return c.Item }
func (c EdgeChange) changeIndex() *int { return c.Index }

// PositionChange moves node id. A nil dragging leaves the flag untouched.
func PositionChange(id string, pos geometry.XYPosition, dragging *bool) NodeChange {
	return NodeChange{Type: ChangePosition, ID: id, Position: &pos, Dragging: dragging}
}

// NodeSelectChange sets the selection of node id.
func NodeSelectChange(id string, selected bool) NodeChange {
	return NodeChange{Type: ChangeSelect, ID: id, Selected: selected}
}

// NodeRemoveChange removes node id.
func NodeRemoveChange(id string) NodeChange {
	return NodeChange{Type: ChangeRemove, ID: id}
}

// NodeAddChange inserts item at index, or appends it when index is nil.
func NodeAddChange(item *Node, index *int) NodeChange {
	return NodeChange{Type: ChangeAdd, Item: item, Index: index}
}

// NodeReplaceChange swaps the node with item.
func NodeReplaceChange(item *Node) NodeChange {
	return NodeChange{Type: ChangeReplace, ID: item.ID, Item: item}
}

// EdgeSelectChange sets the selection of edge id.
func EdgeSelectChange(id string, selected bool) EdgeChange {
	return EdgeChange{Type: ChangeSelect, ID: id, Selected: selected}
}

// EdgeRemoveChange removes edge id.
func EdgeRemoveChange(id string) EdgeChange {
	return EdgeChange{Type: ChangeRemove, ID: id}
}

// EdgeAddChange inserts item at index, or appends it when index is nil.
func EdgeAddChange(item *Edge, index *int) EdgeChange {
	return EdgeChange{Type: ChangeAdd, Item: item, Index: index}
}

// EdgeReplaceChange swaps the edge with item.
func EdgeReplaceChange(item *Edge) EdgeChange {
	return EdgeChange{Type: ChangeReplace, ID: item.ID, Item: item}
}

type change[P any] interface {
	changeType() ChangeType
	changeID() string
	changeItem() P
	changeIndex() *int
}

type element[T any] interface {
	*T
	ElementID() string
}

func cloneElement[T any, P element[T]](p P) P {
	cp := new(T)
	*cp = *p
	return P(cp)
}

// applyChanges builds the next element slice. Untouched elements keep their
// pointer, removed ones are dropped, replaced ones become a copy of the
// replacement and all other changes for an element mutate one shared copy in
// order. Adds are inserted last, at their index when given.
func applyChanges[T any, P element[T], C change[P]](changes []C, elements []P, mutate func(P, C)) []P {
	var adds []C
	byID := make(map[string][]C)
	for _, c := range changes {
		switch c.changeType() {
		case ChangeAdd:
			adds = append(adds, c)
		case ChangeRemove, ChangeReplace:
			byID[c.changeID()] = []C{c}
		default:
			byID[c.changeID()] = append(byID[c.changeID()], c)
		}
	}

	out := make([]P, 0, len(elements)+len(adds))
	for _, el := range elements {
		queued, ok := byID[el.ElementID()]
		if !ok {
			out = append(out, el)
			continue
		}
		switch queued[0].changeType() {
		case ChangeRemove:
			continue
		case ChangeReplace:
			out = append(out, cloneElement[T, P](queued[0].changeItem()))
			continue
		}
		updated := cloneElement[T, P](el)
		for _, c := range queued {
			mutate(updated, c)
		}
		out = append(out, updated)
	}

	for _, c := range adds {
		item := cloneElement[T, P](c.changeItem())
		idx := c.changeIndex()
		if idx == nil {
			out = append(out, item)
			continue
		}
		// Indexes follow splice: negative ones count from the end.
		i := *idx
		if i < 0 {
			i = max(len(out)+i, 0)
		}
		out = slices.Insert(out, min(i, len(out)), item)
	}
	return out
}

// ApplyNodeChanges applies changes to nodes and returns the new slice.
func ApplyNodeChanges(changes []NodeChange, nodes []*Node) []*Node {
	return applyChanges(changes, nodes, applyNodeChange)
}

// ApplyEdgeChanges applies changes to edges and returns the new slice.
func ApplyEdgeChanges(changes []EdgeChange, edges []*Edge) []*Edge {
	return applyChanges(changes, edges, func(e *Edge, c EdgeChange) {
		if c.Type == ChangeSelect {
			e.Selected = Bool(c.Selected)
		}
	})
}

func applyNodeChange(n *Node, c NodeChange) {
	switch c.Type {
	case ChangeSelect:
		n.Selected = Bool(c.Selected)
	case ChangePosition:
		if c.Position != nil {
			n.Position = *c.Position
		}
		if c.Dragging != nil {
			n.Dragging = *c.Dragging
		}
	case ChangeDimensions:
		if c.Dimensions != nil {
			n.Measured = &geometry.Dimensions{Width: c.Dimensions.Width, Height: c.Dimensions.Height}
			if c.SetAttributes.width() {
				n.Width = Float(c.Dimensions.Width)
			}
			if c.SetAttributes.height() {
				n.Height = Float(c.Dimensions.Height)
			}
		}
		if c.Resizing != nil {
			n.Resizing = *c.Resizing
		}
	}
}
