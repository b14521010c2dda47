// Package flow holds the node/edge data model of a flow canvas and the
// operations that keep its derived state consistent: adoption of user nodes
// into internal nodes, child placement, parent expansion, diffing and change
// application.
package flow

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tiger-colonel/xyflow-study/internal/geometry"
)

// SelectedNodeZ is the z elevation added to selected nodes when
// elevate-on-select is enabled.
const SelectedNodeZ = 1000

type extentKind int

const (
	extentNone extentKind = iota
	extentParent
	extentBounded
)

// Extent constrains where a node may be placed. The zero value is unbounded.
type Extent struct {
	kind   extentKind
	coords geometry.CoordinateExtent
}

// ParentExtent keeps a node inside its parent's box.
var ParentExtent = Extent{kind: extentParent}

// Bounded returns an extent limited to the given coordinates.
func Bounded(c geometry.CoordinateExtent) Extent {
	return Extent{kind: extentBounded, coords: c}
}

// IsZero reports whether the extent is unbounded.
func (e Extent) IsZero() bool { return e.kind == extentNone }

// IsParent reports whether the extent is the parent box.
func (e Extent) IsParent() bool { return e.kind == extentParent }

// Coordinates returns the concrete extent, if any.
func (e Extent) Coordinates() (geometry.CoordinateExtent, bool) {
	return e.coords, e.kind == extentBounded
}

func (e Extent) MarshalJSON() ([]byte, error) {
	switch e.kind {
	case extentParent:
		return []byte(`"parent"`), nil
	case extentBounded:
		return json.Marshal(e.coords)
	}
	return []byte("null"), nil
}

func (e *Extent) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*e = Extent{}
		return nil
	case bytes.Equal(data, []byte(`"parent"`)):
		*e = ParentExtent
		return nil
	}
	var c geometry.CoordinateExtent
	if err := json.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("invalid extent %s: %w", data, err)
	}
	*e = Bounded(c)
	return nil
}

// Node is a user-facing node. Pointer fields distinguish "unset" from the
// zero value, which several rules depend on (selection suppression, default
// draggability, unmeasured nodes).
type Node struct {
	ID            string               `json:"id"`
	Type          string               `json:"type,omitempty"`
	Position      geometry.XYPosition  `json:"position"`
	Data          map[string]any       `json:"data,omitempty"`
	Width         *float64             `json:"width,omitempty"`
	Height        *float64             `json:"height,omitempty"`
	InitialWidth  *float64             `json:"initialWidth,omitempty"`
	InitialHeight *float64             `json:"initialHeight,omitempty"`
	Measured      *geometry.Dimensions `json:"measured,omitempty"`
	ParentID      string               `json:"parentId,omitempty"`
	Origin        *geometry.NodeOrigin `json:"origin,omitempty"`
	Extent        Extent               `json:"extent,omitzero"`
	ExpandParent  bool                 `json:"expandParent,omitempty"`
	ZIndex        int                  `json:"zIndex,omitempty"`
	Selected      *bool                `json:"selected,omitempty"`
	Dragging      bool                 `json:"dragging,omitempty"`
	Resizing      bool                 `json:"resizing,omitempty"`
	Draggable     *bool                `json:"draggable,omitempty"`
	Selectable    *bool                `json:"selectable,omitempty"`
	Deletable     *bool                `json:"deletable,omitempty"`
	Hidden        bool                 `json:"hidden,omitempty"`
}

func (n *Node) ElementID() string { return n.ID }

// IsSelected reports whether the node is explicitly selected.
func (n *Node) IsSelected() bool { return n.Selected != nil && *n.Selected }

// IsSelectable reports whether the node can be selected; unset means yes.
func (n *Node) IsSelectable() bool { return n.Selectable == nil || *n.Selectable }

// Dimensions returns measured, then explicit, then initial size, else zero.
func (n *Node) Dimensions() geometry.Dimensions {
	return geometry.Dimensions{
		Width:  firstOf(measuredWidth(n.Measured), n.Width, n.InitialWidth),
		Height: firstOf(measuredHeight(n.Measured), n.Height, n.InitialHeight),
	}
}

// IsMeasured reports whether the renderer has reported a size for the node.
func (n *Node) IsMeasured() bool { return n.Measured != nil }

// originOr returns the node's own origin or the fallback.
func (n *Node) originOr(fallback geometry.NodeOrigin) geometry.NodeOrigin {
	if n.Origin != nil {
		return *n.Origin
	}
	return fallback
}

// PositionWithOrigin returns the top-left corner of the node box, i.e. the
// position shifted by origin x dimensions.
func (n *Node) PositionWithOrigin(nodeOrigin geometry.NodeOrigin) geometry.XYPosition {
	dims := n.Dimensions()
	origin := n.originOr(nodeOrigin)
	return geometry.XYPosition{
		X: n.Position.X - dims.Width*origin[0],
		Y: n.Position.Y - dims.Height*origin[1],
	}
}

func (n *Node) z(selectedZ int) int {
	if n.IsSelected() {
		return n.ZIndex + selectedZ
	}
	return n.ZIndex
}

// HandleType is the role of a connection point.
type HandleType string

const (
	HandleSource HandleType = "source"
	HandleTarget HandleType = "target"
)

// Position is a side of a node box.
type Position string

const (
	PositionLeft   Position = "left"
	PositionTop    Position = "top"
	PositionRight  Position = "right"
	PositionBottom Position = "bottom"
)

// Handle is the geometry of a connection point relative to its node, in
// canvas units.
type Handle struct {
	ID       string     `json:"id,omitempty"`
	NodeID   string     `json:"nodeId"`
	Type     HandleType `json:"type"`
	Position Position   `json:"position"`
	X        float64    `json:"x"`
	Y        float64    `json:"y"`
	Width    float64    `json:"width"`
	Height   float64    `json:"height"`
}

// HandleBounds groups a node's handles by role.
type HandleBounds struct {
	Source []Handle `json:"source"`
	Target []Handle `json:"target"`
}

// Internals is the state derived for a node by the engine.
type Internals struct {
	PositionAbsolute geometry.XYPosition `json:"positionAbsolute"`
	Z                int                 `json:"z"`
	HandleBounds     *HandleBounds       `json:"handleBounds,omitempty"`
	// UserNode is the node this entry was built from. Identity of this
	// pointer is what adoption and diffing compare.
	UserNode *Node `json:"-"`
}

// InternalNode is a user node plus derived internals. A new *InternalNode is
// stored whenever anything about it changes; an unchanged node keeps its
// pointer.
type InternalNode struct {
	Node
	Internals Internals `json:"internals"`
}

// Rect returns the node box in canvas space.
func (n *InternalNode) Rect() geometry.Rect {
	dims := n.Dimensions()
	return geometry.Rect{
		X:      n.Internals.PositionAbsolute.X,
		Y:      n.Internals.PositionAbsolute.Y,
		Width:  dims.Width,
		Height: dims.Height,
	}
}

// clone returns a shallow copy that can be modified and stored in place of n.
func (n *InternalNode) clone() *InternalNode {
	cp := new(InternalNode)
	*cp = *n
	return cp
}

// Edge connects two nodes.
type Edge struct {
	ID           string         `json:"id"`
	Type         string         `json:"type,omitempty"`
	Source       string         `json:"source"`
	Target       string         `json:"target"`
	SourceHandle string         `json:"sourceHandle,omitempty"`
	TargetHandle string         `json:"targetHandle,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
	Selected     *bool          `json:"selected,omitempty"`
	Deletable    *bool          `json:"deletable,omitempty"`
	Hidden       bool           `json:"hidden,omitempty"`
	Animated     bool           `json:"animated,omitempty"`
}

func (e *Edge) ElementID() string { return e.ID }

// IsSelected reports whether the edge is explicitly selected.
func (e *Edge) IsSelected() bool { return e.Selected != nil && *e.Selected }

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }

// Float returns a pointer to f.
func Float(f float64) *float64 { return &f }

func measuredWidth(d *geometry.Dimensions) *float64 {
	if d == nil {
		return nil
	}
	return &d.Width
}

func measuredHeight(d *geometry.Dimensions) *float64 {
	if d == nil {
		return nil
	}
	return &d.Height
}

func firstOf(values ...*float64) float64 {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return 0
}
