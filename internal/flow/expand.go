package flow

import (
	"math"

	"github.com/tiger-colonel/xyflow-study/internal/geometry"
)

// ParentExpandChild is a child whose box, Rect in canvas space, its parent
// must grow to contain.
type ParentExpandChild struct {
	ID       string
	ParentID string
	Rect     geometry.Rect
}

type parentExpansion struct {
	id       string
	parent   *InternalNode
	expanded geometry.Rect
}

// HandleExpandParent returns the changes that grow each parent so it keeps
// containing its expanding children. When a parent grows to the left or top
// it is moved, and its other children are moved back by the same amount so
// they keep their absolute position.
func HandleExpandParent(children []ParentExpandChild, nodeLookup *NodeLookup, parentLookup *ParentLookup, nodeOrigin geometry.NodeOrigin) []NodeChange {
	var (
		changes    []NodeChange
		expansions []*parentExpansion
		byParent   = make(map[string]*parentExpansion)
		expanding  = make(map[string]struct{}, len(children))
	)
	for _, child := range children {
		expanding[child.ID] = struct{}{}
		parent, ok := nodeLookup.Get(child.ParentID)
		if !ok {
			continue
		}
		exp, ok := byParent[child.ParentID]
		if !ok {
			exp = &parentExpansion{id: child.ParentID, expanded: parent.Rect()}
			byParent[child.ParentID] = exp
			expansions = append(expansions, exp)
		}
		exp.parent = parent
		exp.expanded = exp.expanded.Union(child.Rect)
	}

	for _, exp := range expansions {
		abs := exp.parent.Internals.PositionAbsolute
		dims := exp.parent.Dimensions()
		origin := exp.parent.originOr(nodeOrigin)

		var xChange, yChange float64
		if exp.expanded.X < abs.X {
			xChange = math.Round(math.Abs(abs.X - exp.expanded.X))
		}
		if exp.expanded.Y < abs.Y {
			yChange = math.Round(math.Abs(abs.Y - exp.expanded.Y))
		}
		newWidth := math.Max(dims.Width, math.Round(exp.expanded.Width))
		newHeight := math.Max(dims.Height, math.Round(exp.expanded.Height))
		widthChange := (newWidth - dims.Width) * origin[0]
		heightChange := (newHeight - dims.Height) * origin[1]

		if xChange > 0 || yChange > 0 || widthChange != 0 || heightChange != 0 {
			changes = append(changes, PositionChange(exp.id, geometry.XYPosition{
				X: exp.parent.Position.X - xChange + widthChange,
				Y: exp.parent.Position.Y - yChange + heightChange,
			}, nil))

			if siblings, ok := parentLookup.Get(exp.id); ok {
				for id, sibling := range siblings.All() {
					if _, moving := expanding[id]; moving {
						continue
					}
					changes = append(changes, PositionChange(id, geometry.XYPosition{
						X: sibling.Position.X + xChange,
						Y: sibling.Position.Y + yChange,
					}, nil))
				}
			}
		}

		if dims.Width < exp.expanded.Width || dims.Height < exp.expanded.Height || xChange != 0 || yChange != 0 {
			width, height := newWidth, newHeight
			if xChange != 0 {
				width += origin[0]*xChange - widthChange
			}
			if yChange != 0 {
				height += origin[1]*yChange - heightChange
			}
			changes = append(changes, NodeChange{
				Type:          ChangeDimensions,
				ID:            exp.id,
				Dimensions:    &geometry.Dimensions{Width: width, Height: height},
				SetAttributes: SetWidthAndHeight,
			})
		}
	}
	return changes
}
