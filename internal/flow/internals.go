package flow

import (
	"github.com/tiger-colonel/xyflow-study/internal/geometry"
)

// MeasuredHandle is a connection point as laid out by the renderer.
type MeasuredHandle struct {
	ID       string
	Type     HandleType
	Position Position
	// Origin is the top-left corner on screen.
	Origin     geometry.XYPosition
	Dimensions geometry.Dimensions
}

// Measurement is what the renderer reports for one node element.
type Measurement struct {
	// Dimensions is the unscaled layout size.
	Dimensions geometry.Dimensions
	// Origin is the top-left corner on screen.
	Origin  geometry.XYPosition
	Handles []MeasuredHandle
}

// Measurer reads node geometry from the rendering layer.
type Measurer interface {
	// Zoom is the scale currently applied to the rendered viewport.
	Zoom() float64
	// Measure returns the geometry of the node element, or false if the
	// node is not rendered.
	Measure(id string) (Measurement, bool)
}

// InternalsUpdate requests a re-measurement of one node. Force re-reads the
// handles even when the size did not change.
type InternalsUpdate struct {
	ID    string
	Force bool
}

// UpdateNodeInternals re-measures the requested nodes, stores new sizes and
// handle bounds, and returns the dimension changes to report together with
// any parent expansion they cause. The bool tells whether any internal node
// was replaced.
func UpdateNodeInternals(
	updates []InternalsUpdate,
	nodeLookup *NodeLookup,
	parentLookup *ParentLookup,
	measurer Measurer,
	opts AdoptOptions,
) ([]NodeChange, bool) {
	if measurer == nil {
		return nil, false
	}
	zoom := measurer.Zoom()
	if zoom == 0 {
		zoom = 1
	}

	var (
		changes   []NodeChange
		expanding []ParentExpandChild
		updated   bool
	)
	for _, u := range updates {
		n, ok := nodeLookup.Get(u.ID)
		if !ok {
			continue
		}
		if n.Hidden {
			cp := n.clone()
			cp.Internals.HandleBounds = nil
			nodeLookup.Set(n.ID, cp)
			updated = true
			continue
		}

		m, ok := measurer.Measure(u.ID)
		if !ok {
			continue
		}
		dims := m.Dimensions
		changed := n.Measured == nil || *n.Measured != dims
		if dims.Width == 0 || dims.Height == 0 || !(changed || n.Internals.HandleBounds == nil || u.Force) {
			continue
		}

		abs := n.Internals.PositionAbsolute
		if parent, ok := nodeLookup.Get(n.ParentID); ok && n.Extent.IsParent() {
			abs = ClampPositionToParent(abs, dims, parent)
		} else if own, ok := n.Extent.Coordinates(); ok {
			abs = geometry.ClampPosition(abs, own, dims)
		} else {
			abs = geometry.ClampPosition(abs, opts.extent(), dims)
		}

		cp := n.clone()
		cp.Measured = &geometry.Dimensions{Width: dims.Width, Height: dims.Height}
		cp.Internals.PositionAbsolute = abs
		cp.Internals.HandleBounds = &HandleBounds{
			Source: handleBounds(HandleSource, n.ID, m, zoom),
			Target: handleBounds(HandleTarget, n.ID, m, zoom),
		}
		nodeLookup.Set(n.ID, cp)
		if cp.ParentID != "" {
			updateChildNode(cp, nodeLookup, parentLookup, opts)
		}
		updated = true

		if changed {
			changes = append(changes, NodeChange{Type: ChangeDimensions, ID: n.ID, Dimensions: &dims})
			if cp.ExpandParent && cp.ParentID != "" {
				expanding = append(expanding, ParentExpandChild{
					ID:       cp.ID,
					ParentID: cp.ParentID,
					Rect:     nodeLookup.Value(cp.ID).Rect(),
				})
			}
		}
	}

	if len(expanding) > 0 {
		changes = append(changes, HandleExpandParent(expanding, nodeLookup, parentLookup, opts.NodeOrigin)...)
	}
	return changes, updated
}

func handleBounds(typ HandleType, nodeID string, m Measurement, zoom float64) []Handle {
	var out []Handle
	for _, h := range m.Handles {
		if h.Type != typ {
			continue
		}
		out = append(out, Handle{
			ID:       h.ID,
			NodeID:   nodeID,
			Type:     typ,
			Position: h.Position,
			X:        (h.Origin.X - m.Origin.X) / zoom,
			Y:        (h.Origin.Y - m.Origin.Y) / zoom,
			Width:    h.Dimensions.Width,
			Height:   h.Dimensions.Height,
		})
	}
	return out
}
