package engine

import (
	"github.com/tiger-colonel/xyflow-study/internal/flow"
	"github.com/tiger-colonel/xyflow-study/internal/geometry"
	"github.com/tiger-colonel/xyflow-study/internal/panzoom"
)

const zoomStep = 1.2

// Transform returns the current viewport transform.
func (s *Store) Transform() geometry.Transform { return s.panZoom.Transform() }

// Viewport returns the current viewport.
func (s *Store) Viewport() geometry.Viewport { return s.panZoom.Viewport() }

// SetContainer sets the on-screen box of the canvas container. Its size
// bounds panning and fitting, its origin anchors screen conversions.
func (s *Store) SetContainer(r geometry.Rect) {
	s.container = r
	s.panZoom.SetSize(geometry.Dimensions{Width: r.Width, Height: r.Height})
	s.redraw()
}

// ContainerSize is the container's size on screen.
func (s *Store) ContainerSize() geometry.Dimensions {
	return geometry.Dimensions{Width: s.container.Width, Height: s.container.Height}
}

func (s *Store) onTransformChange(t geometry.Transform) {
	if s.callbacks.OnViewportChange != nil {
		s.callbacks.OnViewportChange(t.Viewport())
	}
	s.redraw()
}

// SetViewport moves the viewport, optionally animated. The returned channel
// closes when the move completes.
func (s *Store) SetViewport(v geometry.Viewport, tr panzoom.TransitionOptions) <-chan struct{} {
	return s.panZoom.SetViewport(v, tr)
}

// ZoomIn zooms in by one step around the container center.
func (s *Store) ZoomIn(tr panzoom.TransitionOptions) <-chan struct{} {
	return s.panZoom.ScaleBy(zoomStep, tr)
}

// ZoomOut zooms out by one step around the container center.
func (s *Store) ZoomOut(tr panzoom.TransitionOptions) <-chan struct{} {
	return s.panZoom.ScaleBy(1/zoomStep, tr)
}

// ZoomTo sets the zoom around the container center.
func (s *Store) ZoomTo(zoom float64, tr panzoom.TransitionOptions) <-chan struct{} {
	return s.panZoom.ScaleTo(zoom, tr)
}

// SetCenter centers the container on canvas point (x, y). A zero zoom
// uses the maximum zoom.
func (s *Store) SetCenter(x, y, zoom float64, tr panzoom.TransitionOptions) <-chan struct{} {
	if zoom == 0 {
		zoom = s.panZoom.Options().MaxZoom
	}
	size := s.ContainerSize()
	return s.panZoom.SetViewport(geometry.Viewport{
		X:    size.Width/2 - x*zoom,
		Y:    size.Height/2 - y*zoom,
		Zoom: zoom,
	}, tr)
}

// PanBy pans by delta screen pixels and reports whether the viewport moved.
func (s *Store) PanBy(delta geometry.XYPosition) bool {
	return s.panZoom.PanBy(delta)
}

// FitView frames the measured nodes. It returns a closed channel when there
// is nothing to fit.
func (s *Store) FitView(opts FitViewOptions) <-chan struct{} {
	done := make(chan struct{})
	close(done)
	if s.nodeLookup.Len() == 0 {
		return done
	}

	var only map[string]struct{}
	if len(opts.Nodes) > 0 {
		only = flow.IDSet(opts.Nodes...)
	}
	filter := func(n *flow.InternalNode) bool {
		if !n.IsMeasured() || (n.Hidden && !opts.IncludeHiddenNodes) {
			return false
		}
		if only != nil {
			_, ok := only[n.ID]
			return ok
		}
		return true
	}
	found := false
	for _, n := range s.nodeLookup.All() {
		if filter(n) {
			found = true
			break
		}
	}
	if !found {
		return done
	}

	pz := s.panZoom.Options()
	minZoom, maxZoom := pz.MinZoom, pz.MaxZoom
	if opts.MinZoom != 0 {
		minZoom = opts.MinZoom
	}
	if opts.MaxZoom != 0 {
		maxZoom = opts.MaxZoom
	}
	padding := geometry.UniformPadding(geometry.Fraction(0.1))
	if opts.Padding != nil {
		padding = *opts.Padding
	}

	bounds := flow.InternalNodesBounds(s.nodeLookup, filter)
	size := s.ContainerSize()
	v := geometry.GetViewportForBounds(bounds, size.Width, size.Height, minZoom, maxZoom, padding)
	return s.panZoom.SetViewport(v, opts.Transition)
}

// SetMinZoom changes the lower zoom limit.
func (s *Store) SetMinZoom(zoom float64) {
	s.opts.PanZoom.MinZoom = zoom
	s.panZoom.SetScaleExtent(zoom, s.panZoom.Options().MaxZoom)
}

// SetMaxZoom changes the upper zoom limit.
func (s *Store) SetMaxZoom(zoom float64) {
	s.opts.PanZoom.MaxZoom = zoom
	s.panZoom.SetScaleExtent(s.panZoom.Options().MinZoom, zoom)
}

// SetTranslateExtent changes the area the viewport may show.
func (s *Store) SetTranslateExtent(e geometry.CoordinateExtent) {
	s.opts.PanZoom.TranslateExtent = e
	s.panZoom.SetTranslateExtent(e)
}

// SetNodeExtent changes the default node extent and re-clamps every node.
func (s *Store) SetNodeExtent(e geometry.CoordinateExtent) {
	s.opts.NodeExtent = e
	s.nodesInitialized = flow.AdoptUserNodes(s.nodes, s.nodeLookup, s.parentLookup, s.opts.adoptOptions(false))
	s.redraw()
}

// ScreenToFlowPosition converts a screen point into canvas space. With snap
// set the result snaps to the grid if snapping is enabled.
func (s *Store) ScreenToFlowPosition(p geometry.XYPosition, snap bool) geometry.XYPosition {
	local := geometry.XYPosition{X: p.X - s.container.X, Y: p.Y - s.container.Y}
	return geometry.PointToRendererPoint(local, s.Transform(), snap && s.opts.SnapToGrid, s.opts.SnapGrid)
}

// FlowToScreenPosition converts a canvas point into screen space.
func (s *Store) FlowToScreenPosition(p geometry.XYPosition) geometry.XYPosition {
	r := geometry.RendererPointToPoint(p, s.Transform())
	return geometry.XYPosition{X: r.X + s.container.X, Y: r.Y + s.container.Y}
}
