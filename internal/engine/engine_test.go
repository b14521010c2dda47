package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiger-colonel/xyflow-study/internal/batch"
	"github.com/tiger-colonel/xyflow-study/internal/config"
	"github.com/tiger-colonel/xyflow-study/internal/drag"
	"github.com/tiger-colonel/xyflow-study/internal/flow"
	"github.com/tiger-colonel/xyflow-study/internal/geometry"
	"github.com/tiger-colonel/xyflow-study/internal/gesture"
	"github.com/tiger-colonel/xyflow-study/internal/loop"
	"github.com/tiger-colonel/xyflow-study/internal/panzoom"
	"github.com/tiger-colonel/xyflow-study/internal/resize"
)

var instant = panzoom.TransitionOptions{}

type recorder struct {
	nodeChanges [][]flow.NodeChange
	edgeChanges [][]flow.EdgeChange
	errors      []*flow.Error
	deleted     []flow.Removal
	viewports   []geometry.Viewport
}

func newTestStore(t *testing.T, opts Options) (*Store, *loop.Loop, *recorder) {
	t.Helper()
	l := loop.New(10 * time.Millisecond)
	rec := &recorder{}
	s := New(l, opts, Callbacks{
		OnNodesChange:    func(c []flow.NodeChange) { rec.nodeChanges = append(rec.nodeChanges, c) },
		OnEdgesChange:    func(c []flow.EdgeChange) { rec.edgeChanges = append(rec.edgeChanges, c) },
		OnError:          func(err *flow.Error) { rec.errors = append(rec.errors, err) },
		OnDelete:         func(r flow.Removal) { rec.deleted = append(rec.deleted, r) },
		OnViewportChange: func(v geometry.Viewport) { rec.viewports = append(rec.viewports, v) },
	})
	s.SetContainer(geometry.Rect{Width: 500, Height: 500})
	return s, l, rec
}

func box(id string, x, y, w, h float64) *flow.Node {
	return &flow.Node{
		ID:       id,
		Position: geometry.XYPosition{X: x, Y: y},
		Measured: &geometry.Dimensions{Width: w, Height: h},
	}
}

func edge(id, source, target string) *flow.Edge {
	return &flow.Edge{ID: id, Source: source, Target: target}
}

func nodeIDs(nodes []*flow.Node) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}

func pointer(x, y float64) gesture.PointerEvent {
	return gesture.PointerEvent{PointerID: 1, Position: geometry.XYPosition{X: x, Y: y}}
}

func TestSetNodesAdoptsHierarchy(t *testing.T) {
	s, _, _ := newTestStore(t, DefaultOptions())
	child := box("c", 10, 10, 50, 50)
	child.ParentID = "p"
	s.SetNodes([]*flow.Node{box("p", 100, 100, 200, 200), child})

	n, ok := s.InternalNode("c")
	require.True(t, ok)
	assert.Equal(t, geometry.XYPosition{X: 110, Y: 110}, n.Internals.PositionAbsolute)
	assert.True(t, s.NodesInitialized())
	assert.Equal(t, 1, s.ParentLookup().Value("p").Len())
}

func TestNodesInitializedNeedsMeasurements(t *testing.T) {
	s, _, _ := newTestStore(t, DefaultOptions())
	s.SetNodes([]*flow.Node{box("a", 0, 0, 10, 10), {ID: "b"}})
	assert.False(t, s.NodesInitialized())
}

func TestQueuedUpdatesFlushOnce(t *testing.T) {
	s, l, rec := newTestStore(t, DefaultOptions())
	l.Dispatch(func() {
		for _, id := range []string{"a", "b", "c"} {
			s.QueueNodes(batch.Apply(func(cur []*flow.Node) []*flow.Node {
				return append(cur[:len(cur):len(cur)], box(id, 0, 0, 10, 10))
			}))
		}
		assert.Empty(t, s.Nodes(), "nothing applies before the flush")
	})

	assert.Equal(t, []string{"a", "b", "c"}, nodeIDs(s.Nodes()))
	require.Len(t, rec.nodeChanges, 1)
	require.Len(t, rec.nodeChanges[0], 3)
	for i, c := range rec.nodeChanges[0] {
		assert.Equal(t, flow.ChangeAdd, c.Type)
		require.NotNil(t, c.Index)
		assert.Equal(t, i, *c.Index)
	}
}

func TestAddNodesGeneratesIDs(t *testing.T) {
	s, l, _ := newTestStore(t, DefaultOptions())
	n := &flow.Node{Position: geometry.XYPosition{X: 5, Y: 5}}
	l.Dispatch(func() { s.AddNodes(n) })

	require.Len(t, s.Nodes(), 1)
	assert.True(t, strings.HasPrefix(s.Nodes()[0].ID, "node_"))
	assert.Empty(t, n.ID, "the caller's node is not modified")
}

func TestUnmanagedNodesLeaveArrayToConsumer(t *testing.T) {
	opts := DefaultOptions()
	opts.NodeMode = Unmanaged
	s, l, rec := newTestStore(t, opts)

	l.Dispatch(func() { s.AddNodes(box("a", 0, 0, 10, 10)) })
	assert.Empty(t, s.Nodes())
	require.Len(t, rec.nodeChanges, 1)

	s.SetNodes(flow.ApplyNodeChanges(rec.nodeChanges[0], s.Nodes()))
	assert.Equal(t, []string{"a"}, nodeIDs(s.Nodes()))

	s.TriggerNodeChanges([]flow.NodeChange{flow.PositionChange("a", geometry.XYPosition{X: 50, Y: 0}, nil)})
	assert.Equal(t, geometry.XYPosition{}, s.Node("a").Position)
	assert.Len(t, rec.nodeChanges, 2)
}

func TestTriggerNodeChangesManaged(t *testing.T) {
	s, _, rec := newTestStore(t, DefaultOptions())
	s.SetNodes([]*flow.Node{box("a", 0, 0, 10, 10)})

	s.TriggerNodeChanges([]flow.NodeChange{flow.PositionChange("a", geometry.XYPosition{X: 50, Y: 0}, nil)})
	assert.Equal(t, geometry.XYPosition{X: 50, Y: 0}, s.Node("a").Position)
	n, _ := s.InternalNode("a")
	assert.Equal(t, geometry.XYPosition{X: 50, Y: 0}, n.Internals.PositionAbsolute)
	assert.Len(t, rec.nodeChanges, 1)

	s.TriggerNodeChanges(nil)
	assert.Len(t, rec.nodeChanges, 1, "empty batches are not reported")
}

func TestUpdateNodeData(t *testing.T) {
	s, l, rec := newTestStore(t, DefaultOptions())
	a := box("a", 0, 0, 10, 10)
	a.Data = map[string]any{"x": 1}
	s.SetNodes([]*flow.Node{a})

	l.Dispatch(func() { s.UpdateNodeData("a", map[string]any{"y": 2}, false) })
	assert.Equal(t, map[string]any{"x": 1, "y": 2}, s.Node("a").Data)
	assert.Equal(t, map[string]any{"x": 1}, a.Data)

	l.Dispatch(func() { s.UpdateNodeData("a", map[string]any{"z": 3}, true) })
	assert.Equal(t, map[string]any{"z": 3}, s.Node("a").Data)

	l.Dispatch(func() { s.UpdateNode("missing", func(n flow.Node) flow.Node { return n }) })
	require.Len(t, rec.errors, 1)
	assert.Equal(t, flow.ErrNodeNotFound, rec.errors[0].Code)
}

func TestConnect(t *testing.T) {
	s, l, rec := newTestStore(t, DefaultOptions())
	s.SetNodes([]*flow.Node{box("a", 0, 0, 10, 10), box("b", 50, 0, 10, 10)})

	l.Dispatch(func() {
		s.Connect(flow.Connection{Source: "a", Target: "b"})
		s.Connect(flow.Connection{Source: "a", Target: "b"})
	})
	require.Len(t, s.Edges(), 1)
	assert.Equal(t, "xy-edge__a-b", s.Edges()[0].ID)
	assert.Len(t, s.NodeConnections("b", flow.HandleTarget, ""), 1)

	l.Dispatch(func() { s.Connect(flow.Connection{Source: "a"}) })
	require.Len(t, rec.errors, 1)
	assert.Equal(t, flow.ErrEdgeEndpointMissing, rec.errors[0].Code)
}

func TestReconnectEdgeKeepsData(t *testing.T) {
	s, l, _ := newTestStore(t, DefaultOptions())
	e := edge("e1", "a", "b")
	e.Data = map[string]any{"label": "x"}
	s.SetEdges([]*flow.Edge{e})

	l.Dispatch(func() { s.ReconnectEdge("e1", flow.Connection{Source: "a", Target: "c"}, false) })
	require.Len(t, s.Edges(), 1)
	got := s.Edge("e1")
	require.NotNil(t, got)
	assert.Equal(t, "c", got.Target)
	assert.Equal(t, "x", got.Data["label"])
}

func TestAddSelectedNodes(t *testing.T) {
	s, _, rec := newTestStore(t, DefaultOptions())
	s.SetNodes([]*flow.Node{box("a", 0, 0, 10, 10), box("b", 50, 0, 10, 10)})
	e := edge("e1", "a", "b")
	e.Selected = flow.Bool(true)
	s.SetEdges([]*flow.Edge{e})

	s.AddSelectedNodes("a")
	assert.True(t, s.Node("a").IsSelected())
	assert.False(t, s.Node("b").IsSelected())
	assert.False(t, s.Edge("e1").IsSelected(), "plain selection drops edges")
	require.Len(t, rec.nodeChanges, 1)
	assert.Equal(t, []flow.NodeChange{flow.NodeSelectChange("a", true)}, rec.nodeChanges[0])

	s.AddSelectedNodes("b")
	assert.False(t, s.Node("a").IsSelected())
	assert.True(t, s.Node("b").IsSelected())

	s.SetMultiSelectionActive(true)
	s.AddSelectedNodes("a")
	assert.True(t, s.Node("a").IsSelected())
	assert.True(t, s.Node("b").IsSelected())

	rec.nodeChanges = nil
	s.ResetSelectedElements()
	require.Len(t, rec.nodeChanges, 1)
	assert.Len(t, rec.nodeChanges[0], 2)
	assert.False(t, s.Node("a").IsSelected())
	assert.False(t, s.Node("b").IsSelected())
}

func TestSelectNodesInside(t *testing.T) {
	s, _, _ := newTestStore(t, DefaultOptions())
	s.SetNodes([]*flow.Node{box("a", 0, 0, 10, 10), box("b", 50, 0, 10, 10), box("c", 200, 200, 10, 10)})
	s.SetEdges([]*flow.Edge{edge("e1", "a", "b"), edge("e2", "b", "c")})
	for _, id := range []string{"a", "b", "c"} {
		n, ok := s.InternalNode(id)
		require.True(t, ok)
		n.Internals.HandleBounds = &flow.HandleBounds{}
	}

	rect := geometry.Rect{X: -5, Y: -5, Width: 60, Height: 20}
	assert.Len(t, s.NodesInside(rect, true), 2)

	s.SelectNodesInside(rect, false)
	assert.True(t, s.Node("a").IsSelected())
	assert.False(t, s.Node("b").IsSelected(), "b only overlaps the box")
	assert.True(t, s.Edge("e1").IsSelected())
	assert.False(t, s.Edge("e2").IsSelected())

	s.SelectNodesInside(rect, true)
	assert.True(t, s.Node("b").IsSelected())
	assert.False(t, s.Node("c").IsSelected())
	assert.True(t, s.Edge("e2").IsSelected(), "edges touching a selected node follow it")
}

func TestAddSelectedEdgesUnselectsNodes(t *testing.T) {
	s, _, _ := newTestStore(t, DefaultOptions())
	a := box("a", 0, 0, 10, 10)
	a.Selected = flow.Bool(true)
	s.SetNodes([]*flow.Node{a, box("b", 50, 0, 10, 10)})
	s.SetEdges([]*flow.Edge{edge("e1", "a", "b")})

	s.AddSelectedEdges("e1")
	assert.True(t, s.Edge("e1").IsSelected())
	assert.False(t, s.Node("a").IsSelected())
}

func TestHandleNodeClick(t *testing.T) {
	s, _, rec := newTestStore(t, DefaultOptions())
	s.SetNodes([]*flow.Node{box("a", 0, 0, 10, 10)})

	s.HandleNodeClick("a", false)
	assert.True(t, s.Node("a").IsSelected())

	s.HandleNodeClick("a", false)
	assert.True(t, s.Node("a").IsSelected(), "a second click keeps the selection")

	s.HandleNodeClick("a", true)
	assert.False(t, s.Node("a").IsSelected())

	s.HandleNodeClick("missing", false)
	require.Len(t, rec.errors, 1)
	assert.Equal(t, flow.ErrNodeNotFound, rec.errors[0].Code)
}

func TestUnselectNodesAndEdges(t *testing.T) {
	s, _, rec := newTestStore(t, DefaultOptions())
	s.SetNodes([]*flow.Node{box("a", 0, 0, 10, 10), box("b", 50, 0, 10, 10)})
	s.SetEdges([]*flow.Edge{edge("e1", "a", "b")})

	s.UnselectNodesAndEdges()
	require.Len(t, rec.nodeChanges, 1)
	assert.Len(t, rec.nodeChanges[0], 2)
	require.Len(t, rec.edgeChanges, 1)
	assert.Len(t, rec.edgeChanges[0], 1)
}

func TestDeleteElementsCascades(t *testing.T) {
	s, _, rec := newTestStore(t, DefaultOptions())
	child := box("c", 10, 10, 10, 10)
	child.ParentID = "p"
	s.SetNodes([]*flow.Node{box("p", 0, 0, 100, 100), child, box("x", 200, 0, 10, 10)})
	s.SetEdges([]*flow.Edge{edge("e1", "c", "x")})

	removal := s.DeleteElements([]string{"p"}, nil)
	assert.Equal(t, []string{"p", "c"}, nodeIDs(removal.Nodes))
	require.Len(t, removal.Edges, 1)

	assert.Equal(t, []string{"x"}, nodeIDs(s.Nodes()))
	assert.Empty(t, s.Edges())
	assert.Empty(t, s.NodeConnections("x", "", ""))
	require.Len(t, rec.edgeChanges, 1)
	assert.Equal(t, []flow.EdgeChange{flow.EdgeRemoveChange("e1")}, rec.edgeChanges[0])
	require.Len(t, rec.nodeChanges, 1)
	assert.Len(t, rec.nodeChanges[0], 2)
	assert.Len(t, rec.deleted, 1)
}

func TestDeleteElementsVetoed(t *testing.T) {
	l := loop.New(0)
	deleted := 0
	s := New(l, DefaultOptions(), Callbacks{
		OnBeforeDelete: func(flow.Removal) (flow.Removal, bool) { return flow.Removal{}, false },
		OnDelete:       func(flow.Removal) { deleted++ },
	})
	s.SetNodes([]*flow.Node{box("a", 0, 0, 10, 10)})

	removal := s.DeleteElements([]string{"a"}, nil)
	assert.Empty(t, removal.Nodes)
	assert.Len(t, s.Nodes(), 1)
	assert.Zero(t, deleted)
}

func TestNodeDragMovesManagedNode(t *testing.T) {
	s, _, _ := newTestStore(t, DefaultOptions())
	s.SetNodes([]*flow.Node{box("a", 150, 150, 100, 50)})
	var stopped []drag.Event
	s.callbacks.OnNodeDragStop = func(e drag.Event) { stopped = append(stopped, e) }
	d := s.NodeDrag(drag.Options{NodeID: "a", IsSelectable: true})

	require.True(t, d.PointerDown(pointer(200, 200)))
	d.PointerMove(pointer(220, 200))
	assert.True(t, d.Dragging())
	assert.True(t, s.Node("a").IsSelected(), "dragging selects the node")

	d.PointerMove(pointer(240, 200))
	a := s.Node("a")
	assert.Equal(t, geometry.XYPosition{X: 170, Y: 150}, a.Position)
	assert.True(t, a.Dragging)

	d.PointerUp(pointer(240, 200))
	assert.False(t, s.Node("a").Dragging)
	assert.Len(t, stopped, 1)
}

func TestNodeDragExpandsParent(t *testing.T) {
	opts := DefaultOptions()
	opts.NodeDragThreshold = 0
	opts.AutoPanOnNodeDrag = false
	s, _, _ := newTestStore(t, opts)
	child := box("c", 10, 10, 20, 20)
	child.ParentID = "p"
	child.ExpandParent = true
	s.SetNodes([]*flow.Node{box("p", 0, 0, 100, 100), child})
	d := s.NodeDrag(drag.Options{NodeID: "c", IsSelectable: true})

	require.True(t, d.PointerDown(pointer(20, 20)))
	d.PointerMove(pointer(130, 20))

	assert.Equal(t, geometry.XYPosition{X: 120, Y: 10}, s.Node("c").Position)
	p := s.Node("p")
	require.NotNil(t, p.Width)
	assert.Equal(t, 140.0, *p.Width)
	assert.Equal(t, geometry.Dimensions{Width: 140, Height: 100}, *p.Measured)
}

func TestNodeResizerWritesDimensions(t *testing.T) {
	s, _, _ := newTestStore(t, DefaultOptions())
	s.SetNodes([]*flow.Node{box("a", 0, 0, 100, 100)})
	r := s.NodeResizer("a", resize.Params{Control: resize.BottomRight})

	require.True(t, r.PointerDown(pointer(100, 100)))
	r.PointerMove(pointer(150, 120))
	a := s.Node("a")
	assert.Equal(t, geometry.Dimensions{Width: 150, Height: 120}, *a.Measured)
	require.NotNil(t, a.Width)
	require.NotNil(t, a.Height)
	assert.Equal(t, 150.0, *a.Width)
	assert.Equal(t, 120.0, *a.Height)
	assert.True(t, a.Resizing)

	r.PointerUp(pointer(150, 120))
	assert.False(t, s.Node("a").Resizing)
}

func TestNodeResizerHorizontalSetsWidthOnly(t *testing.T) {
	s, _, _ := newTestStore(t, DefaultOptions())
	s.SetNodes([]*flow.Node{box("a", 0, 0, 100, 100)})
	r := s.NodeResizer("a", resize.Params{Control: resize.BottomRight, ResizeDirection: resize.Horizontal})

	r.PointerDown(pointer(100, 100))
	r.PointerMove(pointer(150, 120))
	a := s.Node("a")
	require.NotNil(t, a.Width)
	assert.Equal(t, 150.0, *a.Width)
	assert.Nil(t, a.Height)
	assert.Equal(t, 100.0, a.Measured.Height)
}

func TestNodeResizerMovesChildrenBack(t *testing.T) {
	s, _, _ := newTestStore(t, DefaultOptions())
	c := box("c", 10, 10, 20, 20)
	c.ParentID = "p"
	s.SetNodes([]*flow.Node{box("p", 100, 100, 100, 100), c})
	r := s.NodeResizer("p", resize.Params{Control: resize.TopLeft})

	r.PointerDown(pointer(100, 100))
	r.PointerMove(pointer(90, 80))

	assert.Equal(t, geometry.XYPosition{X: 90, Y: 80}, s.Node("p").Position)
	assert.Equal(t, geometry.XYPosition{X: 20, Y: 30}, s.Node("c").Position)
	n, _ := s.InternalNode("c")
	assert.Equal(t, geometry.XYPosition{X: 110, Y: 110}, n.Internals.PositionAbsolute)
}

func zeroPadding() *geometry.Padding {
	p := geometry.UniformPadding(geometry.Fraction(0))
	return &p
}

func TestFitView(t *testing.T) {
	s, _, rec := newTestStore(t, DefaultOptions())
	s.SetContainer(geometry.Rect{Width: 200, Height: 200})

	done := s.FitView(FitViewOptions{})
	_, open := <-done
	assert.False(t, open, "nothing to fit")

	hidden := box("h", 1000, 1000, 10, 10)
	hidden.Hidden = true
	s.SetNodes([]*flow.Node{box("a", 0, 0, 100, 100), hidden})
	s.FitView(FitViewOptions{Padding: zeroPadding()})
	assert.Equal(t, geometry.Viewport{X: 0, Y: 0, Zoom: 2}, s.Viewport())
	assert.NotEmpty(t, rec.viewports)
}

func TestFitViewOnInitWaitsForMeasurements(t *testing.T) {
	opts := DefaultOptions()
	opts.FitViewOnInit = true
	opts.FitViewOptions = FitViewOptions{Padding: zeroPadding()}
	s, _, _ := newTestStore(t, opts)
	s.SetContainer(geometry.Rect{Width: 200, Height: 200})

	s.SetNodes([]*flow.Node{{ID: "a"}})
	assert.Equal(t, geometry.Viewport{Zoom: 1}, s.Viewport())

	s.SetMeasurer(fakeMeasurer{"a": {Width: 100, Height: 100}})
	s.UpdateNodeInternals(flow.InternalsUpdate{ID: "a"})
	assert.Equal(t, geometry.Viewport{X: 0, Y: 0, Zoom: 2}, s.Viewport())
	assert.Equal(t, geometry.Dimensions{Width: 100, Height: 100}, *s.Node("a").Measured)

	// The fit runs once.
	s.PanBy(geometry.XYPosition{X: 10})
	s.SetNodes(s.Nodes())
	assert.Equal(t, 10.0, s.Viewport().X)
}

type fakeMeasurer map[string]geometry.Dimensions

func (f fakeMeasurer) Zoom() float64 { return 1 }

func (f fakeMeasurer) Measure(id string) (flow.Measurement, bool) {
	d, ok := f[id]
	return flow.Measurement{Dimensions: d}, ok
}

func TestViewportCommands(t *testing.T) {
	s, _, _ := newTestStore(t, DefaultOptions())

	s.ZoomIn(instant)
	v := s.Viewport()
	assert.InDelta(t, 1.2, v.Zoom, 1e-9)
	assert.InDelta(t, -50, v.X, 1e-9)

	s.SetCenter(100, 100, 0, instant)
	assert.Equal(t, geometry.Viewport{X: 50, Y: 50, Zoom: 2}, s.Viewport())

	s.SetMaxZoom(4)
	s.ZoomTo(3, instant)
	assert.InDelta(t, 3, s.Viewport().Zoom, 1e-9)
}

func TestScreenFlowConversions(t *testing.T) {
	opts := DefaultOptions()
	opts.SnapToGrid = true
	s, _, _ := newTestStore(t, opts)
	s.SetContainer(geometry.Rect{X: 10, Y: 20, Width: 500, Height: 500})
	s.SetViewport(geometry.Viewport{X: 50, Y: 0, Zoom: 2}, instant)

	p := s.ScreenToFlowPosition(geometry.XYPosition{X: 118, Y: 20}, false)
	assert.Equal(t, geometry.XYPosition{X: 29, Y: 0}, p)
	assert.Equal(t, geometry.XYPosition{X: 30, Y: 0}, s.ScreenToFlowPosition(geometry.XYPosition{X: 118, Y: 20}, true))
	assert.Equal(t, geometry.XYPosition{X: 118, Y: 20}, s.FlowToScreenPosition(p))
}

func TestSetNodeExtentReclamps(t *testing.T) {
	s, _, _ := newTestStore(t, DefaultOptions())
	s.SetNodes([]*flow.Node{box("a", 500, 500, 10, 10)})

	s.SetNodeExtent(geometry.CoordinateExtent{{0, 0}, {100, 100}})
	n, _ := s.InternalNode("a")
	assert.Equal(t, geometry.XYPosition{X: 90, Y: 90}, n.Internals.PositionAbsolute)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := &config.Config{
		MinZoom:           0.25,
		MaxZoom:           4,
		NodeOrigin:        []float64{0.5, 0.5},
		SnapToGrid:        true,
		SnapGrid:          []float64{20, 20},
		NodeDragThreshold: 3,
		AutoPanSpeed:      10,
		PanOnScrollSpeed:  0.8,
	}
	o := OptionsFromConfig(cfg)
	assert.Equal(t, geometry.NodeOrigin{0.5, 0.5}, o.NodeOrigin)
	assert.Equal(t, geometry.SnapGrid{20, 20}, o.SnapGrid)
	assert.True(t, o.SnapToGrid)
	assert.Equal(t, 3.0, o.NodeDragThreshold)
	assert.Equal(t, 0.25, o.PanZoom.MinZoom)
	assert.Equal(t, 4.0, o.PanZoom.MaxZoom)
	assert.Equal(t, 0.8, o.PanZoom.PanOnScrollSpeed)
	assert.Equal(t, Managed, o.NodeMode)
}
