// Package engine is the flow store: it owns the node and edge arrays with
// their lookups, routes every change through the managed or unmanaged
// ownership mode, batches updates per task and wires drags, resizes and
// the viewport to that state.
package engine

import (
	"errors"
	"time"

	"github.com/tiger-colonel/xyflow-study/internal/batch"
	"github.com/tiger-colonel/xyflow-study/internal/drag"
	"github.com/tiger-colonel/xyflow-study/internal/flow"
	"github.com/tiger-colonel/xyflow-study/internal/geometry"
	"github.com/tiger-colonel/xyflow-study/internal/gesture"
	"github.com/tiger-colonel/xyflow-study/internal/metrics"
	"github.com/tiger-colonel/xyflow-study/internal/panzoom"
)

// Scheduler is the loop a store runs on. *loop.Loop implements it.
type Scheduler interface {
	batch.Scheduler
	panzoom.Animator
}

// Callbacks are optional hooks. They run on the store's loop.
type Callbacks struct {
	OnNodesChange func([]flow.NodeChange)
	OnEdgesChange func([]flow.EdgeChange)
	OnError       func(*flow.Error)

	// OnBeforeDelete can veto or narrow a DeleteElements call.
	OnBeforeDelete flow.BeforeDeleteFunc
	OnDelete       func(flow.Removal)

	OnViewportChange  func(geometry.Viewport)
	OnMoveStart       func(panzoom.Event)
	OnMove            func(panzoom.Event)
	OnMoveEnd         func(panzoom.Event)
	OnPaneContextMenu func(gesture.PointerEvent)

	OnNodeDragStart func(drag.Event)
	OnNodeDrag      func(drag.Event)
	OnNodeDragStop  func(drag.Event)

	// OnRedraw fires whenever state a renderer reads has changed.
	OnRedraw func()
}

// Store is the state of one flow. Every method must be called from the
// goroutine that drives its Scheduler.
type Store struct {
	opts      Options
	callbacks Callbacks
	sched     Scheduler

	nodes            []*flow.Node
	edges            []*flow.Edge
	nodeLookup       *flow.NodeLookup
	parentLookup     *flow.ParentLookup
	edgeLookup       *flow.EdgeLookup
	connectionLookup *flow.ConnectionLookup
	nodesInitialized bool
	fitViewQueued    bool

	measurer             flow.Measurer
	container            geometry.Rect
	multiSelectionActive bool
	paneDragging         bool

	panZoom   *panzoom.PanZoom
	nodeQueue *batch.Queue[[]*flow.Node]
	edgeQueue *batch.Queue[[]*flow.Edge]
}

// New returns an empty store.
func New(sched Scheduler, opts Options, callbacks Callbacks) *Store {
	s := &Store{
		opts:             opts,
		callbacks:        callbacks,
		sched:            sched,
		nodeLookup:       flow.NewNodeLookup(),
		parentLookup:     flow.NewParentLookup(),
		edgeLookup:       flow.NewEdgeLookup(),
		connectionLookup: flow.NewConnectionLookup(),
		fitViewQueued:    opts.FitViewOnInit,
	}
	s.panZoom = panzoom.New(sched, opts.PanZoom, panzoom.Callbacks{
		OnTransformChange: s.onTransformChange,
		OnPanZoomStart:    callbacks.OnMoveStart,
		OnPanZoom:         callbacks.OnMove,
		OnPanZoomEnd:      callbacks.OnMoveEnd,
		OnDraggingChange:  func(v bool) { s.paneDragging = v },
		OnPaneContextMenu: callbacks.OnPaneContextMenu,
	})
	s.nodeQueue = batch.NewQueue(sched, s.flushNodes)
	s.edgeQueue = batch.NewQueue(sched, s.flushEdges)
	return s
}

// --- Queries ---

func (s *Store) Options() Options { return s.opts }

// Nodes returns the current node array. It must not be modified.
func (s *Store) Nodes() []*flow.Node { return s.nodes }

// Edges returns the current edge array. It must not be modified.
func (s *Store) Edges() []*flow.Edge { return s.edges }

func (s *Store) NodeLookup() *flow.NodeLookup { return s.nodeLookup }

func (s *Store) ParentLookup() *flow.ParentLookup { return s.parentLookup }

func (s *Store) EdgeLookup() *flow.EdgeLookup { return s.edgeLookup }

func (s *Store) ConnectionLookup() *flow.ConnectionLookup { return s.connectionLookup }

// InternalNode returns the internal node for id.
func (s *Store) InternalNode(id string) (*flow.InternalNode, bool) {
	return s.nodeLookup.Get(id)
}

// Node returns the user node for id, or nil.
func (s *Store) Node(id string) *flow.Node {
	if n, ok := s.nodeLookup.Get(id); ok {
		return n.Internals.UserNode
	}
	return nil
}

// Edge returns the edge for id, or nil.
func (s *Store) Edge(id string) *flow.Edge {
	return s.edgeLookup.Value(id)
}

// NodeConnections returns the connections of a node, optionally narrowed
// to a handle type and handle id.
func (s *Store) NodeConnections(nodeID string, typ flow.HandleType, handleID string) []flow.Connection {
	return flow.NodeConnections(s.connectionLookup, flow.ConnectionKey(nodeID, typ, handleID))
}

// NodesInitialized reports whether every visible node has been measured.
func (s *Store) NodesInitialized() bool { return s.nodesInitialized }

// PaneDragging reports whether the pane is being dragged.
func (s *Store) PaneDragging() bool { return s.paneDragging }

// PanZoom returns the viewport controller, which takes pane input.
func (s *Store) PanZoom() *panzoom.PanZoom { return s.panZoom }

// --- Commands ---

// SetNodes replaces the node array and re-adopts it. Nodes whose pointer did
// not change keep their internal node.
func (s *Store) SetNodes(nodes []*flow.Node) {
	s.nodesInitialized = flow.AdoptUserNodes(nodes, s.nodeLookup, s.parentLookup, s.opts.adoptOptions(true))
	s.nodes = nodes
	if s.fitViewQueued && s.nodesInitialized {
		s.fitViewQueued = false
		s.FitView(s.opts.FitViewOptions)
	}
	s.redraw()
}

// SetEdges replaces the edge array and rebuilds the connection lookup.
func (s *Store) SetEdges(edges []*flow.Edge) {
	flow.UpdateConnectionLookup(s.connectionLookup, s.edgeLookup, edges)
	s.edges = edges
	s.redraw()
}

// QueueNodes batches a node update. All updates queued within one task are
// applied in order by a single flush before the next frame.
func (s *Store) QueueNodes(u batch.Update[[]*flow.Node]) { s.nodeQueue.Push(u) }

// QueueEdges is QueueNodes for edges.
func (s *Store) QueueEdges(u batch.Update[[]*flow.Edge]) { s.edgeQueue.Push(u) }

func (s *Store) flushNodes(updates []batch.Update[[]*flow.Node]) {
	metrics.FlushTotal.WithLabelValues("nodes").Inc()
	next := batch.Reduce(s.nodes, updates)
	changes := flow.NodesDiffChanges(next, s.nodeLookup)
	if s.opts.NodeMode == Managed {
		s.SetNodes(next)
	}
	switch {
	case len(changes) > 0:
		s.emitNodeChanges(changes)
	case s.fitViewQueued:
		// Nothing changed, but a pending fit may be waiting on measurements
		// that arrive with the next frame.
		s.sched.RequestFrame(func(time.Duration) {
			if s.fitViewQueued {
				s.SetNodes(s.nodes)
			}
		})
	}
}

func (s *Store) flushEdges(updates []batch.Update[[]*flow.Edge]) {
	metrics.FlushTotal.WithLabelValues("edges").Inc()
	next := batch.Reduce(s.edges, updates)
	changes := flow.EdgesDiffChanges(next, s.edgeLookup)
	if s.opts.EdgeMode == Managed {
		s.SetEdges(next)
	}
	if len(changes) > 0 {
		s.emitEdgeChanges(changes)
	}
}

// TriggerNodeChanges applies changes in managed mode and reports them.
func (s *Store) TriggerNodeChanges(changes []flow.NodeChange) {
	if len(changes) == 0 {
		return
	}
	if s.opts.NodeMode == Managed {
		s.SetNodes(flow.ApplyNodeChanges(changes, s.nodes))
	}
	s.emitNodeChanges(changes)
}

// TriggerEdgeChanges applies changes in managed mode and reports them.
func (s *Store) TriggerEdgeChanges(changes []flow.EdgeChange) {
	if len(changes) == 0 {
		return
	}
	if s.opts.EdgeMode == Managed {
		s.SetEdges(flow.ApplyEdgeChanges(changes, s.edges))
	}
	s.emitEdgeChanges(changes)
}

func (s *Store) emitNodeChanges(changes []flow.NodeChange) {
	for _, c := range changes {
		metrics.ChangeTotal.WithLabelValues("nodes", string(c.Type)).Inc()
	}
	if s.callbacks.OnNodesChange != nil {
		s.callbacks.OnNodesChange(changes)
	}
}

func (s *Store) emitEdgeChanges(changes []flow.EdgeChange) {
	for _, c := range changes {
		metrics.ChangeTotal.WithLabelValues("edges", string(c.Type)).Inc()
	}
	if s.callbacks.OnEdgesChange != nil {
		s.callbacks.OnEdgesChange(changes)
	}
}

// ReportError hands a recoverable error to OnError.
func (s *Store) ReportError(err *flow.Error) {
	if s.callbacks.OnError != nil {
		s.callbacks.OnError(err)
	}
}

func (s *Store) reportErr(err error) {
	var ferr *flow.Error
	if errors.As(err, &ferr) {
		s.ReportError(ferr)
	}
}

func (s *Store) redraw() {
	if s.callbacks.OnRedraw != nil {
		s.callbacks.OnRedraw()
	}
}
