package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/tiger-colonel/xyflow-study/internal/batch"
	"github.com/tiger-colonel/xyflow-study/internal/drag"
	"github.com/tiger-colonel/xyflow-study/internal/engine"
	"github.com/tiger-colonel/xyflow-study/internal/flow"
	"github.com/tiger-colonel/xyflow-study/internal/flows"
	"github.com/tiger-colonel/xyflow-study/internal/geometry"
	"github.com/tiger-colonel/xyflow-study/internal/gesture"
	"github.com/tiger-colonel/xyflow-study/internal/loop"
	"github.com/tiger-colonel/xyflow-study/internal/panzoom"
	"github.com/tiger-colonel/xyflow-study/internal/resize"
	"github.com/tiger-colonel/xyflow-study/internal/typeid"
)

var (
	ErrUnknownType = errors.New("unknown message type")
	ErrBadPayload  = errors.New("invalid payload")
)

// remoteMeasurer serves node measurements reported by a client renderer.
type remoteMeasurer struct {
	zoom  float64
	nodes map[string]flow.Measurement
}

func (m *remoteMeasurer) Zoom() float64 { return m.zoom }

func (m *remoteMeasurer) Measure(id string) (flow.Measurement, bool) {
	v, ok := m.nodes[id]
	return v, ok
}

// gestures is the pointer state of one client.
type gestures struct {
	drag    *drag.Drag
	resizer *engine.NodeResizer
	pane    bool
	last    gesture.PointerEvent
}

// Room is the shared flow of every client connected to one flow id. The
// store, clients and gestures belong to the room loop goroutine.
type Room struct {
	flowID    string
	loop      *loop.Loop
	store     *engine.Store
	measurer  *remoteMeasurer
	clients   map[string]*Client
	gestures  map[string]*gestures
	presences map[string]*PresencePayload
	current   *Client
	seq       int64

	members int // guarded by Hub.mu
	cancel  context.CancelFunc
}

func NewRoom(flowID string, opts engine.Options, frameInterval time.Duration) *Room {
	opts.NodeMode = engine.Managed
	opts.EdgeMode = engine.Managed
	r := &Room{
		flowID:    flowID,
		loop:      loop.New(frameInterval),
		measurer:  &remoteMeasurer{zoom: 1, nodes: make(map[string]flow.Measurement)},
		clients:   make(map[string]*Client),
		gestures:  make(map[string]*gestures),
		presences: make(map[string]*PresencePayload),
	}
	r.store = engine.New(r.loop, opts, engine.Callbacks{
		OnNodesChange:    r.onNodesChange,
		OnEdgesChange:    r.onEdgesChange,
		OnError:          r.onError,
		OnViewportChange: r.onViewportChange,
	})
	r.store.SetMeasurer(r.measurer)
	return r
}

// Start runs the room loop until Stop is called or ctx is done.
func (r *Room) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	go r.loop.Run(ctx)
}

func (r *Room) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
}

// Submit queues msg from c onto the room loop. It reports false once the
// room has stopped.
func (r *Room) Submit(c *Client, msg *Message) bool {
	return r.loop.Post(func() { r.receive(c, msg) })
}

// Attach, Receive and Frame serve hosts that drive the room loop
// themselves instead of calling Start. They must not be mixed with Start.

func (r *Room) Attach(c *Client) { r.loop.Dispatch(func() { r.add(c) }) }

func (r *Room) Detach(c *Client) { r.loop.Dispatch(func() { r.remove(c) }) }

func (r *Room) Receive(c *Client, msg *Message) {
	r.loop.Dispatch(func() { r.receive(c, msg) })
}

// Frame runs one frame of pending animations.
func (r *Room) Frame() { r.loop.Frame() }

// Store returns the room's store. It is only safe to use from the loop
// goroutine, or from the driving host.
func (r *Room) Store() *engine.Store { return r.store }

func (r *Room) receive(c *Client, msg *Message) {
	if _, ok := r.clients[c.ClientID]; !ok {
		return
	}
	r.current = c
	err := r.handle(c, msg)
	// Batched updates flush here so that their errors reach c as well.
	r.loop.Drain()
	r.current = nil
	if err != nil {
		slog.Warn("rejected message", "error", err, "type", msg.Type, "client", c.ClientID)
		c.Send(r.message(TypeError, ErrorPayload{Code: "invalid_message", Message: err.Error()}))
	}
}

func (r *Room) add(c *Client) {
	peers := make([]PeerPayload, 0, len(r.clients))
	for _, id := range slices.Sorted(maps.Keys(r.clients)) {
		peers = append(peers, PeerPayload{ClientID: id, Subject: r.clients[id].Subject})
	}
	r.clients[c.ClientID] = c
	r.gestures[c.ClientID] = &gestures{}

	c.Send(r.message(TypeWelcome, WelcomePayload{
		ClientID: c.ClientID,
		FlowID:   r.flowID,
		Nodes:    r.store.Nodes(),
		Edges:    r.store.Edges(),
		Viewport: r.store.Viewport(),
		Clients:  peers,
	}))
	if msg := r.presenceState(); msg != nil {
		c.Send(msg)
	}
	r.broadcast(r.message(TypeJoin, PeerPayload{ClientID: c.ClientID, Subject: c.Subject}), c.ClientID)

	slog.Info("client joined", "client", c.ClientID, "subject", c.Subject, "flow", r.flowID)
}

func (r *Room) remove(c *Client) {
	if _, ok := r.clients[c.ClientID]; !ok {
		return
	}
	// End whatever the client was doing so nodes do not stay dragging or
	// resizing.
	if g := r.gestures[c.ClientID]; g != nil {
		r.endGestures(g)
	}
	delete(r.clients, c.ClientID)
	delete(r.gestures, c.ClientID)
	delete(r.presences, c.ClientID)
	close(c.send)

	r.broadcast(r.message(TypeLeave, PeerPayload{ClientID: c.ClientID, Subject: c.Subject}), "")

	slog.Info("client left", "client", c.ClientID, "flow", r.flowID)
}

func (r *Room) restore(snap *flows.Snapshot) {
	r.store.SetNodes(snap.Nodes)
	r.store.SetEdges(snap.Edges)
	r.store.SetViewport(snap.Viewport, panzoom.TransitionOptions{})
	slog.Info("flow restored", "flow", r.flowID, "version", snap.Version, "nodes", len(snap.Nodes))
}

func (r *Room) save(store SnapshotStore) {
	if store == nil {
		return
	}
	snap, err := store.SaveSnapshot(context.Background(), r.flowID, r.store.Nodes(), r.store.Edges(), r.store.Viewport())
	if err != nil {
		slog.Warn("save flow", "error", err, "flow", r.flowID)
		return
	}
	slog.Info("flow saved", "flow", r.flowID, "version", snap.Version)
}

func (r *Room) message(typ string, payload any) *Message {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal payload", "error", err, "type", typ)
	}
	r.seq++
	return &Message{Type: typ, FlowID: r.flowID, Seq: r.seq, Payload: data}
}

func (r *Room) broadcast(msg *Message, excludeClientID string) {
	for id, c := range r.clients {
		if id != excludeClientID {
			c.Send(msg)
		}
	}
}

// --- Engine callbacks ---

func (r *Room) onNodesChange(changes []flow.NodeChange) {
	for _, c := range changes {
		if c.Type == flow.ChangeRemove {
			delete(r.measurer.nodes, c.ID)
		}
	}
	msg := r.message(TypeNodesChanges, ChangesPayload[flow.NodeChange]{Changes: changes})
	msg.BatchID = typeid.NewBatchID()
	r.broadcast(msg, "")
}

func (r *Room) onEdgesChange(changes []flow.EdgeChange) {
	msg := r.message(TypeEdgesChanges, ChangesPayload[flow.EdgeChange]{Changes: changes})
	msg.BatchID = typeid.NewBatchID()
	r.broadcast(msg, "")
}

func (r *Room) onViewportChange(v geometry.Viewport) {
	r.broadcast(r.message(TypeViewport, v), "")
}

// onError answers the client whose message caused err, or everyone when it
// surfaced outside of a message.
func (r *Room) onError(err *flow.Error) {
	msg := r.message(TypeError, ErrorPayload{Code: string(err.Code), Message: err.Message})
	if r.current != nil {
		r.current.Send(msg)
		return
	}
	r.broadcast(msg, "")
}

// --- Commands ---

func decode[T any](msg *Message) (T, error) {
	var v T
	if err := json.Unmarshal(msg.Payload, &v); err != nil {
		return v, fmt.Errorf("%w for %s: %v", ErrBadPayload, msg.Type, err)
	}
	return v, nil
}

// hierarchy orders remote nodes parents first and rejects parent loops.
func hierarchy(nodes []*flow.Node) ([]*flow.Node, error) {
	if slices.Contains(nodes, nil) {
		return nil, fmt.Errorf("%w: null node", ErrBadPayload)
	}
	sorted, err := flow.SortByHierarchy(nodes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return sorted, nil
}

func transition(t TransitionPayload) panzoom.TransitionOptions {
	return panzoom.TransitionOptions{Duration: t.duration()}
}

func (r *Room) handle(c *Client, msg *Message) error {
	s := r.store
	switch msg.Type {
	case TypeNodesSet:
		p, err := decode[NodesPayload](msg)
		if err != nil {
			return err
		}
		nodes, err := hierarchy(p.Nodes)
		if err != nil {
			return err
		}
		s.QueueNodes(batch.Set(nodes))

	case TypeEdgesSet:
		p, err := decode[EdgesPayload](msg)
		if err != nil {
			return err
		}
		s.QueueEdges(batch.Set(p.Edges))

	case TypeNodesAdd:
		p, err := decode[NodesPayload](msg)
		if err != nil {
			return err
		}
		nodes, err := hierarchy(p.Nodes)
		if err != nil {
			return err
		}
		s.AddNodes(nodes...)

	case TypeEdgesAdd:
		p, err := decode[EdgesPayload](msg)
		if err != nil {
			return err
		}
		s.AddEdges(p.Edges...)

	case TypeNodeUpdate:
		p, err := decode[DataUpdatePayload](msg)
		if err != nil {
			return err
		}
		s.UpdateNodeData(p.ID, p.Data, p.Replace)

	case TypeEdgeUpdate:
		p, err := decode[DataUpdatePayload](msg)
		if err != nil {
			return err
		}
		s.UpdateEdgeData(p.ID, p.Data, p.Replace)

	case TypeConnect:
		p, err := decode[flow.Connection](msg)
		if err != nil {
			return err
		}
		s.Connect(p)

	case TypeReconnect:
		p, err := decode[ReconnectPayload](msg)
		if err != nil {
			return err
		}
		s.ReconnectEdge(p.EdgeID, p.Connection, !p.KeepID)

	case TypeElementsDelete:
		p, err := decode[DeletePayload](msg)
		if err != nil {
			return err
		}
		s.DeleteElements(p.Nodes, p.Edges)

	case TypeSelectNodes:
		p, err := decode[SelectionPayload](msg)
		if err != nil {
			return err
		}
		s.AddSelectedNodes(p.IDs...)

	case TypeSelectEdges:
		p, err := decode[SelectionPayload](msg)
		if err != nil {
			return err
		}
		s.AddSelectedEdges(p.IDs...)

	case TypeSelectionReset:
		s.ResetSelectedElements()

	case TypeSelectionMulti:
		p, err := decode[MultiSelectionPayload](msg)
		if err != nil {
			return err
		}
		s.SetMultiSelectionActive(p.Active)

	case TypeSelectionRect:
		p, err := decode[SelectionRectPayload](msg)
		if err != nil {
			return err
		}
		s.SelectNodesInside(p.Rect, p.Partially)

	case TypeNodeClick:
		p, err := decode[NodeClickPayload](msg)
		if err != nil {
			return err
		}
		s.HandleNodeClick(p.ID, p.Unselect)

	case TypeContainerSet:
		p, err := decode[geometry.Rect](msg)
		if err != nil {
			return err
		}
		s.SetContainer(p)

	case TypeViewportSet:
		p, err := decode[ViewportPayload](msg)
		if err != nil {
			return err
		}
		s.SetViewport(p.Viewport, transition(p.TransitionPayload))

	case TypeViewportFit:
		p, err := decode[FitViewPayload](msg)
		if err != nil {
			return err
		}
		opts := engine.FitViewOptions{
			IncludeHiddenNodes: p.IncludeHiddenNodes,
			MinZoom:            p.MinZoom,
			MaxZoom:            p.MaxZoom,
			Nodes:              p.Nodes,
			Transition:         transition(p.TransitionPayload),
		}
		if p.Padding > 0 {
			pad := geometry.UniformPadding(geometry.Fraction(p.Padding))
			opts.Padding = &pad
		}
		s.FitView(opts)

	case TypeViewportZoom:
		p, err := decode[ZoomPayload](msg)
		if err != nil {
			return err
		}
		tr := transition(p.TransitionPayload)
		switch p.Op {
		case "in":
			s.ZoomIn(tr)
		case "out":
			s.ZoomOut(tr)
		case "to":
			s.ZoomTo(p.Zoom, tr)
		default:
			return fmt.Errorf("%w: zoom op %q", ErrBadPayload, p.Op)
		}

	case TypeViewportCenter:
		p, err := decode[CenterPayload](msg)
		if err != nil {
			return err
		}
		s.SetCenter(p.X, p.Y, p.Zoom, transition(p.TransitionPayload))

	case TypeNodesMeasure:
		p, err := decode[MeasurePayload](msg)
		if err != nil {
			return err
		}
		r.measure(p)

	case TypePointer:
		p, err := decode[PointerPayload](msg)
		if err != nil {
			return err
		}
		return r.pointer(c, p)

	case TypeWheel:
		p, err := decode[gesture.WheelEvent](msg)
		if err != nil {
			return err
		}
		s.PanZoom().Wheel(p)

	case TypePresenceUpdate:
		p, err := decode[PresencePayload](msg)
		if err != nil {
			return err
		}
		r.updatePresence(c, &p)

	case TypeDoubleClick:
		p, err := decode[gesture.PointerEvent](msg)
		if err != nil {
			return err
		}
		s.PanZoom().DoubleClick(p)

	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, msg.Type)
	}
	return nil
}

func (r *Room) measure(p MeasurePayload) {
	if p.Zoom > 0 {
		r.measurer.zoom = p.Zoom
	}
	updates := make([]flow.InternalsUpdate, 0, len(p.Nodes))
	for _, n := range p.Nodes {
		m := flow.Measurement{
			Dimensions: geometry.Dimensions{Width: n.Width, Height: n.Height},
			Origin:     geometry.XYPosition{X: n.X, Y: n.Y},
		}
		for _, h := range n.Handles {
			m.Handles = append(m.Handles, flow.MeasuredHandle{
				ID:         h.ID,
				Type:       h.Type,
				Position:   h.Position,
				Origin:     geometry.XYPosition{X: h.X, Y: h.Y},
				Dimensions: geometry.Dimensions{Width: h.Width, Height: h.Height},
			})
		}
		r.measurer.nodes[n.ID] = m
		updates = append(updates, flow.InternalsUpdate{ID: n.ID, Force: n.Force})
	}
	r.store.UpdateNodeInternals(updates...)
}

// pointer routes a pointer event to the client's node drag, resize handle
// or the shared pane.
func (r *Room) pointer(c *Client, p PointerPayload) error {
	g := r.gestures[c.ClientID]
	ev := p.Event

	switch p.Phase {
	case PhaseDown:
		switch p.Target {
		case TargetNode:
			if p.NodeID == "" {
				return fmt.Errorf("%w: node pointer without node id", ErrBadPayload)
			}
			d := r.store.NodeDrag(drag.Options{NodeID: p.NodeID, IsSelectable: true})
			if d.PointerDown(ev) {
				g.drag = d
			}
		case TargetResize:
			if p.NodeID == "" {
				return fmt.Errorf("%w: resize pointer without node id", ErrBadPayload)
			}
			nr := r.store.NodeResizer(p.NodeID, resize.Params{
				Control:         p.Control,
				ResizeDirection: p.Direction,
				KeepAspectRatio: p.KeepAspectRatio,
			})
			if nr.PointerDown(ev) {
				g.resizer = nr
			}
		case TargetPane:
			g.pane = r.store.PanZoom().PointerDown(ev)
		default:
			return fmt.Errorf("%w: pointer target %q", ErrBadPayload, p.Target)
		}

	case PhaseMove:
		switch {
		case g.drag != nil:
			g.drag.PointerMove(ev)
		case g.resizer != nil:
			g.resizer.PointerMove(ev)
		case g.pane:
			r.store.PanZoom().PointerMove(ev)
		}

	case PhaseUp:
		switch {
		case g.drag != nil:
			g.drag.PointerUp(ev)
			g.drag.Destroy()
			g.drag = nil
		case g.resizer != nil:
			g.resizer.PointerUp(ev)
			g.resizer = nil
		case g.pane:
			g.pane = false
			if r.store.PanZoom().PointerUp(ev) {
				r.store.ResetSelectedElements()
			}
		}

	default:
		return fmt.Errorf("%w: pointer phase %q", ErrBadPayload, p.Phase)
	}
	g.last = ev
	return nil
}

func (r *Room) endGestures(g *gestures) {
	switch {
	case g.drag != nil:
		g.drag.End(g.last)
		g.drag.Destroy()
	case g.resizer != nil:
		g.resizer.End(g.last)
	case g.pane:
		r.store.PanZoom().PointerUp(g.last)
	}
	*g = gestures{}
}
