package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiger-colonel/xyflow-study/internal/engine"
	"github.com/tiger-colonel/xyflow-study/internal/flow"
	"github.com/tiger-colonel/xyflow-study/internal/flows"
	"github.com/tiger-colonel/xyflow-study/internal/geometry"
	"github.com/tiger-colonel/xyflow-study/internal/gesture"
)

const testFlow = "flow_test"

func newTestClient(id string) *Client {
	return &Client{
		send:     make(chan []byte, sendBuffer),
		ClientID: id,
		Subject:  "user-" + id,
		FlowID:   testFlow,
	}
}

// newTestRoom returns a room driven by the test through Attach and Receive
// instead of Start.
func newTestRoom(t *testing.T, clients ...*Client) *Room {
	t.Helper()
	r := NewRoom(testFlow, engine.DefaultOptions(), 10*time.Millisecond)
	r.Store().SetContainer(geometry.Rect{Width: 500, Height: 500})
	for _, c := range clients {
		r.Attach(c)
	}
	return r
}

func submit(t *testing.T, r *Room, c *Client, typ string, payload any) {
	t.Helper()
	var data json.RawMessage
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		require.NoError(t, err)
	}
	r.Receive(c, &Message{Type: typ, Payload: data})
}

// drain returns the messages queued for c.
func drain(t *testing.T, c *Client) []*Message {
	t.Helper()
	var out []*Message
	for {
		select {
		case data, ok := <-c.Messages():
			if !ok {
				return out
			}
			var msg Message
			require.NoError(t, json.Unmarshal(data, &msg))
			out = append(out, &msg)
		default:
			return out
		}
	}
}

func ofType(msgs []*Message, typ string) []*Message {
	var out []*Message
	for _, m := range msgs {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

func measuredNode(id string, x, y, w, h float64) *flow.Node {
	return &flow.Node{
		ID:       id,
		Position: geometry.XYPosition{X: x, Y: y},
		Measured: &geometry.Dimensions{Width: w, Height: h},
	}
}

func pointerAt(phase, target, nodeID string, x, y float64) PointerPayload {
	return PointerPayload{
		Phase:  phase,
		Target: target,
		NodeID: nodeID,
		Event:  gesture.PointerEvent{PointerID: 1, Position: geometry.XYPosition{X: x, Y: y}},
	}
}

func TestJoinSendsWelcomeAndAnnounces(t *testing.T) {
	a, b := newTestClient("a"), newTestClient("b")
	r := newTestRoom(t, a)

	msgs := drain(t, a)
	require.Len(t, msgs, 1)
	assert.Equal(t, TypeWelcome, msgs[0].Type)

	r.Attach(b)

	welcome := ofType(drain(t, b), TypeWelcome)
	require.Len(t, welcome, 1)
	var p WelcomePayload
	require.NoError(t, json.Unmarshal(welcome[0].Payload, &p))
	assert.Equal(t, "b", p.ClientID)
	assert.Equal(t, testFlow, p.FlowID)
	assert.Equal(t, []PeerPayload{{ClientID: "a", Subject: "user-a"}}, p.Clients)

	joins := ofType(drain(t, a), TypeJoin)
	require.Len(t, joins, 1)
	var peer PeerPayload
	require.NoError(t, json.Unmarshal(joins[0].Payload, &peer))
	assert.Equal(t, "b", peer.ClientID)
}

func TestNodesSetBroadcastsChanges(t *testing.T) {
	a, b := newTestClient("a"), newTestClient("b")
	r := newTestRoom(t, a, b)
	drain(t, a)
	drain(t, b)

	submit(t, r, a, TypeNodesSet, NodesPayload{Nodes: []*flow.Node{
		measuredNode("n1", 0, 0, 10, 10),
		measuredNode("n2", 50, 0, 10, 10),
	}})

	assert.Len(t, r.store.Nodes(), 2)
	for _, c := range []*Client{a, b} {
		batches := ofType(drain(t, c), TypeNodesChanges)
		require.Len(t, batches, 1, "client %s", c.ClientID)
		assert.NotEmpty(t, batches[0].BatchID)

		var p ChangesPayload[flow.NodeChange]
		require.NoError(t, json.Unmarshal(batches[0].Payload, &p))
		require.Len(t, p.Changes, 2)
		assert.Equal(t, flow.ChangeAdd, p.Changes[0].Type)
	}
}

func TestNodesSetOrdersParentsFirst(t *testing.T) {
	a := newTestClient("a")
	r := newTestRoom(t, a)
	drain(t, a)

	child := measuredNode("c", 10, 10, 10, 10)
	child.ParentID = "p"
	submit(t, r, a, TypeNodesSet, NodesPayload{Nodes: []*flow.Node{child, measuredNode("p", 100, 100, 50, 50)}})

	require.Len(t, r.store.Nodes(), 2)
	assert.Equal(t, "p", r.store.Nodes()[0].ID)
	c, ok := r.store.InternalNode("c")
	require.True(t, ok)
	assert.Equal(t, geometry.XYPosition{X: 110, Y: 110}, c.Internals.PositionAbsolute)
}

func TestSelectionRectSelectsNodes(t *testing.T) {
	a := newTestClient("a")
	r := newTestRoom(t, a)
	submit(t, r, a, TypeNodesSet, NodesPayload{Nodes: []*flow.Node{
		measuredNode("n1", 0, 0, 10, 10),
		measuredNode("n2", 200, 200, 10, 10),
	}})
	for _, id := range []string{"n1", "n2"} {
		n, ok := r.store.InternalNode(id)
		require.True(t, ok)
		n.Internals.HandleBounds = &flow.HandleBounds{}
	}
	drain(t, a)

	submit(t, r, a, TypeSelectionRect, SelectionRectPayload{Rect: geometry.Rect{X: -5, Y: -5, Width: 20, Height: 20}})

	assert.True(t, r.store.Node("n1").IsSelected())
	assert.False(t, r.store.Node("n2").IsSelected())
	batches := ofType(drain(t, a), TypeNodesChanges)
	require.Len(t, batches, 1)
	var p ChangesPayload[flow.NodeChange]
	require.NoError(t, json.Unmarshal(batches[0].Payload, &p))
	assert.Equal(t, []flow.NodeChange{flow.NodeSelectChange("n1", true)}, p.Changes)
}

func TestEngineErrorGoesToSender(t *testing.T) {
	a, b := newTestClient("a"), newTestClient("b")
	r := newTestRoom(t, a, b)
	drain(t, a)
	drain(t, b)

	submit(t, r, a, TypeConnect, flow.Connection{Source: "x"})

	errs := ofType(drain(t, a), TypeError)
	require.Len(t, errs, 1)
	var p ErrorPayload
	require.NoError(t, json.Unmarshal(errs[0].Payload, &p))
	assert.Equal(t, string(flow.ErrEdgeEndpointMissing), p.Code)
	assert.Empty(t, drain(t, b))
}

func TestRejectsBadMessages(t *testing.T) {
	a := newTestClient("a")
	r := newTestRoom(t, a)
	drain(t, a)

	tests := []struct {
		name    string
		typ     string
		payload any
	}{
		{"unknown type", "nodes.explode", map[string]any{}},
		{"bad payload", TypeNodesSet, []int{1}},
		{"bad zoom op", TypeViewportZoom, ZoomPayload{Op: "sideways"}},
		{"bad pointer phase", TypePointer, PointerPayload{Phase: "hover", Target: TargetPane}},
		{"node pointer without id", TypePointer, PointerPayload{Phase: PhaseDown, Target: TargetNode}},
		{"parent cycle", TypeNodesSet, NodesPayload{Nodes: []*flow.Node{
			{ID: "x", ParentID: "y"},
			{ID: "y", ParentID: "x"},
		}}},
		{"null node", TypeNodesAdd, json.RawMessage(`{"nodes":[null]}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			submit(t, r, a, tt.typ, tt.payload)
			errs := ofType(drain(t, a), TypeError)
			require.Len(t, errs, 1)
			var p ErrorPayload
			require.NoError(t, json.Unmarshal(errs[0].Payload, &p))
			assert.Equal(t, "invalid_message", p.Code)
		})
	}
}

func TestPointerDragMovesNode(t *testing.T) {
	a := newTestClient("a")
	r := newTestRoom(t, a)
	submit(t, r, a, TypeNodesSet, NodesPayload{Nodes: []*flow.Node{measuredNode("n", 100, 100, 50, 50)}})
	drain(t, a)

	submit(t, r, a, TypePointer, pointerAt(PhaseDown, TargetNode, "n", 120, 120))
	submit(t, r, a, TypePointer, pointerAt(PhaseMove, "", "", 140, 120))
	submit(t, r, a, TypePointer, pointerAt(PhaseMove, "", "", 160, 120))
	submit(t, r, a, TypePointer, pointerAt(PhaseUp, "", "", 160, 120))

	n := r.store.Node("n")
	require.NotNil(t, n)
	assert.Equal(t, geometry.XYPosition{X: 120, Y: 100}, n.Position)
	assert.False(t, n.Dragging)
	assert.Nil(t, r.gestures["a"].drag)
	assert.NotEmpty(t, ofType(drain(t, a), TypeNodesChanges))
}

func TestLeaveEndsGestures(t *testing.T) {
	a, b := newTestClient("a"), newTestClient("b")
	r := newTestRoom(t, a, b)
	submit(t, r, a, TypeNodesSet, NodesPayload{Nodes: []*flow.Node{measuredNode("n", 100, 100, 50, 50)}})

	submit(t, r, a, TypePointer, pointerAt(PhaseDown, TargetNode, "n", 120, 120))
	submit(t, r, a, TypePointer, pointerAt(PhaseMove, "", "", 140, 120))
	submit(t, r, a, TypePointer, pointerAt(PhaseMove, "", "", 160, 120))
	require.True(t, r.store.Node("n").Dragging)
	drain(t, b)

	r.Detach(a)

	assert.False(t, r.store.Node("n").Dragging)
	assert.NotContains(t, r.clients, "a")
	leaves := ofType(drain(t, b), TypeLeave)
	require.Len(t, leaves, 1)

	drain(t, a)
	_, open := <-a.send
	assert.False(t, open)
}

func TestMeasureInitializesNodes(t *testing.T) {
	a := newTestClient("a")
	r := newTestRoom(t, a)
	submit(t, r, a, TypeNodesSet, NodesPayload{Nodes: []*flow.Node{{ID: "n"}}})
	require.False(t, r.store.NodesInitialized())
	drain(t, a)

	submit(t, r, a, TypeNodesMeasure, MeasurePayload{Zoom: 1, Nodes: []MeasuredNodePayload{{
		ID:   "n",
		Rect: geometry.Rect{Width: 80, Height: 40},
		Handles: []MeasuredHandlePayload{{
			Type:     flow.HandleSource,
			Position: flow.PositionRight,
			Rect:     geometry.Rect{X: 75, Y: 15, Width: 10, Height: 10},
		}},
	}}})

	assert.True(t, r.store.NodesInitialized())
	n := r.store.Node("n")
	require.NotNil(t, n)
	assert.Equal(t, &geometry.Dimensions{Width: 80, Height: 40}, n.Measured)

	batches := ofType(drain(t, a), TypeNodesChanges)
	require.NotEmpty(t, batches)
	var p ChangesPayload[flow.NodeChange]
	require.NoError(t, json.Unmarshal(batches[0].Payload, &p))
	assert.Equal(t, flow.ChangeDimensions, p.Changes[0].Type)
}

func TestViewportCommandsBroadcast(t *testing.T) {
	a, b := newTestClient("a"), newTestClient("b")
	r := newTestRoom(t, a, b)
	drain(t, a)
	drain(t, b)

	submit(t, r, a, TypeViewportSet, ViewportPayload{Viewport: geometry.Viewport{X: 10, Y: 20, Zoom: 1.5}})

	assert.Equal(t, geometry.Viewport{X: 10, Y: 20, Zoom: 1.5}, r.store.Viewport())
	views := ofType(drain(t, b), TypeViewport)
	require.Len(t, views, 1)
	var v geometry.Viewport
	require.NoError(t, json.Unmarshal(views[0].Payload, &v))
	assert.Equal(t, 1.5, v.Zoom)
}

func TestHubRoomLifecycle(t *testing.T) {
	h := NewHub(engine.DefaultOptions(), 5*time.Millisecond, nil)
	t.Cleanup(h.Close)

	a, b := newTestClient("a"), newTestClient("b")
	h.Register(a)
	h.Register(b)
	assert.Equal(t, 1, h.Rooms())

	for _, c := range []*Client{a, b} {
		select {
		case data := <-c.send:
			var msg Message
			require.NoError(t, json.Unmarshal(data, &msg))
			assert.Equal(t, TypeWelcome, msg.Type)
		case <-time.After(time.Second):
			t.Fatalf("no welcome for %s", c.ClientID)
		}
	}

	h.Unregister(a)
	assert.Equal(t, 1, h.Rooms())
	h.Unregister(b)
	assert.Equal(t, 0, h.Rooms())

	// Unknown clients are ignored.
	h.Unregister(a)
	h.Submit(a, &Message{Type: TypeSelectionReset})
}

func TestPresence(t *testing.T) {
	a, b := newTestClient("a"), newTestClient("b")
	r := newTestRoom(t, a)
	drain(t, a)

	submit(t, r, a, TypePresenceUpdate, PresencePayload{Cursor: &geometry.XYPosition{X: 1, Y: 2}})
	assert.Empty(t, drain(t, a))

	r.Attach(b)
	states := ofType(drain(t, b), TypePresenceState)
	require.Len(t, states, 1)
	var state PresenceStatePayload
	require.NoError(t, json.Unmarshal(states[0].Payload, &state))
	require.Contains(t, state.Presences, "a")
	assert.Equal(t, "user-a", state.Presences["a"].Subject)
	assert.Equal(t, &geometry.XYPosition{X: 1, Y: 2}, state.Presences["a"].Cursor)

	drain(t, a)
	submit(t, r, b, TypePresenceUpdate, PresencePayload{Selection: []string{"n1"}})
	updates := ofType(drain(t, a), TypePresenceUpdate)
	require.Len(t, updates, 1)
	assert.Equal(t, "b", updates[0].ClientID)

	r.Detach(b)
	assert.NotContains(t, r.presences, "b")
	assert.Contains(t, r.presences, "a")
}

// await reads from c until a message of type typ arrives.
func await(t *testing.T, c *Client, typ string) *Message {
	t.Helper()
	timeout := time.After(time.Second)
	for {
		select {
		case data := <-c.send:
			var msg Message
			require.NoError(t, json.Unmarshal(data, &msg))
			if msg.Type == typ {
				return &msg
			}
		case <-timeout:
			t.Fatalf("no %s for %s", typ, c.ClientID)
			return nil
		}
	}
}

func TestHubPersistsSnapshots(t *testing.T) {
	ctx := context.Background()
	svc := flows.NewService()
	f, err := svc.Create(ctx, "persisted", "alice")
	require.NoError(t, err)

	h := NewHub(engine.DefaultOptions(), 5*time.Millisecond, svc)
	t.Cleanup(h.Close)

	a := newTestClient("a")
	a.FlowID = f.ID
	h.Register(a)
	await(t, a, TypeWelcome)

	data, err := json.Marshal(NodesPayload{Nodes: []*flow.Node{measuredNode("n1", 5, 5, 10, 10)}})
	require.NoError(t, err)
	h.Submit(a, &Message{Type: TypeNodesSet, Payload: data})
	await(t, a, TypeNodesChanges)

	h.Unregister(a)
	require.Eventually(t, func() bool {
		snap, err := svc.LatestSnapshot(ctx, f.ID)
		return err == nil && snap != nil
	}, time.Second, 5*time.Millisecond)

	b := newTestClient("b")
	b.FlowID = f.ID
	h.Register(b)
	welcome := await(t, b, TypeWelcome)
	var p WelcomePayload
	require.NoError(t, json.Unmarshal(welcome.Payload, &p))
	require.Len(t, p.Nodes, 1)
	assert.Equal(t, "n1", p.Nodes[0].ID)
}
