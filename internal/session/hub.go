// Package session hosts flows over websockets. Every flow id gets a room
// with its own engine store and loop goroutine; connected clients send
// commands and pointer input and receive the resulting change batches.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tiger-colonel/xyflow-study/internal/engine"
	"github.com/tiger-colonel/xyflow-study/internal/flow"
	"github.com/tiger-colonel/xyflow-study/internal/flows"
	"github.com/tiger-colonel/xyflow-study/internal/geometry"
	"github.com/tiger-colonel/xyflow-study/internal/metrics"
)

// SnapshotStore loads a flow when its room opens and saves it when the
// room closes. *flows.Service implements it.
type SnapshotStore interface {
	LatestSnapshot(ctx context.Context, flowID string) (*flows.Snapshot, error)
	SaveSnapshot(ctx context.Context, flowID string, nodes []*flow.Node, edges []*flow.Edge, viewport geometry.Viewport) (*flows.Snapshot, error)
}

type Hub struct {
	opts          engine.Options
	frameInterval time.Duration
	snapshots     SnapshotStore // may be nil

	mu          sync.Mutex
	rooms       map[string]*Room // flowID -> room
	clientRooms map[*Client]*Room
}

func NewHub(opts engine.Options, frameInterval time.Duration, snapshots SnapshotStore) *Hub {
	return &Hub{
		opts:          opts,
		frameInterval: frameInterval,
		snapshots:     snapshots,
		rooms:         make(map[string]*Room),
		clientRooms:   make(map[*Client]*Room),
	}
}

// Register adds c to the room of its flow, starting the room if c is the
// first client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	room, ok := h.rooms[c.FlowID]
	if !ok {
		room = NewRoom(c.FlowID, h.opts, h.frameInterval)
		room.Start(context.Background())
		h.rooms[c.FlowID] = room
		h.restore(room)
	}
	room.members++
	h.clientRooms[c] = room
	h.mu.Unlock()

	metrics.ActiveSessions.WithLabelValues(c.FlowID).Inc()
	room.loop.Post(func() { room.add(c) })
}

func (h *Hub) restore(room *Room) {
	if h.snapshots == nil {
		return
	}
	snap, err := h.snapshots.LatestSnapshot(context.Background(), room.flowID)
	if err != nil {
		slog.Warn("load flow", "error", err, "flow", room.flowID)
		return
	}
	if snap != nil {
		room.loop.Post(func() { room.restore(snap) })
	}
}

// Unregister removes c from its room. The last client to leave saves the
// flow and stops the room.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	room, ok := h.clientRooms[c]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clientRooms, c)
	room.members--
	empty := room.members == 0
	if empty {
		delete(h.rooms, c.FlowID)
	}
	h.mu.Unlock()

	if empty {
		room.loop.Post(func() {
			room.remove(c)
			room.save(h.snapshots)
			room.Stop()
		})
		metrics.ActiveSessions.DeleteLabelValues(c.FlowID)
		slog.Info("room closed", "flow", c.FlowID)
		return
	}
	room.loop.Post(func() { room.remove(c) })
	metrics.ActiveSessions.WithLabelValues(c.FlowID).Dec()
}

// Submit hands msg to the room c belongs to.
func (h *Hub) Submit(c *Client, msg *Message) {
	h.mu.Lock()
	room, ok := h.clientRooms[c]
	h.mu.Unlock()
	if !ok || !room.Submit(c, msg) {
		slog.Debug("dropping message for closed room", "client", c.ClientID, "type", msg.Type)
	}
}

// Rooms returns the number of open rooms.
func (h *Hub) Rooms() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

// Close saves and stops every room.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, room := range h.rooms {
		if !room.loop.Post(func() {
			room.save(h.snapshots)
			room.Stop()
		}) {
			room.Stop()
		}
		delete(h.rooms, id)
	}
	clear(h.clientRooms)
}
