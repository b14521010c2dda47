package session

import (
	"encoding/json"
	"time"

	"github.com/tiger-colonel/xyflow-study/internal/flow"
	"github.com/tiger-colonel/xyflow-study/internal/geometry"
	"github.com/tiger-colonel/xyflow-study/internal/gesture"
	"github.com/tiger-colonel/xyflow-study/internal/resize"
)

type Message struct {
	Type     string          `json:"type"`
	FlowID   string          `json:"flowId,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
	Subject  string          `json:"subject,omitempty"`
	Seq      int64           `json:"seq,omitempty"`
	BatchID  string          `json:"batchId,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

const (
	// Client commands
	TypeNodesSet       = "nodes.set"
	TypeEdgesSet       = "edges.set"
	TypeNodesAdd       = "nodes.add"
	TypeEdgesAdd       = "edges.add"
	TypeNodeUpdate     = "node.update"
	TypeEdgeUpdate     = "edge.update"
	TypeConnect        = "connect"
	TypeReconnect      = "reconnect"
	TypeElementsDelete = "elements.delete"
	TypeSelectNodes    = "selection.nodes"
	TypeSelectEdges    = "selection.edges"
	TypeSelectionReset = "selection.reset"
	TypeSelectionMulti = "selection.multi"
	TypeSelectionRect  = "selection.rect"
	TypeNodeClick      = "node.click"
	TypeContainerSet   = "container.set"
	TypeViewportSet    = "viewport.set"
	TypeViewportFit    = "viewport.fit"
	TypeViewportZoom   = "viewport.zoom"
	TypeViewportCenter = "viewport.center"
	TypeNodesMeasure   = "nodes.measure"
	TypePointer        = "pointer"
	TypeWheel          = "wheel"
	TypeDoubleClick    = "dblclick"

	// Server events
	TypeWelcome      = "welcome"
	TypeJoin         = "session.join"
	TypeLeave        = "session.leave"
	TypeNodesChanges = "nodes.changes"
	TypeEdgesChanges = "edges.changes"
	TypeViewport     = "viewport"
	TypeError        = "error"
)

type WelcomePayload struct {
	ClientID string            `json:"clientId"`
	FlowID   string            `json:"flowId"`
	Nodes    []*flow.Node      `json:"nodes"`
	Edges    []*flow.Edge      `json:"edges"`
	Viewport geometry.Viewport `json:"viewport"`
	Clients  []PeerPayload     `json:"clients,omitempty"`
}

type PeerPayload struct {
	ClientID string `json:"clientId"`
	Subject  string `json:"subject"`
}

type NodesPayload struct {
	Nodes []*flow.Node `json:"nodes"`
}

type EdgesPayload struct {
	Edges []*flow.Edge `json:"edges"`
}

// DataUpdatePayload merges Data into a node or edge, or replaces it.
type DataUpdatePayload struct {
	ID      string         `json:"id"`
	Data    map[string]any `json:"data"`
	Replace bool           `json:"replace,omitempty"`
}

type ReconnectPayload struct {
	EdgeID     string          `json:"edgeId"`
	Connection flow.Connection `json:"connection"`
	// KeepID keeps the edge id instead of deriving a new one.
	KeepID bool `json:"keepId,omitempty"`
}

type DeletePayload struct {
	Nodes []string `json:"nodes,omitempty"`
	Edges []string `json:"edges,omitempty"`
}

type SelectionPayload struct {
	IDs []string `json:"ids"`
}

// SelectionRectPayload is a selection box in screen coordinates.
type SelectionRectPayload struct {
	geometry.Rect
	Partially bool `json:"partially,omitempty"`
}

type MultiSelectionPayload struct {
	Active bool `json:"active"`
}

type NodeClickPayload struct {
	ID       string `json:"id"`
	Unselect bool   `json:"unselect,omitempty"`
}

// TransitionPayload animates a viewport command. Durations are in
// milliseconds.
type TransitionPayload struct {
	Duration float64 `json:"duration,omitempty"`
}

func (t TransitionPayload) duration() time.Duration {
	return time.Duration(t.Duration * float64(time.Millisecond))
}

type ViewportPayload struct {
	geometry.Viewport
	TransitionPayload
}

type FitViewPayload struct {
	// Padding is a fraction of the container; zero uses the default.
	Padding            float64  `json:"padding,omitempty"`
	IncludeHiddenNodes bool     `json:"includeHiddenNodes,omitempty"`
	MinZoom            float64  `json:"minZoom,omitempty"`
	MaxZoom            float64  `json:"maxZoom,omitempty"`
	Nodes              []string `json:"nodes,omitempty"`
	TransitionPayload
}

// ZoomPayload is "in", "out" or "to" with a zoom level.
type ZoomPayload struct {
	Op   string  `json:"op"`
	Zoom float64 `json:"zoom,omitempty"`
	TransitionPayload
}

type CenterPayload struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom,omitempty"`
	TransitionPayload
}

type MeasuredHandlePayload struct {
	ID       string          `json:"id,omitempty"`
	Type     flow.HandleType `json:"type"`
	Position flow.Position   `json:"position"`
	geometry.Rect
}

type MeasuredNodePayload struct {
	ID string `json:"id"`
	// Rect is the element's box on screen.
	geometry.Rect
	Handles []MeasuredHandlePayload `json:"handles,omitempty"`
	Force   bool                    `json:"force,omitempty"`
}

// MeasurePayload reports rendered node geometry at the renderer's zoom.
type MeasurePayload struct {
	Zoom  float64               `json:"zoom"`
	Nodes []MeasuredNodePayload `json:"nodes"`
}

// Pointer phases and targets.
const (
	PhaseDown = "down"
	PhaseMove = "move"
	PhaseUp   = "up"

	TargetPane   = "pane"
	TargetNode   = "node"
	TargetResize = "resize"
)

type PointerPayload struct {
	Phase  string `json:"phase"`
	Target string `json:"target"`
	NodeID string `json:"nodeId,omitempty"`
	// Control and Direction describe the resize handle for TargetResize.
	Control         resize.ControlPosition `json:"control,omitempty"`
	Direction       resize.Direction       `json:"direction,omitempty"`
	KeepAspectRatio bool                   `json:"keepAspectRatio,omitempty"`
	Event           gesture.PointerEvent   `json:"event"`
}

type ChangesPayload[T any] struct {
	Changes []T `json:"changes"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
