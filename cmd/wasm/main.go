//go:build js && wasm

package main

import (
	"encoding/json"
	"log/slog"
	"syscall/js"

	"github.com/tiger-colonel/xyflow-study/internal/config"
	"github.com/tiger-colonel/xyflow-study/internal/engine"
	"github.com/tiger-colonel/xyflow-study/internal/flow"
	"github.com/tiger-colonel/xyflow-study/internal/geometry"
	"github.com/tiger-colonel/xyflow-study/internal/session"
	"github.com/tiger-colonel/xyflow-study/internal/typeid"
)

// The browser drives the room: commands run synchronously and tick runs
// one frame per requestAnimationFrame.
var (
	room      *session.Room
	local     *session.Client
	onMessage js.Value
)

func main() {
	opts := engine.DefaultOptions()
	cfg, err := config.Load()
	if err != nil {
		slog.Warn("using default engine options", "error", err)
	} else {
		opts = engine.OptionsFromConfig(cfg)
	}

	flowID := typeid.NewFlowID()
	room = session.NewRoom(flowID, opts, 0)
	local = session.NewClient(nil, nil, typeid.NewSessionID(), "local", flowID)
	room.Attach(local)

	flowEngine := js.Global().Get("Object").New()

	// --- Commands (renderer → engine) ---
	flowEngine.Set("subscribe", js.FuncOf(subscribe))
	flowEngine.Set("send", js.FuncOf(send))
	flowEngine.Set("tick", js.FuncOf(tick))

	// --- Queries (renderer ← engine) ---
	flowEngine.Set("getNodes", js.FuncOf(getNodes))
	flowEngine.Set("getEdges", js.FuncOf(getEdges))
	flowEngine.Set("getViewport", js.FuncOf(getViewport))
	flowEngine.Set("getNodesInside", js.FuncOf(getNodesInside))
	flowEngine.Set("getConnections", js.FuncOf(getConnections))
	flowEngine.Set("screenToFlowPosition", js.FuncOf(screenToFlowPosition))
	flowEngine.Set("flowToScreenPosition", js.FuncOf(flowToScreenPosition))

	js.Global().Set("flowEngine", flowEngine)
	js.Global().Set("flowWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func errorValue(msg string) js.Value {
	return js.ValueOf(map[string]any{"error": msg})
}

func jsonValue(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return errorValue(err.Error())
	}
	return js.ValueOf(string(data))
}

// flush hands queued outgoing messages to the subscriber. Without one they
// stay queued.
func flush() {
	if onMessage.IsUndefined() || onMessage.IsNull() {
		return
	}
	for {
		select {
		case data := <-local.Messages():
			onMessage.Invoke(string(data))
		default:
			return
		}
	}
}

// --- Command Handlers ---

func subscribe(this js.Value, args []js.Value) any {
	if len(args) < 1 || args[0].Type() != js.TypeFunction {
		return errorValue("missing callback")
	}
	onMessage = args[0]
	flush()
	return nil
}

// send takes one session message as JSON, the same shape the websocket
// host accepts.
func send(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return errorValue("missing message JSON")
	}
	var msg session.Message
	if err := json.Unmarshal([]byte(args[0].String()), &msg); err != nil {
		return errorValue(err.Error())
	}
	room.Receive(local, &msg)
	flush()
	return js.ValueOf(map[string]any{"ok": true})
}

func tick(this js.Value, args []js.Value) any {
	room.Frame()
	flush()
	return nil
}

// --- Query Handlers ---

func getNodes(this js.Value, args []js.Value) any {
	lookup := room.Store().NodeLookup()
	nodes := make([]*flow.InternalNode, 0, lookup.Len())
	for _, n := range lookup.All() {
		nodes = append(nodes, n)
	}
	return jsonValue(nodes)
}

func getEdges(this js.Value, args []js.Value) any {
	return jsonValue(room.Store().Edges())
}

func getViewport(this js.Value, args []js.Value) any {
	return jsonValue(room.Store().Viewport())
}

// getNodesInside takes a screen rect as x, y, width, height and an optional
// partially flag.
func getNodesInside(this js.Value, args []js.Value) any {
	if len(args) < 4 {
		return errorValue("missing rect")
	}
	rect := geometry.Rect{X: args[0].Float(), Y: args[1].Float(), Width: args[2].Float(), Height: args[3].Float()}
	partially := len(args) > 4 && args[4].Truthy()
	return jsonValue(room.Store().NodesInside(rect, partially))
}

func getConnections(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return errorValue("missing node id")
	}
	var (
		typ      flow.HandleType
		handleID string
	)
	if len(args) > 1 && args[1].Type() == js.TypeString {
		typ = flow.HandleType(args[1].String())
	}
	if len(args) > 2 && args[2].Type() == js.TypeString {
		handleID = args[2].String()
	}
	return jsonValue(room.Store().NodeConnections(args[0].String(), typ, handleID))
}

func point(args []js.Value) (geometry.XYPosition, bool) {
	if len(args) < 2 {
		return geometry.XYPosition{}, false
	}
	return geometry.XYPosition{X: args[0].Float(), Y: args[1].Float()}, true
}

func screenToFlowPosition(this js.Value, args []js.Value) any {
	p, ok := point(args)
	if !ok {
		return errorValue("missing point")
	}
	snap := len(args) > 2 && args[2].Truthy()
	return jsonValue(room.Store().ScreenToFlowPosition(p, snap))
}

func flowToScreenPosition(this js.Value, args []js.Value) any {
	p, ok := point(args)
	if !ok {
		return errorValue("missing point")
	}
	return jsonValue(room.Store().FlowToScreenPosition(p))
}
