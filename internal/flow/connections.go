package flow

import "fmt"

// Connection is one edge as seen from one of its endpoints.
type Connection struct {
	EdgeID       string `json:"edgeId"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// ConnectionLookup maps "node", "node-type" and "node-type-handle" keys to
// the connections touching them.
type ConnectionLookup = Lookup[*Lookup[Connection]]

// NewConnectionLookup returns an empty connection lookup.
func NewConnectionLookup() *ConnectionLookup { return NewLookup[*Lookup[Connection]]() }

func handleKey(handle string) string {
	if handle == "" {
		return "null"
	}
	return handle
}

// ConnectionKey returns the lookup key for nodeID, optionally narrowed to a
// handle type and handle id.
func ConnectionKey(nodeID string, typ HandleType, handleID string) string {
	switch {
	case typ == "":
		return nodeID
	case handleID == "":
		return fmt.Sprintf("%s-%s", nodeID, typ)
	}
	return fmt.Sprintf("%s-%s-%s", nodeID, typ, handleID)
}

// UpdateConnectionLookup rebuilds both lookups from edges.
func UpdateConnectionLookup(connections *ConnectionLookup, edgeLookup *EdgeLookup, edges []*Edge) {
	connections.Clear()
	edgeLookup.Clear()

	for _, e := range edges {
		conn := Connection{
			EdgeID:       e.ID,
			Source:       e.Source,
			Target:       e.Target,
			SourceHandle: e.SourceHandle,
			TargetHandle: e.TargetHandle,
		}
		sourceKey := fmt.Sprintf("%s-%s--%s-%s", e.Source, handleKey(e.SourceHandle), e.Target, handleKey(e.TargetHandle))
		targetKey := fmt.Sprintf("%s-%s--%s-%s", e.Target, handleKey(e.TargetHandle), e.Source, handleKey(e.SourceHandle))

		addConnection(connections, HandleSource, conn, targetKey, e.Source, e.SourceHandle)
		addConnection(connections, HandleTarget, conn, sourceKey, e.Target, e.TargetHandle)
		edgeLookup.Set(e.ID, e)
	}
}

func addConnection(connections *ConnectionLookup, typ HandleType, conn Connection, connKey, nodeID, handleID string) {
	keys := []string{ConnectionKey(nodeID, "", ""), ConnectionKey(nodeID, typ, "")}
	if handleID != "" {
		keys = append(keys, ConnectionKey(nodeID, typ, handleID))
	}
	for _, key := range keys {
		set, ok := connections.Get(key)
		if !ok {
			set = NewLookup[Connection]()
			connections.Set(key, set)
		}
		set.Set(connKey, conn)
	}
}

// NodeConnections returns the connections stored under key, in order.
func NodeConnections(connections *ConnectionLookup, key string) []Connection {
	set, ok := connections.Get(key)
	if !ok {
		return nil
	}
	return set.Values()
}
