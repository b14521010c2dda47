package session

import (
	"github.com/tiger-colonel/xyflow-study/internal/geometry"
)

const (
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
)

// PresencePayload is what a client shows the others: its cursor in flow
// coordinates and the ids it has selected.
type PresencePayload struct {
	Cursor    *geometry.XYPosition `json:"cursor,omitempty"`
	Selection []string             `json:"selection,omitempty"`
	Subject   string               `json:"subject,omitempty"`
}

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"` // clientID -> presence
}

func (r *Room) updatePresence(c *Client, p *PresencePayload) {
	p.Subject = c.Subject
	r.presences[c.ClientID] = p

	msg := r.message(TypePresenceUpdate, p)
	msg.ClientID = c.ClientID
	r.broadcast(msg, c.ClientID)
}

func (r *Room) presenceState() *Message {
	if len(r.presences) == 0 {
		return nil
	}
	return r.message(TypePresenceState, PresenceStatePayload{Presences: r.presences})
}
