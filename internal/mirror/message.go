// Package mirror shares the chat transcript with browser and terminal
// clients over websockets and relays their commands back to the daemon.
package mirror

import "time"

// Message is one transcript entry broadcast to every client.
type Message struct {
	Role      string    `json:"role"` // "user", "assistant", "system"
	Kind      string    `json:"kind,omitempty"`
	Text      string    `json:"text"`
	SessionID string    `json:"session_id,omitempty"`
	Time      time.Time `json:"time"`
}

// Inbound is what clients send: a command to route, or a control verb.
type Inbound struct {
	Type string `json:"type"` // "command", "cancel", "reset"
	Text string `json:"text,omitempty"`
}
