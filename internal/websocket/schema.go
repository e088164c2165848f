package websocket

import "github.com/stemsi/exam-paper/internal/events"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
)

// RequestEnvelope is used to peek at the action of a client message.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventReady  Event = "ready"
	EventChange Event = "change"
	EventError  Event = "error"
	EventPong   Event = "pong"
)

// ReadyResponse is sent once the change feed subscription is live.
type ReadyResponse struct {
	Event Event `json:"event"`
}

// ChangeResponse forwards one exam or question change.
type ChangeResponse struct {
	Event  Event        `json:"event"`
	Change events.Event `json:"change"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
