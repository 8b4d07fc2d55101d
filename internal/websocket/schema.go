package websocket

import "github.com/google/uuid"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
)

// RequestPayload is the single client→server message shape. The countdown
// stream is server-driven; clients only keep the connection alive.
type RequestPayload struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventTick  Event = "tick"
	EventEnded Event = "ended"
	EventError Event = "error"
	EventPong  Event = "pong"
)

// TickResponse carries one countdown beat.
type TickResponse struct {
	Event    Event  `json:"event"`
	Status   string `json:"status"`
	TimeLeft int    `json:"time_left_seconds"`
}

// EndedResponse closes the stream once the session reaches a terminal state.
type EndedResponse struct {
	Event    Event      `json:"event"`
	Status   string     `json:"status"`
	ResultID *uuid.UUID `json:"result_id,omitempty"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
