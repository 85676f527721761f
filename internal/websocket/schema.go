// Package websocket defines the wire schema and helpers for the live exam
// monitor stream. Teachers subscribe per exam; the server pushes violation
// deltas as they are reported by student clients.
package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventSnapshot  Event = "snapshot"
	EventViolation Event = "violation"
	EventPong      Event = "pong"
)

// SnapshotResponse carries the aggregated per-student violation totals sent
// once on subscription.
type SnapshotResponse struct {
	Event Event       `json:"event"`
	Data  interface{} `json:"data"`
}

// ViolationResponse carries one live violation delta.
type ViolationResponse struct {
	Event Event       `json:"event"`
	Data  interface{} `json:"data"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
