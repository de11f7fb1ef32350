package websocket

// ActionEventCreated is sent whenever an audit event is recorded.
const ActionEventCreated = "event.created"

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}
