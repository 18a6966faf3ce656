package models

// Event types emitted over room websockets.
const (
	EventStatus  = "status"
	EventMessage = "message"
	EventTyping  = "typing"
	EventDeleted = "deleted"
)

// RoomEvent is broadcast through websockets to room members.
type RoomEvent struct {
	Type      string   `json:"type"`
	Message   *Message `json:"message,omitempty"`
	MessageID int64    `json:"message_id,omitempty"`
	Username  string   `json:"username,omitempty"`
	Status    string   `json:"status,omitempty"`
	Online    int      `json:"online,omitempty"`
}
