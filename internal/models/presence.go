package models

import "time"

// PresenceRecord tracks liveness for one (room, user) pair. At most one
// record exists per pair; writes are upserts.
type PresenceRecord struct {
	Room        string    `db:"room" json:"room"`
	Username    string    `db:"username" json:"username"`
	LastSeen    time.Time `db:"last_seen" json:"last_seen"`
	TypingUntil time.Time `db:"typing_until" json:"typing_until"`
}

// PresenceSnapshot is the window-based view of a room returned to clients.
type PresenceSnapshot struct {
	Online []string `json:"online"`
	Typing []string `json:"typing"`
}
