package ws

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// ConnInfo describes one live socket in a room.
type ConnInfo struct {
	ConnID      string
	Username    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

// newConnID returns a random hex identifier for log and event correlation.
func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
