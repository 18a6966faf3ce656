package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"roomchat-service/internal/presence"
	"roomchat-service/internal/ws"
)

// PresenceHandler exposes activity pings, typing marks and the windowed
// online/typing snapshot.
type PresenceHandler struct {
	tracker *presence.Tracker
	hub     *ws.Hub
}

// NewPresenceHandler builds a PresenceHandler.
func NewPresenceHandler(tracker *presence.Tracker, hub *ws.Hub) *PresenceHandler {
	return &PresenceHandler{tracker: tracker, hub: hub}
}

// Ping handles POST /rooms/:room/ping.
func (h *PresenceHandler) Ping(c *gin.Context) {
	room := c.Param("room")
	username := c.GetString("username")

	if err := h.tracker.Touch(c.Request.Context(), room, username); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record activity"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Typing handles POST /rooms/:room/typing. The indicator self-expires; there
// is no clear call.
func (h *PresenceHandler) Typing(c *gin.Context) {
	room := c.Param("room")
	username := c.GetString("username")

	if err := h.tracker.MarkTyping(c.Request.Context(), room, username); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record typing"})
		return
	}
	h.hub.BroadcastTyping(room, username)
	c.Status(http.StatusNoContent)
}

// Who handles GET /rooms/:room/presence.
func (h *PresenceHandler) Who(c *gin.Context) {
	room := c.Param("room")

	snapshot, err := h.tracker.Snapshot(c.Request.Context(), room)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load presence"})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}
