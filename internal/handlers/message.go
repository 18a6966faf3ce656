package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"roomchat-service/internal/models"
	"roomchat-service/internal/observability"
	"roomchat-service/internal/presence"
	"roomchat-service/internal/repositories"
	"roomchat-service/internal/ws"
)

// MessageHandler manages message history, sending and deletion.
type MessageHandler struct {
	messages repositories.MessageRepository
	tracker  *presence.Tracker
	hub      *ws.Hub
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(messages repositories.MessageRepository, tracker *presence.Tracker, hub *ws.Hub) *MessageHandler {
	return &MessageHandler{messages: messages, tracker: tracker, hub: hub}
}

// ListHistory handles GET /rooms/:room/messages. The window is the `limit`
// most recent messages after skipping `offset` from the newest end, returned
// oldest first.
func (h *MessageHandler) ListHistory(c *gin.Context) {
	room := c.Param("room")

	offset, err := parseQueryInt(c, "offset", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})
		return
	}
	limit, err := parseQueryInt(c, "limit", repositories.DefaultPageLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	msgs, err := h.messages.Page(c.Request.Context(), room, offset, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostMessage handles POST /rooms/:room/messages. Stores a text message,
// refreshes the sender's presence and broadcasts to the room.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	room := c.Param("room")
	username := c.GetString("username")

	var req struct {
		Content string `json:"content"`
		ReplyTo *int64 `json:"reply_to"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message text is empty"})
		return
	}

	msg, err := h.messages.Append(c.Request.Context(), room, username, models.KindText, content, nil, req.ReplyTo)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	_ = h.tracker.Touch(c.Request.Context(), room, username)
	h.hub.BroadcastMessage(room, msg)
	_ = observability.PublishEvent(c.Request.Context(), "room_events.messages", observability.EventEnvelope{
		EventType: "room_events",
		EventName: "message_stored",
		Payload:   gin.H{"room": room, "message_id": msg.ID, "kind": msg.Kind},
	}, observability.BuildHeaders(requestIDFromContext(c), ""))

	c.JSON(http.StatusCreated, msg)
}

// DeleteMessage handles DELETE /rooms/:room/messages/:message_id. Only the
// author may soft-delete; the row is kept with placeholder content.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	room := c.Param("room")
	username := c.GetString("username")

	messageID, err := strconv.ParseInt(c.Param("message_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	msg, err := h.messages.SoftDelete(c.Request.Context(), room, messageID, username)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrMessageNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		case errors.Is(err, repositories.ErrNotMessageAuthor):
			c.JSON(http.StatusForbidden, gin.H{"error": "only the author can delete a message"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete message"})
		}
		return
	}

	h.hub.BroadcastDeletion(room, msg.ID)
	_ = observability.PublishEvent(c.Request.Context(), "room_events.messages", observability.EventEnvelope{
		EventType: "room_events",
		EventName: "message_deleted",
		Payload:   gin.H{"room": room, "message_id": msg.ID},
	}, observability.BuildHeaders(requestIDFromContext(c), ""))

	c.Status(http.StatusNoContent)
}

func parseQueryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		return 0, errors.New("invalid " + key)
	}
	return val, nil
}
