package handlers

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"roomchat-service/internal/observability"
	"roomchat-service/internal/presence"
	"roomchat-service/internal/repositories"
	"roomchat-service/internal/uploads"
	"roomchat-service/internal/ws"
)

// UploadHandler stores media uploads as messages and serves stored files.
type UploadHandler struct {
	messages       repositories.MessageRepository
	tracker        *presence.Tracker
	hub            *ws.Hub
	store          *uploads.Store
	maxUploadBytes int64
}

// NewUploadHandler builds an UploadHandler.
func NewUploadHandler(messages repositories.MessageRepository, tracker *presence.Tracker, hub *ws.Hub, store *uploads.Store, maxUploadBytes int64) *UploadHandler {
	return &UploadHandler{messages: messages, tracker: tracker, hub: hub, store: store, maxUploadBytes: maxUploadBytes}
}

// Upload handles POST /rooms/:room/uploads. The size limit is checked before
// anything is persisted; oversized uploads are rejected, not truncated.
func (h *UploadHandler) Upload(c *gin.Context) {
	room := c.Param("room")
	username := c.GetString("username")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing upload"})
		return
	}
	if fileHeader.Size == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "upload is empty"})
		return
	}
	if fileHeader.Size > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload exceeds maximum size"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}
	defer file.Close()

	storedName, err := h.store.Save(file, fileHeader.Filename)
	if err != nil {
		switch {
		case errors.Is(err, uploads.ErrEmptyUpload):
			c.JSON(http.StatusBadRequest, gin.H{"error": "upload is empty"})
		case errors.Is(err, uploads.ErrTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload exceeds maximum size"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store upload"})
		}
		return
	}

	kind := uploads.KindFor(fileHeader.Filename)
	originalName := fileHeader.Filename
	msg, err := h.messages.Append(c.Request.Context(), room, username, kind, storedName, &originalName, nil)
	if err != nil {
		_ = h.store.Remove(storedName)
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

// Serve handles GET /uploads/:name. Media bytes are opaque to the service;
// this is the thin file-serving collaborator.
func (h *UploadHandler) Serve(c *gin.Context) {
	path := h.store.Path(c.Param("name"))
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}
	c.File(path)
}
