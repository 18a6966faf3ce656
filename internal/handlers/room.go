package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"roomchat-service/internal/repositories"
	"roomchat-service/internal/session"
	"roomchat-service/internal/telemetry"
)

// RoomHandler manages room creation and joining. Joining never creates a
// room; creation is always explicit.
type RoomHandler struct {
	rooms       repositories.RoomRepository
	tokenSecret string
	tokenTTL    time.Duration
	audit       *telemetry.AuditEmitter
}

// NewRoomHandler builds a RoomHandler.
func NewRoomHandler(rooms repositories.RoomRepository, tokenSecret string, tokenTTL time.Duration, audit *telemetry.AuditEmitter) *RoomHandler {
	return &RoomHandler{rooms: rooms, tokenSecret: tokenSecret, tokenTTL: tokenTTL, audit: audit}
}

// CreateRoom handles POST /rooms.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Username string `json:"username" binding:"required"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.rooms.Create(c.Request.Context(), req.Name, req.Password)
	if err != nil {
		if errors.Is(err, repositories.ErrRoomExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "room already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create room"})
		return
	}

	token, err := session.Mint(h.tokenSecret, room.Name, req.Username, h.tokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue session"})
		return
	}

	h.emitAudit(c, "INFO", "room created", room.Name)
	c.JSON(http.StatusCreated, gin.H{"room": room.Name, "token": token})
}

// JoinRoom handles POST /rooms/:room/join. An empty stored password means
// the room is open and any supplied password is accepted.
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	roomName := c.Param("room")

	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.rooms.Join(c.Request.Context(), roomName, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrRoomNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		case errors.Is(err, repositories.ErrBadCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "wrong room password"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not join room"})
		}
		return
	}

	token, err := session.Mint(h.tokenSecret, room.Name, req.Username, h.tokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"room": room.Name, "token": token})
}

func (h *RoomHandler) emitAudit(c *gin.Context, level, text, room string) {
	h.audit.Emit(c.Request.Context(), level, text, room, requestIDFromContext(c), usernameFromContext(c))
}
