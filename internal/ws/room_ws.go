package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"roomchat-service/internal/models"
	"roomchat-service/internal/observability"
	"roomchat-service/internal/presence"
	"roomchat-service/internal/repositories"
	"roomchat-service/internal/session"
)

// historyReplaySize is how many persisted messages a joining connection
// receives before live events.
const historyReplaySize = 20

// clientFrame is what a connection may send over the socket. History,
// uploads, deletions and presence queries go through the HTTP API.
type clientFrame struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	ReplyTo *int64 `json:"reply_to,omitempty"`
}

// RoomWebSocketHandler upgrades connections and runs the per-connection
// read loop.
type RoomWebSocketHandler struct {
	hub         *Hub
	rooms       repositories.RoomRepository
	messages    repositories.MessageRepository
	tracker     *presence.Tracker
	tokenSecret string
}

// NewRoomWebSocketHandler constructs a RoomWebSocketHandler.
func NewRoomWebSocketHandler(hub *Hub, rooms repositories.RoomRepository, messages repositories.MessageRepository, tracker *presence.Tracker, tokenSecret string) *RoomWebSocketHandler {
	return &RoomWebSocketHandler{hub: hub, rooms: rooms, messages: messages, tracker: tracker, tokenSecret: tokenSecret}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle joins the connection to the room: it validates the session token,
// registers the member, announces the join and replays recent history.
func (h *RoomWebSocketHandler) Handle(c *gin.Context) {
	room := c.Param("room")

	ctx, span := otel.Tracer("roomchat-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.GetHeader("Authorization")
	if token == "" {
		token = c.Query("token")
		if token != "" {
			token = "Bearer " + token
		}
	}

	claims, err := h.parseToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	if claims.Room != room {
		c.JSON(http.StatusForbidden, gin.H{"error": "token is for another room"})
		return
	}

	if _, err := h.rooms.Get(ctx, room); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRoomNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "room not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	info := ConnInfo{
		ConnID:      newConnID(),
		Username:    claims.Username,
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}

	h.hub.AddClient(room, conn, info)
	h.hub.BroadcastStatus(room, claims.Username, claims.Username+" joined")

	history, err := h.messages.Page(ctx, room, 0, historyReplaySize)
	if err != nil {
		log.Printf("history replay failed room=%s conn=%s: %v", room, info.ConnID, err)
	} else {
		h.hub.SendHistory(room, conn, history)
	}
	_ = h.tracker.Touch(ctx, room, claims.Username)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	_ = observability.PublishEvent(ctx, "ws_events.rooms", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_connect",
		Payload:   wsEventPayload(room, "ws_connect", info, 0, ""),
	}, observability.BuildHeaders(info.RequestID, info.TraceID))

	go h.readLoop(room, conn, info)
}

// readLoop consumes client frames until the connection dies, then announces
// the leave to the remaining members.
func (h *RoomWebSocketHandler) readLoop(room string, conn *websocket.Conn, info ConnInfo) {
	ctx := context.Background()
	var closeReason string
	defer func() {
		h.hub.RemoveClient(room, conn)
		h.hub.BroadcastStatus(room, info.Username, info.Username+" left")
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		_ = observability.PublishEvent(ctx, "ws_events.rooms", observability.EventEnvelope{
			EventType: "ws_events",
			EventName: "ws_disconnect",
			Payload:   wsEventPayload(room, "ws_disconnect", info, time.Since(info.ConnectedAt), closeReason),
		}, observability.BuildHeaders(info.RequestID, info.TraceID))
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
			}
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			continue
		}
		switch frame.Type {
		case "text":
			content := strings.TrimSpace(frame.Content)
			if content == "" {
				continue
			}
			msg, err := h.messages.Append(ctx, room, info.Username, models.KindText, content, nil, frame.ReplyTo)
			if err != nil {
				log.Printf("ws message append failed room=%s user=%s: %v", room, info.Username, err)
				continue
			}
			_ = h.tracker.Touch(ctx, room, info.Username)
			h.hub.BroadcastMessage(room, msg)
		case "typing":
			_ = h.tracker.MarkTyping(ctx, room, info.Username)
			h.hub.BroadcastTyping(room, info.Username)
		}
	}
}

func (h *RoomWebSocketHandler) parseToken(header string) (session.Claims, error) {
	parts := strings.Split(header, " ")
	if len(parts) == 2 {
		return session.Parse(h.tokenSecret, parts[1])
	}
	return session.Claims{}, errors.New("invalid token")
}
