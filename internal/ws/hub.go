package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"roomchat-service/internal/models"
	"roomchat-service/internal/observability"
)

// client pairs a connection's metadata with its write lock. gorilla/websocket
// allows at most one concurrent writer per connection, so every frame the hub
// sends goes through write.
type client struct {
	info ConnInfo
	wmu  sync.Mutex
}

func (cl *client) write(conn *websocket.Conn, payload []byte) error {
	cl.wmu.Lock()
	defer cl.wmu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub maintains the active websocket connections per room. Its state is
// ephemeral and rebuilt from zero on restart; the presence tracker's
// window-based online computation is independent of it.
type Hub struct {
	rooms map[string]map[*websocket.Conn]*client
	mu    sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*websocket.Conn]*client)}
}

// AddClient registers a websocket connection under a room.
func (h *Hub) AddClient(room string, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[*websocket.Conn]*client)
	}
	h.rooms[room][conn] = &client{info: info}
}

// RemoveClient removes a connection from a room.
func (h *Hub) RemoveClient(room string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[room]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, room)
		}
	}
}

// OnlineCount reports how many distinct users have a registered connection
// in the room.
func (h *Hub) OnlineCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	users := map[string]struct{}{}
	for _, cl := range h.rooms[room] {
		users[cl.info.Username] = struct{}{}
	}
	return len(users)
}

// RoomCount reports the number of rooms with at least one connection.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// BroadcastStatus announces a join/leave to every member of the room,
// including the subject's own connections.
func (h *Hub) BroadcastStatus(room, username, status string) {
	h.broadcast(room, models.RoomEvent{
		Type:     models.EventStatus,
		Username: username,
		Status:   status,
		Online:   h.OnlineCount(room),
	}, "")
}

// BroadcastMessage delivers a stored message to every member of the room.
func (h *Hub) BroadcastMessage(room string, msg models.Message) {
	h.broadcast(room, models.RoomEvent{Type: models.EventMessage, Message: &msg}, "")
}

// BroadcastTyping delivers a typing indicator to everyone in the room except
// the typer's own connections.
func (h *Hub) BroadcastTyping(room, username string) {
	h.broadcast(room, models.RoomEvent{Type: models.EventTyping, Username: username}, username)
}

// BroadcastDeletion notifies the room that a message was soft-deleted.
func (h *Hub) BroadcastDeletion(room string, messageID int64) {
	h.broadcast(room, models.RoomEvent{Type: models.EventDeleted, MessageID: messageID}, "")
}

// SendHistory replays persisted messages, oldest first, to one connection.
// Replay frames take the same per-connection lock as broadcasts, so a live
// event arriving mid-replay queues behind it instead of interleaving writes.
func (h *Hub) SendHistory(room string, conn *websocket.Conn, msgs []models.Message) {
	h.mu.RLock()
	cl := h.rooms[room][conn]
	h.mu.RUnlock()
	if cl == nil {
		return
	}

	for _, msg := range msgs {
		event := models.RoomEvent{Type: models.EventMessage, Message: &msg}
		payload, _ := json.Marshal(event)
		if err := cl.write(conn, payload); err != nil {
			h.dropConn(room, conn, err)
			return
		}
	}
}

// broadcast sends an event to every connection registered in the room at the
// moment of the call, skipping connections owned by exclUser. Connections
// that fail the write are closed and removed.
func (h *Hub) broadcast(room string, event models.RoomEvent, exclUser string) {
	payload, _ := json.Marshal(event)

	h.mu.RLock()
	targets := make(map[*websocket.Conn]*client, len(h.rooms[room]))
	for conn, cl := range h.rooms[room] {
		if exclUser != "" && cl.info.Username == exclUser {
			continue
		}
		targets[conn] = cl
	}
	h.mu.RUnlock()

	for conn, cl := range targets {
		if err := cl.write(conn, payload); err != nil {
			h.dropConn(room, conn, err)
		}
	}
}

func (h *Hub) dropConn(room string, conn *websocket.Conn, err error) {
	log.Printf("websocket write error: %v", err)
	info, tracked := h.connInfo(room, conn)
	conn.Close()
	h.RemoveClient(room, conn)
	if !tracked {
		return
	}

	observability.IncWSEvent("ws_error")
	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), "ws_events.rooms", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   wsEventPayload(room, "ws_error", info, time.Since(info.ConnectedAt), err.Error()),
	}, headers)
}

func (h *Hub) connInfo(room string, conn *websocket.Conn) (ConnInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if clients, ok := h.rooms[room]; ok {
		if cl, exists := clients[conn]; exists {
			return cl.info, true
		}
	}
	return ConnInfo{}, false
}

func wsEventPayload(room, event string, info ConnInfo, elapsed time.Duration, reason string) map[string]interface{} {
	return map[string]interface{}{
		"ws": map[string]interface{}{
			"room":        room,
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": elapsed.Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"username": info.Username,
			"ip":       info.IP,
		},
	}
}
