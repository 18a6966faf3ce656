package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"roomchat-service/internal/mocks"
	"roomchat-service/internal/models"
	"roomchat-service/internal/ws"
)

func setupPresenceRouter(handler *PresenceHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("username", "alice")
		c.Next()
	})
	r.POST("/rooms/:room/ping", handler.Ping)
	r.POST("/rooms/:room/typing", handler.Typing)
	r.GET("/rooms/:room/presence", handler.Who)
	return r
}

func TestPingTouchesPresence(t *testing.T) {
	presenceRepo := new(mocks.PresenceRepositoryMock)
	handler := NewPresenceHandler(newTestTracker(presenceRepo), ws.NewHub())
	router := setupPresenceRouter(handler)

	presenceRepo.On("Touch", mock.Anything, "lobby", "alice", mock.Anything).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/rooms/lobby/ping", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	presenceRepo.AssertExpectations(t)
}

func TestTypingMarksWindow(t *testing.T) {
	presenceRepo := new(mocks.PresenceRepositoryMock)
	handler := NewPresenceHandler(newTestTracker(presenceRepo), ws.NewHub())
	router := setupPresenceRouter(handler)

	presenceRepo.On("MarkTyping", mock.Anything, "lobby", "alice", mock.Anything, mock.Anything).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/rooms/lobby/typing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	presenceRepo.AssertExpectations(t)
}

func TestWhoReturnsSnapshot(t *testing.T) {
	presenceRepo := new(mocks.PresenceRepositoryMock)
	handler := NewPresenceHandler(newTestTracker(presenceRepo), ws.NewHub())
	router := setupPresenceRouter(handler)

	now := time.Now()
	presenceRepo.On("ListRoom", mock.Anything, "lobby").Return([]models.PresenceRecord{
		{Room: "lobby", Username: "bob", LastSeen: now, TypingUntil: now.Add(2 * time.Second)},
		{Room: "lobby", Username: "alice", LastSeen: now},
		{Room: "lobby", Username: "carol", LastSeen: now.Add(-10 * time.Minute)},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/rooms/lobby/presence", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var snapshot models.PresenceSnapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snapshot))
	require.Equal(t, []string{"alice", "bob"}, snapshot.Online)
	require.Equal(t, []string{"bob"}, snapshot.Typing)
	presenceRepo.AssertExpectations(t)
}
