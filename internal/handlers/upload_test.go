package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"roomchat-service/internal/mocks"
	"roomchat-service/internal/models"
	"roomchat-service/internal/uploads"
	"roomchat-service/internal/ws"
)

func setupUploadRouter(handler *UploadHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("username", "alice")
		c.Next()
	})
	r.POST("/rooms/:room/uploads", handler.Upload)
	r.GET("/uploads/:name", handler.Serve)
	return r
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestUploadStoresMediaMessage(t *testing.T) {
	store, err := uploads.NewStore(t.TempDir(), 1<<20)
	require.NoError(t, err)

	messageRepo := new(mocks.MessageRepositoryMock)
	presenceRepo := new(mocks.PresenceRepositoryMock)
	handler := NewUploadHandler(messageRepo, newTestTracker(presenceRepo), ws.NewHub(), store, 1<<20)
	router := setupUploadRouter(handler)

	messageRepo.On("Append", mock.Anything, "lobby", "alice", models.KindImage, mock.AnythingOfType("string"), mock.AnythingOfType("*string"), (*int64)(nil)).
		Return(models.Message{ID: 1, Room: "lobby", Kind: models.KindImage}, nil).Once()
	presenceRepo.On("Touch", mock.Anything, "lobby", "alice", mock.Anything).Return(nil).Once()

	body, contentType := multipartBody(t, "file", "cat.png", []byte("not-really-a-png"))
	req := httptest.NewRequest(http.MethodPost, "/rooms/lobby/uploads", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	messageRepo.AssertExpectations(t)
	presenceRepo.AssertExpectations(t)
}

func TestUploadMissingFile(t *testing.T) {
	store, err := uploads.NewStore(t.TempDir(), 1<<20)
	require.NoError(t, err)
	handler := NewUploadHandler(new(mocks.MessageRepositoryMock), newTestTracker(new(mocks.PresenceRepositoryMock)), ws.NewHub(), store, 1<<20)
	router := setupUploadRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/rooms/lobby/uploads", bytes.NewBufferString(""))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadTooLarge(t *testing.T) {
	store, err := uploads.NewStore(t.TempDir(), 8)
	require.NoError(t, err)
	handler := NewUploadHandler(new(mocks.MessageRepositoryMock), newTestTracker(new(mocks.PresenceRepositoryMock)), ws.NewHub(), store, 8)
	router := setupUploadRouter(handler)

	body, contentType := multipartBody(t, "file", "big.bin", bytes.Repeat([]byte("x"), 64))
	req := httptest.NewRequest(http.MethodPost, "/rooms/lobby/uploads", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestServeUnknownFile(t *testing.T) {
	store, err := uploads.NewStore(t.TempDir(), 1<<20)
	require.NoError(t, err)
	handler := NewUploadHandler(new(mocks.MessageRepositoryMock), newTestTracker(new(mocks.PresenceRepositoryMock)), ws.NewHub(), store, 1<<20)
	router := setupUploadRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/uploads/nope.bin", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}
