package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDContextKey = "request_id"

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

func usernameFromContext(c *gin.Context) *string {
	if val, ok := c.Get("username"); ok {
		if username, ok := val.(string); ok && username != "" {
			return &username
		}
	}
	if header := c.GetHeader("X-Username"); header != "" {
		return &header
	}
	return nil
}
