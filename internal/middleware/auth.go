package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"roomchat-service/internal/session"
)

// RoomSession validates the Bearer session token and rejects tokens minted
// for a different room than the one in the route.
func RoomSession(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		claims, err := session.Parse(secret, parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if room := c.Param("room"); room != "" && room != claims.Room {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "token is for another room"})
			return
		}

		c.Set("username", claims.Username)
		c.Set("room", claims.Room)
		c.Next()
	}
}
