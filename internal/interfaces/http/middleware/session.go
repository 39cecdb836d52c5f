// internal/interfaces/http/middleware/session.go
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	SessionHeader = "X-Session-ID"
	SessionCookie = "session_id"
	SessionKey    = "session_id"

	maxSessionIDLen = 64
)

// Session resolves the visitor's cart session from the X-Session-ID
// header or the session cookie, issuing a new id when neither is usable
func Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(SessionHeader)
		if !validSessionID(id) {
			id, _ = c.Cookie(SessionCookie)
		}
		if !validSessionID(id) {
			id = uuid.NewString()
			// Set session cookie (30 days)
			c.SetCookie(SessionCookie, id, 30*86400, "/", "", false, true)
		}

		c.Set(SessionKey, id)
		c.Header(SessionHeader, id)
		c.Next()
	}
}

// GetSessionIDFromContext returns the id resolved by Session
func GetSessionIDFromContext(c *gin.Context) string {
	return c.GetString(SessionKey)
}

func validSessionID(id string) bool {
	if id == "" || len(id) > maxSessionIDLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
