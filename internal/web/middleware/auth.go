package middleware

import (
	"github.com/gin-gonic/gin"
)

// SessionAuth resolves the request's session identity and never rejects:
// a missing or invalid token degrades to the anonymous identity. Dashboard
// routes use this so auth failure is never fatal to the UI.
func (m *MiddlewareManager) SessionAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := m.auth.Ready(c, BearerToken(c))
		c.Set("user_id", identity.UserID)
		c.Set("anonymous", identity.Anonymous)
		c.Next()
	}
}

// RequireAuth rejects requests without a valid token. Account routes use
// this; the anonymous identity is not enough to change credentials.
func (m *MiddlewareManager) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(401, gin.H{"error": "Missing token"})
			return
		}
		userID, err := m.auth.ValidateToken(c, token)
		if err != nil {
			c.AbortWithStatusJSON(401, gin.H{"error": "Invalid token"})
			return
		}
		c.Set("user_id", userID)
		c.Next()
	}
}
