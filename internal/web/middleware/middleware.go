package middleware

import (
	"context"
	"strings"

	"homeboard/auth"

	"github.com/gin-gonic/gin"
)

// Authenticator resolves bearer tokens, either JWT or redis session tokens.
type Authenticator interface {
	Ready(ctx context.Context, token string) auth.Identity
	ValidateToken(ctx context.Context, token string) (string, error)
}

type MiddlewareManager struct {
	auth Authenticator
}

func NewMiddlewareManager(authModule Authenticator) *MiddlewareManager {
	return &MiddlewareManager{auth: authModule}
}

// BearerToken extracts the request's bearer token.
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	// Websocket clients can't set headers; accept a query token there.
	return c.Query("token")
}
