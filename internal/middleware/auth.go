package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/huangang/ouranotify/pkg/response"
)

// TokenRequired guards the JSON command API with a static bearer token.
// An empty token disables the API entirely.
func TokenRequired(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			response.Forbidden(c, "command api is disabled: api_token is not configured")
			c.Abort()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "authorization header required")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header format")
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(token)) != 1 {
			response.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}
		c.Next()
	}
}
