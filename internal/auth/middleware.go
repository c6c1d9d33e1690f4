// Package auth gates mutating API routes behind a static API key. The
// relayer key funds every sponsored transaction, so an exposed relay
// must not accept submissions from arbitrary callers.
package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cyphera/delegation-relay/internal/logger"
)

// APIKeyHeader carries the caller's key.
const APIKeyHeader = "X-API-Key"

// APIKeyMiddleware rejects requests whose X-API-Key header does not
// match key. An empty key disables the check, for local development.
func APIKeyMiddleware(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		presented := c.GetHeader(APIKeyHeader)
		if subtle.ConstantTimeCompare([]byte(presented), []byte(key)) != 1 {
			if logger.Log != nil {
				logger.Warn("rejected request with invalid API key",
					zap.String("path", c.Request.URL.Path),
					zap.String("client_ip", c.ClientIP()),
				)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or missing API key"})
			return
		}
		c.Next()
	}
}
