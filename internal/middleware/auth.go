package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIKeyAuth guards the admin endpoints with a static key. An empty
// configured key disables the surface entirely.
func APIKeyAuth(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "api disabled"})
			return
		}
		key := c.GetHeader("X-API-Key")
		if key == "" || key != apiKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			return
		}
		c.Next()
	}
}
