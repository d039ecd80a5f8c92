package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// APIKeyHeader carries the admin key
const APIKeyHeader = "X-API-Key"

// AdminAuth is the single admin check. It guards the /api/admin group and
// is mounted on individual admin-only routes elsewhere. Paths ending in
// one of publicMarkers (a whole trailing segment) pass without a key.
func AdminAuth(apiKey string, publicMarkers []string) gin.HandlerFunc {
	expected := []byte(apiKey)
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, marker := range publicMarkers {
			if marker != "" && strings.HasSuffix(path, marker) {
				c.Next()
				return
			}
		}

		provided := []byte(c.GetHeader(APIKeyHeader))
		if len(expected) == 0 || subtle.ConstantTimeCompare(provided, expected) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Unauthorized",
				"message": "Invalid or missing API key",
			})
			return
		}
		c.Next()
	}
}
