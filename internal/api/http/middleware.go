package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pathwaylab/pathway-core/internal/eventerr"
)

const bearerPrefix = "Bearer "

// APIKeyAuth rejects requests missing a matching "Authorization: Bearer
// <key>" header. An empty expected key disables the check, matching a
// local/dev deployment with no ingest.api_key configured. Only write
// endpoints are wrapped with this middleware; reads stay open.
func APIKeyAuth(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if expected == "" {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) || strings.TrimPrefix(header, bearerPrefix) != expected {
			c.AbortWithStatusJSON(http.StatusUnauthorized, eventerr.ErrorResponse{
				ErrorType: "unauthorized",
				Message:   "missing or invalid API key",
			})
			return
		}
		c.Next()
	}
}
