package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"

	"github.com/readee-ai/docproc/internal/pkg/errcode"
	"github.com/readee-ai/docproc/internal/pkg/response"
)

// APIKeyAuth checks the X-API-Key header against the configured key. An
// empty configured key leaves the API open (development mode) with a warning
// per request, matching how the service has always behaved.
func APIKeyAuth(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			logutil.GetLogger(c.Request.Context()).Warn("api_key not configured, api is open to all requests")
			c.Next()
			return
		}
		got := c.GetHeader("X-API-Key")
		if got == "" {
			response.Error(c, errcode.ErrUnauthorized, "api key required")
			c.Abort()
			return
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(apiKey)) != 1 {
			response.Error(c, errcode.ErrUnauthorized, "invalid api key")
			c.Abort()
			return
		}
		c.Next()
	}
}
