package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/resolverd/resolverd/internal/shared/id"
)

// RequestIDHeader carries the request identity.
const RequestIDHeader = "X-Request-ID"

// RequestID attaches a request identity to every request, honoring one the
// client already sent, and echoes it in the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" {
			rid = id.NewRequestID().String()
		}
		c.Set("request_id", rid)
		c.Writer.Header().Set(RequestIDHeader, rid)
		c.Next()
	}
}
