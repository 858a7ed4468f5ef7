package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "tally/internal/core/context"
)

// Correlation headers honored on the way in and echoed on the way out.
const (
	HeaderRequestID = "X-Request-ID"
	HeaderTraceID   = "X-Trace-ID"
)

// Trace attaches correlation IDs to every request, reusing IDs supplied
// by the caller so traces survive hops through upstream proxies.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		tc := appctx.NewTraceContext()
		if v := c.GetHeader(HeaderRequestID); v != "" {
			tc.RequestID = v
		}
		if v := c.GetHeader(HeaderTraceID); v != "" {
			tc.TraceID = v
		}

		c.Request = c.Request.WithContext(appctx.WithTrace(c.Request.Context(), tc))

		c.Header(HeaderRequestID, tc.RequestID)
		c.Header(HeaderTraceID, tc.TraceID)

		c.Next()
	}
}
