package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "tally/internal/core/context"
)

// RequestMetadata captures transport-level facts (client IP, user agent)
// into the request context. The audit and login logs read them from there;
// business logic never does.
func RequestMetadata() gin.HandlerFunc {
	return func(c *gin.Context) {
		meta := &appctx.RequestMetadata{
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		ctx := appctx.WithRequestMetadata(c.Request.Context(), meta)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
