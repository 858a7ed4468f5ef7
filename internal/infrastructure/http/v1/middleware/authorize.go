// Package middleware provides HTTP middleware for the API.
package middleware

import (
	"github.com/gin-gonic/gin"

	"tally/internal/core/security"
)

// Authorize checks the action against the central authorization matrix.
// Every permission decision goes through security.Authorizer so the rules
// live in one place instead of being scattered over handlers.
func Authorize(authz *security.Authorizer, action security.Action, resource security.Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := authz.Require(c.Request.Context(), action, resource); err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		c.Next()
	}
}
