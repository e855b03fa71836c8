package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/evex-campus/backend/internal/auth"
	"github.com/evex-campus/backend/pkg/response"
)

// RequireRole returns a middleware that allows only the given roles.
// Staff users pass regardless of role.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{})
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		ident, ok := auth.IdentityFrom(c)
		if !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		if _, ok := allowed[ident.Role]; !ok && !ident.IsStaff {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}
