package auth

import (
	"github.com/gin-gonic/gin"
)

// ContextIdentity is the gin context key under which the JWT middleware
// stores the authenticated Identity.
const ContextIdentity = "identity"

// MustIdentity returns the authenticated identity from the gin context.
// Panics if called on a route without the JWT middleware.
func MustIdentity(c *gin.Context) Identity {
	return c.MustGet(ContextIdentity).(Identity)
}

// IdentityFrom returns the identity and whether it is present.
func IdentityFrom(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(ContextIdentity)
	if !ok {
		return Identity{}, false
	}
	ident, ok := v.(Identity)
	return ident, ok
}
