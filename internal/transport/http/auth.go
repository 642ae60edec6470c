package httptransport

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"stayonboard-server-go/internal/domain/auth"
)

// principalKey is where middleware stores the authenticated principal on the
// gin context.
const principalKey = "principal"

// anonymousPrincipal attributes requests when auth is disabled and no
// caller identity was supplied.
const anonymousPrincipal = "anonymous"

// AuthMiddleware authenticates bearer tokens and stores the principal on
// the context.
func AuthMiddleware(tokens *auth.AuthToken) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			RespondError(c, http.StatusUnauthorized, "missing bearer token", nil)
			c.Abort()
			return
		}

		principal, err := tokens.VerifyToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			RespondError(c, http.StatusUnauthorized, "invalid token", nil)
			c.Abort()
			return
		}
		c.Set(principalKey, principal)
		c.Next()
	}
}

// IdentityMiddleware attributes requests when auth is disabled: the caller
// may name itself via the X-Principal header, otherwise it is anonymous.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := strings.TrimSpace(c.GetHeader("X-Principal"))
		if principal == "" {
			principal = anonymousPrincipal
		}
		c.Set(principalKey, principal)
		c.Next()
	}
}

// Principal returns the authenticated principal for the request.
func Principal(c *gin.Context) string {
	if principal, ok := c.Get(principalKey); ok {
		if s, ok := principal.(string); ok && s != "" {
			return s
		}
	}
	return anonymousPrincipal
}
