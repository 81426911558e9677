package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"plancore/api/internal/httpx"
)

// RequirePermission gates a route on one permission code, matched exactly
// against the resolved authority set. No principal yields 401; a principal
// without the code yields 403 naming what is missing. The check is pure and
// evaluated on every call.
func RequirePermission(code string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := PrincipalFrom(c); !ok {
			httpx.AbortError(c, http.StatusUnauthorized, "authentication required")
			return
		}

		for _, authority := range AuthoritiesFrom(c) {
			if authority == code {
				c.Next()
				return
			}
		}

		httpx.AbortError(c, http.StatusForbidden, "missing required permission: "+code)
	}
}

// RequireAuthenticated gates a route on the presence of a principal without
// demanding any particular permission.
func RequireAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := PrincipalFrom(c); !ok {
			httpx.AbortError(c, http.StatusUnauthorized, "authentication required")
			return
		}
		c.Next()
	}
}
