package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"plancore/api/internal/config"
	"plancore/api/internal/security"
	"plancore/api/internal/service"
)

const (
	principalKey   = "auth_principal"
	authoritiesKey = "auth_authorities"

	bearerPrefix = "Bearer "
)

// Principal is the authenticated identity attached to a request.
type Principal struct {
	UserID   string
	Username string
	RoleCode string
}

// Auth extracts and verifies the bearer token and resolves the principal's
// live authority set. A missing or invalid token is not an error here: the
// request simply continues anonymous, and RequirePermission produces the 401
// where authentication is actually required.
func Auth(cfg *config.AppConfig, perms *service.PermissionService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, bearerPrefix) {
			c.Next()
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, bearerPrefix)

		claims, err := security.ParseAccessToken(tokenStr, cfg.Security.JWTSecret)
		if err != nil {
			subject := ""
			if peeked, peekErr := security.PeekClaims(tokenStr); peekErr == nil {
				subject = peeked.Username()
			}
			log.Debug().
				Err(err).
				Str("subject", subject).
				Str("path", c.Request.URL.Path).
				Msg("bearer token rejected")
			c.Next()
			return
		}

		principal := Principal{
			UserID:   claims.UserID,
			Username: claims.Username(),
			RoleCode: claims.RoleCode,
		}

		// Fetched fresh per request: permission changes apply on the
		// principal's next call without re-login.
		authorities := perms.Authorities(c.Request.Context(), principal.RoleCode)

		c.Set(principalKey, principal)
		c.Set(authoritiesKey, authorities)

		c.Next()
	}
}

// PrincipalFrom returns the authenticated principal, if any.
func PrincipalFrom(c *gin.Context) (Principal, bool) {
	val, exists := c.Get(principalKey)
	if !exists {
		return Principal{}, false
	}
	principal, ok := val.(Principal)
	return principal, ok
}

// AuthoritiesFrom returns the resolved authority set for the request.
func AuthoritiesFrom(c *gin.Context) []string {
	val, exists := c.Get(authoritiesKey)
	if !exists {
		return nil
	}
	authorities, _ := val.([]string)
	return authorities
}
