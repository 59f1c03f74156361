package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GIGGLE-TOKEN/faveit-sifirdan/pkg/jwt"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/pkg/log"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/pkg/response"
)

const (
	UserIDKey     = log.FieldUserID
	CallerKey     = log.FieldCaller
	UsernameKey   = "username"
	RolesKey      = "roles"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// Identity resolves who is calling. A valid bearer token identifies the
// caller as user:<id>; anything else, including a bad token, falls back to
// ip:<client ip>. Requests are never rejected here.
func Identity(m *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := "ip:" + c.ClientIP()

		if token, ok := bearerToken(c); ok && m != nil {
			claims, err := m.ValidateToken(token)
			if err == nil {
				caller = "user:" + claims.UserID
				c.Set(UserIDKey, claims.UserID)
				c.Set(UsernameKey, claims.Username)
				c.Set(RolesKey, claims.Roles)
			} else {
				l := log.Ctx(c.Request.Context())
				l.Debug().Err(err).Msg("ignoring invalid bearer token")
			}
		}

		c.Set(CallerKey, caller)
		c.Next()
	}
}

// RequireRole rejects callers without a valid token carrying role.
// It must run after Identity.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserID(c) == "" {
			response.Unauthorized(c, "authentication required")
			c.Abort()
			return
		}
		for _, r := range GetRoles(c) {
			if r == role {
				c.Next()
				return
			}
		}
		response.Forbidden(c, "insufficient permissions")
		c.Abort()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader(AuthHeaderKey)
	if !strings.HasPrefix(authHeader, BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, BearerPrefix))
	return token, token != ""
}

// GetUserID extracts user ID from Gin context.
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// GetCaller extracts the rate-limit identifier set by Identity.
func GetCaller(c *gin.Context) string {
	return c.GetString(CallerKey)
}

// GetRoles extracts roles from Gin context.
func GetRoles(c *gin.Context) []string {
	return c.GetStringSlice(RolesKey)
}
