package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/manyalawy/nawy/pkg/jwt"
	"github.com/manyalawy/nawy/pkg/response"
)

const (
	UserIDKey     = "user_id"
	EmailKey      = "email"
	RoleKey       = "role"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
	// AccessTokenCookie is the cookie the web frontend stores the token in.
	AccessTokenCookie = "accessToken"
)

// TokenValidator validates an access token.
type TokenValidator interface {
	ValidateToken(token string) (*jwt.Claims, error)
}

// AuthMiddleware validates JWT access tokens issued by the auth service.
type AuthMiddleware struct {
	validator TokenValidator
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(validator TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

// RequireAuth returns a Gin middleware that validates the access token from
// the Authorization header or, failing that, the access token cookie.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := extractToken(c)
		if !ok {
			response.Unauthorized(c, "missing access token")
			c.Abort()
			return
		}

		claims, err := m.validator.ValidateToken(token)
		if err != nil {
			msg := "invalid access token"
			if errors.Is(err, jwt.ErrExpiredToken) {
				msg = "access token has expired"
			}
			response.Unauthorized(c, msg)
			c.Abort()
			return
		}

		c.Set(UserIDKey, claims.UserID())
		c.Set(EmailKey, claims.Email)
		c.Set(RoleKey, claims.Role)

		c.Next()
	}
}

// RequireRole returns a Gin middleware that only lets through callers whose
// token carries one of the given roles. It must run after RequireAuth.
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := GetRole(c)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		response.Forbidden(c, "insufficient permissions")
		c.Abort()
	}
}

// RequireAdmin is RequireAuth followed by an ADMIN role check.
func (m *AuthMiddleware) RequireAdmin() []gin.HandlerFunc {
	return []gin.HandlerFunc{m.RequireAuth(), m.RequireRole(jwt.RoleAdmin)}
}

func extractToken(c *gin.Context) (string, bool) {
	if authHeader := c.GetHeader(AuthHeaderKey); authHeader != "" {
		if !strings.HasPrefix(authHeader, BearerPrefix) {
			return "", false
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, BearerPrefix))
		return token, token != ""
	}

	if cookie, err := c.Cookie(AccessTokenCookie); err == nil && cookie != "" {
		return cookie, true
	}
	return "", false
}

// GetUserID extracts user ID from Gin context.
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// GetRole extracts the caller role from Gin context.
func GetRole(c *gin.Context) string {
	return c.GetString(RoleKey)
}
