package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jjinnspecs/authhub/internal/auth"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	jwt TokenVerifier
}

func NewAuthMiddleware(jwt TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

const (
	ctxUserIDKey   = "auth.userID"
	ctxUsernameKey = "auth.username"
)

// RequireAuth gates protected routes. An absent token is a 403, a token
// that fails verification is a 401; clients rely on the distinction.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":    "missing_token",
					"message": "No token provided",
				},
			})
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":    "missing_token",
					"message": "No token provided",
				},
			})
			return
		}

		claims, err := m.jwt.Verify(raw)
		if err != nil {
			code := "invalid_token"
			if errors.Is(err, auth.ErrTokenExpired) {
				code = "token_expired"
			}

			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    code,
					"message": "Invalid or expired token",
				},
			})
			return
		}

		// Stash useful bits of identity on the context
		c.Set(ctxUserIDKey, claims.UserID)
		c.Set(ctxUsernameKey, claims.Username)

		c.Next()
	}
}

// Helpers so handlers don't need to know the magic keys.

func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxUserIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

func UsernameFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxUsernameKey)
	if !ok {
		return "", false
	}
	name, ok := v.(string)
	return name, ok
}
