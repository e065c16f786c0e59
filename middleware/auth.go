package middleware

import (
	"net/http"
	"strings"

	"pdf-qa-service/internal/auth"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware validates session tokens and attaches the session id to
// the request context.
type AuthMiddleware struct {
	issuer *auth.TokenIssuer
}

func NewAuthMiddleware(issuer *auth.TokenIssuer) *AuthMiddleware {
	return &AuthMiddleware{issuer: issuer}
}

func (a *AuthMiddleware) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error_code": "unauthorized",
				"message":    "Session token is required",
			})
			c.Abort()
			return
		}

		claims, err := a.issuer.Validate(c.Request.Context(), tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error_code": "session_expired",
				"message":    "Session token is invalid or expired",
			})
			c.Abort()
			return
		}

		c.Set("session_id", claims.SessionID)
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	if cookie, err := c.Cookie("session_token"); err == nil {
		return cookie
	}
	return ""
}

// GetSessionID retrieves the authenticated session id from context.
func GetSessionID(c *gin.Context) string {
	if id, exists := c.Get("session_id"); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
