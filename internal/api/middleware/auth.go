package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gitinsight/gitinsight/internal/pkg/jwt"
	"github.com/gitinsight/gitinsight/internal/pkg/response"
)

const UserIDKey = "userGithubID"

// Auth requires a valid bearer token issued by the web layer.
func Auth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.AuthError(c, "missing credentials")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			response.AuthError(c, "malformed authorization header")
			c.Abort()
			return
		}

		claims, err := jwt.ParseToken(tokenString, jwtSecret)
		if err != nil {
			response.AuthError(c, "invalid or expired credentials")
			c.Abort()
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Next()
	}
}

// OptionalAuth attaches the owner identity when a valid token is present
// and lets guests through otherwise.
func OptionalAuth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.Next()
			return
		}

		if claims, err := jwt.ParseToken(tokenString, jwtSecret); err == nil {
			c.Set(UserIDKey, claims.UserID)
		}

		c.Next()
	}
}

// GetUserID returns the owner identity, or nil for guest callers.
func GetUserID(c *gin.Context) *string {
	v, exists := c.Get(UserIDKey)
	if !exists {
		return nil
	}
	id, ok := v.(string)
	if !ok || id == "" {
		return nil
	}
	return &id
}
