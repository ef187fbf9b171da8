package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// sessionToken reads the token from the session cookie or an
// "Authorization: Bearer" header.
func sessionToken(c *gin.Context) string {
	if cookie, err := c.Cookie(sessionCookieName); err == nil && cookie != "" {
		return cookie
	}
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// AuthMiddleware rejects requests without a valid session token.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Missing session token"})
			c.Abort()
			return
		}

		if admin.validToken(token) {
			c.Next()
			return
		}

		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid session token"})
		c.Abort()
	}
}
