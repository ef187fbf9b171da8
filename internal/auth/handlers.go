package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// LoginPayload defines the expected JSON structure for login requests.
type LoginPayload struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

const sessionCookieName = "admin_session_token"

// LoginHandler checks the credentials and sets the session cookie. The token
// is also returned in the body for clients that send it as a bearer token.
func LoginHandler(c *gin.Context) {
	var payload LoginPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	if !admin.configured() {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Admin credentials not configured on server"})
		return
	}

	if !admin.matches(payload.Username, payload.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	c.SetCookie(sessionCookieName, admin.SessionToken, int(admin.SessionTTL.Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   admin.SessionToken,
	})
}

// LogoutHandler clears the session cookie.
func LogoutHandler(c *gin.Context) {
	c.SetCookie(sessionCookieName, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}
