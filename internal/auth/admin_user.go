package auth

import (
	"crypto/subtle"
	"time"
)

// AdminUser is the single operator account and its session settings.
type AdminUser struct {
	Username     string
	Password     string
	SessionToken string
	SessionTTL   time.Duration
}

// configured reports whether a login can succeed at all.
func (u AdminUser) configured() bool {
	return u.Username != "" && u.Password != "" && u.SessionToken != ""
}

// matches compares credentials in constant time.
func (u AdminUser) matches(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(u.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(u.Password)) == 1
	return userOK && passOK
}

// validToken reports whether token is the current session token.
func (u AdminUser) validToken(token string) bool {
	return u.SessionToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(u.SessionToken)) == 1
}
