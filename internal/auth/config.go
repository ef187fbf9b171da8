package auth

import (
	"log"
	"time"

	"speech-eval-toolkit/internal/config"
)

const defaultSessionTTL = time.Hour

var admin AdminUser

// LoadAdminCredentials installs the operator login from cfg. It logs a
// warning for every missing piece; logins fail until they are set.
func LoadAdminCredentials(cfg config.AdminConfig) {
	admin = AdminUser{
		Username:     cfg.Username,
		Password:     cfg.Password,
		SessionToken: cfg.SessionToken,
		SessionTTL:   cfg.SessionTTL.Duration,
	}
	if admin.SessionTTL <= 0 {
		admin.SessionTTL = defaultSessionTTL
	}

	if admin.Username == "" {
		log.Println("WARNING: admin username is not configured.")
	}
	if admin.Password == "" {
		log.Println("WARNING: admin password is not configured.")
	}
	if admin.SessionToken == "" {
		log.Println("WARNING: admin session token is not configured.")
	}
}
