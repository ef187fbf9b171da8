package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"speech-eval-toolkit/internal/config"
)

func newTestRouter(t *testing.T, cfg config.AdminConfig) *gin.Engine {
	t.Helper()
	LoadAdminCredentials(cfg)
	t.Cleanup(func() { admin = AdminUser{} })

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/auth/login", LoginHandler)
	r.POST("/auth/logout", LogoutHandler)
	r.GET("/admin/ping", AuthMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	return r
}

func testAdmin() config.AdminConfig {
	return config.AdminConfig{
		Username:     "ops",
		Password:     "hunter2",
		SessionToken: "tok-123",
		SessionTTL:   config.Duration{Duration: 30 * time.Minute},
	}
}

func login(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLoginHandler(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.AdminConfig
		body string
		want int
	}{
		{"valid", testAdmin(), `{"username":"ops","password":"hunter2"}`, http.StatusOK},
		{"wrong password", testAdmin(), `{"username":"ops","password":"nope"}`, http.StatusUnauthorized},
		{"malformed", testAdmin(), `{"username":`, http.StatusBadRequest},
		{"not configured", config.AdminConfig{}, `{"username":"ops","password":"hunter2"}`, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(t, tt.cfg)
			if w := login(r, tt.body); w.Code != tt.want {
				t.Errorf("status = %d, want %d; body = %s", w.Code, tt.want, w.Body)
			}
		})
	}
}

func TestLoginSetsCookieWithTTL(t *testing.T) {
	r := newTestRouter(t, testAdmin())
	w := login(r, `{"username":"ops","password":"hunter2"}`)

	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %v, want one session cookie", cookies)
	}
	if cookies[0].Name != sessionCookieName || cookies[0].Value != "tok-123" {
		t.Errorf("cookie = %s=%s", cookies[0].Name, cookies[0].Value)
	}
	if cookies[0].MaxAge != 1800 {
		t.Errorf("MaxAge = %d, want 1800", cookies[0].MaxAge)
	}
}

func TestAuthMiddleware(t *testing.T) {
	r := newTestRouter(t, testAdmin())

	tests := []struct {
		name  string
		setup func(*http.Request)
		want  int
	}{
		{"no token", func(*http.Request) {}, http.StatusUnauthorized},
		{"cookie", func(req *http.Request) {
			req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "tok-123"})
		}, http.StatusOK},
		{"bearer", func(req *http.Request) { req.Header.Set("Authorization", "Bearer tok-123") }, http.StatusOK},
		{"wrong token", func(req *http.Request) { req.Header.Set("Authorization", "Bearer other") }, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
			tt.setup(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestLoadAdminCredentials_DefaultTTL(t *testing.T) {
	cfg := testAdmin()
	cfg.SessionTTL = config.Duration{}
	newTestRouter(t, cfg)
	if admin.SessionTTL != defaultSessionTTL {
		t.Errorf("SessionTTL = %s, want %s", admin.SessionTTL, defaultSessionTTL)
	}
}
