package apigateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"speech-eval-toolkit/internal/auth"
	"speech-eval-toolkit/internal/config"
	"speech-eval-toolkit/internal/configmanagement"
	"speech-eval-toolkit/internal/coreengine/evaluationengine"
	"speech-eval-toolkit/internal/coreengine/highlight"
	"speech-eval-toolkit/internal/jobmanagement"
	"speech-eval-toolkit/internal/objectstore"
	"speech-eval-toolkit/internal/speechworkflow"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	auth.LoadAdminCredentials(config.AdminConfig{Username: "ops", Password: "pw", SessionToken: "tok"})

	store := objectstore.NewMemoryStore()
	cmp := evaluationengine.NewComparator(highlight.BracketStyle())
	return SetupRouter(Handlers{
		Config:   configmanagement.NewHandlers(store),
		Jobs:     jobmanagement.NewHandlers(jobmanagement.NewJobService(cmp), store, nil),
		Workflow: speechworkflow.NewHandlers(nil, store, 0, 0, "en-US"),
	})
}

func serve(r http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSetupRouter(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		token  string
		want   int
	}{
		{"health is public", http.MethodGet, "/healthz", "", "", http.StatusOK},
		{"admin needs a session", http.MethodGet, "/admin/jobs", "", "", http.StatusUnauthorized},
		{"login", http.MethodPost, "/auth/login", `{"username":"ops","password":"pw"}`, "", http.StatusOK},
		{"workflow without platform", http.MethodPost, "/admin/projects", `{"display_name":"x"}`, "tok", http.StatusServiceUnavailable},
		{"unknown route", http.MethodGet, "/admin/nothing", "", "tok", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := serve(r, tt.method, tt.path, tt.body, tt.token); w.Code != tt.want {
				t.Errorf("%s %s = %d, want %d; body = %s", tt.method, tt.path, w.Code, tt.want, w.Body)
			}
		})
	}
}

func TestSetupRouter_Score(t *testing.T) {
	r := newTestRouter(t)

	w := serve(r, http.MethodPost, "/admin/score", `{"reference":"the quick brown fox","hypothesis":"the fast brown fox"}`, "tok")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}
	var res evaluationengine.Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.WER != 0.25 {
		t.Errorf("WER = %v, want 0.25", res.WER)
	}
	if len(res.Operations) != 3 {
		t.Errorf("operations = %d, want equal/substitution/equal", len(res.Operations))
	}
}
