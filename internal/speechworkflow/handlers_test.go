package speechworkflow

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"speech-eval-toolkit/internal/customspeech"
	"speech-eval-toolkit/internal/objectstore"
)

// fakePlatform is an in-process stand-in for the speech platform REST API.
type fakePlatform struct {
	mu       sync.Mutex
	bodies   map[string]map[string]interface{} // last POST body per collection
	statuses []string                          // status sequence served to GETs
	polls    int
}

func (f *fakePlatform) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/v3.2/")
	parts := strings.Split(path, "/")
	self := "http://" + r.Host + r.URL.Path

	switch r.Method {
	case http.MethodPost:
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		f.bodies[parts[0]] = body
		if parts[0] == "datasets" && body["contentUrl"] == "" {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"code":"InvalidPayload"}`)
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"self": self + "/" + parts[0][:1] + "-1"})
	case http.MethodDelete:
		if parts[len(parts)-1] == "missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case http.MethodGet:
		if parts[len(parts)-1] == "missing" {
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"code":"NotFound"}`)
			return
		}
		status := customspeech.StatusSucceeded
		if f.polls < len(f.statuses) {
			status = f.statuses[f.polls]
		}
		f.polls++
		doc := map[string]interface{}{"self": self, "status": status}
		switch parts[0] {
		case "datasets":
			doc["contentUrl"] = "https://blob/train.zip"
		case "evaluations":
			doc["properties"] = map[string]interface{}{"wordErrorRate1": 12.5, "wordCount": 80}
		}
		json.NewEncoder(w).Encode(doc)
	}
}

func newTestSetup(t *testing.T, statuses ...string) (*gin.Engine, *fakePlatform, *objectstore.MemoryStore) {
	t.Helper()
	fake := &fakePlatform{bodies: make(map[string]map[string]interface{}), statuses: statuses}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store := objectstore.NewMemoryStore()
	h := NewHandlers(customspeech.NewClient(srv.URL, "k"), store, time.Hour, time.Millisecond, "en-US")
	return newTestRouter(h), fake, store
}

func newTestRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/admin", h.RequireClient())
	g.POST("/projects", h.CreateProjectHandler)
	g.DELETE("/projects/:id", h.DeleteProjectHandler)
	g.POST("/datasets", h.CreateDatasetHandler)
	g.GET("/datasets/:id/content-url", h.GetDatasetContentURLHandler)
	g.GET("/base-models/:id", h.GetBaseModelHandler)
	g.POST("/models", h.CreateModelHandler)
	g.GET("/models/:id/status", h.GetModelStatusHandler)
	g.POST("/evaluations", h.CreateEvaluationHandler)
	g.GET("/evaluations/:id", h.GetEvaluationHandler)
	g.GET("/evaluations/:id/status", h.GetEvaluationStatusHandler)
	g.POST("/endpoints", h.CreateEndpointHandler)
	g.GET("/endpoints/:id/status", h.GetEndpointStatusHandler)
	g.DELETE("/endpoints/:id", h.DeleteEndpointHandler)
	return r
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not JSON: %v; body = %s", err, w.Body)
	}
	return out
}

func TestRequireClient(t *testing.T) {
	r := newTestRouter(NewHandlers(nil, nil, 0, 0, ""))
	if w := doJSON(r, http.MethodGet, "/admin/models/m-1/status", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestCreateProject(t *testing.T) {
	r, fake, _ := newTestSetup(t)

	w := doJSON(r, http.MethodPost, "/admin/projects", `{"display_name":"call center"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}
	if got := decode(t, w)["id"]; got != "p-1" {
		t.Errorf("id = %v, want p-1", got)
	}
	if got := fake.bodies["projects"]["locale"]; got != "en-US" {
		t.Errorf("locale sent = %v, want default en-US", got)
	}

	if w := doJSON(r, http.MethodPost, "/admin/projects", `{}`); w.Code != http.StatusBadRequest {
		t.Errorf("missing name status = %d, want 400", w.Code)
	}
}

func TestDeleteProject_NotFound(t *testing.T) {
	r, _, _ := newTestSetup(t)
	if w := doJSON(r, http.MethodDelete, "/admin/projects/missing", ""); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if w := doJSON(r, http.MethodDelete, "/admin/projects/p-1", ""); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestCreateDataset(t *testing.T) {
	r, fake, store := newTestSetup(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("project_id", "p-1")
	fw, _ := mw.CreateFormFile("file", "train.zip")
	fw.Write([]byte("PK\x03\x04"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/admin/datasets", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}
	out := decode(t, w)
	if out["display_name"] != "train" {
		t.Errorf("display_name = %v, want file name without extension", out["display_name"])
	}
	body := fake.bodies["datasets"]
	if url, _ := body["contentUrl"].(string); !strings.HasPrefix(url, "memory:///") {
		t.Errorf("contentUrl = %v, want a signed store URL", body["contentUrl"])
	}
	if body["kind"] != customspeech.DatasetKindAcoustic {
		t.Errorf("kind = %v, want Acoustic default", body["kind"])
	}
	if names := store.Names(""); len(names) != 1 || names[0] != out["object_key"] {
		t.Errorf("stored objects = %v, want [%v]", names, out["object_key"])
	}
}

func TestCreateDataset_RejectsUnknownKind(t *testing.T) {
	r, _, store := newTestSetup(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("kind", "Pronunciation")
	fw, _ := mw.CreateFormFile("file", "train.zip")
	fw.Write([]byte("PK"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/admin/datasets", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if names := store.Names(""); len(names) != 0 {
		t.Errorf("stored objects = %v, want none", names)
	}
}

func TestGetDatasetContentURL(t *testing.T) {
	r, _, _ := newTestSetup(t)
	w := doJSON(r, http.MethodGet, "/admin/datasets/d-1/content-url", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}
	if got := decode(t, w)["content_url"]; got != "https://blob/train.zip" {
		t.Errorf("content_url = %v", got)
	}
}

func TestCreateModel(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		statuses   []string
		wantCode   int
		wantStatus interface{}
	}{
		{"no wait", "", nil, http.StatusCreated, nil},
		{"wait succeeds", "?wait=true", []string{customspeech.StatusRunning, customspeech.StatusSucceeded}, http.StatusCreated, customspeech.StatusSucceeded},
		{"wait fails", "?wait=true", []string{customspeech.StatusFailed}, http.StatusAccepted, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, fake, _ := newTestSetup(t, tt.statuses...)
			body := `{"base_model_id":"b-1","dataset_ids":["d-1","d-2"],"display_name":"tuned"}`
			w := doJSON(r, http.MethodPost, "/admin/models"+tt.query, body)
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d; body = %s", w.Code, tt.wantCode, w.Body)
			}
			out := decode(t, w)
			if out["id"] != "m-1" {
				t.Errorf("id = %v, want m-1", out["id"])
			}
			if out["status"] != tt.wantStatus {
				t.Errorf("status field = %v, want %v", out["status"], tt.wantStatus)
			}
			if ds, _ := fake.bodies["models"]["datasets"].([]interface{}); len(ds) != 2 {
				t.Errorf("datasets sent = %v, want 2 refs", fake.bodies["models"]["datasets"])
			}
		})
	}
}

func TestCreateModel_Validation(t *testing.T) {
	r, _, _ := newTestSetup(t)
	if w := doJSON(r, http.MethodPost, "/admin/models", `{"base_model_id":"b","dataset_ids":[],"display_name":"x"}`); w.Code != http.StatusBadRequest {
		t.Errorf("empty datasets status = %d, want 400", w.Code)
	}
	if w := doJSON(r, http.MethodPost, "/admin/models?wait=maybe", `{"base_model_id":"b","dataset_ids":["d"],"display_name":"x"}`); w.Code != http.StatusBadRequest {
		t.Errorf("bad wait status = %d, want 400", w.Code)
	}
}

func TestEvaluationRoutes(t *testing.T) {
	r, fake, _ := newTestSetup(t)

	body := `{"dataset_id":"d-1","model1_id":"base/b-1","model2_id":"m-1","display_name":"baseline vs tuned"}`
	w := doJSON(r, http.MethodPost, "/admin/evaluations", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body)
	}
	model1, _ := fake.bodies["evaluations"]["model1"].(map[string]interface{})
	if self, _ := model1["self"].(string); !strings.HasSuffix(self, "/models/base/b-1") {
		t.Errorf("model1 ref = %v, want a base model link", model1)
	}

	w = doJSON(r, http.MethodGet, "/admin/evaluations/e-1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d, body = %s", w.Code, w.Body)
	}
	metrics, _ := decode(t, w)["metrics"].(map[string]interface{})
	if metrics["wordErrorRate1"] != 12.5 {
		t.Errorf("metrics = %v, want wordErrorRate1 12.5", metrics)
	}

	w = doJSON(r, http.MethodGet, "/admin/evaluations/e-1/status", "")
	if got := decode(t, w)["status"]; got != customspeech.StatusSucceeded {
		t.Errorf("status = %v, want Succeeded", got)
	}
	if w := doJSON(r, http.MethodGet, "/admin/evaluations/missing", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing evaluation status = %d, want 404", w.Code)
	}
}

func TestEndpointRoutes(t *testing.T) {
	r, _, _ := newTestSetup(t, customspeech.StatusRunning)

	w := doJSON(r, http.MethodPost, "/admin/endpoints", `{"model_id":"m-1","display_name":"prod"}`)
	if w.Code != http.StatusCreated || decode(t, w)["id"] != "e-1" {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body)
	}
	w = doJSON(r, http.MethodGet, "/admin/endpoints/e-1/status", "")
	if got := decode(t, w)["status"]; got != customspeech.StatusRunning {
		t.Errorf("status = %v, want Running", got)
	}
	if w := doJSON(r, http.MethodDelete, "/admin/endpoints/e-1", ""); w.Code != http.StatusOK {
		t.Errorf("delete status = %d, want 200", w.Code)
	}
}

func TestPlatformErrorIsBadGateway(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	h := NewHandlers(customspeech.NewClient(srv.URL, "bad"), nil, 0, 0, "en-US")
	r := newTestRouter(h)

	if w := doJSON(r, http.MethodGet, "/admin/base-models/b-1", ""); w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
}
