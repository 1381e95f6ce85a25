package server

import (
	"bytes"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"

	"github.com/r9s-ai/open-resource-api/internal/config"
	"github.com/r9s-ai/open-resource-api/pkg/document"
	"github.com/r9s-ai/open-resource-api/pkg/pipeline"
	"github.com/r9s-ai/open-resource-api/pkg/query"
	"github.com/r9s-ai/open-resource-api/pkg/registry"
)

const peopleType = `name: people
fields:
  - name: name
    type: string
    required: true
  - name: secret
    type: string
    hidden: true
labels:
  none: []
  first: "p1"
`

type testServer struct {
	engine *gin.Engine
	store  *query.Store
	access *bytes.Buffer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "people.yaml"), []byte(peopleType), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Parse([]byte("server:\n  base_path: /api\n  max_body_bytes: 256\n"))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Registry.Dir = dir

	reg := registry.NewRegistry()
	reg.SetBasePath(cfg.Server.BasePath)
	res, err := reg.ReloadFromDir(dir)
	if err != nil {
		t.Fatalf("load types: %v", err)
	}
	st := &state{}
	st.RecordReload(res, nil)

	store := query.NewStore()
	ctl, err := NewController(cfg, reg, store)
	if err != nil {
		t.Fatalf("controller: %v", err)
	}
	var access bytes.Buffer
	engine := NewRouter(cfg, st, reg, ctl, log.New(&access, "", 0), false)
	engine.GET("/boom", func(*gin.Context) { panic("boom") })
	return &testServer{engine: engine, store: store, access: &access}
}

func (s *testServer) do(method, path, body string, header ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", pipeline.MediaType)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("code=%d body=%s", w.Code, w.Body.String())
	}
	body := gjson.Parse(w.Body.String())
	if body.Get("types.0").String() != "people" || body.Get("last_reload.loaded").Int() != 1 {
		t.Fatalf("unexpected health body: %s", w.Body.String())
	}
}

func TestCreateAndRead(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodPost, "/api/people", `{"data":{"type":"people","id":"p1","attributes":{"name":"Ada","secret":"x"}}}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("code=%d body=%s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Location"); got != "/api/people/p1" {
		t.Fatalf("location=%q", got)
	}
	if got := w.Header().Get("Content-Type"); got != pipeline.MediaType {
		t.Fatalf("content-type=%q", got)
	}
	if !strings.HasPrefix(w.Header().Get("X-Request-Id"), "req_") {
		t.Fatalf("missing generated request id")
	}

	w = s.do(http.MethodGet, "/api/people/p1", "", "X-Request-Id", "client-1")
	if w.Code != http.StatusOK {
		t.Fatalf("code=%d body=%s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Request-Id") != "client-1" {
		t.Fatalf("request id not echoed: %q", w.Header().Get("X-Request-Id"))
	}
	body := gjson.Parse(w.Body.String())
	if body.Get("data.attributes.name").String() != "Ada" {
		t.Fatalf("body=%s", w.Body.String())
	}
	if body.Get("data.attributes.secret").Exists() {
		t.Fatalf("hidden attribute rendered: %s", w.Body.String())
	}
	if body.Get("data.links.self").String() != "/api/people/p1" || body.Get("links.self").String() != "/api/people/p1" {
		t.Fatalf("links=%s", body.Get("links").Raw)
	}
	if w.Header().Get("Vary") != "Accept" {
		t.Fatalf("vary=%q", w.Header().Get("Vary"))
	}

	w = s.do(http.MethodGet, "/api/people/p1,p404", "")
	if got := gjson.Get(w.Body.String(), "data.#.id").Raw; got != `["p1"]` {
		t.Fatalf("ids=%s", got)
	}

	w = s.do(http.MethodDelete, "/api/people/p1", "")
	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Fatalf("code=%d body=%q", w.Code, w.Body.String())
	}
}

func TestLabels(t *testing.T) {
	s := newTestServer(t)
	if _, err := s.store.Insert(document.Resource{Type: "people", ID: "p1", Attributes: map[string]any{"name": "Ada"}}); err != nil {
		t.Fatal(err)
	}

	w := s.do(http.MethodGet, "/api/people/none?label=true", "")
	if w.Code != http.StatusOK || gjson.Get(w.Body.String(), "data").Raw != "[]" {
		t.Fatalf("code=%d body=%s", w.Code, w.Body.String())
	}
	w = s.do(http.MethodGet, "/api/people/first?label", "")
	if w.Code != http.StatusOK || gjson.Get(w.Body.String(), "data.id").String() != "p1" {
		t.Fatalf("code=%d body=%s", w.Code, w.Body.String())
	}
	w = s.do(http.MethodGet, "/api/people/first", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("labels must be opt-in, code=%d", w.Code)
	}
}

func TestErrorResponses(t *testing.T) {
	s := newTestServer(t)
	cases := []struct {
		name        string
		method      string
		path        string
		body        string
		header      []string
		status      int
		code        string
		contentType string
	}{
		{"unknown type", http.MethodGet, "/api/ghosts", "", nil, http.StatusNotFound, "type_not_found", pipeline.MediaType},
		{"not acceptable", http.MethodGet, "/api/people", "", []string{"Accept", "text/html"}, http.StatusNotAcceptable, "not_acceptable", pipeline.MediaType},
		{"no route", http.MethodGet, "/api/people/1/x/y", "", nil, http.StatusNotFound, "route_not_found", pipeline.MediaType},
		{"no route json", http.MethodGet, "/nowhere", "", []string{"Accept", "application/json"}, http.StatusNotFound, "route_not_found", pipeline.JSONMediaType},
		{"no method", http.MethodPut, "/api/people", "", nil, http.StatusMethodNotAllowed, "method_not_allowed", pipeline.MediaType},
		{"panic", http.MethodGet, "/boom", "", nil, http.StatusInternalServerError, "", pipeline.MediaType},
		{"too large", http.MethodPost, "/api/people", `{"data":{"type":"people","attributes":{"name":"` + strings.Repeat("a", 300) + `"}}}`, nil, http.StatusRequestEntityTooLarge, "body_too_large", pipeline.MediaType},
		{"bad media type", http.MethodPost, "/api/people", `{"data":null}`, []string{"Content-Type", "application/json"}, http.StatusUnsupportedMediaType, "unsupported_media_type", pipeline.MediaType},
		{"unexpected body", http.MethodGet, "/api/people", `{"data":null}`, nil, http.StatusBadRequest, "unexpected_body", pipeline.MediaType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(tc.method, tc.path, tc.body, tc.header...)
			if w.Code != tc.status {
				t.Fatalf("code=%d want %d body=%s", w.Code, tc.status, w.Body.String())
			}
			if got := w.Header().Get("Content-Type"); got != tc.contentType {
				t.Fatalf("content-type=%q want %q", got, tc.contentType)
			}
			body := gjson.Parse(w.Body.String())
			if body.Get("jsonapi.version").String() != "1.0" || !body.Get("errors").IsArray() {
				t.Fatalf("not an error document: %s", w.Body.String())
			}
			if got := body.Get("errors.0.code").String(); got != tc.code {
				t.Fatalf("code=%q want %q", got, tc.code)
			}
			if got := body.Get("errors.0.status").String(); got != strconv.Itoa(tc.status) {
				t.Fatalf("status member=%q", got)
			}
		})
	}
}

func TestAccessLog(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodGet, "/api/ghosts", "")
	line := s.access.String()
	for _, want := range []string{`[ORA]`, `| 404 |`, `GET "/api/ghosts"`, "type=ghosts", "errors=1", "error_code=type_not_found", "request_id=req_"} {
		if !strings.Contains(line, want) {
			t.Fatalf("access log %q missing %q", line, want)
		}
	}
}

func TestStateRecordReload(t *testing.T) {
	st := &state{}
	st.RecordReload(registry.LoadResult{LoadedTypes: []string{"a", "b"}, SkippedFiles: []string{"x.yaml"}}, nil)
	st.RecordReload(registry.LoadResult{}, errors.New("read dir"))
	last := st.LastReload()
	if last.Loaded != 2 || last.Err != "read dir" || len(last.Skipped) != 1 {
		t.Fatalf("last=%+v", last)
	}
}
