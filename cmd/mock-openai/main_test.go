package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
}

func TestLoadFixtures_BaseOnly(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "models.json", `{"object":"list","data":[]}`)
	writeFixture(t, dir, "chat_completions.sse", "{\"delta\":\"Hi\"}\n")

	routes, err := loadFixtures(dir)
	if err != nil {
		t.Fatalf("loadFixtures: %v", err)
	}

	if len(routes) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(routes))
	}
	if routes["models"].seq[0].stream {
		t.Error("models fixture should be JSON")
	}
	if !routes["chat_completions"].seq[0].stream {
		t.Error("chat_completions fixture should be a stream")
	}
}

func TestLoadFixtures_Sequential(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "models.2.json", `{"call":2}`)
	writeFixture(t, dir, "models.1.json", `{"call":1}`)
	writeFixture(t, dir, "models.json", `{"call":"fallback"}`)

	routes, err := loadFixtures(dir)
	if err != nil {
		t.Fatalf("loadFixtures: %v", err)
	}

	seq := routes["models"].seq
	if len(seq) != 3 {
		t.Fatalf("models: expected 3 fixtures, got %d", len(seq))
	}
	for i, want := range []string{`"call":1`, `"call":2`, "fallback"} {
		if !strings.Contains(seq[i].body, want) {
			t.Errorf("fixture[%d] should contain %s, got: %s", i, want, seq[i].body)
		}
	}
}

func TestLoadFixtures_Status(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "models.json", `{"error":{"message":"slow down"}}`)
	writeFixture(t, dir, "models.status", "429\n")

	routes, err := loadFixtures(dir)
	if err != nil {
		t.Fatalf("loadFixtures: %v", err)
	}
	if routes["models"].status != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", routes["models"].status)
	}
}

func TestLoadFixtures_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"broken json", "models.json", `{"object":`},
		{"bad status", "models.status", "teapot"},
		{"status out of range", "models.status", "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFixture(t, dir, tt.file, tt.content)
			if _, err := loadFixtures(dir); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadFixtures_EmptyDir(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "README.md", "not a fixture")

	if _, err := loadFixtures(dir); err == nil {
		t.Fatal("expected error for directory without fixtures")
	}
}

func TestFixtureName(t *testing.T) {
	tests := map[string]string{
		"/v1/models":                       "models",
		"/v1/chat/completions":             "chat_completions",
		"/v1/threads/abc/runs/":            "threads_abc_runs",
		"/v1/fine_tuning/jobs/ft-1/cancel": "fine_tuning_jobs_ft-1_cancel",
	}
	for path, want := range tests {
		if got := fixtureName(path); got != want {
			t.Errorf("fixtureName(%q) = %q, want %q", path, got, want)
		}
	}
}

func doRequest(t *testing.T, s *server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.handler().ServeHTTP(w, req)
	return w
}

var authorized = map[string]string{"Authorization": "Bearer sk-test"}

func TestServeJSONSequence(t *testing.T) {
	s := newServer(map[string]*route{
		"models": {seq: []fixture{{body: `{"call":1}`}, {body: `{"call":2}`}}},
	}, testLogger())

	for i, want := range []string{`{"call":1}`, `{"call":2}`, `{"call":2}`} {
		w := doRequest(t, s, http.MethodGet, "/v1/models", "", authorized)
		if w.Code != http.StatusOK {
			t.Fatalf("call %d: expected 200, got %d", i+1, w.Code)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("call %d: unexpected content type %q", i+1, ct)
		}
		if w.Body.String() != want {
			t.Errorf("call %d: expected %s, got %s", i+1, want, w.Body.String())
		}
	}
}

func TestServeStream(t *testing.T) {
	s := newServer(map[string]*route{
		"chat_completions": {seq: []fixture{{stream: true, body: "{\"delta\":\"Hel\"}\n\n{\"delta\":\"lo\"}\n"}}},
	}, testLogger())

	w := doRequest(t, s, http.MethodPost, "/v1/chat/completions", `{"stream":true}`, authorized)

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	want := "data: {\"delta\":\"Hel\"}\n\ndata: {\"delta\":\"lo\"}\n\ndata: [DONE]\n\n"
	if w.Body.String() != want {
		t.Errorf("unexpected stream:\n%q\nwant:\n%q", w.Body.String(), want)
	}
}

func TestServeStatusOverride(t *testing.T) {
	s := newServer(map[string]*route{
		"models": {seq: []fixture{{body: `{"error":{"message":"slow down"}}`}}, status: http.StatusTooManyRequests},
	}, testLogger())

	w := doRequest(t, s, http.MethodGet, "/v1/models", "", authorized)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", w.Code)
	}
}

func TestServeErrors(t *testing.T) {
	s := newServer(map[string]*route{
		"models": {seq: []fixture{{body: `{}`}}},
	}, testLogger())

	if w := doRequest(t, s, http.MethodGet, "/v1/models", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("missing key: expected 401, got %d", w.Code)
	}
	if w := doRequest(t, s, http.MethodGet, "/v1/embeddings", "", authorized); w.Code != http.StatusNotFound {
		t.Errorf("unknown route: expected 404, got %d", w.Code)
	}
}

func TestCapturedRequests(t *testing.T) {
	s := newServer(map[string]*route{
		"models":           {seq: []fixture{{body: `{}`}}},
		"chat_completions": {seq: []fixture{{body: `{}`}}},
	}, testLogger())

	doRequest(t, s, http.MethodGet, "/v1/models", "", authorized)
	doRequest(t, s, http.MethodPost, "/v1/chat/completions", `{"model":"gpt-4o"}`, map[string]string{
		"Authorization":       "Bearer sk-test",
		"OpenAI-Organization": "org-test",
	})

	w := doRequest(t, s, http.MethodGet, "/requests?path=/v1/chat/completions", "", nil)
	var got struct {
		Requests []capturedRequest `json:"requests"`
	}
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(got.Requests) != 1 {
		t.Fatalf("expected 1 captured request, got %d", len(got.Requests))
	}
	req := got.Requests[0]
	if req.Method != http.MethodPost || !req.HasAuthorization || !req.HasOrganization {
		t.Errorf("unexpected capture: %+v", req)
	}
	if req.Body != `{"model":"gpt-4o"}` {
		t.Errorf("unexpected body: %s", req.Body)
	}

	w = doRequest(t, s, http.MethodGet, "/requests", "", nil)
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Requests) != 2 || got.Requests[0].HasOrganization {
		t.Errorf("expected 2 requests, the first without organization: %+v", got.Requests)
	}
}

func TestHealthAndStats(t *testing.T) {
	s := newServer(map[string]*route{"models": {seq: []fixture{{body: `{}`}}}}, testLogger())

	if w := doRequest(t, s, http.MethodGet, "/health", "", nil); !strings.Contains(w.Body.String(), "ok") {
		t.Errorf("unexpected health response: %s", w.Body.String())
	}

	doRequest(t, s, http.MethodGet, "/v1/models", "", authorized)
	doRequest(t, s, http.MethodGet, "/v1/models", "", authorized)

	w := doRequest(t, s, http.MethodGet, "/stats", "", nil)
	var stats struct {
		TotalCalls   int64          `json:"total_calls"`
		CallsByRoute map[string]int `json:"calls_by_route"`
	}
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.TotalCalls != 2 || stats.CallsByRoute["models"] != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
