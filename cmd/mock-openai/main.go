// Package main implements a mock OpenAI API server for manual and e2e runs
// of openai-client. Responses come from fixture files, so runs are fast,
// deterministic and offline.
//
// Usage:
//
//	mock-openai -fixtures /path/to/fixtures -port 8080
//
// Fixture files are named by route with "/" replaced by "_":
//
//	models.json                  served as application/json for GET /v1/models
//	chat_completions.sse         one data payload per line, served as
//	                             text/event-stream and closed with [DONE]
//	chat_completions.status      optional status code for the route (e.g. 429)
//
// Sequential fixtures: numbered files ("models.1.json", "models.2.sse") are
// served in order on successive calls to the route; the unnumbered file is
// the repeating fallback once they run out.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const apiPrefix = "/v1/"

// fixture is one canned response.
type fixture struct {
	stream bool
	body   string
}

// route holds the fixtures of one API route.
type route struct {
	seq    []fixture
	status int
}

// capturedRequest stores the key fields of an incoming request for test verification.
type capturedRequest struct {
	Method           string `json:"method"`
	Path             string `json:"path"`
	HasAuthorization bool   `json:"has_authorization"`
	HasOrganization  bool   `json:"has_organization"`
	Body             string `json:"body,omitempty"`
	CallIndex        int    `json:"call_index"` // 1-indexed per-route call number
	Timestamp        int64  `json:"timestamp"`
}

type server struct {
	routes map[string]*route // fixture name → fixtures
	calls  atomic.Int64      // total calls served
	logger *slog.Logger

	mu         sync.Mutex
	routeCalls map[string]int
	requests   []capturedRequest
}

func newServer(routes map[string]*route, logger *slog.Logger) *server {
	return &server{
		routes:     routes,
		logger:     logger,
		routeCalls: make(map[string]int),
	}
}

func main() {
	fixtureDir := flag.String("fixtures", "", "directory containing fixture response files")
	port := flag.Int("port", 8080, "port to listen on")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// Allow env var override
	if envDir := os.Getenv("MOCK_OPENAI_FIXTURES"); envDir != "" && *fixtureDir == "" {
		*fixtureDir = envDir
	}
	if *fixtureDir == "" {
		*fixtureDir = "/fixtures"
	}

	routes, err := loadFixtures(*fixtureDir)
	if err != nil {
		logger.Error("Failed to load fixtures", "dir", *fixtureDir, "error", err)
		os.Exit(1)
	}
	logger.Info("Loaded fixtures", "routes", len(routes), "dir", *fixtureDir)
	for name, r := range routes {
		logger.Info("Fixture route", "route", name, "fixtures", len(r.seq), "status", r.status)
	}

	s := newServer(routes, logger)

	addr := fmt.Sprintf(":%d", *port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info("Mock OpenAI server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func (s *server) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/requests", s.handleRequests)
	mux.HandleFunc(apiPrefix, s.handleAPI)
	return mux
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *server) handleAPI(w http.ResponseWriter, r *http.Request) {
	callNum := s.calls.Add(1)
	name := fixtureName(r.URL.Path)

	body, _ := io.ReadAll(r.Body)
	callIndex := s.capture(name, r, body)

	s.logger.Info("Request", "call", callNum, "method", r.Method, "path", r.URL.Path, "route_call", callIndex)

	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		writeAPIError(w, http.StatusUnauthorized, "You didn't provide an API key.")
		return
	}

	rt, ok := s.routes[name]
	if !ok {
		s.logger.Warn("No fixture for route", "call", callNum, "route", name)
		writeAPIError(w, http.StatusNotFound, fmt.Sprintf("Invalid URL (%s %s)", r.Method, r.URL.Path))
		return
	}

	status := http.StatusOK
	if rt.status != 0 {
		status = rt.status
	}

	var fx fixture
	switch {
	case len(rt.seq) == 0:
		w.WriteHeader(status)
		return
	case callIndex <= len(rt.seq):
		fx = rt.seq[callIndex-1]
	default:
		fx = rt.seq[len(rt.seq)-1] // repeat last fixture
	}

	if fx.stream {
		s.writeStream(w, status, fx.body)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, fx.body)
}

// writeStream sends each non-empty line of body as one event, then [DONE].
func (s *server) writeStream(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)

	flusher, _ := w.(http.Flusher)
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", line)
		if flusher != nil {
			flusher.Flush()
		}
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	if flusher != nil {
		flusher.Flush()
	}
}

// capture records the request and returns its 1-indexed call number for the route.
func (s *server) capture(name string, r *http.Request, body []byte) int {
	_, hasOrg := r.Header[http.CanonicalHeaderKey("OpenAI-Organization")]

	s.mu.Lock()
	defer s.mu.Unlock()
	s.routeCalls[name]++
	s.requests = append(s.requests, capturedRequest{
		Method:           r.Method,
		Path:             r.URL.Path,
		HasAuthorization: r.Header.Get("Authorization") != "",
		HasOrganization:  hasOrg,
		Body:             string(body),
		CallIndex:        s.routeCalls[name],
		Timestamp:        time.Now().UnixMilli(),
	})
	return s.routeCalls[name]
}

// handleStats returns call counts for test assertions.
func (s *server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	callsByRoute := make(map[string]int, len(s.routeCalls))
	for name, n := range s.routeCalls {
		callsByRoute[name] = n
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"total_calls":    s.calls.Load(),
		"calls_by_route": callsByRoute,
	})
}

// handleRequests returns captured requests for test assertions.
// Query params:
//   - path: filter by request path (optional)
//
// Returns {"requests": [...]}
func (s *server) handleRequests(w http.ResponseWriter, r *http.Request) {
	pathFilter := r.URL.Query().Get("path")

	s.mu.Lock()
	result := make([]capturedRequest, 0, len(s.requests))
	for _, req := range s.requests {
		if pathFilter != "" && req.Path != pathFilter {
			continue
		}
		result = append(result, req)
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"requests": result,
	})
}

// writeAPIError answers in the error envelope of the OpenAI API.
func writeAPIError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": message,
			"type":    "invalid_request_error",
		},
	})
}

// fixtureName maps a request path such as /v1/chat/completions to chat_completions.
func fixtureName(path string) string {
	p := strings.Trim(strings.TrimPrefix(path, apiPrefix), "/")
	return strings.ReplaceAll(p, "/", "_")
}

// fixtureFileRe splits "chat_completions.2.sse" into name, optional index and extension.
var fixtureFileRe = regexp.MustCompile(`^(.+?)(?:\.(\d+))?\.(json|sse|status)$`)

// loadFixtures reads fixture files from dir and returns the routes they define.
//
// For each route, fixtures are ordered:
//  1. Numbered files (name.1.json, name.2.sse, ...) in numeric order
//  2. Base file (name.json or name.sse) appended as the final fallback
func loadFixtures(dir string) (map[string]*route, error) {
	base := make(map[string]fixture)
	numbered := make(map[string]map[int]fixture)
	statuses := make(map[string]int)

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		m := fixtureFileRe.FindStringSubmatch(info.Name())
		if m == nil {
			return nil
		}
		name, index, ext := m[1], m[2], m[3]

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		var fx fixture
		switch ext {
		case "status":
			code, err := strconv.Atoi(strings.TrimSpace(string(data)))
			if err != nil || code < 100 || code > 599 {
				return fmt.Errorf("invalid status code in %s", path)
			}
			statuses[name] = code
			return nil
		case "json":
			if !json.Valid(data) {
				return fmt.Errorf("invalid JSON in %s", path)
			}
			fx = fixture{body: string(data)}
		case "sse":
			fx = fixture{stream: true, body: string(data)}
		}

		if index == "" {
			base[name] = fx
			return nil
		}
		n, _ := strconv.Atoi(index)
		if numbered[name] == nil {
			numbered[name] = make(map[int]fixture)
		}
		numbered[name][n] = fx
		return nil
	})
	if err != nil {
		return nil, err
	}

	routes := make(map[string]*route)
	get := func(name string) *route {
		if r, ok := routes[name]; ok {
			return r
		}
		r := &route{}
		routes[name] = r
		return r
	}

	for name, byIndex := range numbered {
		indices := make([]int, 0, len(byIndex))
		for idx := range byIndex {
			indices = append(indices, idx)
		}
		sort.Ints(indices)

		r := get(name)
		for _, idx := range indices {
			r.seq = append(r.seq, byIndex[idx])
		}
	}
	for name, fx := range base {
		r := get(name)
		r.seq = append(r.seq, fx)
	}
	for name, code := range statuses {
		get(name).status = code
	}

	if len(routes) == 0 {
		return nil, fmt.Errorf("no fixture files found in %s", dir)
	}
	return routes, nil
}
