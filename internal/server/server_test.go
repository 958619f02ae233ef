package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gladston3/cf-reporting/internal/cloudflare"
	"github.com/gladston3/cf-reporting/internal/cloudflare/cftest"
	"github.com/gladston3/cf-reporting/internal/config"
	"github.com/gladston3/cf-reporting/internal/reports"
	"github.com/gladston3/cf-reporting/internal/sse"
	"github.com/gladston3/cf-reporting/internal/storage"
	"github.com/gladston3/cf-reporting/internal/version"
)

const (
	testToken  = "secret-token-3f9a7c"
	testZoneID = "023e105f4ecef8ad9ca31a8372d0c353"
)

var testNow = time.Date(2026, 2, 21, 9, 30, 0, 0, time.UTC)

type testServer struct {
	srv   *Server
	store *storage.Storage
	hub   *sse.Hub
	rec   *cftest.Recorder
}

func testConfig() config.Config {
	return config.Config{
		ListenAddr:          ":8405",
		MaxRequestBodyBytes: 64 << 10,
		ChartJSURL:          reports.DefaultChartJSURL,
	}
}

// setupTestServer builds a server with a temp history database and a fake
// upstream that serves the traffic fixture.
func setupTestServer(t *testing.T, cfg config.Config, opts ...Option) (*testServer, func()) {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "cf-reporting-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	dbPath := filepath.Join(tmpDir, "test.db")
	store, err := storage.New(dbPath)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("failed to create storage: %v", err)
	}
	cfg.DBPath = dbPath

	rec := &cftest.Recorder{Data: cftest.TrafficOverviewData()}
	tmpl := reports.NewTrafficOverview()
	tmpl.Now = func() time.Time { return testNow }
	gen := reports.NewGenerator(reports.NewRegistry(tmpl), func(string) cloudflare.Fetcher {
		return rec.Fetch
	})

	hub := sse.NewHub()
	srv := New(gen, store, hub, cfg, opts...)
	srv.now = func() time.Time { return testNow }

	cleanup := func() {
		srv.Close()
		hub.Close()
		store.Close()
		os.RemoveAll(tmpDir)
	}
	return &testServer{srv: srv, store: store, hub: hub, rec: rec}, cleanup
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint_Healthy(t *testing.T) {
	ts, cleanup := setupTestServer(t, testConfig())
	defer cleanup()

	w := serve(ts.srv, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
	if resp["db"] != "connected" {
		t.Errorf("expected db 'connected', got %q", resp["db"])
	}
	if resp["version"] != version.Version {
		t.Errorf("expected version %q, got %q", version.Version, resp["version"])
	}
	if resp["timestamp"] != "2026-02-21T09:30:00Z" {
		t.Errorf("expected RFC3339 timestamp, got %q", resp["timestamp"])
	}

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type 'application/json', got %q", ct)
	}
}

func TestHealthEndpoint_HistoryDisabled(t *testing.T) {
	srv := New(nil, nil, nil, testConfig())
	defer srv.Close()

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["db"] != "disabled" {
		t.Errorf("expected db 'disabled', got %q", resp["db"])
	}
}

func TestHealthEndpoint_DBClosed(t *testing.T) {
	ts, cleanup := setupTestServer(t, testConfig())
	defer cleanup()
	ts.store.Close()

	w := serve(ts.srv, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
	}
	if !strings.Contains(w.Body.String(), `"db":"disconnected"`) {
		t.Errorf("expected disconnected db, got %s", w.Body.String())
	}
}

func TestRobotsTxt(t *testing.T) {
	ts, cleanup := setupTestServer(t, testConfig())
	defer cleanup()

	w := serve(ts.srv, httptest.NewRequest(http.MethodGet, "/robots.txt", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	expected := "User-agent: *\nDisallow: /\n"
	if w.Body.String() != expected {
		t.Errorf("expected body %q, got %q", expected, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/plain" {
		t.Errorf("expected Content-Type 'text/plain', got %q", ct)
	}
}

func TestXRobotsTagHeader(t *testing.T) {
	ts, cleanup := setupTestServer(t, testConfig())
	defer cleanup()

	for _, endpoint := range []string{"/health", "/robots.txt", "/api/templates"} {
		t.Run(endpoint, func(t *testing.T) {
			w := serve(ts.srv, httptest.NewRequest(http.MethodGet, endpoint, nil))
			if got := w.Header().Get("X-Robots-Tag"); got != "noindex, nofollow" {
				t.Errorf("expected X-Robots-Tag 'noindex, nofollow', got %q", got)
			}
		})
	}
}

func TestTemplatesEndpoint(t *testing.T) {
	ts, cleanup := setupTestServer(t, testConfig())
	defer cleanup()

	w := serve(ts.srv, httptest.NewRequest(http.MethodGet, "/api/templates", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	var infos []reports.Info
	if err := json.NewDecoder(w.Body).Decode(&infos); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("expected 1 template, got %d", len(infos))
	}
	if infos[0].ID != reports.TrafficOverviewID || infos[0].Name != "Traffic Overview" {
		t.Errorf("unexpected template info %+v", infos[0])
	}
	if infos[0].Description == "" {
		t.Error("expected a description")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts, cleanup := setupTestServer(t, testConfig())
	defer cleanup()

	tests := []struct {
		method string
		path   string
		allow  string
	}{
		{http.MethodPost, "/api/templates", "GET"},
		{http.MethodGet, "/api/reports/generate", "POST"},
		{http.MethodDelete, "/api/reports/history", "GET"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := serve(ts.srv, httptest.NewRequest(tt.method, tt.path, nil))
			if w.Code != http.StatusMethodNotAllowed {
				t.Errorf("expected 405, got %d", w.Code)
			}
			if got := w.Header().Get("Allow"); got != tt.allow {
				t.Errorf("expected Allow %q, got %q", tt.allow, got)
			}
		})
	}
}

func TestStatusEndpoint(t *testing.T) {
	ts, cleanup := setupTestServer(t, testConfig())
	defer cleanup()

	w := serve(ts.srv, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	var resp statusResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Version != version.Version {
		t.Errorf("expected version %q, got %q", version.Version, resp.Version)
	}
	if resp.History == nil {
		t.Fatal("expected history status")
	}
	if resp.History.Generations != 0 {
		t.Errorf("expected 0 generations, got %d", resp.History.Generations)
	}
	if resp.GeoCache != nil {
		t.Error("geo cache should be absent without a geo database")
	}
}

func TestRouteLabel(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/reports/generate", "/api/reports/generate"},
		{"/health", "/health"},
		{"/api/reports/generate/extra", "other"},
		{"/wp-login.php", "other"},
	}
	for _, tt := range tests {
		if got := routeLabel(tt.path); got != tt.want {
			t.Errorf("routeLabel(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		val  string
		want int
	}{
		{"", 50},
		{"10", 10},
		{"0", 50},
		{"-5", 50},
		{"abc", 50},
		{"100000", storage.MaxListLimit},
	}
	for _, tt := range tests {
		if got := parseLimit(tt.val, 50, storage.MaxListLimit); got != tt.want {
			t.Errorf("parseLimit(%q) = %d, want %d", tt.val, got, tt.want)
		}
	}
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		val  string
		want time.Duration
	}{
		{"", time.Hour},
		{"24h", 24 * time.Hour},
		{"90m", 90 * time.Minute},
		{"-1h", time.Hour},
		{"7d", time.Hour},
	}
	for _, tt := range tests {
		if got := parseRange(tt.val, time.Hour); got != tt.want {
			t.Errorf("parseRange(%q) = %v, want %v", tt.val, got, tt.want)
		}
	}
}
