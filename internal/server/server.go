package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gladston3/cf-reporting/internal/alerts"
	"github.com/gladston3/cf-reporting/internal/config"
	"github.com/gladston3/cf-reporting/internal/geo"
	"github.com/gladston3/cf-reporting/internal/metrics"
	"github.com/gladston3/cf-reporting/internal/reports"
	"github.com/gladston3/cf-reporting/internal/sse"
	"github.com/gladston3/cf-reporting/internal/storage"
	"github.com/gladston3/cf-reporting/internal/version"
)

type Server struct {
	gen         *reports.Generator
	store       *storage.Storage // nil when history is disabled
	hub         *sse.Hub
	metrics     *metrics.Metrics
	geo         *geo.Locator
	alerts      *alerts.Manager
	mux         *http.ServeMux
	cfg         config.Config
	csp         string
	rateLimiter *RateLimiter
	now         func() time.Time
}

// Option configures optional collaborators of a Server.
type Option func(*Server)

// WithMetrics records request and generation metrics and serves /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithGeo resolves requester countries for the generation history.
func WithGeo(l *geo.Locator) Option {
	return func(s *Server) { s.geo = l }
}

// WithAlerts serves the recent alert history on /api/alerts.
func WithAlerts(a *alerts.Manager) Option {
	return func(s *Server) { s.alerts = a }
}

func New(gen *reports.Generator, store *storage.Storage, hub *sse.Hub, cfg config.Config, opts ...Option) *Server {
	if gen == nil {
		gen = reports.NewGenerator(nil, nil)
	}
	if hub == nil {
		hub = sse.NewHub()
	}
	s := &Server{
		gen:         gen,
		store:       store,
		hub:         hub,
		mux:         http.NewServeMux(),
		cfg:         cfg,
		csp:         contentSecurityPolicy(cfg.ChartJSURL),
		rateLimiter: NewRateLimiter(cfg.RateLimitPerMinute, time.Minute),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	s.rateLimiter.Stop()
}

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/robots.txt", s.handleRobotsTxt)

	s.mux.HandleFunc("/api/templates", allowMethods(s.handleTemplates, http.MethodGet))
	s.mux.HandleFunc("/api/status", allowMethods(s.handleStatus, http.MethodGet))
	s.mux.HandleFunc("/api/reports/generate", allowMethods(s.blockBots(s.handleGenerate), http.MethodPost))
	s.mux.HandleFunc("/api/reports/history", allowMethods(s.handleHistory, http.MethodGet))
	s.mux.HandleFunc("/api/reports/stats", allowMethods(s.handleStats, http.MethodGet))
	s.mux.HandleFunc("/api/reports/events", allowMethods(s.handleEvents, http.MethodGet))
	s.mux.HandleFunc("/api/alerts", allowMethods(s.handleAlerts, http.MethodGet))

	if s.metrics != nil {
		s.mux.Handle("/metrics", promhttp.Handler())
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordHTTPRequest(r.Method, routeLabel(r.URL.Path), strconv.Itoa(rec.status), time.Since(start).Seconds())
		}
	}()

	// Prevent search engine indexing
	rec.Header().Set("X-Robots-Tag", "noindex, nofollow")
	s.setSecurityHeaders(rec)

	if s.rateLimiter.enabled && strings.HasPrefix(r.URL.Path, "/api/") {
		ip := extractIP(r, s.cfg.TrustedProxies)
		if !s.rateLimiter.Allow(ip) {
			slog.Debug("rate limit exceeded", "ip", ip, "path", r.URL.Path)
			writeError(rec, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
	}

	if s.cfg.MaxRequestBodyBytes > 0 && r.ContentLength > s.cfg.MaxRequestBodyBytes {
		writeError(rec, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	if s.cfg.MaxRequestBodyBytes > 0 && r.Body != nil {
		r.Body = http.MaxBytesReader(rec, r.Body, s.cfg.MaxRequestBodyBytes)
	}

	s.mux.ServeHTTP(rec, r)
}

// knownRoutes bounds the path label cardinality of the HTTP metrics.
var knownRoutes = map[string]bool{
	"/health":               true,
	"/robots.txt":           true,
	"/metrics":              true,
	"/api/templates":        true,
	"/api/status":           true,
	"/api/reports/generate": true,
	"/api/reports/history":  true,
	"/api/reports/stats":    true,
	"/api/reports/events":   true,
	"/api/alerts":           true,
}

func routeLabel(path string) string {
	if knownRoutes[path] {
		return path
	}
	return "other"
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	dbStatus := "disabled"
	httpStatus := http.StatusOK

	if s.store != nil {
		dbStatus = "connected"
		if err := s.store.Ping(r.Context()); err != nil {
			status = "error"
			dbStatus = "disconnected"
			httpStatus = http.StatusServiceUnavailable
		}
	}

	writeJSONStatus(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"db":        dbStatus,
		"version":   version.Version,
	})
}

func (s *Server) handleRobotsTxt(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("User-agent: *\nDisallow: /\n"))
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.gen.Registry().Infos())
}

type statusResponse struct {
	Version        string          `json:"version"`
	History        *storage.Status `json:"history,omitempty"`
	SSESubscribers int             `json:"sse_subscribers"`
	GeoCache       *geo.CacheStats `json:"geo_cache,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Version:        version.Version,
		SSESubscribers: s.hub.ClientCount(),
	}
	if s.store != nil {
		st, err := s.store.GetStatus(r.Context())
		if err != nil {
			slog.Error("failed to read history status", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to read history status")
			return
		}
		resp.History = &st
	}
	if stats, ok := s.geo.CacheStats(); ok {
		resp.GeoCache = &stats
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSONStatus(w, status, map[string]string{"error": msg})
}

func parseRange(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	if d, err := time.ParseDuration(val); err == nil && d > 0 {
		return d
	}
	return def
}

func parseLimit(val string, def, max int) int {
	if v, err := strconv.Atoi(val); err == nil && v > 0 {
		if v > max {
			return max
		}
		return v
	}
	return def
}
