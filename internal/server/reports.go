package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/gladston3/cf-reporting/internal/reports"
	"github.com/gladston3/cf-reporting/internal/sse"
	"github.com/gladston3/cf-reporting/internal/storage"
	"github.com/gladston3/cf-reporting/internal/useragent"
)

const (
	defaultHistoryLimit = 50
	defaultStatsRange   = 30 * 24 * time.Hour
)

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req reports.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	req.RequestID = uuid.NewString()

	res := s.gen.Generate(r.Context(), req)
	s.recordGeneration(r, req, res)

	w.Header().Set("X-Request-ID", res.RequestID)
	if !res.OK() {
		writeError(w, res.StatusCode, res.Error)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(res.HTML)); err != nil {
		slog.Debug("failed to write report", "request_id", res.RequestID, "error", err)
	}
}

// recordGeneration feeds one finished generation to metrics, history and
// live subscribers. It never sees the API token.
func (s *Server) recordGeneration(r *http.Request, req reports.GenerateRequest, res reports.Result) {
	templateLabel := "unknown"
	if _, ok := s.gen.Registry().Lookup(req.TemplateID); ok {
		templateLabel = req.TemplateID
	}

	if s.metrics != nil {
		s.metrics.RecordGeneration(templateLabel, outcome(res), res.Duration.Seconds(), len(res.HTML))
	}

	client := useragent.Parse(r.UserAgent())
	rec := storage.GenerationRecord{
		ID:            res.RequestID,
		TemplateID:    req.TemplateID,
		ZoneID:        req.ZoneID,
		ZoneName:      req.ZoneName,
		RangeStart:    req.TimeRange.Start,
		RangeEnd:      req.TimeRange.End,
		Status:        storage.StatusOK,
		StatusCode:    res.StatusCode,
		Error:         res.Error,
		DurationMs:    res.Duration.Milliseconds(),
		SizeBytes:     int64(len(res.HTML)),
		ClientBrowser: client.Browser,
		ClientOS:      client.OS,
		ClientCountry: s.geo.Country(extractIP(r, s.cfg.TrustedProxies)),
		CreatedAt:     s.now(),
	}
	if !res.OK() {
		rec.Status = storage.StatusError
	}

	if s.store != nil {
		ctx := context.WithoutCancel(r.Context())
		if err := s.store.RecordGeneration(ctx, rec); err != nil {
			slog.Error("failed to record generation", "request_id", rec.ID, "error", err)
		}
	}
	if err := s.hub.PublishJSON(sse.EventGeneration, rec); err != nil {
		slog.Warn("failed to publish generation event", "request_id", rec.ID, "error", err)
	}
}

func outcome(res reports.Result) string {
	switch {
	case res.OK():
		return "ok"
	case res.StatusCode >= 400 && res.StatusCode < 500:
		return "client_error"
	default:
		return "error"
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "generation history is disabled")
		return
	}
	q := r.URL.Query()
	limit := parseLimit(q.Get("limit"), defaultHistoryLimit, storage.MaxListLimit)
	recs, err := s.store.RecentGenerations(r.Context(), limit, q.Get("zone"))
	if err != nil {
		slog.Error("failed to list generations", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list generations")
		return
	}
	writeJSON(w, recs)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "generation history is disabled")
		return
	}
	dur := parseRange(r.URL.Query().Get("range"), defaultStatsRange)
	stats, err := s.store.TemplateStats(r.Context(), s.now().Add(-dur))
	if err != nil {
		slog.Error("failed to aggregate generations", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to aggregate generations")
		return
	}
	writeJSON(w, stats)
}
