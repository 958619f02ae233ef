package server

import (
	"net/http"

	"github.com/gladston3/cf-reporting/internal/alerts"
)

const (
	defaultAlertLimit = 50
	maxAlertLimit     = 100
)

type alertsResponse struct {
	Enabled bool           `json:"enabled"`
	Rules   []alerts.Rule  `json:"rules"`
	Alerts  []alerts.Alert `json:"alerts"`
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	resp := alertsResponse{Rules: []alerts.Rule{}, Alerts: []alerts.Alert{}}
	if s.alerts != nil {
		cfg := s.alerts.GetConfig()
		resp.Enabled = cfg.Enabled
		if cfg.Rules != nil {
			resp.Rules = cfg.Rules
		}
		limit := parseLimit(r.URL.Query().Get("limit"), defaultAlertLimit, maxAlertLimit)
		resp.Alerts = s.alerts.GetHistory(limit)
	}
	writeJSON(w, resp)
}
