package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gladston3/cf-reporting/internal/sse"
)

const eventsBacklog = 20

// handleEvents streams generation records as they finish. New subscribers
// first receive a "recent" event with the latest history.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ch, cancel := s.hub.Subscribe()
	if ch == nil {
		writeError(w, http.StatusServiceUnavailable, "server is shutting down")
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if s.store != nil {
		if recent, err := s.store.RecentGenerations(r.Context(), eventsBacklog, ""); err == nil {
			if buf, err := json.Marshal(recent); err == nil {
				if err := sse.WriteEvent(w, sse.Event{Type: sse.EventRecent, Payload: buf}); err != nil {
					return
				}
			}
		} else {
			slog.Warn("failed to load recent generations", "error", err)
		}
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := sse.WriteEvent(w, evt); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
