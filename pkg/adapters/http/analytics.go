package http

import (
	"fmt"
	"net/http"
)

// stats handles GET /api/analytics.
func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	if s.analytics == nil {
		writeError(w, http.StatusNotFound, "analytics disabled")
		return
	}
	stats, err := s.analytics.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load analytics")
		s.logger.Error("stats failed", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// analyticsStream handles GET /api/analytics/stream (SSE of new events).
func (s *Server) analyticsStream(w http.ResponseWriter, r *http.Request) {
	if s.analytics == nil {
		writeError(w, http.StatusNotFound, "analytics disabled")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		s.logger.Error("analyticsStream: Streaming not supported")
		return
	}

	ch, cancel := s.Streams.Subscribe(analyticsTopic)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE: analytics client disconnected")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: analytics\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
