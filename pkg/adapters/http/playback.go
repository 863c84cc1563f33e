package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/lmrtfy/pkg/domain"
	"github.com/aretw0/lmrtfy/pkg/playback"
	"github.com/oapi-codegen/runtime"
)

const (
	defaultHorizon = 15 * time.Second
	maxHorizon     = time.Minute
)

type scriptResponse struct {
	Prompt    string           `json:"prompt"`
	Loop      bool             `json:"loop"`
	HorizonMs int64            `json:"horizonMs"`
	Frames    []playback.Frame `json:"frames"`
}

// playbackConfig reads q and loop. Playback always autoplays.
func (s *Server) playbackConfig(r *http.Request) (playback.Config, error) {
	query := r.URL.Query()
	var (
		q    string
		loop bool
	)
	if err := runtime.BindQueryParameter("form", true, false, "q", query, &q); err != nil {
		return playback.Config{}, err
	}
	if q == "" {
		return playback.Config{}, domain.ErrMissingToken
	}
	if err := runtime.BindQueryParameter("form", true, false, "loop", query, &loop); err != nil {
		return playback.Config{}, fmt.Errorf("invalid loop %q", query.Get("loop"))
	}
	return playback.Config{Prompt: s.codec.Decode(q), AutoPlay: true, Loop: loop}, nil
}

func parseHorizon(v string) (time.Duration, error) {
	if v == "" {
		return defaultHorizon, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid horizon %q", v)
	}
	if d > maxHorizon {
		d = maxHorizon
	}
	return d, nil
}

// playbackScript handles GET /api/playback.
func (s *Server) playbackScript(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.playbackConfig(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	horizon, err := parseHorizon(r.URL.Query().Get("horizon"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, scriptResponse{
		Prompt:    cfg.Prompt,
		Loop:      cfg.Loop,
		HorizonMs: horizon.Milliseconds(),
		Frames:    s.machine.Script(cfg, horizon),
	})
}

// playbackStream handles GET /api/playback/stream (SSE).
// Each connection owns one Player, torn down when the client goes away.
func (s *Server) playbackStream(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.playbackConfig(r)
	if err != nil {
		if !errors.Is(err, domain.ErrMissingToken) {
			s.logger.Warn("playbackStream: bad query", "error", err)
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		s.logger.Error("playbackStream: Streaming not supported")
		return
	}

	player := playback.NewPlayer(cfg,
		playback.WithClock(s.clock),
		playback.WithTiming(s.machine.Timing()),
		playback.WithLogger(s.logger),
	)
	updates, unsubscribe := player.Subscribe()
	defer unsubscribe()
	player.Start(r.Context())
	defer player.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE: playback client disconnected")
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			data, err := json.Marshal(snap)
			if err != nil {
				s.logger.Error("snapshot encode failed", "error", err)
				return
			}
			fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data)
			flusher.Flush()

			if !cfg.Loop && !snap.IsPlaying && snap.StepIndex == int(playback.StepReadyToSubmit) {
				fmt.Fprintf(w, "event: done\ndata: {}\n\n")
				flusher.Flush()
				return
			}
		}
	}
}
