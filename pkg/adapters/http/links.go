package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/aretw0/lmrtfy/pkg/domain"
	"github.com/aretw0/lmrtfy/pkg/token"
)

type createLinkRequest struct {
	Prompt string `json:"prompt"`
}

type resolveResponse struct {
	Prompt       string `json:"prompt"`
	Token        string `json:"token"`
	AssistantURL string `json:"assistantUrl"`
	Strategy     string `json:"strategy"`
}

// Link builds the shareable link for an already normalized prompt.
func (s *Server) Link(base, prompt string) domain.Link {
	return s.codec.Link(base, s.cfg.AssistantURL, prompt)
}

// createLink handles POST /api/links.
func (s *Server) createLink(w http.ResponseWriter, r *http.Request) {
	var body createLinkRequest
	// JSON escaping can grow a prompt up to six times.
	limit := int64(s.cfg.MaxPromptBytes)*6 + 1024
	if err := json.NewDecoder(io.LimitReader(r.Body, limit)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		s.logger.Warn("createLink: Invalid request body", "error", err)
		return
	}

	prompt, err := domain.NormalizePrompt(body.Prompt, s.cfg.MaxPromptBytes)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request data: "+err.Error())
		s.logger.Warn("createLink: Prompt rejected", "error", err, "size", len(body.Prompt))
		return
	}

	link := s.Link(s.baseURL(r), prompt)
	s.record(r, domain.EventLinkGenerated, prompt)
	writeJSON(w, http.StatusOK, link)
}

// resolve decodes the q parameter and counts the visit.
func (s *Server) resolve(r *http.Request) (resolveResponse, error) {
	q := r.URL.Query().Get("q")
	if q == "" {
		return resolveResponse{}, domain.ErrMissingToken
	}
	prompt, strategy := s.codec.DecodeStrategy(q)
	s.metrics.decoded(strategy)
	s.logger.Debug("token resolved", "strategy", strategy, "size", len(q))
	return resolveResponse{
		Prompt:       prompt,
		Token:        q,
		AssistantURL: token.AssistantURL(s.cfg.AssistantURL, prompt),
		Strategy:     strategy,
	}, nil
}

// resolveLink handles GET /api/links/resolve.
func (s *Server) resolveLink(w http.ResponseWriter, r *http.Request) {
	res, err := s.resolve(r)
	if errors.Is(err, domain.ErrMissingToken) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.record(r, domain.EventLinkVisited, res.Prompt)
	writeJSON(w, http.StatusOK, res)
}
