package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/lmrtfy"
	"github.com/aretw0/lmrtfy/pkg/analytics"
	"github.com/aretw0/lmrtfy/pkg/domain"
	"github.com/aretw0/lmrtfy/pkg/playback"
	"github.com/aretw0/lmrtfy/pkg/token"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const analyticsTopic = "analytics"

// Config holds the settings of the HTTP boundary.
type Config struct {
	// PublicURL is the origin used in generated links. When empty it is
	// derived from the request (X-Forwarded-Proto and Host).
	PublicURL      string
	AssistantURL   string
	MaxPromptBytes int
	CORSOrigin     string
	Timing         playback.Timing
}

// Server serves the link API, the link page and the playback streams.
type Server struct {
	Streams *StreamManager

	cfg       Config
	codec     *token.Codec
	analytics *analytics.Service
	machine   playback.Machine
	clock     clockwork.Clock
	logger    *slog.Logger
	registry  *prometheus.Registry
	metrics   *Metrics
}

// Option configures a Server.
type Option func(*Server)

// WithCodec sets the token codec.
func WithCodec(c *token.Codec) Option {
	return func(s *Server) {
		s.codec = c
	}
}

// WithAnalytics enables event recording and the analytics routes.
func WithAnalytics(a *analytics.Service) Option {
	return func(s *Server) {
		s.analytics = a
	}
}

// WithClock sets the clock of streamed players.
func WithClock(c clockwork.Clock) Option {
	return func(s *Server) {
		s.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithRegistry registers the HTTP metrics on reg and serves reg on /metrics.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

// New creates a Server.
func New(cfg Config, opts ...Option) *Server {
	if cfg.AssistantURL == "" {
		cfg.AssistantURL = "https://replit.com/ai"
	}
	if cfg.MaxPromptBytes <= 0 {
		cfg.MaxPromptBytes = domain.DefaultMaxPromptBytes
	}
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "*"
	}
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")

	s := &Server{
		cfg:    cfg,
		codec:  token.New(),
		clock:  clockwork.NewRealClock(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	s.metrics = NewMetrics(s.registry)
	s.machine = playback.NewMachine(cfg.Timing)
	s.Streams = NewStreamManager(s.logger)

	if s.analytics != nil {
		s.analytics.OnRecord(func(e domain.AnalyticsEvent) {
			data, err := json.Marshal(e)
			if err != nil {
				s.logger.Error("analytics event encode failed", "error", err)
				return
			}
			s.Streams.Broadcast(analyticsTopic, string(data))
		})
	}
	return s
}

// NewHandler creates a new HTTP handler for the link service.
func NewHandler(cfg Config, opts ...Option) http.Handler {
	return New(cfg, opts...).Handler()
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	return enableCORS(s.cfg.CORSOrigin, s.router())
}

func (s *Server) router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.middleware)

	r.Get("/", s.home)
	r.Get("/replit", s.page)
	r.Get("/health", s.health)
	r.Get("/info", s.info)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	r.Get("/openapi.yaml", serveSpec)
	r.Get("/swagger", serveSwaggerUI)

	r.Route("/api", func(r chi.Router) {
		r.Post("/links", s.createLink)
		r.Get("/links/resolve", s.resolveLink)
		r.Get("/playback", s.playbackScript)
		r.Get("/playback/stream", s.playbackStream)
		r.Get("/analytics", s.stats)
		r.Get("/analytics/stream", s.analyticsStream)
	})

	return r
}

func enableCORS(origin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"app":         "lmrtfy-http",
		"version":     strings.TrimSpace(lmrtfy.Version),
		"api_version": apiVersion(),
		"analytics":   s.analytics != nil,
	})
}

// -- Helpers --

type errorResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Message: msg})
}

// baseURL is the origin links are built on.
func (s *Server) baseURL(r *http.Request) string {
	if s.cfg.PublicURL != "" {
		return s.cfg.PublicURL
	}
	proto := r.Header.Get("X-Forwarded-Proto")
	if proto == "" {
		proto = "http"
		if r.TLS != nil {
			proto = "https"
		}
	}
	return proto + "://" + r.Host
}

// record logs analytics failures instead of failing the request:
// a link works whether or not it was counted.
func (s *Server) record(r *http.Request, typ domain.EventType, prompt string) {
	if s.analytics == nil {
		return
	}
	if _, err := s.analytics.Record(r.Context(), typ, prompt, r.UserAgent(), r.Referer()); err != nil {
		s.logger.Error("analytics record failed", "type", typ, "error", err)
	}
}
