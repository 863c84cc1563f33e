package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments the HTTP boundary.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	decodes  *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lmrtfy_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lmrtfy_http_request_duration_seconds",
				Help:    "Duration of HTTP requests, streams excluded",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		decodes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lmrtfy_token_decodes_total",
				Help: "Total number of decoded link tokens by strategy",
			},
			[]string{"strategy"},
		),
	}
	reg.MustRegister(m.requests, m.duration, m.decodes)
	return m
}

func (m *Metrics) decoded(strategy string) {
	m.decodes.WithLabelValues(strategy).Inc()
}

// middleware labels requests by chi route pattern so that tokens in the
// query string never become label values.
func (m *Metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		if ww.Header().Get("Content-Type") != "text/event-stream" {
			m.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}
