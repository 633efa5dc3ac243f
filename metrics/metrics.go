// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "esports"

// Registration outcomes.
const (
	OutcomeRegistered      = "registered"
	OutcomeFull            = "full"
	OutcomeDuplicate       = "duplicate"
	OutcomeClosed          = "closed"
	OutcomePaymentRequired = "payment_required"
	OutcomePaymentInvalid  = "payment_invalid"
	OutcomeError           = "error"
)

type Metrics struct {
	registry prometheus.Gatherer

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	registrations *prometheus.CounterVec
	matchResults  prometheus.Counter
	reconciled    prometheus.Counter
}

// New registers all collectors on reg. Passing a fresh prometheus.NewRegistry()
// keeps tests isolated from the global default registry.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tournament_registrations_total",
			Help:      "Tournament registration attempts by outcome.",
		}, []string{"outcome"}),
		matchResults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_results_total",
			Help:      "Match results applied to the leaderboard.",
		}),
		reconciled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "participant_counters_reconciled_total",
			Help:      "Tournaments whose participant counter was corrected by the reconcile job.",
		}),
	}
	reg.MustRegister(m.httpRequests, m.httpDuration, m.registrations, m.matchResults, m.reconciled)
	return m
}

func (m *Metrics) Registration(outcome string) {
	m.registrations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) MatchResult() {
	m.matchResults.Inc()
}

func (m *Metrics) Reconciled(n int) {
	m.reconciled.Add(float64(n))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request count and latency labelled by the chi route
// pattern ("/api/tournaments/{tournamentID}"), not the raw path.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
