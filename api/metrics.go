package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/warp/grade-engine/generic"
)

// Metrics holds the Prometheus collectors for one router. Each instance owns
// its registry so tests can build as many routers as they like.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	assessmentsTotal  *prometheus.CounterVec
	promotionsTotal   prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grade_engine_http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grade_engine_http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		assessmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grade_engine_assessments_total",
			Help: "Assessments computed, by resulting grade.",
		}, []string{"grade"}),
		promotionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grade_engine_promotions_detected_total",
			Help: "Grade changes recorded by the promotion watch.",
		}),
	}

	m.registry.MustRegister(
		m.httpRequestsTotal,
		m.httpDuration,
		m.assessmentsTotal,
		m.promotionsTotal,
	)
	return m
}

// Middleware records request count and latency under the matched chi route
// pattern, so /api/employees/{id} is one series rather than one per employee.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		if m == nil {
			return
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) ObserveAssessment(grade generic.Grade) {
	if m == nil {
		return
	}
	m.assessmentsTotal.WithLabelValues(strconv.Itoa(int(grade))).Inc()
}

func (m *Metrics) IncPromotion() {
	if m == nil {
		return
	}
	m.promotionsTotal.Inc()
}

// Handler serves this instance's registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
