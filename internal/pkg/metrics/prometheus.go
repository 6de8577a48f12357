package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "policyaudit",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "policyaudit",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// Assessment metrics
	assessmentRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "policyaudit",
			Subsystem: "assessment",
			Name:      "runs_total",
			Help:      "Total number of assessment runs",
		},
		[]string{"tenant", "outcome"},
	)

	assessmentDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "policyaudit",
			Subsystem: "assessment",
			Name:      "duration_seconds",
			Help:      "Assessment run duration in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	classifiedRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "policyaudit",
			Subsystem: "assessment",
			Name:      "classified_records_total",
			Help:      "Total number of classified assignment records by risk level",
		},
		[]string{"risk_level"},
	)

	droppedRecordsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "policyaudit",
			Subsystem: "assessment",
			Name:      "dropped_records_total",
			Help:      "Total number of raw records dropped during normalization",
		},
	)

	deltaComputationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "policyaudit",
			Subsystem: "delta",
			Name:      "computations_total",
			Help:      "Total number of delta computations by trend verdict",
		},
		[]string{"trend"},
	)
)

// RecordAssessmentRun records an assessment run outcome and duration.
func RecordAssessmentRun(tenant, outcome string, duration time.Duration) {
	assessmentRunsTotal.WithLabelValues(tenant, outcome).Inc()
	assessmentDuration.Observe(duration.Seconds())
}

// RecordClassification records one classified record by risk level.
func RecordClassification(riskLevel string) {
	classifiedRecordsTotal.WithLabelValues(riskLevel).Inc()
}

// RecordDroppedRecord records one raw record dropped at the normalizer boundary.
func RecordDroppedRecord() {
	droppedRecordsTotal.Inc()
}

// RecordDeltaComputation records one delta computation by trend verdict.
func RecordDeltaComputation(trend string) {
	deltaComputationsTotal.WithLabelValues(trend).Inc()
}

// Handler returns the prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// statusRecorder captures the response status for the HTTP middleware.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware instruments HTTP handlers with request count and duration.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil && routeCtx.RoutePattern() != "" {
			path = routeCtx.RoutePattern()
		}
		status := strconv.Itoa(rec.status)
		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
	})
}
