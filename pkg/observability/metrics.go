package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the picker flow
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal *prometheus.CounterVec

	// Registration metrics
	RegistrationAttemptsTotal prometheus.Counter
	RegistrationRetriesTotal  prometheus.Counter
	RegistrationFailuresTotal prometheus.Counter
	LoginsCompletedTotal      prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "displayname_picker_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "status"},
		),
		RegistrationAttemptsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "displayname_picker_registration_attempts_total",
				Help: "Total number of register calls made to the host, including retries",
			},
		),
		RegistrationRetriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "displayname_picker_registration_retries_total",
				Help: "Total number of username collision retries",
			},
		),
		RegistrationFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "displayname_picker_registration_failures_total",
				Help: "Total number of submissions that ended in a registration error",
			},
		),
		LoginsCompletedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "displayname_picker_logins_completed_total",
				Help: "Total number of successful registrations handed back to the host",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.RegistrationAttemptsTotal,
		m.RegistrationRetriesTotal,
		m.RegistrationFailuresTotal,
		m.LoginsCompletedTotal,
	)

	return m
}

// Handler returns an HTTP handler serving the metrics registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// statusRecorder captures the response status code for metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Unwrap exposes the underlying ResponseWriter so http.ResponseController
// can reach its optional interfaces (Flusher, ReaderFrom, etc.)
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// InstrumentHandler wraps an HTTP handler and counts requests by status code
func (m *Metrics) InstrumentHandler(name string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		m.HTTPRequestsTotal.WithLabelValues(name, strconv.Itoa(rec.status)).Inc()
	}
}
