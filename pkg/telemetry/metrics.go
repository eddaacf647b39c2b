package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/draftform/pkg/features/form"
)

// MetricsConfig configures the Prometheus collectors.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "draftform").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus collectors.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "draftform",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the collectors of the service. It implements form.Observer.
type Metrics struct {
	submissions    *prometheus.CounterVec
	submitDuration *prometheus.HistogramVec
	draftWrites    *prometheus.CounterVec
	liveClients    prometheus.Gauge

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

var _ form.Observer = (*Metrics)(nil)

// NewMetrics registers the collectors. Registering twice on the same
// registry panics, as with promauto.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "submissions_total",
			Help:        "Total number of submit attempts by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"screen", "outcome"}),

		submitDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "submit_duration_seconds",
			Help:        "Duration of create calls in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"screen"}),

		draftWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "draft_writes_total",
			Help:        "Total number of shared draft writes",
			ConstLabels: config.ConstLabels,
		}, []string{"screen"}),

		liveClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "live_clients",
			Help:        "Number of connected live-update websockets",
			ConstLabels: config.ConstLabels,
		}),

		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "method", "code"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"route"}),
	}
}

// ObserveDraftWrite counts a shared draft write.
func (m *Metrics) ObserveDraftWrite(screenID string) {
	m.draftWrites.WithLabelValues(screenLabel(screenID)).Inc()
}

// ObserveSubmit records a submit outcome. Only attempts that reached the
// create call contribute to the duration histogram.
func (m *Metrics) ObserveSubmit(screenID string, status form.OutcomeStatus, d time.Duration) {
	screen := screenLabel(screenID)
	m.submissions.WithLabelValues(screen, status.String()).Inc()
	switch status {
	case form.OutcomeSucceeded, form.OutcomeRejected, form.OutcomeFailed:
		m.submitDuration.WithLabelValues(screen).Observe(d.Seconds())
	}
}

// LiveConnected tracks a websocket client; call the returned func on close.
func (m *Metrics) LiveConnected() func() {
	m.liveClients.Inc()
	return m.liveClients.Dec
}

// Middleware records request counts and durations per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := newStatusRecorder(w)

		next.ServeHTTP(rec, r)

		route := routePattern(r)
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
	})
}

// screenLabel drops the actor prefix of a screen id so the label stays
// low-cardinality: "admin:users" becomes "users".
func screenLabel(screenID string) string {
	for i := len(screenID) - 1; i >= 0; i-- {
		if screenID[i] == ':' {
			return screenID[i+1:]
		}
	}
	return screenID
}

// routePattern returns the matched chi pattern, or "unmatched" so raw paths
// never become label values.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
