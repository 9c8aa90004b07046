package ssr

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures render metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "routekit").
	Namespace string

	// Subsystem is the metrics subsystem (default: "ssr").
	Subsystem string

	// Buckets are the histogram buckets for render duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Metrics records render outcomes. A nil *Metrics records nothing.
type Metrics struct {
	rendersTotal   *prometheus.CounterVec
	renderDuration *prometheus.HistogramVec
	queueWait      prometheus.Histogram
	inFlight       prometheus.Gauge
}

// NewMetrics registers the render metrics:
//   - routekit_ssr_renders_total: renders by outcome (ok or failure reason)
//   - routekit_ssr_render_duration_seconds: process run time by outcome
//   - routekit_ssr_queue_wait_seconds: time spent waiting for a slot
//   - routekit_ssr_in_flight: renderer processes currently running
func NewMetrics(config MetricsConfig) *Metrics {
	if config.Namespace == "" {
		config.Namespace = "routekit"
	}
	if config.Subsystem == "" {
		config.Subsystem = "ssr"
	}
	if len(config.Buckets) == 0 {
		config.Buckets = prometheus.DefBuckets
	}
	if config.Registry == nil {
		config.Registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		rendersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "renders_total",
			Help:      "Total number of server-side renders by outcome",
		}, []string{"outcome"}),

		renderDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "render_duration_seconds",
			Help:      "Renderer process run time in seconds",
			Buckets:   config.Buckets,
		}, []string{"outcome"}),

		queueWait: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "queue_wait_seconds",
			Help:      "Time spent waiting for a renderer slot in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),

		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "in_flight",
			Help:      "Number of renderer processes currently running",
		}),
	}
}

func (m *Metrics) observeQueue(d time.Duration) {
	if m == nil {
		return
	}
	m.queueWait.Observe(d.Seconds())
}

func (m *Metrics) started() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *Metrics) finished(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.Dec()
	m.rendersTotal.WithLabelValues(outcome).Inc()
	m.renderDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// canceled counts a render abandoned before a process was started.
func (m *Metrics) canceled() {
	if m == nil {
		return
	}
	m.rendersTotal.WithLabelValues(string(ReasonCanceled)).Inc()
}
