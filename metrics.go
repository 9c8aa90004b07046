package routekit

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics records rebuilds and page requests. A nil *metrics records
// nothing.
type metrics struct {
	rebuildsTotal   *prometheus.CounterVec
	rebuildDuration prometheus.Histogram
	generation      prometheus.Gauge
	pagesTotal      *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		rebuildsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "routekit",
			Name:      "rebuilds_total",
			Help:      "Rebuilds by result (ok or error)",
		}, []string{"result"}),
		rebuildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "routekit",
			Name:      "rebuild_duration_seconds",
			Help:      "Time to read routes, generate and bundle",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		generation: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "routekit",
			Name:      "route_tree_generation",
			Help:      "Published route tree generation",
		}),
		pagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "routekit",
			Name:      "page_requests_total",
			Help:      "Page requests by outcome (rendered, shell, not_found, error)",
		}, []string{"outcome"}),
	}
}

func (m *metrics) rebuilt(err error, d time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.rebuildsTotal.WithLabelValues(result).Inc()
	m.rebuildDuration.Observe(d.Seconds())
}

func (m *metrics) published(generation uint64) {
	if m != nil {
		m.generation.Set(float64(generation))
	}
}

func (m *metrics) page(outcome string) {
	if m != nil {
		m.pagesTotal.WithLabelValues(outcome).Inc()
	}
}
