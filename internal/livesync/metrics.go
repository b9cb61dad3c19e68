package livesync

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts controller fetch outcomes. A nil *Metrics records nothing.
type Metrics struct {
	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	stale         *prometheus.CounterVec
	fallbacks     prometheus.Counter
	shortCircuits prometheus.Counter
}

// NewMetrics registers the controller collectors on reg. A nil reg leaves
// them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agingwatch",
			Name:      "fetches_total",
			Help:      "Dashboard API calls made by the controller, by operation and outcome.",
		}, []string{"op", "outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agingwatch",
			Name:      "fetch_duration_seconds",
			Help:      "Dashboard API call latency.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15},
		}, []string{"op"}),
		stale: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agingwatch",
			Name:      "stale_results_total",
			Help:      "Results dropped because a newer request superseded them.",
		}, []string{"stream"}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agingwatch",
			Name:      "filter_fallbacks_total",
			Help:      "Store filters applied locally after a failed fetch.",
		}),
		shortCircuits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agingwatch",
			Name:      "filter_short_circuits_total",
			Help:      "Empty filters served from the cached snapshot.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.fetches, m.fetchDuration, m.stale, m.fallbacks, m.shortCircuits)
	}
	return m
}

func (m *Metrics) observeFetch(op, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(op, outcome).Inc()
	m.fetchDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) staleResult(stream string) {
	if m == nil {
		return
	}
	m.stale.WithLabelValues(stream).Inc()
}

func (m *Metrics) fallback() {
	if m == nil {
		return
	}
	m.fallbacks.Inc()
}

func (m *Metrics) shortCircuit() {
	if m == nil {
		return
	}
	m.shortCircuits.Inc()
}
