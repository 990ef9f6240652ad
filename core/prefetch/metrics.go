package prefetch

import "github.com/prometheus/client_golang/prometheus"

var (
	fetchLatency *prometheus.HistogramVec
	fetchesTotal *prometheus.CounterVec
	optimizeRuns *prometheus.CounterVec
	tracked      prometheus.Counter
	lastTopScore prometheus.Gauge
)

func newCollectors() (*prometheus.HistogramVec, *prometheus.CounterVec, *prometheus.CounterVec, prometheus.Counter, prometheus.Gauge) {
	lat := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prefetch_fetch_latency_seconds",
			Help:    "Latency of prefetch requests until settled",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
	fetches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prefetch_fetches_total",
			Help: "Number of prefetch requests by outcome",
		},
		[]string{"outcome"},
	)
	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prefetch_optimize_runs_total",
			Help: "Number of optimisation runs by status",
		},
		[]string{"status"},
	)
	tr := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "prefetch_navigation_events_total",
			Help: "Number of tracked navigation events",
		},
	)
	top := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "prefetch_top_candidate_score",
			Help: "Score of the best ranked candidate in the last run",
		},
	)
	return lat, fetches, runs, tr, top
}

func init() {
	fetchLatency, fetchesTotal, optimizeRuns, tracked, lastTopScore = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers prefetch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(fetchLatency, fetchesTotal, optimizeRuns, tracked, lastTopScore)
}

// ResetMetrics reinitializes collectors for tests and registers them on reg
// when it is not nil.
func ResetMetrics(reg prometheus.Registerer) {
	fetchLatency, fetchesTotal, optimizeRuns, tracked, lastTopScore = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
