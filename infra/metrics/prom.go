package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/prefetch/core/metrics"
)

// PromSink records prefetch results in Prometheus metrics.
type PromSink struct {
	results  *prometheus.CounterVec
	scores   prometheus.Histogram
	runs     *prometheus.CounterVec
	registry prometheus.Gauge
}

// NewPromSink registers metrics on the default Prometheus registerer.
// The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (coremetrics.MetricsSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (coremetrics.MetricsSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	results := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "prefetch_results_total",
		Help: "Prefetch results by predicted state and success",
	}, []string{"state", "success"})
	scores := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "prefetch_admitted_score",
		Help:    "Scores of admitted prefetch candidates",
		Buckets: prometheus.ExponentialBuckets(1e-9, 10, 10),
	})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "prefetch_runs_total",
		Help: "Optimisation runs by status",
	}, []string{"status"})
	size := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "prefetch_registry_resources",
		Help: "Number of registered prefetchable resources",
	})

	var err error
	if results, err = register(reg, results); err != nil {
		return nil, err
	}
	if scores, err = register(reg, scores); err != nil {
		return nil, err
	}
	if runs, err = register(reg, runs); err != nil {
		return nil, err
	}
	if size, err = register(reg, size); err != nil {
		return nil, err
	}
	return &PromSink{results: results, scores: scores, runs: runs, registry: size}, nil
}

// register returns the already registered collector when one exists.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordFetchResults counts results and observes admitted scores.
func (s *PromSink) RecordFetchResults(res []coremetrics.FetchResult) error {
	for _, r := range res {
		s.results.WithLabelValues(string(r.State), strconv.FormatBool(r.Success)).Inc()
		s.scores.Observe(r.Score)
	}
	return nil
}

// RecordOptimizeRun counts runs by status.
func (s *PromSink) RecordOptimizeRun(ev coremetrics.OptimizeRunEvent) error {
	s.runs.WithLabelValues(ev.Status).Inc()
	return nil
}

// RecordRegistrySize sets the registry gauge.
func (s *PromSink) RecordRegistrySize(size int) error {
	s.registry.Set(float64(size))
	return nil
}
