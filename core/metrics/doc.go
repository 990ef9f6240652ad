// Package metrics defines the sinks used to observe prefetch activity.
// Sinks such as the Prometheus and InfluxDB implementations in infra/metrics
// record fetch outcomes and optimisation runs; NewMetricsSink builds a
// MultiSink automatically when several sinks are configured. Optional
// recorder interfaces are discovered with type assertions.
package metrics
