package metrics

import (
	"time"

	"github.com/kilianp07/prefetch/core/model"
)

// FetchResult is one settled prefetch.
type FetchResult struct {
	RunID   string
	URL     string
	State   model.State
	Score   float64
	Success bool
	Error   string
	Latency time.Duration
	Time    time.Time
}

// MetricsSink records prefetch outcomes.
type MetricsSink interface {
	RecordFetchResults(results []FetchResult) error
}

// OptimizeRunEvent summarises one optimisation run.
type OptimizeRunEvent struct {
	RunID       string
	Status      string
	Predictions int
	Candidates  int
	Dispatched  int
	Failed      int
	Duration    time.Duration
	Time        time.Time
}

// OptimizeRecorder records optimisation runs.
type OptimizeRecorder interface {
	RecordOptimizeRun(ev OptimizeRunEvent) error
}

// NavigationEvent is a tracked navigation step.
type NavigationEvent struct {
	EventType string
	State     model.State
	Time      time.Time
}

// NavigationRecorder records tracked navigation events.
type NavigationRecorder interface {
	RecordNavigation(ev NavigationEvent) error
}

// RegistrySizeRecorder records the number of registered resources.
type RegistrySizeRecorder interface {
	RecordRegistrySize(size int) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordFetchResults([]FetchResult) error   { return nil }
func (NopSink) RecordOptimizeRun(OptimizeRunEvent) error { return nil }
func (NopSink) RecordNavigation(NavigationEvent) error   { return nil }
func (NopSink) RecordRegistrySize(int) error             { return nil }
