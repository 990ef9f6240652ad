package events

import (
	"time"

	"github.com/kilianp07/prefetch/core/model"
)

// Event is any value published on the prefetch bus.
type Event interface{ isEvent() }

// TrackEvent is published after a navigation event is recorded.
type TrackEvent struct {
	EventType string
	State     model.State
	Time      time.Time
}

// OptimizeEvent is published when an optimisation run completes.
// Status is one of "insufficient_data", "no_matches", "prefetched" or
// "malformed_candidate".
type OptimizeEvent struct {
	RunID       string
	Status      string
	Predictions int
	Candidates  int
	Dispatched  int
	Failed      int
	Duration    time.Duration
	Time        time.Time
}

// FetchEvent is published for each settled prefetch.
type FetchEvent struct {
	RunID   string
	URL     string
	Score   float64
	Err     error
	Latency time.Duration
}

func (TrackEvent) isEvent()    {}
func (OptimizeEvent) isEvent() {}
func (FetchEvent) isEvent()    {}
