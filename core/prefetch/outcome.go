package prefetch

import (
	"time"

	"github.com/kilianp07/prefetch/core/model"
)

// Status describes how an optimisation run ended.
type Status string

const (
	StatusInsufficientData Status = "insufficient_data"
	StatusNoMatches        Status = "no_matches"
	StatusPrefetched       Status = "prefetched"
	// StatusMalformed marks a run aborted before dispatch because an
	// admitted candidate had no URL.
	StatusMalformed Status = "malformed_candidate"
)

// FetchResult is the settled state of one dispatched fetch.
type FetchResult struct {
	Candidate model.ScoredCandidate
	Err       error
	Latency   time.Duration
}

// OK reports whether the fetch succeeded.
func (r FetchResult) OK() bool { return r.Err == nil }

// Outcome reports what a single Optimize call did.
type Outcome struct {
	RunID       string
	Status      Status
	State       model.State
	Predictions []model.Prediction
	Candidates  []model.ScoredCandidate
	Results     []FetchResult
	Started     time.Time
	Finished    time.Time
}

// Failed counts the fetches that returned an error.
func (o Outcome) Failed() int {
	n := 0
	for _, r := range o.Results {
		if !r.OK() {
			n++
		}
	}
	return n
}
