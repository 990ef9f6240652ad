// Package history persists the outcome of every optimisation run so the
// admission decisions can be audited later.
package history

import (
	"context"
	"strings"
	"time"

	"github.com/kilianp07/prefetch/core/factory"
	"github.com/kilianp07/prefetch/core/model"
)

// FetchRecord is the persisted form of one prefetch attempt.
type FetchRecord struct {
	URL       string  `json:"url"`
	Score     float64 `json:"score"`
	Success   bool    `json:"success"`
	Error     string  `json:"error,omitempty"`
	LatencyMS float64 `json:"latency_ms"`
}

// Record captures one optimisation run.
type Record struct {
	RunID       string                  `json:"run_id"`
	Timestamp   time.Time               `json:"timestamp"`
	Status      string                  `json:"status"`
	State       model.State             `json:"state,omitempty"`
	Predictions []model.Prediction      `json:"predictions,omitempty"`
	Candidates  []model.ScoredCandidate `json:"candidates,omitempty"`
	Fetches     []FetchRecord           `json:"fetches,omitempty"`
}

// Query filters stored records. Zero fields match everything.
type Query struct {
	Start  time.Time
	End    time.Time
	Status string
	URL    string
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

func (q Query) timeMatch(ts time.Time) bool {
	if !q.Start.IsZero() && ts.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && ts.After(q.End) {
		return false
	}
	return true
}

func (q Query) urlMatch(r Record) bool {
	if q.URL == "" {
		return true
	}
	for _, f := range r.Fetches {
		if f.URL == q.URL {
			return true
		}
	}
	for _, c := range r.Candidates {
		if c.URL == q.URL {
			return true
		}
	}
	return false
}

// NopStore discards records.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error           { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }

var storeRegistry = factory.NewRegistry[Store]()

func init() {
	_ = storeRegistry.Register("nop", func(map[string]any) (Store, error) { return NopStore{}, nil })
	_ = storeRegistry.Register("jsonl", func(conf map[string]any) (Store, error) {
		var c struct {
			Path string `json:"path"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewJSONLStore(c.Path)
	})
	_ = storeRegistry.Register("sqlite", func(conf map[string]any) (Store, error) {
		var c struct {
			Path string `json:"path"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewSQLiteStore(c.Path)
	})
}

// NewStore builds the store selected by backend ("jsonl", "sqlite" or "nop").
func NewStore(backend, path string) (Store, error) {
	return storeRegistry.Create(factory.ModuleConfig{
		Type: strings.ToLower(backend),
		Conf: map[string]any{"path": path},
	})
}
