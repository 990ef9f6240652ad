// Package scoring ranks prefetch candidates by blending predicted
// probability, exponential recency decay and fetch cost:
//
//	score = probability * exp(-decayRate * elapsedSeconds) / (size * latency)
package scoring

import (
	"math"
	"sort"
	"time"

	"github.com/kilianp07/prefetch/core/model"
)

// DefaultDecayRate is applied per elapsed second since last access.
const DefaultDecayRate = 0.1

// Scorer is stateless apart from its configuration.
type Scorer struct {
	DecayRate float64
	Matcher   Matcher
	Now       func() time.Time
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithMatcher replaces the default substring matcher.
func WithMatcher(m Matcher) Option {
	return func(s *Scorer) {
		if m != nil {
			s.Matcher = m
		}
	}
}

// WithClock overrides the clock used to compute elapsed time.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) {
		if now != nil {
			s.Now = now
		}
	}
}

// New returns a Scorer. A negative decayRate is clamped to 0.
func New(decayRate float64, opts ...Option) *Scorer {
	if decayRate < 0 || math.IsNaN(decayRate) {
		decayRate = 0
	}
	s := &Scorer{DecayRate: decayRate, Matcher: SubstringMatcher{}, Now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ScoreResources scores every (prediction, matching resource) pair and
// returns them sorted by score descending. Pairs are not deduplicated.
func (s *Scorer) ScoreResources(preds []model.Prediction, resources []model.ResourceEntry) []model.ScoredCandidate {
	if len(preds) == 0 || len(resources) == 0 {
		return nil
	}
	now := s.Now()
	var out []model.ScoredCandidate
	for _, p := range preds {
		for _, r := range resources {
			if !s.Matcher.Match(p.State, r.URL) {
				continue
			}
			out = append(out, s.score(p, r, now))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func (s *Scorer) score(p model.Prediction, r model.ResourceEntry, now time.Time) model.ScoredCandidate {
	elapsed := now.Sub(r.LastAccessed).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	decay := math.Exp(-s.DecayRate * elapsed)
	cost := r.Cost()
	// A zero, negative or NaN cost would divide by zero or flip the sign.
	if !(cost > 0) {
		cost = 1
	}
	score := p.Probability * decay / cost
	if math.IsNaN(score) || math.IsInf(score, 0) || score < 0 {
		score = 0
	}
	return model.ScoredCandidate{
		URL:         r.URL,
		State:       p.State,
		Probability: p.Probability,
		Decay:       decay,
		Cost:        cost,
		Score:       score,
	}
}
