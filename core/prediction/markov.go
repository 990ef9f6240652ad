package prediction

import (
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/prefetch/core/model"
)

// edges holds the outgoing transition counts of one source state. order keeps
// first-seen destination order so equal probabilities rank deterministically.
type edges struct {
	counts map[model.State]int
	order  []model.State
}

// TransitionModel is a first-order Markov chain over navigation states.
//
// The eventType passed to Track is accepted but does not partition the
// chain: all events feed the same transition table.
type TransitionModel struct {
	mu         sync.RWMutex
	table      map[model.State]*edges
	current    model.State
	hasCurrent bool
}

// NewTransitionModel returns an empty model with no current state.
func NewTransitionModel() *TransitionModel {
	return &TransitionModel{table: make(map[model.State]*edges)}
}

// Track records a transition from the current state to state, then makes
// state current. Self-loops and the very first event record no edge.
func (m *TransitionModel) Track(eventType string, state model.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hasCurrent && m.current != state {
		e, ok := m.table[m.current]
		if !ok {
			e = &edges{counts: make(map[model.State]int)}
			m.table[m.current] = e
		}
		if _, seen := e.counts[state]; !seen {
			e.order = append(e.order, state)
		}
		e.counts[state]++
	}
	m.current = state
	m.hasCurrent = true
}

// Current returns the last tracked state.
func (m *TransitionModel) Current() (model.State, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current, m.hasCurrent
}

// Transitions returns a copy of the outgoing counts recorded for from.
func (m *TransitionModel) Transitions(from model.State) map[model.State]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.table[from]
	if !ok {
		return nil
	}
	cp := make(map[model.State]int, len(e.counts))
	for k, v := range e.counts {
		cp[k] = v
	}
	return cp
}

// Len returns the number of source states with at least one transition.
func (m *TransitionModel) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.table)
}

// PredictNext ranks the outgoing transitions of the current state.
func (m *TransitionModel) PredictNext() []model.Prediction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.hasCurrent {
		return nil
	}
	e, ok := m.table[m.current]
	if !ok || len(e.order) == 0 {
		return nil
	}
	counts := make([]float64, len(e.order))
	for i, s := range e.order {
		counts[i] = float64(e.counts[s])
	}
	total := floats.Sum(counts)
	preds := make([]model.Prediction, len(e.order))
	for i, s := range e.order {
		preds[i] = model.Prediction{State: s, Probability: counts[i] / total}
	}
	sort.SliceStable(preds, func(i, j int) bool {
		return preds[i].Probability > preds[j].Probability
	})
	return preds
}
