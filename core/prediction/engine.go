package prediction

import "github.com/kilianp07/prefetch/core/model"

// Predictor returns the ranked next-state distribution for the current state.
type Predictor interface {
	// PredictNext returns predictions sorted by probability descending. The
	// slice is empty when there is no current state or it has no outgoing
	// transitions.
	PredictNext() []model.Prediction
}
