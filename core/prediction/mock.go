package prediction

import "github.com/kilianp07/prefetch/core/model"

// MockPredictor returns a fixed prediction list.
type MockPredictor struct {
	Predictions []model.Prediction
}

// PredictNext returns a copy of the configured predictions.
func (m MockPredictor) PredictNext() []model.Prediction {
	if len(m.Predictions) == 0 {
		return nil
	}
	cp := make([]model.Prediction, len(m.Predictions))
	copy(cp, m.Predictions)
	return cp
}
