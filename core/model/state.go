package model

// State identifies a page, event category or logical location. The value is
// opaque and compared by exact string equality.
type State string

// String returns the raw identifier.
func (s State) String() string { return string(s) }

// Prediction is a candidate next state with its estimated probability in [0,1].
type Prediction struct {
	State       State   `json:"state"`
	Probability float64 `json:"probability"`
}
