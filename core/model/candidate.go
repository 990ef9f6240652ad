package model

// ScoredCandidate pairs a registered resource with the prediction that
// matched it. A resource matching several predictions yields one candidate
// per match.
type ScoredCandidate struct {
	URL         string  `json:"url"`
	State       State   `json:"state"`
	Probability float64 `json:"probability"`
	Decay       float64 `json:"decay"`
	Cost        float64 `json:"cost"`
	Score       float64 `json:"score"`
}
