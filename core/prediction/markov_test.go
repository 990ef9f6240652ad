package prediction

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/prefetch/core/model"
)

func trackPairs(m *TransitionModel, from, to model.State, n int) {
	for i := 0; i < n; i++ {
		m.Track("navigate", from)
		m.Track("navigate", to)
	}
}

func TestPredictNextEmpty(t *testing.T) {
	m := NewTransitionModel()
	assert.Empty(t, m.PredictNext())

	m.Track("navigate", "/home")
	assert.Empty(t, m.PredictNext(), "no outgoing transitions yet")
}

func TestPredictNextScenario(t *testing.T) {
	m := NewTransitionModel()
	trackPairs(m, "/home", "/products", 3)
	trackPairs(m, "/home", "/about", 1)
	m.Track("navigate", "/home")

	preds := m.PredictNext()
	require.Len(t, preds, 2)
	assert.Equal(t, model.State("/products"), preds[0].State)
	assert.InDelta(t, 0.75, preds[0].Probability, 1e-9)
	assert.Equal(t, model.State("/about"), preds[1].State)
	assert.InDelta(t, 0.25, preds[1].Probability, 1e-9)
}

func TestPredictNextSumsToOne(t *testing.T) {
	m := NewTransitionModel()
	dests := []model.State{"/a", "/b", "/c", "/d", "/e"}
	for i, d := range dests {
		trackPairs(m, "/src", d, i*3+1)
	}
	m.Track("navigate", "/src")
	sum := 0.0
	for _, p := range m.PredictNext() {
		assert.GreaterOrEqual(t, p.Probability, 0.0)
		assert.LessOrEqual(t, p.Probability, 1.0)
		sum += p.Probability
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("probabilities sum to %v", sum)
	}
}

func TestTrackSelfLoop(t *testing.T) {
	m := NewTransitionModel()
	m.Track("click", "/a")
	m.Track("click", "/a")
	assert.Equal(t, 0, m.Len())
	cur, ok := m.Current()
	assert.True(t, ok)
	assert.Equal(t, model.State("/a"), cur)

	m.Track("click", "/b")
	m.Track("scroll", "/b")
	assert.Nil(t, m.Transitions("/b"), "self-loop must not create an edge")
	assert.Equal(t, map[model.State]int{"/b": 1}, m.Transitions("/a"))
}

func TestTrackIgnoresEventType(t *testing.T) {
	m := NewTransitionModel()
	m.Track("click", "/a")
	m.Track("hover", "/b")
	m.Track("click", "/a")
	m.Track("scroll", "/b")
	assert.Equal(t, 2, m.Transitions("/a")["/b"])
}

func TestPredictNextTieOrder(t *testing.T) {
	m := NewTransitionModel()
	trackPairs(m, "/home", "/z", 2)
	trackPairs(m, "/home", "/a", 2)
	trackPairs(m, "/home", "/m", 2)
	m.Track("navigate", "/home")
	for i := 0; i < 5; i++ {
		preds := m.PredictNext()
		require.Len(t, preds, 3)
		assert.Equal(t, []model.State{"/z", "/a", "/m"}, []model.State{preds[0].State, preds[1].State, preds[2].State})
	}
}

func TestTransitionsReturnsCopy(t *testing.T) {
	m := NewTransitionModel()
	trackPairs(m, "/a", "/b", 1)
	tr := m.Transitions("/a")
	tr["/b"] = 99
	assert.Equal(t, 1, m.Transitions("/a")["/b"])
}

func TestTrackConcurrent(t *testing.T) {
	m := NewTransitionModel()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Track("navigate", "/x")
				m.Track("navigate", "/y")
				_ = m.PredictNext()
			}
		}()
	}
	wg.Wait()
	_, ok := m.Current()
	assert.True(t, ok)
}

func TestMockPredictor(t *testing.T) {
	mp := MockPredictor{Predictions: []model.Prediction{{State: "/a", Probability: 1}}}
	res := mp.PredictNext()
	require.Len(t, res, 1)
	res[0].Probability = 0
	assert.Equal(t, 1.0, mp.Predictions[0].Probability)
	assert.Nil(t, MockPredictor{}.PredictNext())
}
