package prefetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/prefetch/core/events"
	"github.com/kilianp07/prefetch/core/logger"
	"github.com/kilianp07/prefetch/core/metrics"
	"github.com/kilianp07/prefetch/core/model"
	"github.com/kilianp07/prefetch/core/prediction"
	"github.com/kilianp07/prefetch/core/prefetch/history"
	"github.com/kilianp07/prefetch/core/registry"
	"github.com/kilianp07/prefetch/core/scoring"
	"github.com/kilianp07/prefetch/internal/eventbus"
)

// ErrMalformedCandidate is returned when a candidate cannot be fetched.
var ErrMalformedCandidate = errors.New("malformed prefetch candidate")

// Manager owns one tracking session: a transition model, a resource
// registry and the scorer that ranks them.
type Manager struct {
	cfg       Config
	model     *prediction.TransitionModel
	predictor prediction.Predictor
	registry  registry.Store
	scorer    *scoring.Scorer
	fetcher   Fetcher
	logger    logger.Logger
	metrics   metrics.MetricsSink
	bus       *eventbus.Bus[events.Event]
	history   history.Store
	now       func() time.Time
}

// Option customises a Manager.
type Option func(*Manager)

func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

func WithMetrics(s metrics.MetricsSink) Option {
	return func(m *Manager) {
		if s != nil {
			m.metrics = s
		}
	}
}

// WithBus publishes Track, Fetch and Optimize events on bus.
func WithBus(bus *eventbus.Bus[events.Event]) Option {
	return func(m *Manager) { m.bus = bus }
}

// WithHistory persists every run outcome.
func WithHistory(s history.Store) Option {
	return func(m *Manager) {
		if s != nil {
			m.history = s
		}
	}
}

// WithRegistry replaces the in-memory resource registry.
func WithRegistry(r registry.Store) Option {
	return func(m *Manager) {
		if r != nil {
			m.registry = r
		}
	}
}

// WithPredictor replaces the transition model as the source of predictions
// for Optimize. Track still feeds the transition model.
func WithPredictor(p prediction.Predictor) Option {
	return func(m *Manager) {
		if p != nil {
			m.predictor = p
		}
	}
}

// WithMatcher overrides the matcher selected by Config.Matcher.
func WithMatcher(mt scoring.Matcher) Option {
	return func(m *Manager) {
		if mt != nil {
			m.scorer.Matcher = mt
		}
	}
}

// WithClock sets the clock used by the scorer and for run timestamps. The
// registry keeps its own clock.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
			m.scorer.Now = now
		}
	}
}

// NewManager validates cfg and builds a Manager around fetcher.
func NewManager(cfg Config, fetcher Fetcher, opts ...Option) (*Manager, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("prefetch: nil fetcher provided to NewManager")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	matcher, err := scoring.NewMatcher(cfg.Matcher)
	if err != nil {
		return nil, err
	}
	m := &Manager{
		cfg:      cfg,
		model:    prediction.NewTransitionModel(),
		registry: registry.NewMemoryStore(),
		scorer:   scoring.New(cfg.Decay(), scoring.WithMatcher(matcher)),
		fetcher:  fetcher,
		logger:   logger.NopLogger{},
		metrics:  metrics.NopSink{},
		history:  history.NopStore{},
		now:      time.Now,
	}
	m.predictor = m.model
	for _, o := range opts {
		o(m)
	}
	return m, nil
}

// Config returns the effective configuration.
func (m *Manager) Config() Config { return m.cfg }

// Track records a navigation event. eventType is kept for observability and
// does not partition the transition model. Navigation metrics are derived
// from the published TrackEvent.
func (m *Manager) Track(eventType string, state model.State) {
	m.model.Track(eventType, state)
	tracked.Inc()
	m.publish(events.TrackEvent{EventType: eventType, State: state, Time: m.now()})
	m.logger.Debugw("tracked navigation", map[string]any{"event_type": eventType, "state": string(state)})
}

// AddResource registers or replaces a prefetchable resource.
func (m *Manager) AddResource(url string, meta *model.ResourceMeta) model.ResourceEntry {
	e := m.registry.Add(url, meta)
	if rec, ok := m.metrics.(metrics.RegistrySizeRecorder); ok {
		if err := rec.RecordRegistrySize(m.registry.Len()); err != nil {
			m.logger.Errorf("registry metrics error: %v", err)
		}
	}
	m.logger.Debugf("registered resource %s size=%v latency=%v", url, e.Size, e.Latency)
	return e
}

// Predictions returns the ranked next-state distribution for the current state.
func (m *Manager) Predictions() []model.Prediction { return m.predictor.PredictNext() }

// Resources lists the registered resources.
func (m *Manager) Resources() []model.ResourceEntry { return m.registry.List() }

// Current returns the last tracked state.
func (m *Manager) Current() (model.State, bool) { return m.model.Current() }

// Optimize predicts the next state, ranks matching resources and prefetches
// the best MaxPrefetch of them. It returns once every dispatched fetch has
// settled.
func (m *Manager) Optimize(ctx context.Context) (Outcome, error) {
	out := Outcome{RunID: uuid.NewString(), Started: m.now()}
	out.State, _ = m.model.Current()

	out.Predictions = m.predictor.PredictNext()
	if len(out.Predictions) == 0 {
		m.logger.Infof("optimize %s: insufficient data", out.RunID)
		out.Status = StatusInsufficientData
		m.finish(ctx, &out)
		return out, nil
	}

	out.Candidates = m.scorer.ScoreResources(out.Predictions, m.registry.List())
	if len(out.Candidates) == 0 {
		m.logger.Infof("optimize %s: no matching resources for %d predictions", out.RunID, len(out.Predictions))
		out.Status = StatusNoMatches
		m.finish(ctx, &out)
		return out, nil
	}
	lastTopScore.Set(out.Candidates[0].Score)

	results, err := m.prefetch(ctx, out.RunID, out.Candidates)
	out.Results = results
	if err != nil {
		out.Status = StatusMalformed
		m.finish(ctx, &out)
		return out, err
	}
	out.Status = StatusPrefetched
	m.finish(ctx, &out)
	return out, nil
}

// Prefetch fetches the first MaxPrefetch candidates concurrently and waits
// for all of them to settle.
func (m *Manager) Prefetch(ctx context.Context, candidates []model.ScoredCandidate) ([]FetchResult, error) {
	return m.prefetch(ctx, uuid.NewString(), candidates)
}

func (m *Manager) prefetch(ctx context.Context, runID string, candidates []model.ScoredCandidate) ([]FetchResult, error) {
	selected := admit(candidates, m.cfg.Limit())
	for i, c := range selected {
		if c.URL == "" {
			return nil, fmt.Errorf("%w: candidate %d has no url", ErrMalformedCandidate, i)
		}
	}
	if len(selected) == 0 {
		return nil, nil
	}

	results := make([]FetchResult, len(selected))
	var wg sync.WaitGroup
	for i, c := range selected {
		wg.Add(1)
		go func(i int, c model.ScoredCandidate) {
			defer wg.Done()
			results[i] = m.fetchOne(ctx, runID, c)
		}(i, c)
	}
	wg.Wait()

	m.recordFetches(runID, results)
	return results, nil
}

// fetchOne never panics the run: a panicking fetcher is reported as a failure.
func (m *Manager) fetchOne(ctx context.Context, runID string, c model.ScoredCandidate) (res FetchResult) {
	res.Candidate = c
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("fetch panic: %v", r)
		}
		res.Latency = time.Since(start)
		outcome := "success"
		if res.Err != nil {
			outcome = "failure"
			m.logger.Warnf("prefetch %s failed: %v", c.URL, res.Err)
		} else {
			m.registry.Touch(c.URL)
			m.logger.Debugf("prefetched %s (score %.3g)", c.URL, c.Score)
		}
		fetchesTotal.WithLabelValues(outcome).Inc()
		fetchLatency.WithLabelValues(outcome).Observe(res.Latency.Seconds())
		m.publish(events.FetchEvent{RunID: runID, URL: c.URL, Score: c.Score, Err: res.Err, Latency: res.Latency})
	}()
	res.Err = m.fetcher.Fetch(ctx, c.URL)
	return res
}

// admit truncates the ranked list to limit entries.
func admit(candidates []model.ScoredCandidate, limit int) []model.ScoredCandidate {
	if limit <= 0 {
		return nil
	}
	if len(candidates) > limit {
		return candidates[:limit]
	}
	return candidates
}

func (m *Manager) recordFetches(runID string, results []FetchResult) {
	if len(results) == 0 {
		return
	}
	now := m.now()
	recs := make([]metrics.FetchResult, len(results))
	for i, r := range results {
		recs[i] = metrics.FetchResult{
			RunID:   runID,
			URL:     r.Candidate.URL,
			State:   r.Candidate.State,
			Score:   r.Candidate.Score,
			Success: r.OK(),
			Latency: r.Latency,
			Time:    now,
		}
		if r.Err != nil {
			recs[i].Error = r.Err.Error()
		}
	}
	if err := m.metrics.RecordFetchResults(recs); err != nil {
		m.logger.Errorf("metrics error: %v", err)
	}
}

// finish stamps the outcome and reports it to the bus and history. Run
// metrics are derived from the published OptimizeEvent.
func (m *Manager) finish(ctx context.Context, out *Outcome) {
	out.Finished = m.now()
	optimizeRuns.WithLabelValues(string(out.Status)).Inc()
	m.publish(events.OptimizeEvent{
		RunID:       out.RunID,
		Status:      string(out.Status),
		Predictions: len(out.Predictions),
		Candidates:  len(out.Candidates),
		Dispatched:  len(out.Results),
		Failed:      out.Failed(),
		Duration:    out.Finished.Sub(out.Started),
		Time:        out.Finished,
	})
	if err := m.history.Append(ctx, toRecord(*out)); err != nil {
		m.logger.Errorf("history append: %v", err)
	}
}

func (m *Manager) publish(e events.Event) {
	if m.bus != nil {
		m.bus.Publish(e)
	}
}

func toRecord(out Outcome) history.Record {
	rec := history.Record{
		RunID:       out.RunID,
		Timestamp:   out.Started,
		Status:      string(out.Status),
		State:       out.State,
		Predictions: out.Predictions,
		Candidates:  out.Candidates,
	}
	for _, r := range out.Results {
		fr := history.FetchRecord{
			URL:       r.Candidate.URL,
			Score:     r.Candidate.Score,
			Success:   r.OK(),
			LatencyMS: float64(r.Latency) / float64(time.Millisecond),
		}
		if r.Err != nil {
			fr.Error = r.Err.Error()
		}
		rec.Fetches = append(rec.Fetches, fr)
	}
	return rec
}
