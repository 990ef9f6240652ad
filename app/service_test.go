package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/prefetch/config"
	"github.com/kilianp07/prefetch/core/events"
	"github.com/kilianp07/prefetch/core/factory"
	"github.com/kilianp07/prefetch/core/prefetch"
	"github.com/kilianp07/prefetch/infra/fetch"
)

type fakePublisher struct {
	mu           sync.Mutex
	outcomes     []events.OptimizeEvent
	disconnected bool
	err          error
}

func (f *fakePublisher) PublishOutcome(ev events.OptimizeEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, ev)
	return f.err
}

func (f *fakePublisher) Disconnect() {
	f.mu.Lock()
	f.disconnected = true
	f.mu.Unlock()
}

func (f *fakePublisher) statuses() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var s []string
	for _, o := range f.outcomes {
		s = append(s, o.Status)
	}
	return s
}

type capturedError struct {
	err  error
	tags map[string]string
}

type fakeMonitor struct {
	mu       sync.Mutex
	captured []capturedError
	flushed  bool
}

func (m *fakeMonitor) CaptureException(err error, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.captured = append(m.captured, capturedError{err: err, tags: tags})
}

func (m *fakeMonitor) Recover() {}

func (m *fakeMonitor) Flush(time.Duration) {
	m.mu.Lock()
	m.flushed = true
	m.mu.Unlock()
}

func testConfig() *config.Config {
	cfg := &config.Config{
		Prefetch: prefetch.Config{OptimizeOnTrack: true},
		Fetch:    fetch.Config{DryRun: true},
	}
	cfg.SetDefaults()
	return cfg
}

func TestNewFetcher(t *testing.T) {
	_, ok := NewFetcher(fetch.Config{DryRun: true}).(*fetch.DryRunFetcher)
	assert.True(t, ok)
	_, ok = NewFetcher(fetch.Config{BaseURL: "http://localhost"}).(*fetch.HTTPFetcher)
	assert.True(t, ok)
}

func TestServiceOptimizesOnTrack(t *testing.T) {
	svc, err := New(testConfig())
	require.NoError(t, err)
	pub := &fakePublisher{}
	svc.mqtt = pub

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = svc.Run(ctx)
		close(done)
	}()

	svc.Manager.AddResource("/api/products", nil)
	deadline := time.After(2 * time.Second)
	for {
		// End on /home so a triggered run predicts /products.
		svc.Manager.Track("navigate", "/products")
		svc.Manager.Track("navigate", "/home")
		if contains(pub.statuses(), string(prefetch.StatusPrefetched)) {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("no prefetched outcome published, got %v", pub.statuses())
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-done
	require.NoError(t, svc.Close())
	assert.True(t, pub.disconnected)
}

func TestServiceHandler(t *testing.T) {
	svc, err := New(testConfig())
	require.NoError(t, err)
	defer svc.Close()

	rr := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	svc.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/runs", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())
}

func TestNewRejectsUnknownSink(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "statsd"}}
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestServiceReportsOptimizeErrors(t *testing.T) {
	cfg := testConfig()
	cfg.Prefetch.OptimizeOnTrack = false
	svc, err := New(cfg)
	require.NoError(t, err)
	mon := &fakeMonitor{}
	svc.monitor = mon

	// An empty state is predicted and matches the empty URL.
	svc.Manager.AddResource("", nil)
	svc.Manager.Track("navigate", "/x")
	svc.Manager.Track("navigate", "")
	svc.Manager.Track("navigate", "/x")

	svc.optimize(context.Background())

	mon.mu.Lock()
	require.Len(t, mon.captured, 1)
	assert.ErrorIs(t, mon.captured[0].err, prefetch.ErrMalformedCandidate)
	assert.Equal(t, "optimize", mon.captured[0].tags["component"])
	assert.NotEmpty(t, mon.captured[0].tags["run_id"])
	mon.mu.Unlock()

	require.NoError(t, svc.Close())
	assert.True(t, mon.flushed)
}

func TestServiceReportsPublishErrors(t *testing.T) {
	svc, err := New(testConfig())
	require.NoError(t, err)
	defer svc.Close()
	mon := &fakeMonitor{}
	svc.monitor = mon
	svc.mqtt = &fakePublisher{err: errors.New("not connected")}

	svc.handle(context.Background(), events.OptimizeEvent{RunID: "run-1", Status: "no_matches"})

	mon.mu.Lock()
	defer mon.mu.Unlock()
	require.Len(t, mon.captured, 1)
	assert.Equal(t, "mqtt", mon.captured[0].tags["component"])
	assert.Equal(t, "run-1", mon.captured[0].tags["run_id"])
}

func TestNewRejectsBadSentryConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Sentry.DSN = "not a dsn"
	_, err := New(cfg)
	assert.Error(t, err)
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
