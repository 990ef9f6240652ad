package scenarios

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/prefetch/core/model"
	"github.com/kilianp07/prefetch/core/prefetch"
	"github.com/kilianp07/prefetch/core/registry"
)

// Epoch is the replay clock origin.
var Epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// ErrInjected is returned by the replay fetcher for URLs listed in fail_urls.
var ErrInjected = errors.New("injected fetch failure")

type failingFetcher struct {
	next prefetch.Fetcher
	fail map[string]bool
}

func (f failingFetcher) Fetch(ctx context.Context, url string) error {
	if f.fail[url] {
		return ErrInjected
	}
	return f.next.Fetch(ctx, url)
}

// Report holds every optimisation run of a replay; the last one is the
// final plan.
type Report struct {
	Scenario *Scenario
	Outcomes []prefetch.Outcome
}

// Final returns the outcome of the closing optimisation.
func (r *Report) Final() prefetch.Outcome {
	if len(r.Outcomes) == 0 {
		return prefetch.Outcome{}
	}
	return r.Outcomes[len(r.Outcomes)-1]
}

// Run replays sc against a fresh manager on a simulated clock. fetcher
// receives every admitted URL that is not listed in fail_urls.
func Run(ctx context.Context, sc *Scenario, fetcher prefetch.Fetcher, opts ...prefetch.Option) (*Report, error) {
	clk := &clock{t: Epoch}
	reg := registry.NewMemoryStore(registry.WithClock(clk.Now))
	fail := make(map[string]bool, len(sc.FailURLs))
	for _, u := range sc.FailURLs {
		fail[u] = true
	}
	opts = append([]prefetch.Option{prefetch.WithRegistry(reg), prefetch.WithClock(clk.Now)}, opts...)
	mgr, err := prefetch.NewManager(sc.Prefetch, failingFetcher{next: fetcher, fail: fail}, opts...)
	if err != nil {
		return nil, err
	}

	for _, r := range sc.Resources {
		clk.Set(Epoch.Add(-time.Duration(r.AgeSeconds * float64(time.Second))))
		mgr.AddResource(r.URL, r.Meta())
	}
	clk.Set(Epoch)

	rep := &Report{Scenario: sc}
	for _, st := range sc.Steps {
		clk.Advance(time.Duration(st.WaitSeconds * float64(time.Second)))
		evt := st.EventType
		if evt == "" {
			evt = "navigate"
		}
		mgr.Track(evt, model.State(st.State))
		if st.Optimize {
			out, err := mgr.Optimize(ctx)
			if err != nil {
				return rep, err
			}
			rep.Outcomes = append(rep.Outcomes, out)
		}
	}
	out, err := mgr.Optimize(ctx)
	if err != nil {
		return rep, err
	}
	rep.Outcomes = append(rep.Outcomes, out)
	return rep, nil
}

// Check compares the final outcome with the scenario expectations.
func (r *Report) Check() error {
	exp := r.Scenario.Expected
	if exp == nil {
		return nil
	}
	out := r.Final()
	if exp.Status != "" && string(out.Status) != exp.Status {
		return fmt.Errorf("scenario %s: expected status %s, got %s", r.Scenario.Name, exp.Status, out.Status)
	}
	if out.Failed() != exp.Failed {
		return fmt.Errorf("scenario %s: expected %d failed fetches, got %d", r.Scenario.Name, exp.Failed, out.Failed())
	}
	if exp.Fetched != nil {
		got := make([]string, len(out.Results))
		for i, res := range out.Results {
			got[i] = res.Candidate.URL
		}
		if !sameSet(got, exp.Fetched) {
			return fmt.Errorf("scenario %s: expected fetched %v, got %v", r.Scenario.Name, exp.Fetched, got)
		}
	}
	return nil
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := append([]string(nil), a...)
	y := append([]string(nil), b...)
	sort.Strings(x)
	sort.Strings(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}
