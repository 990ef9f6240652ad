package metrics

import (
	"context"

	"github.com/kilianp07/prefetch/core/events"
	coremetrics "github.com/kilianp07/prefetch/core/metrics"
	"github.com/kilianp07/prefetch/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for
// navigation and optimisation events. It stops when the context is canceled
// or the bus is closed.
func StartEventCollector(ctx context.Context, bus *eventbus.Bus[events.Event], sink coremetrics.MetricsSink) {
	if bus == nil || sink == nil {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				record(sink, ev)
			}
		}
	}()
}

func record(sink coremetrics.MetricsSink, ev events.Event) {
	switch e := ev.(type) {
	case events.TrackEvent:
		if r, ok := sink.(coremetrics.NavigationRecorder); ok {
			_ = r.RecordNavigation(coremetrics.NavigationEvent{EventType: e.EventType, State: e.State, Time: e.Time})
		}
	case events.OptimizeEvent:
		if r, ok := sink.(coremetrics.OptimizeRecorder); ok {
			_ = r.RecordOptimizeRun(coremetrics.OptimizeRunEvent{
				RunID:       e.RunID,
				Status:      e.Status,
				Predictions: e.Predictions,
				Candidates:  e.Candidates,
				Dispatched:  e.Dispatched,
				Failed:      e.Failed,
				Duration:    e.Duration,
				Time:        e.Time,
			})
		}
	}
}
