// Package events defines the prefetch events emitted on the event bus.
//
// Available event types:
//   - TrackEvent: a navigation event was recorded
//   - OptimizeEvent: an optimisation run finished (with its status)
//   - FetchEvent: a single prefetch settled
package events
