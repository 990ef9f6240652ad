// Package prefetch ties the prediction pipeline together. Manager records
// navigation events, ranks registered resources with the scorer and
// prefetches the top candidates concurrently, refreshing recency in the
// registry for every fetch that succeeds.
//
// Individual fetch failures never fail a run: they are logged, counted and
// reported in the Outcome. Optimize only returns an error for malformed
// candidates.
package prefetch
