package prefetch

import "context"

// Fetcher issues a best-effort request for url so that it lands in a cache.
// The response body is irrelevant; only success or failure is reported.
type Fetcher interface {
	Fetch(ctx context.Context, url string) error
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, url string) error

func (f FetcherFunc) Fetch(ctx context.Context, url string) error { return f(ctx, url) }
