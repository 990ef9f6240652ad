// Package monitoring reports service errors to Sentry.
package monitoring

import (
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/kilianp07/prefetch/config"
	coremon "github.com/kilianp07/prefetch/core/monitoring"
)

const recoverFlushTimeout = 2 * time.Second

// NewSentryMonitor returns a Monitor backed by its own Sentry client. The
// global Sentry hub is left untouched so several services can coexist in one
// process. An empty DSN yields a NopMonitor.
func NewSentryMonitor(cfg config.SentryConfig) (coremon.Monitor, error) {
	if cfg.DSN == "" {
		return coremon.NopMonitor{}, nil
	}
	return newHubMonitor(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       cfg.SampleRate,
		TracesSampleRate: cfg.TracesSampleRate,
	})
}

func newHubMonitor(opts sentry.ClientOptions) (*hubMonitor, error) {
	client, err := sentry.NewClient(opts)
	if err != nil {
		return nil, err
	}
	return &hubMonitor{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

type hubMonitor struct {
	hub *sentry.Hub
}

func (m *hubMonitor) CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	if len(tags) == 0 {
		m.hub.CaptureException(err)
		return
	}
	m.hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		m.hub.CaptureException(err)
	})
}

func (m *hubMonitor) Recover() {
	if r := recover(); r != nil {
		m.hub.Recover(r)
		m.hub.Flush(recoverFlushTimeout)
		panic(r)
	}
}

func (m *hubMonitor) Flush(timeout time.Duration) { m.hub.Flush(timeout) }
