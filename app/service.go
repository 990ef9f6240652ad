package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kilianp07/prefetch/api/navigation"
	"github.com/kilianp07/prefetch/api/runs"
	"github.com/kilianp07/prefetch/config"
	"github.com/kilianp07/prefetch/core/events"
	coremetrics "github.com/kilianp07/prefetch/core/metrics"
	coremon "github.com/kilianp07/prefetch/core/monitoring"
	"github.com/kilianp07/prefetch/core/prefetch"
	"github.com/kilianp07/prefetch/core/prefetch/history"
	"github.com/kilianp07/prefetch/infra/fetch"
	"github.com/kilianp07/prefetch/infra/logger"
	"github.com/kilianp07/prefetch/infra/metrics"
	"github.com/kilianp07/prefetch/infra/monitoring"
	"github.com/kilianp07/prefetch/infra/mqtt"
	"github.com/kilianp07/prefetch/internal/eventbus"
)

const (
	busBuffer    = 256
	flushTimeout = 2 * time.Second
)

// Service wires the prefetch manager to its transports and sinks.
type Service struct {
	Manager *prefetch.Manager
	cfg     *config.Config
	bus     *eventbus.Bus[events.Event]
	sink    coremetrics.MetricsSink
	history history.Store
	mqtt    outcomePublisher
	monitor coremon.Monitor
	log     logger.Logger
}

type outcomePublisher interface {
	PublishOutcome(ev events.OptimizeEvent) error
	Disconnect()
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	if err := logger.Configure(cfg.Log); err != nil {
		return nil, err
	}
	logg := logger.New("service")

	monitor, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	hist, err := history.NewStore(cfg.History.Backend, cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("history store: %w", err)
	}

	bus := eventbus.New[events.Event](busBuffer)
	manager, err := prefetch.NewManager(cfg.Prefetch, NewFetcher(cfg.Fetch),
		prefetch.WithLogger(logger.New("prefetch")),
		prefetch.WithMetrics(sink),
		prefetch.WithBus(bus),
		prefetch.WithHistory(hist),
	)
	if err != nil {
		_ = hist.Close()
		return nil, fmt.Errorf("prefetch manager: %w", err)
	}

	svc := &Service{Manager: manager, cfg: cfg, bus: bus, sink: sink, history: hist, monitor: monitor, log: logg}
	if cfg.MQTT.Enabled {
		client, err := mqtt.NewPahoClient(cfg.MQTT, manager)
		if err != nil {
			_ = hist.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		svc.mqtt = client
	}
	return svc, nil
}

// NewFetcher returns the HTTP fetcher, or a logging fetcher in dry-run mode.
func NewFetcher(cfg fetch.Config) prefetch.Fetcher {
	if cfg.DryRun {
		return fetch.NewDryRunFetcher(logger.New("fetch"))
	}
	return fetch.NewHTTPFetcher(cfg, nil)
}

// Handler returns the HTTP API routes.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	navigation.Register(mux, s.Manager)
	mux.Handle("/api/runs", runs.NewHandler(s.history, s.cfg.API.Token))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// Run starts the service and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	defer s.monitor.Recover()
	metrics.StartEventCollector(ctx, s.bus, s.sink)
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if addr := s.cfg.API.Addr; addr != "" {
		go func() {
			if err := s.serveAPI(ctx, addr); err != nil {
				s.log.Errorf("api server: %v", err)
			}
		}()
	}
	s.loop(ctx)
	return nil
}

// loop runs periodic and track-triggered optimisations and forwards
// outcomes to MQTT.
func (s *Service) loop(ctx context.Context) {
	sub := s.bus.Subscribe()
	defer s.bus.Unsubscribe(sub)

	var tick <-chan time.Time
	if n := s.cfg.Prefetch.IntervalSeconds; n > 0 {
		t := time.NewTicker(time.Duration(n) * time.Second)
		defer t.Stop()
		tick = t.C
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			s.optimize(ctx)
		case ev, ok := <-sub:
			if !ok {
				return
			}
			s.handle(ctx, ev)
		}
	}
}

func (s *Service) handle(ctx context.Context, ev events.Event) {
	switch e := ev.(type) {
	case events.TrackEvent:
		if s.cfg.Prefetch.OptimizeOnTrack {
			s.optimize(ctx)
		}
	case events.OptimizeEvent:
		if s.mqtt != nil {
			if err := s.mqtt.PublishOutcome(e); err != nil {
				s.log.Errorf("publish outcome %s: %v", e.RunID, err)
				s.monitor.CaptureException(err, map[string]string{"component": "mqtt", "run_id": e.RunID})
			}
		}
	}
}

func (s *Service) optimize(ctx context.Context) {
	out, err := s.Manager.Optimize(ctx)
	if err != nil {
		s.log.Errorf("optimize: %v", err)
		s.monitor.CaptureException(err, map[string]string{"component": "optimize", "run_id": out.RunID})
		return
	}
	s.log.Debugw("optimize finished", map[string]any{
		"run_id":     out.RunID,
		"status":     string(out.Status),
		"dispatched": len(out.Results),
		"failed":     out.Failed(),
	})
}

func (s *Service) serveAPI(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("api server shutdown: %v", err)
		}
		cancel()
	}()
	s.log.Infof("serving api on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.mqtt != nil {
		s.mqtt.Disconnect()
	}
	s.bus.Close()
	s.monitor.Flush(flushTimeout)
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	return s.history.Close()
}
