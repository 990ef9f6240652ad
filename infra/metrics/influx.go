package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/prefetch/core/metrics"
	"github.com/kilianp07/prefetch/infra/logger"
)

// InfluxConfig holds the InfluxDB v2 connection settings.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes prefetch events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a NopSink
// if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordFetchResults writes one prefetch_fetch point per result.
func (s *InfluxSink) RecordFetchResults(res []coremetrics.FetchResult) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, r := range res {
		if err := s.writeAPI.WritePoint(ctx, fetchPoint(r)); err != nil {
			return err
		}
	}
	return nil
}

// RecordOptimizeRun writes a summary point for the run.
func (s *InfluxSink) RecordOptimizeRun(ev coremetrics.OptimizeRunEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("prefetch_optimize_run").
		AddTag("run_id", ev.RunID).
		AddTag("status", ev.Status).
		AddField("predictions", ev.Predictions).
		AddField("candidates", ev.Candidates).
		AddField("dispatched", ev.Dispatched).
		AddField("failed", ev.Failed).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordNavigation writes a tracked navigation step.
func (s *InfluxSink) RecordNavigation(ev coremetrics.NavigationEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("navigation_event").
		AddTag("event_type", ev.EventType).
		AddTag("state", string(ev.State)).
		AddField("count", 1).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close flushes and closes the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

func fetchPoint(r coremetrics.FetchResult) *write.Point {
	p := write.NewPointWithMeasurement("prefetch_fetch").
		AddTag("run_id", r.RunID).
		AddTag("url", r.URL).
		AddTag("state", string(r.State)).
		AddTag("success", strconv.FormatBool(r.Success)).
		AddField("score", r.Score).
		AddField("latency_ms", round3(r.Latency.Seconds()*1000))
	if r.Error != "" {
		p = p.AddField("error", r.Error)
	}
	return p.SetTime(r.Time)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
