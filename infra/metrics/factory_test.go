package metrics

import (
	"testing"

	"github.com/kilianp07/prefetch/core/factory"
	coremetrics "github.com/kilianp07/prefetch/core/metrics"
)

func TestBuiltinSinksRegistered(t *testing.T) {
	s, err := coremetrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}})
	if err != nil {
		t.Fatalf("nop sink: %v", err)
	}
	if _, ok := s.(coremetrics.NopSink); !ok {
		t.Fatalf("expected NopSink got %T", s)
	}
}

func TestInfluxSinkFallsBackWhenUnreachable(t *testing.T) {
	s, err := coremetrics.NewMetricsSink([]factory.ModuleConfig{{
		Type: "influx",
		Conf: map[string]any{"url": "http://127.0.0.1:1", "bucket": "prefetch"},
	}})
	if err != nil {
		t.Fatalf("influx sink: %v", err)
	}
	if _, ok := s.(coremetrics.NopSink); !ok {
		t.Fatalf("expected fallback NopSink got %T", s)
	}
}

func TestUnknownSink(t *testing.T) {
	if _, err := coremetrics.NewMetricsSink([]factory.ModuleConfig{{Type: "statsd"}}); err == nil {
		t.Fatalf("expected error for unknown sink")
	}
}
