package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kilianp07/prefetch/core/prefetch"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

//nolint:gocyclo
func TestLoad(t *testing.T) {
	path := writeFile(t, "config.yaml", `prefetch:
  max_prefetch: 5
  decay_rate: 0.05
  matcher: prefix
  interval_seconds: 30
  optimize_on_track: true
fetch:
  base_url: "http://app.local"
  timeout_seconds: 2
  max_retries: 1
  headers:
    X-Client: prefetch
mqtt:
  enabled: true
  broker: "tcp://localhost:1883"
  client_id: "cli"
  nav_topic: "web/nav/+"
metrics:
  prometheus_addr: ":9100"
  sinks:
    - type: "nop"
history:
  backend: sqlite
api:
  addr: ":8080"
log:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"max_prefetch", cfg.Prefetch.Limit(), 5},
		{"decay_rate", cfg.Prefetch.Decay(), 0.05},
		{"matcher", cfg.Prefetch.Matcher, "prefix"},
		{"interval", cfg.Prefetch.IntervalSeconds, 30},
		{"optimize_on_track", cfg.Prefetch.OptimizeOnTrack, true},
		{"base_url", cfg.Fetch.BaseURL, "http://app.local"},
		{"timeout", cfg.Fetch.TimeoutSeconds, 2},
		{"header", cfg.Fetch.Headers["x-client"] + cfg.Fetch.Headers["X-Client"], "prefetch"},
		{"user_agent", cfg.Fetch.UserAgent, "prefetch/1.0"},
		{"broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"nav_topic", cfg.MQTT.NavTopic, "web/nav/+"},
		{"resource_topic", cfg.MQTT.ResourceTopic, "prefetch/resource/+"},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"prometheus_addr", cfg.Metrics.PrometheusAddr, ":9100"},
		{"history_path", cfg.History.Path, "prefetch_runs.db"},
		{"api", cfg.API.Addr, ":8080"},
		{"log_level", cfg.Log.Level, "debug"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeFile(t, "config.json", `{}`))
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Prefetch.Limit() != prefetch.DefaultMaxPrefetch || cfg.Prefetch.Decay() != prefetch.DefaultDecayRate {
		t.Fatalf("defaults not applied: %+v", cfg.Prefetch)
	}
	if cfg.Prefetch.Matcher != "substring" || cfg.History.Backend != "nop" {
		t.Fatalf("unexpected defaults %+v %+v", cfg.Prefetch, cfg.History)
	}
}

func TestLoadExplicitZero(t *testing.T) {
	cfg, err := Load(writeFile(t, "config.yaml", "prefetch:\n  max_prefetch: 0\n  decay_rate: 0\n"))
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Prefetch.Limit() != 0 || cfg.Prefetch.Decay() != 0 {
		t.Fatalf("explicit zero overridden: %+v", cfg.Prefetch)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PF_PREFETCH__MATCHER", "exact")
	t.Setenv("PF_API__ADDR", ":9999")
	cfg, err := Load(writeFile(t, "config.yaml", "prefetch:\n  matcher: prefix\n"))
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Prefetch.Matcher != "exact" || cfg.API.Addr != ":9999" {
		t.Fatalf("env overrides not applied: %+v %+v", cfg.Prefetch, cfg.API)
	}
}

func TestLoadInvalid(t *testing.T) {
	_, err := Load(writeFile(t, "config.yaml", "prefetch:\n  max_prefetch: -1\n"))
	if !errors.Is(err, prefetch.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if _, err := Load(writeFile(t, "config.yaml", "history:\n  backend: redis\n")); err == nil {
		t.Fatalf("expected unknown backend error")
	}
	if _, err := Load(writeFile(t, "config.yaml", "mqtt:\n  enabled: true\n")); err == nil {
		t.Fatalf("expected missing broker error")
	}
	if _, err := Load(writeFile(t, "config.yaml", "sentry:\n  sample_rate: 1.5\n")); err == nil {
		t.Fatalf("expected sentry sample rate error")
	}
	if _, err := Load(writeFile(t, "config.toml", "")); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}

func TestLoadSentrySection(t *testing.T) {
	t.Setenv("PF_SENTRY__ENVIRONMENT", "staging")
	cfg, err := Load(writeFile(t, "config.yaml", "sentry:\n  dsn: https://key@o0.ingest.sentry.io/1\n  sample_rate: 0.5\n"))
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Sentry.DSN == "" || cfg.Sentry.SampleRate != 0.5 || cfg.Sentry.Environment != "staging" {
		t.Fatalf("sentry section not loaded: %+v", cfg.Sentry)
	}
}
