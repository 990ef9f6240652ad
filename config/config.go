package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/prefetch/core/metrics"
	"github.com/kilianp07/prefetch/core/prefetch"
	"github.com/kilianp07/prefetch/infra/fetch"
	"github.com/kilianp07/prefetch/infra/logger"
	"github.com/kilianp07/prefetch/infra/mqtt"
)

// EnvPrefix marks environment overrides. PF_PREFETCH__MAX_PREFETCH=5 sets
// prefetch.max_prefetch.
const EnvPrefix = "PF_"

type Config struct {
	Prefetch prefetch.Config `json:"prefetch"`
	Fetch    fetch.Config    `json:"fetch"`
	MQTT     mqtt.Config     `json:"mqtt"`
	Metrics  metrics.Config  `json:"metrics"`
	History  HistoryConfig   `json:"history"`
	API      APIConfig       `json:"api"`
	Log      logger.Config   `json:"log"`
	Sentry   SentryConfig    `json:"sentry"`
}

// Load reads a YAML or JSON file, applies PF_ environment overrides and
// returns the validated configuration. An empty path loads defaults and
// environment overrides only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults applies every section's defaults.
func (c *Config) SetDefaults() {
	c.Prefetch.SetDefaults()
	c.Fetch.SetDefaults()
	c.MQTT.SetDefaults()
	c.History.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Prefetch.Validate(); err != nil {
		return err
	}
	if err := c.Fetch.Validate(); err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	if err := c.MQTT.Validate(); err != nil {
		return err
	}
	if err := c.History.Validate(); err != nil {
		return fmt.Errorf("history: %w", err)
	}
	if err := c.Sentry.Validate(); err != nil {
		return fmt.Errorf("sentry: %w", err)
	}
	return nil
}
