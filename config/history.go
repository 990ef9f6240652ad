package config

import (
	"fmt"
)

// HistoryConfig defines where optimisation runs are recorded.
type HistoryConfig struct {
	// Backend selects the store type: "nop", "jsonl" or "sqlite".
	Backend string `json:"backend"`
	// Path is the file location of the store.
	Path string `json:"path"`
}

// SetDefaults applies sane defaults.
func (c *HistoryConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "nop"
	}
	if c.Path == "" {
		switch c.Backend {
		case "jsonl":
			c.Path = "prefetch_runs.jsonl"
		case "sqlite":
			c.Path = "prefetch_runs.db"
		}
	}
}

// Validate checks mandatory fields.
func (c HistoryConfig) Validate() error {
	switch c.Backend {
	case "nop":
		return nil
	case "jsonl", "sqlite":
		if c.Path == "" {
			return fmt.Errorf("path is required")
		}
		return nil
	default:
		return fmt.Errorf("unknown backend %s", c.Backend)
	}
}

// APIConfig configures the HTTP API.
type APIConfig struct {
	// Addr is the listen address, e.g. ":8080". Empty disables the API.
	Addr string `json:"addr"`
	// Token protects GET /api/runs when set.
	Token string `json:"token"`
}
