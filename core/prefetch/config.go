package prefetch

import (
	"errors"
	"fmt"

	"github.com/kilianp07/prefetch/core/scoring"
)

const (
	// DefaultMaxPrefetch bounds the fetches dispatched per run.
	DefaultMaxPrefetch = 3
	// DefaultDecayRate is the per-second recency decay coefficient.
	DefaultDecayRate = scoring.DefaultDecayRate
)

// ErrInvalidConfig is wrapped by Validate errors.
var ErrInvalidConfig = errors.New("invalid prefetch config")

// Config defines the admission parameters. Pointer fields distinguish an
// explicit zero (no prefetch, no decay) from an unset value.
type Config struct {
	MaxPrefetch *int     `json:"max_prefetch" yaml:"max_prefetch"`
	DecayRate   *float64 `json:"decay_rate" yaml:"decay_rate"`
	// Matcher selects how predicted states map to resource URLs:
	// "substring" (default), "prefix" or "exact".
	Matcher string `json:"matcher" yaml:"matcher"`
	// IntervalSeconds triggers a periodic optimisation when positive.
	IntervalSeconds int `json:"interval_seconds" yaml:"interval_seconds"`
	// OptimizeOnTrack runs an optimisation after every tracked event.
	OptimizeOnTrack bool `json:"optimize_on_track" yaml:"optimize_on_track"`
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

func FloatPtr(v float64) *float64 { return &v }

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.MaxPrefetch == nil {
		c.MaxPrefetch = IntPtr(DefaultMaxPrefetch)
	}
	if c.DecayRate == nil {
		c.DecayRate = FloatPtr(DefaultDecayRate)
	}
	if c.Matcher == "" {
		c.Matcher = "substring"
	}
}

// Validate rejects negative bounds and unknown matchers.
func (c Config) Validate() error {
	if c.MaxPrefetch != nil && *c.MaxPrefetch < 0 {
		return fmt.Errorf("%w: max_prefetch must be >= 0, got %d", ErrInvalidConfig, *c.MaxPrefetch)
	}
	if c.DecayRate != nil && !(*c.DecayRate >= 0) {
		return fmt.Errorf("%w: decay_rate must be >= 0, got %v", ErrInvalidConfig, *c.DecayRate)
	}
	if c.IntervalSeconds < 0 {
		return fmt.Errorf("%w: interval_seconds must be >= 0", ErrInvalidConfig)
	}
	if _, err := scoring.NewMatcher(c.Matcher); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Limit returns the effective MaxPrefetch.
func (c Config) Limit() int {
	if c.MaxPrefetch == nil {
		return DefaultMaxPrefetch
	}
	return *c.MaxPrefetch
}

// Decay returns the effective decay rate.
func (c Config) Decay() float64 {
	if c.DecayRate == nil {
		return DefaultDecayRate
	}
	return *c.DecayRate
}
