package main

import (
	"fmt"
	"time"
)

// Config holds parameters for the simulator.
type Config struct {
	Broker      string
	Users       int
	Steps       int
	Interval    time.Duration
	SiteFile    string
	TopicPrefix string
	Seed        int64
	Verbose     bool
}

// Validate checks numeric bounds.
func (c *Config) Validate() error {
	if c.Users <= 0 {
		return fmt.Errorf("users must be > 0")
	}
	if c.Steps < 0 {
		return fmt.Errorf("steps must be >= 0")
	}
	if c.Interval < 0 {
		return fmt.Errorf("interval must be >= 0")
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "prefetch"
	}
	return nil
}
