package model

import "time"

const (
	// DefaultSize is used when a resource is registered without a size.
	DefaultSize = 100.0
	// DefaultLatency is used when a resource is registered without a latency.
	DefaultLatency = 100.0
)

// ResourceMeta carries the optional metadata supplied at registration.
// Zero fields fall back to the defaults.
type ResourceMeta struct {
	Size    float64 `json:"size" yaml:"size"`       // bytes
	Latency float64 `json:"latency" yaml:"latency"` // milliseconds
}

// ResourceEntry is a registered prefetchable resource.
type ResourceEntry struct {
	URL          string    `json:"url"`
	Size         float64   `json:"size"`
	Latency      float64   `json:"latency"`
	LastAccessed time.Time `json:"last_accessed"`
}

// Cost returns size multiplied by latency.
func (r ResourceEntry) Cost() float64 {
	return r.Size * r.Latency
}

// NewResourceEntry builds an entry stamped at now. Non-positive values are
// accepted as given; only zero (unset) fields receive defaults.
func NewResourceEntry(url string, meta *ResourceMeta, now time.Time) ResourceEntry {
	e := ResourceEntry{URL: url, Size: DefaultSize, Latency: DefaultLatency, LastAccessed: now}
	if meta == nil {
		return e
	}
	if meta.Size != 0 {
		e.Size = meta.Size
	}
	if meta.Latency != 0 {
		e.Latency = meta.Latency
	}
	return e
}
