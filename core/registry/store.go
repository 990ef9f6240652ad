// Package registry stores metadata about prefetchable resources.
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/prefetch/core/model"
)

// Store owns all ResourceEntry records.
type Store interface {
	Add(url string, meta *model.ResourceMeta) model.ResourceEntry
	Touch(url string) bool
	Get(url string) (model.ResourceEntry, bool)
	List() []model.ResourceEntry
	Len() int
}

// MemoryStore is an in-memory Store keyed by URL.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]model.ResourceEntry
	now  func() time.Time
}

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithClock overrides the wall clock used to stamp entries.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore returns an empty store stamping entries with time.Now
// unless WithClock overrides it.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{data: map[string]model.ResourceEntry{}, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Add upserts the resource and stamps LastAccessed with the current time.
func (s *MemoryStore) Add(url string, meta *model.ResourceMeta) model.ResourceEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := model.NewResourceEntry(url, meta, s.now())
	s.data[url] = e
	return e
}

// Touch refreshes LastAccessed. Unknown URLs are ignored.
func (s *MemoryStore) Touch(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[url]
	if !ok {
		return false
	}
	e.LastAccessed = s.now()
	s.data[url] = e
	return true
}

// Get returns the entry registered for url.
func (s *MemoryStore) Get(url string) (model.ResourceEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[url]
	return e, ok
}

// List returns all entries sorted by URL.
func (s *MemoryStore) List() []model.ResourceEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]model.ResourceEntry, 0, len(s.data))
	for _, e := range s.data {
		res = append(res, e)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].URL < res[j].URL })
	return res
}

// Len returns the number of registered resources.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
