package registry

import (
	"testing"
	"time"

	"github.com/kilianp07/prefetch/core/model"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func TestMemoryStoreAddDefaults(t *testing.T) {
	clk := &fakeClock{t: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)}
	s := NewMemoryStore(WithClock(clk.Now))
	e := s.Add("/api/products", nil)
	if e.Size != model.DefaultSize || e.Latency != model.DefaultLatency {
		t.Fatalf("expected defaults got %#v", e)
	}
	if !e.LastAccessed.Equal(clk.t) {
		t.Fatalf("unexpected stamp %v", e.LastAccessed)
	}
	got, ok := s.Get("/api/products")
	if !ok || got != e {
		t.Fatalf("get mismatch %#v", got)
	}
}

func TestMemoryStoreUpsert(t *testing.T) {
	clk := &fakeClock{t: time.Unix(100, 0)}
	s := NewMemoryStore(WithClock(clk.Now))
	s.Add("/a", &model.ResourceMeta{Size: 500, Latency: 200})
	clk.t = clk.t.Add(time.Minute)
	e := s.Add("/a", &model.ResourceMeta{Size: 10})
	if s.Len() != 1 {
		t.Fatalf("expected single entry, got %d", s.Len())
	}
	if e.Size != 10 || e.Latency != model.DefaultLatency {
		t.Fatalf("unexpected entry %#v", e)
	}
	if !e.LastAccessed.Equal(clk.t) {
		t.Fatalf("upsert must restamp")
	}
}

func TestMemoryStoreTouch(t *testing.T) {
	clk := &fakeClock{t: time.Unix(100, 0)}
	s := NewMemoryStore(WithClock(clk.Now))
	s.Add("/a", nil)
	clk.t = clk.t.Add(10 * time.Second)
	if !s.Touch("/a") {
		t.Fatalf("expected touch to succeed")
	}
	e, _ := s.Get("/a")
	if !e.LastAccessed.Equal(clk.t) {
		t.Fatalf("touch did not refresh: %v", e.LastAccessed)
	}
	if s.Touch("/missing") {
		t.Fatalf("touch on unknown url must be a no-op")
	}
	if s.Len() != 1 {
		t.Fatalf("touch must not create entries")
	}
}

func TestMemoryStoreList(t *testing.T) {
	s := NewMemoryStore()
	s.Add("/c", nil)
	s.Add("/a", nil)
	s.Add("/b", nil)
	l := s.List()
	if len(l) != 3 || l[0].URL != "/a" || l[2].URL != "/c" {
		t.Fatalf("unexpected list %#v", l)
	}
}
