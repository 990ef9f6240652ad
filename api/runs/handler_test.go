package runs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/kilianp07/prefetch/core/prefetch/history"
)

func TestHandler_AuthAndFilters(t *testing.T) {
	store, err := history.NewJSONLStore(filepath.Join(t.TempDir(), "runs.jsonl"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	defer store.Close()
	now := time.Now().UTC()
	for _, rec := range []history.Record{
		{RunID: "a", Timestamp: now, Status: "prefetched", Fetches: []history.FetchRecord{{URL: "/api/products", Success: true}}},
		{RunID: "b", Timestamp: now, Status: "no_matches"},
	} {
		if err := store.Append(context.Background(), rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	h := NewHandler(store, "secret")

	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/runs?status=prefetched", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	var recs []history.Record
	if err := json.NewDecoder(rr.Body).Decode(&recs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(recs) != 1 || recs[0].RunID != "a" {
		t.Fatalf("unexpected records %+v", recs)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/runs?url=/api/none", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Body.String() != "[]\n" {
		t.Fatalf("expected empty list got %q", rr.Body.String())
	}
}
