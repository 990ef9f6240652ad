package scenarios

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/kilianp07/prefetch/core/prefetch"
)

type recordFetcher struct {
	mu   sync.Mutex
	urls []string
}

func (r *recordFetcher) Fetch(_ context.Context, url string) error {
	r.mu.Lock()
	r.urls = append(r.urls, url)
	r.mu.Unlock()
	return nil
}

func TestScenario(t *testing.T) {
	files, err := filepath.Glob("*.yaml")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no scenarios found")
	}
	for _, f := range files {
		sc, err := Load(f)
		if err != nil {
			t.Fatalf("load %s: %v", f, err)
		}
		t.Run(sc.Name, func(t *testing.T) {
			rep, err := Run(context.Background(), sc, &recordFetcher{})
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if err := rep.Check(); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestRunIntermediateOptimize(t *testing.T) {
	sc := &Scenario{
		Name:      "intermediate",
		Resources: []ResourceDef{{URL: "/api/products"}},
		Steps: []StepDef{
			{State: "/home"},
			{State: "/products", Optimize: true},
			{State: "/home"},
		},
	}
	f := &recordFetcher{}
	rep, err := Run(context.Background(), sc, f)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(rep.Outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(rep.Outcomes))
	}
	if rep.Outcomes[0].Status != prefetch.StatusInsufficientData {
		t.Fatalf("unexpected first status %s", rep.Outcomes[0].Status)
	}
	if rep.Final().Status != prefetch.StatusPrefetched {
		t.Fatalf("unexpected final status %s", rep.Final().Status)
	}
	if len(f.urls) != 1 || f.urls[0] != "/api/products" {
		t.Fatalf("unexpected fetches %v", f.urls)
	}
}

func TestCheckMismatch(t *testing.T) {
	sc := &Scenario{
		Name:     "mismatch",
		Steps:    []StepDef{{State: "/home"}},
		Expected: &Expected{Status: "prefetched"},
	}
	rep, err := Run(context.Background(), sc, &recordFetcher{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := rep.Check(); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestDecodeJSON(t *testing.T) {
	sc, err := Decode(strings.NewReader(`{"name":"j","prefetch":{"max_prefetch":2},"steps":[{"state":"/a"}]}`), "json")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sc.Prefetch.Limit() != 2 || len(sc.Steps) != 1 {
		t.Fatalf("unexpected scenario %+v", sc)
	}
}

func TestLoadInvalid(t *testing.T) {
	if _, err := Load("no-file.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
	tmp, err := os.CreateTemp(t.TempDir(), "bad*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmp.WriteString("steps: ["); err != nil {
		t.Fatal(err)
	}
	if err := tmp.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(tmp.Name()); err == nil {
		t.Fatal("expected unmarshal error")
	}
	if _, err := Decode(strings.NewReader("steps:\n  - event_type: x\n"), "yaml"); err == nil {
		t.Fatal("expected missing state error")
	}
	if _, err := Decode(strings.NewReader(""), "toml"); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestSameSet(t *testing.T) {
	if !sameSet([]string{"a", "b"}, []string{"b", "a"}) {
		t.Fatal("expected equal sets")
	}
	if sameSet([]string{"a"}, []string{"a", "b"}) {
		t.Fatal("expected different sets")
	}
}
