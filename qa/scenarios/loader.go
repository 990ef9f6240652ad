package scenarios

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/prefetch/core/model"
	"github.com/kilianp07/prefetch/core/prefetch"
)

type ResourceDef struct {
	URL     string  `yaml:"url" json:"url"`
	Size    float64 `yaml:"size" json:"size"`
	Latency float64 `yaml:"latency" json:"latency"`
	// AgeSeconds backdates the registration relative to the replay start.
	AgeSeconds float64 `yaml:"age_seconds,omitempty" json:"age_seconds,omitempty"`
}

func (r ResourceDef) Meta() *model.ResourceMeta {
	return &model.ResourceMeta{Size: r.Size, Latency: r.Latency}
}

type StepDef struct {
	State     string `yaml:"state" json:"state"`
	EventType string `yaml:"event_type,omitempty" json:"event_type,omitempty"`
	// WaitSeconds advances the replay clock before the step.
	WaitSeconds float64 `yaml:"wait_seconds,omitempty" json:"wait_seconds,omitempty"`
	// Optimize runs an optimisation right after the step.
	Optimize bool `yaml:"optimize,omitempty" json:"optimize,omitempty"`
}

type Expected struct {
	Status  string   `yaml:"status" json:"status"`
	Fetched []string `yaml:"fetched,omitempty" json:"fetched,omitempty"`
	Failed  int      `yaml:"failed" json:"failed"`
}

type Scenario struct {
	Name        string          `yaml:"name" json:"name"`
	Description string          `yaml:"description,omitempty" json:"description,omitempty"`
	Prefetch    prefetch.Config `yaml:"prefetch" json:"prefetch"`
	Resources   []ResourceDef   `yaml:"resources" json:"resources"`
	Steps       []StepDef       `yaml:"steps" json:"steps"`
	FailURLs    []string        `yaml:"fail_urls,omitempty" json:"fail_urls,omitempty"`
	Expected    *Expected       `yaml:"expected,omitempty" json:"expected,omitempty"`
}

// Load reads a scenario file. The format follows the extension; anything
// other than .json is parsed as YAML.
func Load(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = "json"
	}
	sc, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return sc, nil
}

// Decode parses a scenario in the given format ("yaml" or "json").
func Decode(r io.Reader, format string) (*Scenario, error) {
	var sc Scenario
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&sc); err != nil {
			return nil, err
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&sc); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks that every step and resource is usable.
func (s *Scenario) Validate() error {
	for i, r := range s.Resources {
		if r.URL == "" {
			return fmt.Errorf("resource %d: url is required", i)
		}
	}
	for i, st := range s.Steps {
		if st.State == "" {
			return fmt.Errorf("step %d: state is required", i)
		}
	}
	return nil
}
