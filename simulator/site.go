package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
)

// Resource is a prefetchable endpoint served for a page.
type Resource struct {
	URL     string  `json:"url"`
	Size    float64 `json:"size"`
	Latency float64 `json:"latency"`
}

// Page lists the resources of a route and the weighted links users follow.
type Page struct {
	Resources []Resource         `json:"resources"`
	Links     map[string]float64 `json:"links"`
}

// Site is the navigation graph walked by simulated users.
type Site struct {
	Start string          `json:"start"`
	Pages map[string]Page `json:"pages"`
}

// DefaultSite is a small storefront.
func DefaultSite() Site {
	return Site{
		Start: "/home",
		Pages: map[string]Page{
			"/home": {
				Resources: []Resource{{URL: "/api/home", Size: 20, Latency: 40}},
				Links:     map[string]float64{"/products": 3, "/about": 1},
			},
			"/products": {
				Resources: []Resource{{URL: "/api/products", Size: 120, Latency: 80}},
				Links:     map[string]float64{"/home": 1, "/cart": 2},
			},
			"/cart": {
				Resources: []Resource{{URL: "/api/cart", Size: 10, Latency: 30}},
				Links:     map[string]float64{"/products": 1, "/home": 1},
			},
			"/about": {
				Resources: []Resource{{URL: "/api/about", Size: 5, Latency: 20}},
				Links:     map[string]float64{"/home": 1},
			},
		},
	}
}

// LoadSite parses a JSON site description.
func LoadSite(data []byte) (Site, error) {
	var s Site
	if err := json.Unmarshal(data, &s); err != nil {
		return s, err
	}
	return s, s.Validate()
}

// Validate checks that the start page and every link target exist.
func (s Site) Validate() error {
	if _, ok := s.Pages[s.Start]; !ok {
		return fmt.Errorf("start page %q not defined", s.Start)
	}
	for from, p := range s.Pages {
		for to, w := range p.Links {
			if _, ok := s.Pages[to]; !ok {
				return fmt.Errorf("page %s links to undefined page %s", from, to)
			}
			if w < 0 {
				return fmt.Errorf("page %s has negative weight to %s", from, to)
			}
		}
	}
	return nil
}

// Next picks the following page with probability proportional to the link
// weights. It returns from when the page has no outgoing links.
func (s Site) Next(rng *rand.Rand, from string) string {
	links := s.Pages[from].Links
	targets := make([]string, 0, len(links))
	total := 0.0
	for to, w := range links {
		targets = append(targets, to)
		total += w
	}
	if total <= 0 {
		return from
	}
	sort.Strings(targets)
	r := rng.Float64() * total
	for _, to := range targets {
		r -= links[to]
		if r < 0 {
			return to
		}
	}
	return targets[len(targets)-1]
}

// Resources returns every resource of the site ordered by URL.
func (s Site) Resources() []Resource {
	var out []Resource
	for _, p := range s.Pages {
		out = append(out, p.Resources...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out
}
