package scoring

import (
	"fmt"
	"strings"

	"github.com/kilianp07/prefetch/core/model"
)

// Matcher decides whether a registered resource serves a predicted state.
type Matcher interface {
	Match(state model.State, url string) bool
}

// MatcherFunc adapts a plain function to Matcher.
type MatcherFunc func(state model.State, url string) bool

func (f MatcherFunc) Match(state model.State, url string) bool { return f(state, url) }

// SubstringMatcher matches when the state appears anywhere in the URL.
type SubstringMatcher struct{}

func (SubstringMatcher) Match(state model.State, url string) bool {
	return strings.Contains(url, string(state))
}

// PrefixMatcher matches when the URL starts with the state.
type PrefixMatcher struct{}

func (PrefixMatcher) Match(state model.State, url string) bool {
	return strings.HasPrefix(url, string(state))
}

// ExactMatcher matches only identical strings.
type ExactMatcher struct{}

func (ExactMatcher) Match(state model.State, url string) bool {
	return string(state) == url
}

// NewMatcher resolves a matcher by its configuration name. An empty name
// selects substring matching.
func NewMatcher(name string) (Matcher, error) {
	switch strings.ToLower(name) {
	case "", "substring":
		return SubstringMatcher{}, nil
	case "prefix":
		return PrefixMatcher{}, nil
	case "exact":
		return ExactMatcher{}, nil
	default:
		return nil, fmt.Errorf("unknown matcher %q", name)
	}
}
