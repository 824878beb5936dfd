package prompts

import (
	"fmt"
	"regexp"
	"strings"
)

// Matcher reports whether a message hits any entry of one keyword table.
// Substrings are compared against the lower-cased message; patterns are
// compiled case-insensitive and run against the text as given.
type Matcher struct {
	substrings []string
	patterns   []*regexp.Regexp
}

func NewMatcher(substrings, patterns []string) (*Matcher, error) {
	m := &Matcher{
		substrings: make([]string, 0, len(substrings)),
		patterns:   make([]*regexp.Regexp, 0, len(patterns)),
	}
	for _, item := range substrings {
		normalized := strings.ToLower(strings.TrimSpace(item))
		if normalized != "" {
			m.substrings = append(m.substrings, normalized)
		}
	}
	for _, raw := range patterns {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		compiled, err := regexp.Compile("(?i)" + raw)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q: %w", raw, err)
		}
		m.patterns = append(m.patterns, compiled)
	}
	return m, nil
}

func (m *Matcher) Match(text string) bool {
	if m == nil {
		return false
	}
	if len(m.substrings) > 0 {
		lowered := strings.ToLower(text)
		for _, item := range m.substrings {
			if strings.Contains(lowered, item) {
				return true
			}
		}
	}
	for _, pattern := range m.patterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}
