package services

import (
	"fmt"
	"regexp"
	"strings"
)

// Matcher recognises reminder requests in message text and extracts the
// duration phrase. It is immutable once built.
type Matcher struct {
	pattern *regexp.Regexp
}

// NewMatcher builds a matcher for "@<address> in <duration>". An empty
// address accepts the bare "in <duration>" form.
func NewMatcher(address string) (*Matcher, error) {
	address = strings.TrimPrefix(strings.TrimSpace(address), "@")

	expr := `(?i)\bin\s+(\d+\s?[a-z]+)`
	if address != "" {
		expr = `(?i)@` + regexp.QuoteMeta(address) + `\s+in\s+(\d+\s?[a-z]+)`
	}

	pattern, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("failed to compile request pattern: %w", err)
	}
	return &Matcher{pattern: pattern}, nil
}

// Extract returns the duration phrase of the first request in content.
func (m *Matcher) Extract(content string) (string, bool) {
	caps := m.pattern.FindStringSubmatch(content)
	if len(caps) < 2 {
		return "", false
	}
	return caps[1], true
}
