// Package filter drops unwanted lines from captured process output.
package filter

import (
	"fmt"
	"regexp"
	"strings"
)

// Filter holds the compiled output filter patterns of a suite.
// The zero value and a nil *Filter drop nothing.
type Filter struct {
	patterns []*regexp.Regexp
}

// New compiles the given patterns. An invalid pattern is an error naming it.
func New(patterns []string) (*Filter, error) {
	f := &Filter{patterns: make([]*regexp.Regexp, 0, len(patterns))}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid output filter %q: %w", p, err)
		}
		f.patterns = append(f.patterns, re)
	}
	return f, nil
}

// Len returns the number of compiled patterns.
func (f *Filter) Len() int {
	if f == nil {
		return 0
	}
	return len(f.patterns)
}

// ShouldDrop reports whether any pattern matches the line.
func (f *Filter) ShouldDrop(line string) bool {
	if f == nil {
		return false
	}
	line = strings.TrimRight(line, "\r\n")
	for _, re := range f.patterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// Apply removes matching lines from text, keeping the order and line endings
// of the surviving lines.
func (f *Filter) Apply(text string) string {
	if f.Len() == 0 || text == "" {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	for _, line := range strings.SplitAfter(text, "\n") {
		if line == "" || f.ShouldDrop(line) {
			continue
		}
		b.WriteString(line)
	}
	return b.String()
}
