package suite

import (
	"sort"

	"github.com/AndreyAkinshin/squishrun/internal/errors"
	"github.com/AndreyAkinshin/squishrun/internal/model"
)

// TestByName returns the enabled case with the given name, or nil.
func (s *Suite) TestByName(name string) *model.TestCase {
	for _, tc := range s.Tests {
		if tc.Name == name {
			return tc
		}
	}
	return nil
}

// TestsBySuite returns all enabled cases of a suite.
func (s *Suite) TestsBySuite(suite string) []*model.TestCase {
	var out []*model.TestCase
	for _, tc := range s.Tests {
		if tc.Suite == suite {
			out = append(out, tc)
		}
	}
	return out
}

// TestsByCategories returns all enabled cases having any of the categories.
func (s *Suite) TestsByCategories(categories []string) []*model.TestCase {
	var out []*model.TestCase
	for _, tc := range s.Tests {
		if tc.MatchesCategories(categories) {
			out = append(out, tc)
		}
	}
	return out
}

// SuiteNames returns the distinct suite names, sorted.
func (s *Suite) SuiteNames() []string {
	set := make(map[string]bool)
	for _, tc := range s.Tests {
		set[tc.Suite] = true
	}
	return sortedKeys(set)
}

// Categories returns the distinct categories, sorted.
func (s *Suite) Categories() []string {
	set := make(map[string]bool)
	for _, tc := range s.Tests {
		for _, c := range tc.Categories {
			set[c] = true
		}
	}
	return sortedKeys(set)
}

// Selection names the cases requested on the command line.
type Selection struct {
	Tests      []string
	Suites     []string
	Categories []string
}

// Empty reports whether nothing was requested explicitly.
func (sel Selection) Empty() bool {
	return len(sel.Tests) == 0 && len(sel.Suites) == 0 && len(sel.Categories) == 0
}

// Select resolves a selection to cases: named tests first, then whole
// suites, then categories. A case requested twice is run once. An empty
// selection yields every enabled case.
func (s *Suite) Select(sel Selection) ([]*model.TestCase, error) {
	if sel.Empty() {
		return append([]*model.TestCase(nil), s.Tests...), nil
	}

	var out []*model.TestCase
	seen := make(map[*model.TestCase]bool)
	add := func(cases ...*model.TestCase) {
		for _, tc := range cases {
			if !seen[tc] {
				seen[tc] = true
				out = append(out, tc)
			}
		}
	}

	for _, name := range sel.Tests {
		tc := s.TestByName(name)
		if tc == nil {
			return nil, errors.Configf("unknown test %s. Run with -l to see a list of tests", name)
		}
		add(tc)
	}
	for _, suite := range sel.Suites {
		add(s.TestsBySuite(suite)...)
	}
	if len(sel.Categories) > 0 {
		matched := s.TestsByCategories(sel.Categories)
		if len(matched) == 0 {
			return nil, errors.Config("no tests matching the specified categories. Run with -l to see a list of tests")
		}
		add(matched...)
	}
	return out, nil
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
