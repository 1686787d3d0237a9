// Package stats summarizes the outcome of a run.
package stats

import (
	"strings"

	"github.com/AndreyAkinshin/squishrun/internal/model"
	"github.com/AndreyAkinshin/squishrun/internal/output"
)

// Statistics is the summary of a run. Build it only after every lane joined.
type Statistics struct {
	Ran     int
	Skipped int
	Failed  []string
	Flaky   []string
}

// Build tallies the requested cases in order.
func Build(cases []*model.TestCase) Statistics {
	var s Statistics
	for _, tc := range cases {
		switch {
		case tc.WasSkipped:
			s.Skipped++
		case tc.Ran():
			s.Ran++
			if tc.Flaky() {
				s.Flaky = append(s.Flaky, tc.Name)
			} else if tc.Failed() {
				s.Failed = append(s.Failed, tc.Name)
			}
		}
	}
	return s
}

// Successful reports whether no case failed. Flaky cases do not fail a run.
func (s Statistics) Successful() bool {
	return len(s.Failed) == 0
}

// Print writes the summary lines.
func (s Statistics) Print(w *output.Writer) {
	w.Println("Ran %d, skipped %d, failed %d, flaky %d", s.Ran, s.Skipped, len(s.Failed), len(s.Flaky))
	if len(s.Failed) > 0 {
		w.SummaryFailed("Failed tests", strings.Join(s.Failed, ","))
	}
	if len(s.Flaky) > 0 {
		w.SummaryFlaky("Flaky tests", strings.Join(s.Flaky, ","))
	}
}
