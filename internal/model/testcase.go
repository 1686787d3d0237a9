// Package model provides the test case entity shared by the suite loader,
// the runner and the statistics.
package model

import (
	"sync"

	"github.com/AndreyAkinshin/squishrun/internal/proc"
)

// BasePort is added to a case id to derive its server port.
const BasePort = 15000

// TestCase is one schedulable unit of work and the results of running it.
//
// Except for the process slots, a TestCase is mutated only by the lane
// executing it and read only after all lanes joined.
type TestCase struct {
	Name             string
	Suite            string
	ID               int
	Categories       []string
	Disabled         bool
	SupportsHeadless bool
	ExpectFailure    bool

	RemainingRetries int
	WasSkipped       bool
	SkipReason       string
	Successes        int
	Failures         int
	ServerOutput     string
	RunnerOutput     string

	mu     sync.Mutex
	server proc.Process
	runner proc.Process
}

// Port returns the TCP port of the case's server.
func (tc *TestCase) Port() int {
	return BasePort + tc.ID
}

// Attempts returns the number of attempts made so far.
func (tc *TestCase) Attempts() int {
	return tc.Successes + tc.Failures
}

// Ran reports whether at least one attempt was made.
func (tc *TestCase) Ran() bool {
	return tc.Attempts() > 0
}

// Flaky reports whether the case both passed and failed across its attempts.
func (tc *TestCase) Flaky() bool {
	return tc.Successes > 0 && tc.Failures > 0
}

// Failed reports whether the case never succeeded within its budget.
func (tc *TestCase) Failed() bool {
	return tc.Failures > 0 && !tc.Flaky()
}

// Skip marks the case as skipped.
func (tc *TestCase) Skip(reason string) {
	tc.WasSkipped = true
	tc.SkipReason = reason
}

// Record counts the result of one attempt and consumes one retry.
func (tc *TestCase) Record(r RunResult) {
	if r.Success() {
		tc.Successes++
	} else {
		tc.Failures++
	}
	tc.RemainingRetries--
}

// MatchesCategories reports whether the case has any of the categories.
func (tc *TestCase) MatchesCategories(categories []string) bool {
	for _, want := range categories {
		for _, have := range tc.Categories {
			if have == want {
				return true
			}
		}
	}
	return false
}

// SetProcesses records the currently running server and runner. Either may
// be nil.
func (tc *TestCase) SetProcesses(server, runner proc.Process) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.server = server
	tc.runner = runner
}

// Processes returns the last known server and runner.
func (tc *TestCase) Processes() (server, runner proc.Process) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.server, tc.runner
}
