package model

// RunResult classifies a single attempt.
type RunResult int

const (
	PassedExpectedly RunResult = iota
	PassedUnexpectedly
	FailedExpectedly
	FailedUnexpectedly
)

// Classify derives the result of an attempt from the runner exit code and
// whether the case is expected to fail.
func Classify(exitCode int, expectFailure bool) RunResult {
	switch {
	case exitCode == 0 && !expectFailure:
		return PassedExpectedly
	case exitCode == 0:
		return PassedUnexpectedly
	case expectFailure:
		return FailedExpectedly
	default:
		return FailedUnexpectedly
	}
}

// Success reports whether the attempt ends the retry loop as a success.
// An unexpected pass is reported but still counts as success.
func (r RunResult) Success() bool {
	return r != FailedUnexpectedly
}

// Tag returns the status tag printed for the attempt.
func (r RunResult) Tag() string {
	switch r {
	case PassedExpectedly:
		return "[OK  ]"
	case PassedUnexpectedly:
		return "[XOK ]"
	case FailedExpectedly:
		return "[XFAIL]"
	default:
		return "[FAIL]"
	}
}

func (r RunResult) String() string {
	switch r {
	case PassedExpectedly:
		return "passed"
	case PassedUnexpectedly:
		return "passed unexpectedly"
	case FailedExpectedly:
		return "failed as expected"
	case FailedUnexpectedly:
		return "failed"
	default:
		return "unknown"
	}
}
