// Package squishrun provides public constants for tools that invoke the
// squishrun binary, such as CI wrappers.
package squishrun

// Exit codes returned by the squishrun CLI.
// These constants allow external tools to check exit codes symbolically
// rather than using magic numbers.
const (
	// ExitSuccess indicates every requested test ended successfully.
	ExitSuccess = 0

	// ExitFailure indicates at least one test failed, or a fatal runtime error
	// such as a squishserver that would not stop or a required executable
	// missing from PATH.
	ExitFailure = 1

	// ExitConfigError indicates a usage or configuration error (missing
	// tests.json, invalid --maxFlakyRuns, parallel native run, etc.).
	ExitConfigError = 2

	// ExitInterrupted indicates the run was stopped by SIGINT or SIGTERM.
	ExitInterrupted = 130
)
