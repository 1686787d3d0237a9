// Package errors provides structured error types and exit codes for squishrun.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Exit codes returned by the squishrun binary.
const (
	ExitSuccess      = 0   // Every requested test ended successfully
	ExitRuntimeError = 1   // A test failed, or the run hit a fatal runtime error
	ExitConfigError  = 2   // Usage or configuration error (bad descriptor, bad flags, failed setup)
	ExitInterrupted  = 130 // Interrupted by the operator
)

// ErrorKind represents the type of error.
type ErrorKind int

const (
	KindRuntime ErrorKind = iota
	KindConfig
	KindEnvironment
	KindInterrupted
)

// SquishError is the base error type for squishrun.
type SquishError struct {
	Kind    ErrorKind
	Message string
	Test    string // Test case name if applicable
	Command string // Executable name if applicable
	Cause   error  // Underlying error
}

func (e *SquishError) Error() string {
	if e.Test != "" && e.Command != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Test, e.Command, e.Message)
	}
	if e.Test != "" {
		return fmt.Sprintf("[%s] %s", e.Test, e.Message)
	}
	return e.Message
}

func (e *SquishError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the appropriate exit code for this error.
func (e *SquishError) ExitCode() int {
	switch e.Kind {
	case KindConfig:
		return ExitConfigError
	case KindInterrupted:
		return ExitInterrupted
	default:
		return ExitRuntimeError
	}
}

// New creates a new runtime error.
func New(message string) *SquishError {
	return &SquishError{
		Kind:    KindRuntime,
		Message: message,
	}
}

// Newf creates a new runtime error with formatting.
func Newf(format string, args ...interface{}) *SquishError {
	return New(fmt.Sprintf(format, args...))
}

// Config creates a new configuration error.
func Config(message string) *SquishError {
	return &SquishError{
		Kind:    KindConfig,
		Message: message,
	}
}

// Configf creates a new configuration error with formatting.
func Configf(format string, args ...interface{}) *SquishError {
	return Config(fmt.Sprintf(format, args...))
}

// Environment creates a new environment error. The run cannot continue
// without the missing piece, so it ends like any fatal runtime error.
func Environment(message string) *SquishError {
	return &SquishError{
		Kind:    KindEnvironment,
		Message: message,
	}
}

// Spawn reports an executable that could not be started.
func Spawn(executable string, cause error) *SquishError {
	err := Environment(fmt.Sprintf("%s probably not found in PATH: %v", executable, cause))
	err.Command = executable
	err.Cause = cause
	return err
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) *SquishError {
	return &SquishError{
		Kind:    KindRuntime,
		Message: message,
		Cause:   err,
	}
}

// TestError creates a runtime error attributed to a test case.
func TestError(test, command, message string) *SquishError {
	return &SquishError{
		Kind:    KindRuntime,
		Test:    test,
		Command: command,
		Message: message,
	}
}

// Interrupted creates the error used when the operator stops the run.
func Interrupted() *SquishError {
	return &SquishError{
		Kind:    KindInterrupted,
		Message: "interrupted",
	}
}

// GetExitCode returns the exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var se *SquishError
	if stderrors.As(err, &se) {
		return se.ExitCode()
	}
	return ExitRuntimeError
}

// IsKind reports whether err is, or wraps, a SquishError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var se *SquishError
	return stderrors.As(err, &se) && se.Kind == kind
}
