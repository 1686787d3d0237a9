// Package squish builds the command lines of the Squish tools and runs the
// one-time server configuration.
package squish

import (
	"context"
	"strconv"

	"github.com/AndreyAkinshin/squishrun/internal/errors"
	"github.com/AndreyAkinshin/squishrun/internal/proc"
)

const (
	ServerExecutable = "squishserver"
	RunnerExecutable = "squishrunner"
	// ServerProcessName is the name the server shows up with in the process
	// table; squishserver is a wrapper that starts it.
	ServerProcessName = "_squishserver"
	ServerConfigFile  = "server.ini"
)

// Runner runs one-shot commands.
type Runner interface {
	Run(ctx context.Context, cmd proc.Command) (proc.Result, error)
}

// ServerArgs returns the command line of a server listening on port.
func ServerArgs(port int) []string {
	return []string{ServerExecutable, "--port", strconv.Itoa(port), "--configfile", ServerConfigFile}
}

// RunnerArgs returns the command line running one test case against the
// server on port. The case id is passed to the test script.
func RunnerArgs(port int, suite, testCase string, id int) []string {
	return []string{
		RunnerExecutable,
		"--port", strconv.Itoa(port),
		"--testsuite", suite,
		"--exitCodeOnFail", "1",
		"--abortOnFail",
		"--reportgen", "stdout",
		"--testcase", testCase,
		"--scriptargs", strconv.Itoa(id),
	}
}

// StopArgs returns the command line asking the server on port to exit.
func StopArgs(port int) []string {
	return []string{ServerExecutable, "--stop", "--port", strconv.Itoa(port)}
}

// Stop asks the server on port to exit. A server that does not acknowledge
// the request is a fatal error for the run, attributed to testCase.
func Stop(ctx context.Context, r Runner, testCase string, port int, env []string, dir string) error {
	res, err := r.Run(ctx, proc.Command{Argv: StopArgs(port), Env: env, Dir: dir})
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return errors.TestError(testCase, ServerExecutable, "could not stop the squishserver, port: "+strconv.Itoa(port))
	}
	return nil
}
