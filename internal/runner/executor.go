package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/acarl005/stripansi"

	"github.com/AndreyAkinshin/squishrun/internal/model"
	"github.com/AndreyAkinshin/squishrun/internal/output"
	"github.com/AndreyAkinshin/squishrun/internal/platform"
	"github.com/AndreyAkinshin/squishrun/internal/proc"
	"github.com/AndreyAkinshin/squishrun/internal/squish"
)

// Launcher is the process capability used to run test cases.
type Launcher interface {
	Start(cmd proc.Command) (proc.Process, error)
	Run(ctx context.Context, cmd proc.Command) (proc.Result, error)
	Kill(p proc.Process)
	KillPortOwner(processName string, port int)
	ContinuousOutput() bool
}

// Selector picks the platform strategy of a test case.
type Selector interface {
	Select(ctx context.Context, tc *model.TestCase) (platform.Strategy, string)
}

// ExecutorOptions configures an Executor.
type ExecutorOptions struct {
	// Dir is the suite directory the Squish tools run in.
	Dir string
	// OutputDir receives one <name>.out file per executed case. Empty disables it.
	OutputDir string
}

// Executor runs a single test case until it passes or its retries are used up.
type Executor struct {
	rc       *RunContext
	launcher Launcher
	selector Selector
	out      *output.Writer
	opts     ExecutorOptions
}

// NewExecutor creates an Executor.
func NewExecutor(rc *RunContext, launcher Launcher, selector Selector, out *output.Writer, opts ExecutorOptions) *Executor {
	return &Executor{
		rc:       rc,
		launcher: launcher,
		selector: selector,
		out:      out,
		opts:     opts,
	}
}

// Execute runs tc. Test failures are recorded in tc; the returned error is
// fatal for the whole run.
func (e *Executor) Execute(ctx context.Context, tc *model.TestCase) error {
	strategy, reason := e.selector.Select(ctx, tc)
	if strategy == nil {
		tc.Skip(reason)
		e.out.Skip(tc.Name, reason)
		return nil
	}
	e.out.Debug("Running %s (id %d, port %d) on the %s platform", tc.Name, tc.ID, tc.Port(), strategy.Kind().Title())

	for tc.RemainingRetries > 0 {
		if ctx.Err() != nil {
			return nil
		}
		result, err := e.attempt(ctx, tc, strategy)
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return nil
		}
		if err != nil {
			return err
		}
		if result.Success() {
			break
		}
	}
	return nil
}

// attempt runs the server and runner of tc once.
func (e *Executor) attempt(ctx context.Context, tc *model.TestCase, strategy platform.Strategy) (model.RunResult, error) {
	port := tc.Port()
	e.launcher.KillPortOwner(squish.ServerProcessName, port)

	if err := strategy.Prepare(ctx); err != nil {
		return 0, err
	}
	defer strategy.Cleanup()

	env := e.rc.Environ(strategy.Env())

	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	server, err := e.launcher.Start(proc.Command{Argv: squish.ServerArgs(port), Env: env, Dir: e.opts.Dir})
	if err != nil {
		return 0, err
	}
	tc.SetProcesses(server, nil)
	if ctx.Err() != nil {
		e.launcher.Kill(server)
		return 0, ctx.Err()
	}

	runner, err := e.launcher.Start(proc.Command{
		Argv: squish.RunnerArgs(port, tc.Suite, tc.Name, tc.ID),
		Env:  env,
		Dir:  e.opts.Dir,
	})
	if err != nil {
		e.launcher.Kill(server)
		return 0, err
	}
	tc.SetProcesses(server, runner)
	if ctx.Err() != nil {
		// The run was cancelled after the last sweep.
		e.launcher.Kill(runner)
	}

	exitCode, err := runner.Wait()
	if err != nil {
		e.out.Warning("waiting for the runner of %s: %v", tc.Name, err)
	}

	if err := squish.Stop(ctx, e.launcher, tc.Name, port, env, e.opts.Dir); err != nil {
		e.launcher.Kill(server)
		return 0, err
	}
	if _, err := server.Wait(); err != nil {
		e.out.Warning("waiting for the server of %s: %v", tc.Name, err)
	}
	<-server.Drained()
	<-runner.Drained()

	tc.ServerOutput = server.Output()
	tc.RunnerOutput = runner.Output()

	if e.opts.OutputDir != "" {
		if err := e.persist(tc); err != nil {
			e.out.Warning("could not write output of %s: %v", tc.Name, err)
		}
	}

	if !e.launcher.ContinuousOutput() && (exitCode != 0 || e.out.Verbose()) {
		e.out.Block(tc.ServerOutput, tc.RunnerOutput)
	}

	result := model.Classify(exitCode, tc.ExpectFailure)
	tc.Record(result)
	e.out.Status(result.Tag(), tc.Name)
	return result, nil
}

// persist overwrites <OutputDir>/<name>.out with the output of the last attempt.
func (e *Executor) persist(tc *model.TestCase) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\nServer output for test %s\n", tc.Name)
	b.WriteString(stripansi.Strip(tc.ServerOutput))
	fmt.Fprintf(&b, "\nRunner output for test %s\n", tc.Name)
	b.WriteString(stripansi.Strip(tc.RunnerOutput))
	return os.WriteFile(OutputFile(e.opts.OutputDir, tc.Name), []byte(b.String()), 0o644)
}

// OutputFile returns the path of the output file of a test case.
func OutputFile(dir, name string) string {
	return filepath.Join(dir, name+".out")
}
