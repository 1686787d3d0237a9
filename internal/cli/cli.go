// Package cli provides command-line interface functionality for squishrun.
package cli

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/AndreyAkinshin/squishrun/internal/errors"
	"github.com/AndreyAkinshin/squishrun/internal/filter"
	"github.com/AndreyAkinshin/squishrun/internal/output"
	"github.com/AndreyAkinshin/squishrun/internal/proc"
	"github.com/AndreyAkinshin/squishrun/internal/runner"
)

// Version is set at build time.
var Version = "dev"

// Help text alignment width for flags.
const helpFlagWidth = 28

// Launcher is the process capability the CLI wires into every component.
type Launcher interface {
	runner.Launcher
	Probe(ctx context.Context, cmd proc.Command) bool
}

// LauncherFactory creates the launcher of a run once the descriptor's output
// filters are known.
type LauncherFactory func(out *output.Writer, f *filter.Filter, continuousOutput bool) Launcher

// App is one configured squishrun command line.
type App struct {
	out         *output.Writer
	newLauncher LauncherFactory
	goos        string

	// terminateGroup stops virtual displays; nil uses the platform default.
	terminateGroup func(pid int) error
}

// NewApp creates an App printing to out and starting real processes.
func NewApp(out *output.Writer) *App {
	return &App{
		out:         out,
		newLauncher: systemLauncher,
		goos:        runtime.GOOS,
	}
}

func systemLauncher(out *output.Writer, f *filter.Filter, continuousOutput bool) Launcher {
	return proc.NewLauncher(out, f, proc.WithContinuousOutput(continuousOutput))
}

// Run executes the CLI with the given arguments and returns an exit code.
// SIGINT and SIGTERM interrupt the run.
func Run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewApp(output.New()).Run(ctx, args)
}

// Run executes the CLI until it finishes or ctx is cancelled.
func (a *App) Run(ctx context.Context, args []string) int {
	opts, err := parseArgs(args)
	if err != nil {
		a.out.ErrorPrefix("%v", err)
		a.out.Hint("Run 'squishrun --help' for usage.")
		return errors.ExitConfigError
	}

	if opts.Help {
		a.printUsage()
		return errors.ExitSuccess
	}
	if opts.Version {
		a.out.Println("squishrun %s", Version)
		return errors.ExitSuccess
	}

	a.out.SetVerbose(opts.Verbose)

	ok, err := a.execute(ctx, opts)
	switch {
	case errors.IsKind(err, errors.KindInterrupted):
		a.out.Println("Interrupted...")
		return errors.ExitInterrupted
	case err != nil:
		a.out.ErrorPrefix("%v", err)
		return errors.GetExitCode(err)
	case !ok:
		return errors.ExitRuntimeError
	default:
		return errors.ExitSuccess
	}
}

func (a *App) printUsage() {
	w := a.out

	w.HelpTitle("squishrun - run Squish GUI tests in parallel")

	w.HelpSection("Usage:")
	w.HelpUsage("squishrun [options] [<suitedir>]")

	w.HelpSection("Arguments:")
	w.HelpFlag("<suitedir>", "Directory containing tests.json (default: nearest parent)", helpFlagWidth)

	w.HelpSection("Selection:")
	w.HelpFlag("-t, --tests <a,b>", "Comma separated list of test names to run", helpFlagWidth)
	w.HelpFlag("-s, --suites <a,b>", "Comma separated list of test suites to run", helpFlagWidth)
	w.HelpFlag("-c, --categories <a,b>", "Comma separated list of test categories to run", helpFlagWidth)
	w.HelpFlag("-l, --list", "List all tests, suites and categories", helpFlagWidth)

	w.HelpSection("Execution:")
	w.HelpFlag("-j, --jobs <n>", "Number of tests run in parallel", helpFlagWidth)
	w.HelpFlag("--maxFlakyRuns <n>", "Run a test at most n times until it passes", helpFlagWidth)
	w.HelpFlag("--abortOnFail", "Stop starting tests once a test failed", helpFlagWidth)
	w.HelpFlag("--native", "Use the native QPA instead of offscreen (one job only)", helpFlagWidth)
	w.HelpFlag("-o, --outputdir <dir>", "Store the output of every test in <dir>", helpFlagWidth)
	w.HelpFlag("--continuousOutput", "Print server and runner output as it arrives", helpFlagWidth)

	w.HelpSection("First run:")
	w.HelpFlag("-a, --autPath <dir>", "Directory containing the AUT, written to server.ini", helpFlagWidth)
	w.HelpFlag("-start, --startScriptPath <dir>", "Directory containing the AUT start script", helpFlagWidth)

	w.HelpSection("Global Flags:")
	w.HelpFlag("-v, --verbose", "Maximum detail", helpFlagWidth)
	w.HelpFlag("-h, --help", "Show this help", helpFlagWidth)
	w.HelpFlag("--version", "Show version", helpFlagWidth)

	w.HelpSection("Environment:")
	w.HelpEnvVar(runner.ParallelVariable, "Default number of jobs in offscreen mode", 18)
	w.HelpEnvVar("NO_COLOR", "Disable colored output", 18)

	w.HelpSection("Examples:")
	w.HelpExample("squishrun -a /opt/app/bin tests/squish", "First run: register the AUT and run every test")
	w.HelpExample("squishrun -j 4 --maxFlakyRuns 3 tests/squish", "Four parallel jobs, retry flaky tests")
	w.HelpExample("squishrun -t tst_login,tst_logout -o results", "Run two tests, keep their output")
	w.Println("")
}
