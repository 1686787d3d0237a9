package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AndreyAkinshin/squishrun/internal/errors"
	"github.com/AndreyAkinshin/squishrun/internal/platform"
	"github.com/AndreyAkinshin/squishrun/internal/project"
	"github.com/AndreyAkinshin/squishrun/internal/runner"
	"github.com/AndreyAkinshin/squishrun/internal/squish"
	"github.com/AndreyAkinshin/squishrun/internal/stats"
	"github.com/AndreyAkinshin/squishrun/internal/suite"
)

// execute loads the suite and either lists or runs it. It reports whether
// every requested test ended successfully.
func (a *App) execute(ctx context.Context, opts *Options) (bool, error) {
	start := time.Now()

	dir, err := a.suiteDir(opts)
	if err != nil {
		return false, err
	}
	a.out.Debug("cd %s", dir)

	rc := runner.NewRunContext()
	s, err := suite.Load(dir, suite.Options{
		IDs:          rc,
		MaxFlakyRuns: opts.MaxFlakyRuns,
		Platform:     a.goos,
	})
	if err != nil {
		return false, err
	}
	for _, w := range s.Warnings {
		a.out.Warning("%s", w)
	}

	if opts.List {
		a.list(s)
		return true, nil
	}

	headless := !opts.Native
	jobs := opts.Jobs
	if jobs == 0 {
		jobs = runner.DefaultJobs(headless, a.out)
	}
	if err := platform.Validate(headless, jobs); err != nil {
		return false, err
	}

	outputDir, err := resolveOutputDir(dir, opts.OutputDir)
	if err != nil {
		return false, err
	}
	autPath, err := absIfSet(opts.AutPath)
	if err != nil {
		return false, err
	}
	startScriptPath, err := absIfSet(opts.StartScriptPath)
	if err != nil {
		return false, err
	}

	cases, err := s.Select(opts.Selection)
	if err != nil {
		return false, err
	}

	rc.Env = s.Env
	baseEnv := rc.Environ(nil)
	l := a.newLauncher(a.out, s.Filter, opts.ContinuousOutput)

	selector := platform.NewSelector(platform.Config{
		Headless: headless,
		GOOS:     a.goos,
		Launcher: l,
		Displays: rc,
		Out:      a.out,
		BaseEnv:  baseEnv,

		TerminateGroup: a.terminateGroup,
	})
	exec := runner.NewExecutor(rc, l, selector, a.out, runner.ExecutorOptions{
		Dir:       dir,
		OutputDir: outputDir,
	})
	setup := func(ctx context.Context) error {
		return squish.Setup(ctx, l, squish.SetupConfig{
			Dir:             dir,
			Aut:             s.Aut,
			AutPath:         autPath,
			StartScript:     s.StartScript,
			StartScriptPath: startScriptPath,
			GlobalScriptDir: s.GlobalScriptDir,
			Env:             baseEnv,
		}, a.out)
	}
	sched := runner.NewScheduler(exec, l, a.out, runner.SchedulerOptions{
		Jobs:        jobs,
		AbortOnFail: opts.AbortOnFail,
		Setup:       setup,
	})

	if err := sched.RunInterruptible(ctx, cases); err != nil {
		// Lanes are not joined on interrupt; a server started after the
		// first sweep is caught here.
		runner.Sweep(l, cases)
		return false, err
	}

	st := stats.Build(cases)
	st.Print(a.out)
	a.out.Println("Took %d seconds", int(time.Since(start).Seconds()))
	if st.Successful() {
		a.out.FinalSuccess("Success!")
	}

	runner.Sweep(l, cases)
	return st.Successful(), nil
}

// suiteDir returns the absolute suite directory named on the command line,
// or the nearest parent of the working directory holding a descriptor.
func (a *App) suiteDir(opts *Options) (string, error) {
	if opts.SuiteDir == "" {
		dir, err := project.FindSuiteDir()
		if err != nil {
			return "", errors.Config(err.Error())
		}
		return dir, nil
	}

	dir, err := filepath.Abs(opts.SuiteDir)
	if err != nil {
		return "", errors.Configf("invalid suite directory %s: %v", opts.SuiteDir, err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return "", errors.Configf("suite directory %s does not exist", opts.SuiteDir)
	}
	return dir, nil
}

// list prints every enabled test with its suite and categories, then the
// suite names and the categories.
func (a *App) list(s *suite.Suite) {
	rows := make([][]string, len(s.Tests))
	for i, tc := range s.Tests {
		rows[i] = []string{tc.Name, tc.Suite, strings.Join(tc.Categories, ",")}
	}

	a.out.Println("Tests:")
	a.out.Table([]string{"Name", "Suite", "Categories"}, rows)

	a.out.Section("Suites")
	a.out.List(s.SuiteNames())

	a.out.Section("Categories")
	a.out.List(s.Categories())
}

// resolveOutputDir resolves a relative output directory against the suite
// directory. The directory must exist.
func resolveOutputDir(suiteDir, dir string) (string, error) {
	if dir == "" {
		return "", nil
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(suiteDir, dir)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return "", errors.Configf("did not find directory %s", dir)
	}
	return dir, nil
}

func absIfSet(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Configf("invalid path %s: %v", path, err)
	}
	return abs, nil
}
