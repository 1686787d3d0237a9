// Package runner executes test cases across parallel lanes.
package runner

import (
	"os"
	"runtime"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/AndreyAkinshin/squishrun/internal/output"
	"github.com/AndreyAkinshin/squishrun/internal/proc"
)

const (
	// firstCaseID is the id of the first loaded test case.
	firstCaseID = 2
	// firstDisplay is the first X display number used for virtual displays.
	firstDisplay = 101

	// RunIDVariable carries the run id to every child process.
	RunIDVariable = "SQUISHRUN_RUN_ID"
	// ParallelVariable overrides the default number of lanes.
	ParallelVariable = "SQUISHRUN_PARALLEL"

	minParallelWorkers = 1
	// maxParallelWorkers caps SQUISHRUN_PARALLEL; every lane holds a server,
	// a runner and possibly a virtual display.
	maxParallelWorkers = 256
)

// RunContext is the state shared by all components of one invocation.
type RunContext struct {
	// ID identifies the run; it is exported to child processes.
	ID string
	// Env holds the descriptor variables exported to every child process.
	Env map[string]string

	environ []string
	nextID  atomic.Int64
	display atomic.Int64
}

// NewRunContext creates the context of a new run, snapshotting the process environment.
func NewRunContext() *RunContext {
	rc := &RunContext{
		ID:      uuid.NewString(),
		environ: os.Environ(),
	}
	rc.nextID.Store(firstCaseID - 1)
	rc.display.Store(firstDisplay - 1)
	return rc
}

// NextID returns the next test case id.
func (rc *RunContext) NextID() int {
	return int(rc.nextID.Add(1))
}

// NextDisplay returns the next X display number.
func (rc *RunContext) NextDisplay() int {
	return int(rc.display.Add(1))
}

// Environ returns the environment of a child process: the process
// environment, the descriptor variables, the run markers and finally the
// given overrides.
func (rc *RunContext) Environ(overrides map[string]string) []string {
	env := proc.MergeEnv(rc.environ, rc.Env)
	env = append(env,
		"SQUISH_NO_CAPTURE_OUTPUT=1",
		RunIDVariable+"="+rc.ID,
	)
	return proc.MergeEnv(env, overrides)
}

// DefaultJobs returns the number of lanes used when none is requested.
// Native runs use a single lane. Otherwise SQUISHRUN_PARALLEL is honored;
// invalid values (non-numeric, <1, >256) log a warning and fall back to the
// CPU count.
func DefaultJobs(headless bool, out *output.Writer) int {
	if !headless {
		return 1
	}

	env := os.Getenv(ParallelVariable)
	if env == "" {
		return defaultWorkerCount()
	}

	n, err := strconv.Atoi(env)
	if err != nil {
		out.Warning("invalid %s value %q (not a number), using default", ParallelVariable, env)
		return defaultWorkerCount()
	}

	if n < minParallelWorkers || n > maxParallelWorkers {
		out.Warning("%s=%d out of range [%d-%d], using default", ParallelVariable, n, minParallelWorkers, maxParallelWorkers)
		return defaultWorkerCount()
	}

	return n
}

// defaultWorkerCount returns the default number of lanes based on CPU count.
func defaultWorkerCount() int {
	return max(minParallelWorkers, runtime.NumCPU())
}
