package runner

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/AndreyAkinshin/squishrun/internal/errors"
	"github.com/AndreyAkinshin/squishrun/internal/model"
	"github.com/AndreyAkinshin/squishrun/internal/output"
	"github.com/AndreyAkinshin/squishrun/internal/proc"
)

// CaseExecutor runs one test case.
type CaseExecutor interface {
	Execute(ctx context.Context, tc *model.TestCase) error
}

// Killer kills process trees.
type Killer interface {
	Kill(p proc.Process)
}

// SchedulerOptions configures a Scheduler.
type SchedulerOptions struct {
	Jobs int
	// AbortOnFail stops every lane from starting new cases once a case failed.
	AbortOnFail bool
	// Setup runs once before any lane starts.
	Setup func(ctx context.Context) error
}

// Scheduler distributes test cases over lanes running in parallel.
type Scheduler struct {
	exec   CaseExecutor
	killer Killer
	out    *output.Writer
	opts   SchedulerOptions

	mu      sync.Mutex
	aborted bool
}

// NewScheduler creates a Scheduler.
func NewScheduler(exec CaseExecutor, killer Killer, out *output.Writer, opts SchedulerOptions) *Scheduler {
	if opts.Jobs < 1 {
		opts.Jobs = 1
	}
	return &Scheduler{
		exec:   exec,
		killer: killer,
		out:    out,
		opts:   opts,
	}
}

// Partition splits cases into at most jobs non-empty buckets, round-robin
// with an offset starting at jobs.
func Partition(jobs int, cases []*model.TestCase) [][]*model.TestCase {
	if jobs < 1 {
		jobs = 1
	}
	buckets := make([][]*model.TestCase, jobs)
	i := jobs
	for _, tc := range cases {
		i = (i + 1) % jobs
		buckets[i] = append(buckets[i], tc)
	}

	nonEmpty := buckets[:0]
	for _, b := range buckets {
		if len(b) > 0 {
			nonEmpty = append(nonEmpty, b)
		}
	}
	return nonEmpty
}

// Run executes cases and waits for every lane. A fatal error of one lane
// kills every known process so the other lanes return promptly.
func (s *Scheduler) Run(ctx context.Context, cases []*model.TestCase) error {
	if s.opts.Setup != nil {
		if err := s.opts.Setup(ctx); err != nil {
			return err
		}
	}

	buckets := Partition(s.opts.Jobs, cases)
	s.out.Debug("Running a total of %d tests split through %d lanes", len(cases), len(buckets))

	fatal := make(chan struct{})
	var fatalOnce sync.Once

	g, gctx := errgroup.WithContext(ctx)
	for _, bucket := range buckets {
		g.Go(func() error {
			err := s.runLane(gctx, bucket)
			if err != nil {
				fatalOnce.Do(func() { close(fatal) })
			}
			return err
		})
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-fatal:
			<-gctx.Done()
			Sweep(s.killer, cases)
		case <-done:
		}
	}()

	err := g.Wait()
	close(done)
	return err
}

// RunInterruptible is Run, except that cancelling ctx kills every known
// process and returns an interrupted error without waiting for the lanes.
func (s *Scheduler) RunInterruptible(ctx context.Context, cases []*model.TestCase) error {
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, cases)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		Sweep(s.killer, cases)
		return errors.Interrupted()
	}
}

func (s *Scheduler) runLane(ctx context.Context, bucket []*model.TestCase) error {
	if s.out.Verbose() {
		names := make([]string, len(bucket))
		for i, tc := range bucket {
			names[i] = tc.Name
		}
		s.out.Debug("Starting lane to run: %d tests (%s)", len(bucket), strings.Join(names, ","))
	}

	for _, tc := range bucket {
		if s.isAborted() || ctx.Err() != nil {
			return nil
		}
		if err := s.exec.Execute(ctx, tc); err != nil {
			return err
		}
		if s.opts.AbortOnFail && tc.Failed() {
			s.abort()
		}
	}
	return nil
}

func (s *Scheduler) isAborted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted
}

func (s *Scheduler) abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.aborted {
		s.out.Println("Aborting the whole run since a test failed...")
	}
	s.aborted = true
}

// Sweep kills the last known server and runner of every case. Processes
// that already exited are left alone by the launcher.
func Sweep(k Killer, cases []*model.TestCase) {
	for _, tc := range cases {
		server, runner := tc.Processes()
		if runner != nil {
			k.Kill(runner)
		}
		if server != nil {
			k.Kill(server)
		}
	}
}
