package proc

import (
	"bufio"
	"context"
	stderrors "errors"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/AndreyAkinshin/squishrun/internal/errors"
	"github.com/AndreyAkinshin/squishrun/internal/filter"
	"github.com/AndreyAkinshin/squishrun/internal/output"
)

// Launcher starts processes and kills process trees.
type Launcher struct {
	out    *output.Writer
	filter *filter.Filter
	tree   ProcessTree
	echo   bool
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithTree replaces the operating-system process tree (for testing).
func WithTree(tree ProcessTree) Option {
	return func(l *Launcher) { l.tree = tree }
}

// WithContinuousOutput echoes every captured line to the console as it arrives.
func WithContinuousOutput(echo bool) Option {
	return func(l *Launcher) { l.echo = echo }
}

// NewLauncher creates a Launcher that filters captured output with f.
func NewLauncher(out *output.Writer, f *filter.Filter, opts ...Option) *Launcher {
	l := &Launcher{
		out:    out,
		filter: f,
		tree:   SystemTree{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ContinuousOutput reports whether captured output is echoed live.
func (l *Launcher) ContinuousOutput() bool {
	return l.echo
}

// Start launches cmd with stdout and stderr merged into one stream that is
// drained continuously in the background.
func (l *Launcher) Start(cmd Command) (Process, error) {
	if len(cmd.Argv) == 0 {
		return nil, errors.New("empty command")
	}
	l.out.Debug("Running: %s", cmd)
	if cmd.Discard {
		return l.startDiscarded(cmd)
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, errors.Wrap(err, "creating output pipe")
	}

	c := exec.Command(cmd.Argv[0], cmd.Argv[1:]...)
	c.Env = cmd.Env
	c.Dir = cmd.Dir
	c.Stdout = pw
	c.Stderr = pw
	setProcessAttrs(c)

	if err := c.Start(); err != nil {
		pr.Close()
		pw.Close()
		return nil, errors.Spawn(cmd.Name(), err)
	}
	// The child holds its own copy of the write end.
	pw.Close()

	h := &Handle{
		cmd:     c,
		done:    make(chan struct{}),
		drained: make(chan struct{}),
	}
	go l.drain(h, pr)
	go h.wait()
	return h, nil
}

func (l *Launcher) startDiscarded(cmd Command) (Process, error) {
	c := exec.Command(cmd.Argv[0], cmd.Argv[1:]...)
	c.Env = cmd.Env
	c.Dir = cmd.Dir
	setProcessAttrs(c)

	if err := c.Start(); err != nil {
		return nil, errors.Spawn(cmd.Name(), err)
	}

	h := &Handle{
		cmd:     c,
		done:    make(chan struct{}),
		drained: make(chan struct{}),
	}
	close(h.drained)
	go h.wait()
	return h, nil
}

func (l *Launcher) drain(h *Handle, r *os.File) {
	defer close(h.drained)
	defer r.Close()

	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			line = strings.ToValidUTF8(line, "\uFFFD")
			if !l.filter.ShouldDrop(line) {
				h.capture.Append(line)
				if l.echo {
					l.out.Print("%s", line)
				}
			}
		}
		if err != nil {
			return
		}
	}
}

// Run executes cmd to completion and returns its filtered combined output.
// A non-zero exit code is not an error.
func (l *Launcher) Run(ctx context.Context, cmd Command) (Result, error) {
	if len(cmd.Argv) == 0 {
		return Result{}, errors.New("empty command")
	}
	l.out.Debug("Running: %s", cmd)

	c := exec.CommandContext(ctx, cmd.Argv[0], cmd.Argv[1:]...)
	c.Env = cmd.Env
	c.Dir = cmd.Dir
	out, err := c.CombinedOutput()
	res := Result{Output: l.filter.Apply(strings.ToValidUTF8(string(out), "\uFFFD"))}
	if err != nil {
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		return res, errors.Spawn(cmd.Name(), err)
	}
	return res, nil
}

// Probe reports whether cmd can be spawned at all. Its exit code is ignored.
func (l *Launcher) Probe(ctx context.Context, cmd Command) bool {
	_, err := l.Run(ctx, cmd)
	return err == nil
}

// Kill kills p together with all its descendants. Processes that already
// exited are ignored.
func (l *Launcher) Kill(p Process) {
	if p == nil || p.Exited() {
		return
	}
	l.KillPID(p.Pid())
}

// KillPID kills pid and all its descendants. Failures are reported as
// warnings.
func (l *Launcher) KillPID(pid int) {
	children, err := l.tree.Descendants(pid)
	if err != nil {
		l.out.Warning("could not list children of process %d: %v", pid, err)
	}
	for _, child := range children {
		l.terminate(child)
	}
	l.terminate(pid)
}

func (l *Launcher) terminate(pid int) {
	if err := l.tree.Terminate(pid); err != nil && !stderrors.Is(err, ErrProcessGone) {
		l.out.Warning("could not kill process %d: %v", pid, err)
	}
}

// KillPortOwner kills the process listening on the local TCP port if its
// name is processName. Failures are reported as warnings.
func (l *Launcher) KillPortOwner(processName string, port int) {
	pid, ok, err := l.tree.ListenerPID(port)
	if err != nil {
		l.out.Warning("could not inspect listeners on port %d: %v", port, err)
		return
	}
	if !ok {
		return
	}
	name, err := l.tree.Name(pid)
	if err != nil {
		l.out.Warning("could not read name of process %d: %v", pid, err)
		return
	}
	if !sameExecutable(name, processName) {
		return
	}
	l.out.Debug("Killing stale %s (pid %d) on port %d", name, pid, port)
	l.KillPID(pid)
}

// Handle is a process started by Launcher.Start.
type Handle struct {
	cmd     *exec.Cmd
	capture Capture

	done    chan struct{}
	drained chan struct{}
	code    int
	err     error

	waitOnce sync.Once
}

func (h *Handle) wait() {
	h.waitOnce.Do(func() {
		defer close(h.done)
		err := h.cmd.Wait()
		if err == nil {
			return
		}
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			h.code = exitErr.ExitCode()
			return
		}
		h.code = -1
		h.err = err
	})
}

// Pid implements Process.
func (h *Handle) Pid() int {
	return h.cmd.Process.Pid
}

// Wait implements Process.
func (h *Handle) Wait() (int, error) {
	<-h.done
	return h.code, h.err
}

// Exited implements Process.
func (h *Handle) Exited() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Drained implements Process.
func (h *Handle) Drained() <-chan struct{} {
	return h.drained
}

// Output implements Process.
func (h *Handle) Output() string {
	return h.capture.String()
}
