// Package mocks provides shared test doubles for squishrun packages.
package mocks

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/AndreyAkinshin/squishrun/internal/errors"
	"github.com/AndreyAkinshin/squishrun/internal/proc"
)

// KilledExitCode is the exit code a fake process reports after Kill.
const KilledExitCode = -1

// Launcher is a fake process launcher that understands the squishserver and
// squishrunner command lines. Use NewLauncher() and the With* methods to
// script its behavior.
//
// Servers keep running until a stop request for their port arrives or they
// are killed. Runners exit immediately with the next scripted exit code of
// their test case (0 when none is left), unless the case is blocking.
type Launcher struct {
	mu sync.Mutex

	nextPID      int
	exitCodes    map[string][]int
	outputs      map[string]string
	blocking     map[string]bool
	missing      map[string]bool
	probes       map[string]bool
	stopExitCode int
	echo         bool

	// OnStart is called after a process was started, outside the lock.
	OnStart func(cmd proc.Command, p *Process)
	// RunFunc overrides Run for commands other than server stop requests.
	RunFunc func(ctx context.Context, cmd proc.Command) (proc.Result, error)

	servers   map[int]*Process
	processes []*Process
	runs      []proc.Command
	killed    []int
	portKills []int
}

// NewLauncher creates a fake launcher.
func NewLauncher() *Launcher {
	return &Launcher{
		nextPID:   1000,
		exitCodes: make(map[string][]int),
		outputs:   make(map[string]string),
		blocking:  make(map[string]bool),
		missing:   make(map[string]bool),
		probes:    make(map[string]bool),
		servers:   make(map[int]*Process),
	}
}

// WithRunnerExitCodes scripts the runner exit codes of successive attempts of a test case.
func (l *Launcher) WithRunnerExitCodes(testCase string, codes ...int) *Launcher {
	l.exitCodes[testCase] = append(l.exitCodes[testCase], codes...)
	return l
}

// WithRunnerOutput sets the captured output of the runners of a test case.
func (l *Launcher) WithRunnerOutput(testCase, output string) *Launcher {
	l.outputs[testCase] = output
	return l
}

// WithBlockingRunner makes the runner of a test case run until killed.
func (l *Launcher) WithBlockingRunner(testCase string) *Launcher {
	l.blocking[testCase] = true
	return l
}

// WithMissingExecutable makes starting the executable fail as if it were not in PATH.
func (l *Launcher) WithMissingExecutable(name string) *Launcher {
	l.missing[name] = true
	return l
}

// WithProbe sets whether probing the executable succeeds. Probes succeed by default.
func (l *Launcher) WithProbe(name string, ok bool) *Launcher {
	l.probes[name] = ok
	return l
}

// WithStopExitCode sets the exit code of server stop requests.
func (l *Launcher) WithStopExitCode(code int) *Launcher {
	l.stopExitCode = code
	return l
}

// WithContinuousOutput sets the value reported by ContinuousOutput.
func (l *Launcher) WithContinuousOutput(echo bool) *Launcher {
	l.echo = echo
	return l
}

// Start implements the launcher capability.
func (l *Launcher) Start(cmd proc.Command) (proc.Process, error) {
	l.mu.Lock()
	if l.missing[cmd.Name()] {
		l.mu.Unlock()
		return nil, errors.Spawn(cmd.Name(), fmt.Errorf("exec: %q: executable file not found in $PATH", cmd.Name()))
	}

	l.nextPID++
	p := newProcess(l.nextPID, cmd)
	l.processes = append(l.processes, p)

	var finishWith *int
	switch {
	case isServer(cmd):
		p.output = fmt.Sprintf("server listening on %s\n", argValue(cmd.Argv, "--port"))
		if port, err := strconv.Atoi(argValue(cmd.Argv, "--port")); err == nil {
			l.servers[port] = p
		}
	case isRunner(cmd):
		name := argValue(cmd.Argv, "--testcase")
		p.output = fmt.Sprintf("runner output for %s\n", name)
		if out, ok := l.outputs[name]; ok {
			p.output = out
		}
		if !l.blocking[name] {
			code := 0
			if codes := l.exitCodes[name]; len(codes) > 0 {
				code = codes[0]
				l.exitCodes[name] = codes[1:]
			}
			finishWith = &code
		}
	}
	onStart := l.OnStart
	l.mu.Unlock()

	if finishWith != nil {
		p.finish(*finishWith)
	}
	if onStart != nil {
		onStart(cmd, p)
	}
	return p, nil
}

// Run implements the launcher capability. Server stop requests end the
// server listening on the addressed port.
func (l *Launcher) Run(ctx context.Context, cmd proc.Command) (proc.Result, error) {
	l.mu.Lock()
	l.runs = append(l.runs, cmd)
	if l.missing[cmd.Name()] {
		l.mu.Unlock()
		return proc.Result{}, errors.Spawn(cmd.Name(), fmt.Errorf("exec: %q: executable file not found in $PATH", cmd.Name()))
	}
	if cmd.Name() == "squishserver" && hasArg(cmd.Argv, "--stop") {
		code := l.stopExitCode
		var server *Process
		if port, err := strconv.Atoi(argValue(cmd.Argv, "--port")); err == nil && code == 0 {
			server = l.servers[port]
			delete(l.servers, port)
		}
		l.mu.Unlock()
		if server != nil {
			server.finish(0)
		}
		return proc.Result{ExitCode: code}, nil
	}
	runFunc := l.RunFunc
	l.mu.Unlock()

	if runFunc != nil {
		return runFunc(ctx, cmd)
	}
	return proc.Result{}, nil
}

// Probe implements the launcher capability.
func (l *Launcher) Probe(ctx context.Context, cmd proc.Command) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runs = append(l.runs, cmd)
	if ok, set := l.probes[cmd.Name()]; set {
		return ok
	}
	return !l.missing[cmd.Name()]
}

// Kill implements the launcher capability.
func (l *Launcher) Kill(p proc.Process) {
	if p == nil {
		return
	}
	l.mu.Lock()
	l.killed = append(l.killed, p.Pid())
	l.mu.Unlock()

	if fp, ok := p.(*Process); ok {
		fp.kill()
	}
}

// KillPortOwner implements the launcher capability.
func (l *Launcher) KillPortOwner(processName string, port int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.portKills = append(l.portKills, port)
}

// ContinuousOutput implements the launcher capability.
func (l *Launcher) ContinuousOutput() bool {
	return l.echo
}

// Processes returns every started process in start order.
func (l *Launcher) Processes() []*Process {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Process(nil), l.processes...)
}

// Started returns the commands of every started process in start order.
func (l *Launcher) Started() []proc.Command {
	l.mu.Lock()
	defer l.mu.Unlock()
	cmds := make([]proc.Command, len(l.processes))
	for i, p := range l.processes {
		cmds[i] = p.Cmd
	}
	return cmds
}

// Runs returns the commands passed to Run and Probe.
func (l *Launcher) Runs() []proc.Command {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]proc.Command(nil), l.runs...)
}

// Killed returns the pids passed to Kill.
func (l *Launcher) Killed() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]int(nil), l.killed...)
}

// PortKills returns the ports passed to KillPortOwner.
func (l *Launcher) PortKills() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]int(nil), l.portKills...)
}

// RunnerCount returns how many runners were started for a test case.
func (l *Launcher) RunnerCount(testCase string) int {
	n := 0
	for _, cmd := range l.Started() {
		if isRunner(cmd) && argValue(cmd.Argv, "--testcase") == testCase {
			n++
		}
	}
	return n
}

// Process is a fake proc.Process.
type Process struct {
	Cmd proc.Command

	pid    int
	output string

	mu     sync.Mutex
	code   int
	killed bool
	done   chan struct{}
	once   sync.Once
}

func newProcess(pid int, cmd proc.Command) *Process {
	return &Process{Cmd: cmd, pid: pid, done: make(chan struct{})}
}

func (p *Process) finish(code int) {
	p.once.Do(func() {
		p.mu.Lock()
		p.code = code
		p.mu.Unlock()
		close(p.done)
	})
}

func (p *Process) kill() {
	p.mu.Lock()
	p.killed = true
	p.mu.Unlock()
	p.finish(KilledExitCode)
}

// WasKilled reports whether Kill reached the process before it exited.
func (p *Process) WasKilled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killed
}

func (p *Process) Pid() int { return p.pid }

func (p *Process) Wait() (int, error) {
	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.code, nil
}

func (p *Process) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *Process) Drained() <-chan struct{} { return p.done }
func (p *Process) Output() string           { return p.output }

func isServer(cmd proc.Command) bool {
	return cmd.Name() == "squishserver" && hasArg(cmd.Argv, "--port") && !hasArg(cmd.Argv, "--stop")
}

func isRunner(cmd proc.Command) bool {
	return cmd.Name() == "squishrunner" && hasArg(cmd.Argv, "--testcase")
}

func hasArg(argv []string, arg string) bool {
	for _, a := range argv {
		if a == arg {
			return true
		}
	}
	return false
}

func argValue(argv []string, arg string) string {
	for i := 0; i+1 < len(argv); i++ {
		if argv[i] == arg {
			return argv[i+1]
		}
	}
	return ""
}
