// Package platform selects the display backend a test case runs under.
package platform

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/AndreyAkinshin/squishrun/internal/errors"
	"github.com/AndreyAkinshin/squishrun/internal/model"
	"github.com/AndreyAkinshin/squishrun/internal/output"
	"github.com/AndreyAkinshin/squishrun/internal/proc"
)

// QPAVariable selects the Qt platform plugin of the application under test.
const QPAVariable = "QT_QPA_PLATFORM"

// Kind identifies a display backend.
type Kind int

const (
	Headless Kind = iota
	VirtualDisplay
	Native
)

func (k Kind) String() string {
	switch k {
	case Headless:
		return "offscreen"
	case VirtualDisplay:
		return "virtual display"
	case Native:
		return "native"
	default:
		return "unknown"
	}
}

// Title returns the name of the kind for display.
func (k Kind) Title() string {
	return cases.Title(language.English).String(k.String())
}

// Strategy prepares the display a single test case runs under.
type Strategy interface {
	Kind() Kind
	// Env returns the variables overriding the base environment.
	Env() map[string]string
	// Prepare runs before each attempt.
	Prepare(ctx context.Context) error
	// Cleanup runs after each attempt, including failed ones.
	Cleanup()
}

// Launcher is the process capability the strategies need.
type Launcher interface {
	Start(cmd proc.Command) (proc.Process, error)
	Probe(ctx context.Context, cmd proc.Command) bool
}

// DisplayCounter hands out X display numbers unique within a run.
type DisplayCounter interface {
	NextDisplay() int
}

// Config configures a Selector.
type Config struct {
	Headless bool   // False selects the native backend for every case
	GOOS     string // Operating system the run happens on
	Launcher Launcher
	Displays DisplayCounter
	Out      *output.Writer
	// BaseEnv is the environment the virtual display is started with.
	BaseEnv []string
	// TerminateGroup stops the process group of a virtual display.
	// Nil sends SIGTERM to the group.
	TerminateGroup func(pid int) error
}

// Selector picks the strategy for each case. It is safe for concurrent use.
type Selector struct {
	cfg Config

	probeOnce   sync.Once
	probeReason string
}

// NewSelector creates a Selector.
func NewSelector(cfg Config) *Selector {
	return &Selector{cfg: cfg}
}

// Select returns the strategy for tc, or a reason to skip it.
func (s *Selector) Select(ctx context.Context, tc *model.TestCase) (Strategy, string) {
	if !s.cfg.Headless {
		return nativeStrategy{}, ""
	}
	if tc.SupportsHeadless {
		return headlessStrategy{}, ""
	}
	if s.cfg.GOOS != "linux" {
		return nil, "Test does not support offscreen"
	}
	if reason := s.probe(ctx); reason != "" {
		return nil, reason
	}
	terminate := s.cfg.TerminateGroup
	if terminate == nil {
		terminate = terminateGroup
	}
	return &virtualDisplay{
		launcher:  s.cfg.Launcher,
		displays:  s.cfg.Displays,
		env:       s.cfg.BaseEnv,
		out:       s.cfg.Out,
		terminate: terminate,
	}, ""
}

// probe checks once per run that the virtual display helpers can be spawned.
func (s *Selector) probe(ctx context.Context) string {
	s.probeOnce.Do(func() {
		if !s.cfg.Launcher.Probe(ctx, proc.Command{Argv: []string{"xfwm4", "--version"}}) {
			s.probeReason = "Could not find xfwm4. Please install it."
			return
		}
		if !s.cfg.Launcher.Probe(ctx, proc.Command{Argv: []string{"xvfb-run", "--help"}}) {
			s.probeReason = "Could not find xvfb-run. Please install it."
		}
	})
	return s.probeReason
}

type headlessStrategy struct{}

func (headlessStrategy) Kind() Kind { return Headless }

func (headlessStrategy) Env() map[string]string {
	return map[string]string{QPAVariable: "offscreen"}
}

func (headlessStrategy) Prepare(context.Context) error { return nil }
func (headlessStrategy) Cleanup()                      {}

type nativeStrategy struct{}

func (nativeStrategy) Kind() Kind { return Native }

func (nativeStrategy) Env() map[string]string {
	return map[string]string{QPAVariable: ""}
}

func (nativeStrategy) Prepare(context.Context) error { return nil }
func (nativeStrategy) Cleanup()                      {}

// virtualDisplay runs each attempt on its own Xvfb server with a window manager.
type virtualDisplay struct {
	launcher  Launcher
	displays  DisplayCounter
	env       []string
	out       *output.Writer
	terminate func(pid int) error

	mu      sync.Mutex
	display int
	xvfb    proc.Process
}

func (v *virtualDisplay) Kind() Kind { return VirtualDisplay }

func (v *virtualDisplay) Env() map[string]string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return map[string]string{
		QPAVariable: "xcb",
		"DISPLAY":   fmt.Sprintf(":%d", v.display),
	}
}

// Prepare starts a virtual X server on a fresh display number.
func (v *virtualDisplay) Prepare(ctx context.Context) error {
	display := v.displays.NextDisplay()
	cmd := proc.Command{
		Argv: []string{
			"xvfb-run", "-n", strconv.Itoa(display),
			"-s", "-ac -screen 0 1920x1080x24",
			"dbus-run-session", "xfwm4",
		},
		Env:     v.env,
		Discard: true,
	}
	p, err := v.launcher.Start(cmd)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.display = display
	v.xvfb = p
	return nil
}

// Cleanup terminates the process group of the virtual X server. The group
// is signalled even when xvfb-run itself already exited, since Xvfb and the
// window manager may outlive it.
func (v *virtualDisplay) Cleanup() {
	v.mu.Lock()
	p, display := v.xvfb, v.display
	v.xvfb = nil
	v.mu.Unlock()

	if p == nil {
		return
	}
	if err := v.terminate(p.Pid()); err != nil {
		v.out.Debug("could not stop virtual display :%d: %v", display, err)
	}
}

// Validate reports a native run requested with more than one lane.
func Validate(headless bool, jobs int) error {
	if !headless && jobs > 1 {
		return errors.Config("native platform only supports 1 job at a time")
	}
	return nil
}
