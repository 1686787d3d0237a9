package squish

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/AndreyAkinshin/squishrun/internal/errors"
	"github.com/AndreyAkinshin/squishrun/internal/output"
	"github.com/AndreyAkinshin/squishrun/internal/proc"
)

func TestArgs(t *testing.T) {
	tests := []struct {
		name string
		got  []string
		want []string
	}{
		{
			"server",
			ServerArgs(15002),
			[]string{"squishserver", "--port", "15002", "--configfile", "server.ini"},
		},
		{
			"runner",
			RunnerArgs(15002, "suite_main", "tst_login", 2),
			[]string{
				"squishrunner", "--port", "15002", "--testsuite", "suite_main",
				"--exitCodeOnFail", "1", "--abortOnFail", "--reportgen", "stdout",
				"--testcase", "tst_login", "--scriptargs", "2",
			},
		},
		{
			"stop",
			StopArgs(15002),
			[]string{"squishserver", "--stop", "--port", "15002"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !reflect.DeepEqual(tt.got, tt.want) {
				t.Errorf("args = %v, want %v", tt.got, tt.want)
			}
		})
	}
}

// scriptedRunner records commands and answers with fixed exit codes.
type scriptedRunner struct {
	cmds  []proc.Command
	codes map[string]int // keyed by the joined argv
	err   error
}

func (r *scriptedRunner) Run(_ context.Context, cmd proc.Command) (proc.Result, error) {
	r.cmds = append(r.cmds, cmd)
	if r.err != nil {
		return proc.Result{}, r.err
	}
	return proc.Result{ExitCode: r.codes[strings.Join(cmd.Argv, " ")], Output: "details\n"}, nil
}

func (r *scriptedRunner) argvs() []string {
	out := make([]string, len(r.cmds))
	for i, c := range r.cmds {
		out[i] = strings.Join(c.Argv, " ")
	}
	return out
}

func TestStop(t *testing.T) {
	r := &scriptedRunner{}
	if err := Stop(context.Background(), r, "tst_login", 15002, nil, "/suite"); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if got := r.argvs(); !reflect.DeepEqual(got, []string{"squishserver --stop --port 15002"}) {
		t.Errorf("Stop() ran %v", got)
	}
	if r.cmds[0].Dir != "/suite" {
		t.Errorf("Stop() Dir = %q, want /suite", r.cmds[0].Dir)
	}
}

func TestStop_Failure(t *testing.T) {
	r := &scriptedRunner{codes: map[string]int{"squishserver --stop --port 15002": 1}}

	err := Stop(context.Background(), r, "tst_login", 15002, nil, "")
	if err == nil {
		t.Fatal("Stop() error = nil, want error")
	}
	if errors.GetExitCode(err) != errors.ExitRuntimeError {
		t.Errorf("exit code = %d, want %d", errors.GetExitCode(err), errors.ExitRuntimeError)
	}
	if !strings.Contains(err.Error(), "15002") {
		t.Errorf("Stop() error = %q, want it to name the port", err)
	}
	if !strings.HasPrefix(err.Error(), "[tst_login] squishserver: ") {
		t.Errorf("Stop() error = %q, want it to name the test case", err)
	}
}

func newWriter() *output.Writer {
	return output.NewWithWriters(&bytes.Buffer{}, &bytes.Buffer{}, false)
}

func TestSetup_WritesServerINI(t *testing.T) {
	dir := t.TempDir()
	autPath := t.TempDir()
	startPath := t.TempDir()
	r := &scriptedRunner{}

	err := Setup(context.Background(), r, SetupConfig{
		Dir:             dir,
		Aut:             "myapp",
		AutPath:         autPath,
		StartScript:     "start_myapp",
		StartScriptPath: startPath,
		GlobalScriptDir: "/shared",
	}, newWriter())
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	want := []string{
		"squishrunner --config setGlobalScriptDirs /shared",
		"squishserver --configfile server.ini --config setCursorAnimation off",
		"squishserver --configfile server.ini --config addAUT myapp " + autPath,
		"squishserver --configfile server.ini --config addAUT start_myapp " + startPath,
	}
	if got := r.argvs(); !reflect.DeepEqual(got, want) {
		t.Errorf("Setup() ran %v, want %v", got, want)
	}
	for _, c := range r.cmds {
		if c.Dir != dir {
			t.Errorf("command %v ran in %q, want %q", c.Argv, c.Dir, dir)
		}
	}
}

func TestSetup_ExistingServerINI(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ServerConfigFile), []byte("[General]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := &scriptedRunner{}

	if err := Setup(context.Background(), r, SetupConfig{Dir: dir, Aut: "myapp"}, newWriter()); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if len(r.cmds) != 0 {
		t.Errorf("Setup() ran %v, want nothing", r.argvs())
	}
}

func TestSetup_Errors(t *testing.T) {
	tests := []struct {
		name    string
		cfg     func(dir string) SetupConfig
		codes   map[string]int
		wantMsg string
	}{
		{
			"missing aut path",
			func(dir string) SetupConfig { return SetupConfig{Dir: dir, Aut: "myapp"} },
			nil,
			"--autPath is required",
		},
		{
			"aut path not a directory",
			func(dir string) SetupConfig {
				return SetupConfig{Dir: dir, Aut: "myapp", AutPath: filepath.Join(dir, "nope")}
			},
			nil,
			"is not a directory",
		},
		{
			"global script dir rejected",
			func(dir string) SetupConfig { return SetupConfig{Dir: dir, Aut: "myapp", GlobalScriptDir: "/shared"} },
			map[string]int{"squishrunner --config setGlobalScriptDirs /shared": 1},
			"could not set globalScriptDir: details",
		},
		{
			"cursor animation rejected",
			func(dir string) SetupConfig { return SetupConfig{Dir: dir, Aut: "myapp", AutPath: dir} },
			map[string]int{"squishserver --configfile server.ini --config setCursorAnimation off": 3},
			"could not disable cursor animation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			r := &scriptedRunner{codes: tt.codes}

			err := Setup(context.Background(), r, tt.cfg(dir), newWriter())
			if err == nil {
				t.Fatal("Setup() error = nil, want error")
			}
			if errors.GetExitCode(err) != errors.ExitConfigError {
				t.Errorf("exit code = %d, want %d", errors.GetExitCode(err), errors.ExitConfigError)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Setup() error = %q, want it to contain %q", err, tt.wantMsg)
			}
		})
	}
}

func TestSetup_SpawnFailure(t *testing.T) {
	dir := t.TempDir()
	r := &scriptedRunner{err: errors.Spawn("squishserver", os.ErrNotExist)}

	err := Setup(context.Background(), r, SetupConfig{Dir: dir, Aut: "myapp", AutPath: dir}, newWriter())
	if errors.GetExitCode(err) != errors.ExitRuntimeError {
		t.Errorf("exit code = %d, want %d", errors.GetExitCode(err), errors.ExitRuntimeError)
	}
}
