package mocks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndreyAkinshin/squishrun/internal/errors"
	"github.com/AndreyAkinshin/squishrun/internal/proc"
)

func serverCmd(port string) proc.Command {
	return proc.Command{Argv: []string{"squishserver", "--port", port, "--configfile", "server.ini"}}
}

func runnerCmd(name string) proc.Command {
	return proc.Command{Argv: []string{"squishrunner", "--port", "15002", "--testcase", name}}
}

func TestLauncher_ServerRunsUntilStopped(t *testing.T) {
	l := NewLauncher()

	server, err := l.Start(serverCmd("15002"))
	require.NoError(t, err)
	assert.False(t, server.Exited())
	assert.Equal(t, "server listening on 15002\n", server.Output())

	res, err := l.Run(context.Background(), proc.Command{Argv: []string{"squishserver", "--stop", "--port", "15002"}})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)

	code, err := server.Wait()
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Len(t, l.Runs(), 1)
}

func TestLauncher_FailedStopKeepsServer(t *testing.T) {
	l := NewLauncher().WithStopExitCode(1)

	server, err := l.Start(serverCmd("15002"))
	require.NoError(t, err)

	res, err := l.Run(context.Background(), proc.Command{Argv: []string{"squishserver", "--stop", "--port", "15002"}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.ExitCode)
	assert.False(t, server.Exited())
}

func TestLauncher_RunnerExitCodes(t *testing.T) {
	l := NewLauncher().
		WithRunnerExitCodes("tst_a", 1, 2).
		WithRunnerOutput("tst_a", "custom\n")

	for _, want := range []int{1, 2, 0} {
		p, err := l.Start(runnerCmd("tst_a"))
		require.NoError(t, err)
		code, err := p.Wait()
		require.NoError(t, err)
		assert.Equal(t, want, code)
		assert.Equal(t, "custom\n", p.Output())
	}
	assert.Equal(t, 3, l.RunnerCount("tst_a"))
	assert.Zero(t, l.RunnerCount("tst_b"))
}

func TestLauncher_BlockingRunnerEndsOnKill(t *testing.T) {
	l := NewLauncher().WithBlockingRunner("tst_a")

	p, err := l.Start(runnerCmd("tst_a"))
	require.NoError(t, err)
	assert.False(t, p.Exited())

	l.Kill(p)

	code, err := p.Wait()
	require.NoError(t, err)
	assert.Equal(t, KilledExitCode, code)
	assert.True(t, p.(*Process).WasKilled())
	assert.Equal(t, []int{p.Pid()}, l.Killed())
	<-p.Drained()
}

func TestLauncher_MissingExecutable(t *testing.T) {
	l := NewLauncher().WithMissingExecutable("squishrunner")

	_, err := l.Start(runnerCmd("tst_a"))
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindEnvironment))
	assert.False(t, l.Probe(context.Background(), proc.Command{Argv: []string{"squishrunner", "--help"}}))
}

func TestLauncher_Probe(t *testing.T) {
	l := NewLauncher().WithProbe("xfwm4", false)
	ctx := context.Background()

	assert.False(t, l.Probe(ctx, proc.Command{Argv: []string{"xfwm4", "--version"}}))
	assert.True(t, l.Probe(ctx, proc.Command{Argv: []string{"xvfb-run", "--help"}}))
}

func TestLauncher_OnStartAndRunFunc(t *testing.T) {
	l := NewLauncher()
	var started []string
	l.OnStart = func(cmd proc.Command, p *Process) { started = append(started, cmd.Name()) }
	l.RunFunc = func(ctx context.Context, cmd proc.Command) (proc.Result, error) {
		return proc.Result{ExitCode: 7, Output: "configured"}, nil
	}

	_, err := l.Start(serverCmd("15003"))
	require.NoError(t, err)
	res, err := l.Run(context.Background(), proc.Command{Argv: []string{"squishrunner", "--config", "setGlobalScriptDirs", "/g"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"squishserver"}, started)
	assert.Equal(t, 7, res.ExitCode)
	assert.Equal(t, "configured", res.Output)
}

func TestLauncher_PortKills(t *testing.T) {
	l := NewLauncher().WithContinuousOutput(true)

	l.KillPortOwner("_squishserver", 15002)
	l.KillPortOwner("_squishserver", 15003)
	l.Kill(nil)

	assert.Equal(t, []int{15002, 15003}, l.PortKills())
	assert.Empty(t, l.Killed())
	assert.True(t, l.ContinuousOutput())
}
