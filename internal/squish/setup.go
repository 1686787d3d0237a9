package squish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/AndreyAkinshin/squishrun/internal/errors"
	"github.com/AndreyAkinshin/squishrun/internal/output"
	"github.com/AndreyAkinshin/squishrun/internal/proc"
)

// setupLockTimeout bounds the wait for another squishrun configuring the same directory.
const setupLockTimeout = 2 * time.Minute

// SetupConfig describes the one-time configuration of the Squish tools.
type SetupConfig struct {
	Dir             string // Suite directory holding server.ini
	Aut             string
	AutPath         string // Directory of the application; required when server.ini is missing
	StartScript     string
	StartScriptPath string
	GlobalScriptDir string
	Env             []string
}

// Setup registers the global script directory and writes server.ini when
// needed. It holds an exclusive lock on the suite directory while doing so.
func Setup(ctx context.Context, r Runner, cfg SetupConfig, out *output.Writer) error {
	lock, err := acquireSetupLock(ctx, cfg.Dir)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	if cfg.GlobalScriptDir != "" {
		out.Debug("Setting global script directory to %s", cfg.GlobalScriptDir)
		if err := runConfig(ctx, r, cfg, []string{RunnerExecutable, "--config", "setGlobalScriptDirs", cfg.GlobalScriptDir},
			"could not set globalScriptDir"); err != nil {
			return err
		}
	}

	serverINI := filepath.Join(cfg.Dir, ServerConfigFile)
	_, statErr := os.Stat(serverINI)
	if cfg.AutPath == "" && statErr == nil {
		return nil
	}
	if cfg.AutPath == "" {
		return errors.Configf("%s not found, --autPath is required", ServerConfigFile)
	}
	if info, err := os.Stat(cfg.AutPath); err != nil || !info.IsDir() {
		return errors.Configf("AUT path %s is not a directory", cfg.AutPath)
	}

	out.Debug("Writing %s", serverINI)
	common := []string{ServerExecutable, "--configfile", ServerConfigFile, "--config"}
	steps := []configStep{
		{[]string{"setCursorAnimation", "off"}, "could not disable cursor animation"},
		{[]string{"addAUT", cfg.Aut, cfg.AutPath}, fmt.Sprintf("could not set AUT %s/%s", cfg.Aut, cfg.AutPath)},
	}
	if cfg.StartScriptPath != "" {
		steps = append(steps, configStep{
			[]string{"addAUT", cfg.StartScript, cfg.StartScriptPath},
			fmt.Sprintf("could not set AUT %s/%s", cfg.StartScript, cfg.StartScriptPath),
		})
	}
	for _, step := range steps {
		argv := append(append([]string(nil), common...), step.args...)
		if err := runConfig(ctx, r, cfg, argv, step.msg); err != nil {
			return err
		}
	}
	return nil
}

type configStep struct {
	args []string
	msg  string
}

func runConfig(ctx context.Context, r Runner, cfg SetupConfig, argv []string, msg string) error {
	res, err := r.Run(ctx, proc.Command{Argv: argv, Env: cfg.Env, Dir: cfg.Dir})
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		if detail := strings.TrimSpace(res.Output); detail != "" {
			msg += ": " + detail
		}
		return errors.Config(msg)
	}
	return nil
}

// acquireSetupLock serializes setup between squishrun processes sharing a suite directory.
func acquireSetupLock(ctx context.Context, dir string) (*flock.Flock, error) {
	lockPath := filepath.Join(dir, ServerConfigFile+".lock")
	lock := flock.New(lockPath)

	ctx, cancel := context.WithTimeout(ctx, setupLockTimeout)
	defer cancel()

	locked, err := lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return nil, errors.Wrap(err, "lock acquisition failed")
	}
	if !locked {
		return nil, errors.Newf("another squishrun is configuring %s (lock held: %s)", dir, lockPath)
	}
	return lock, nil
}
