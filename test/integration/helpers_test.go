// Package integration contains end-to-end tests running squishrun against
// stand-in squishserver and squishrunner scripts.
package integration

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/AndreyAkinshin/squishrun/internal/cli"
	"github.com/AndreyAkinshin/squishrun/internal/output"
)

var (
	fixturesDirOnce sync.Once
	fixturesDirPath string
)

// fixturesDir returns the path to the test fixtures directory.
// The result is cached for efficiency since runtime.Caller is relatively expensive.
func fixturesDir() string {
	fixturesDirOnce.Do(func() {
		_, filename, _, _ := runtime.Caller(0)
		fixturesDirPath = filepath.Join(filepath.Dir(filename), "..", "fixtures")
	})
	return fixturesDirPath
}

// env is a prepared suite directory with the stand-in tools on PATH.
type env struct {
	suiteDir string
	stateDir string
}

// setupEnv copies the basic fixture suite into a temporary directory and puts
// the stand-in tools first on PATH.
func setupEnv(t *testing.T) *env {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stand-in tools are shell scripts")
	}

	e := &env{suiteDir: t.TempDir(), stateDir: t.TempDir()}
	copyDir(t, filepath.Join(fixturesDir(), "basic"), e.suiteDir, 0o644)

	binDir := t.TempDir()
	copyDir(t, filepath.Join(fixturesDir(), "bin"), binDir, 0o755)

	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	t.Setenv("SQUISHRUN_STATE_DIR", e.stateDir)
	t.Setenv("NO_COLOR", "1")
	return e
}

func copyDir(t *testing.T, src, dst string, mode os.FileMode) {
	t.Helper()
	entries, err := os.ReadDir(src)
	if err != nil {
		t.Fatalf("failed to read %s: %v", src, err)
	}
	for _, entry := range entries {
		data, err := os.ReadFile(filepath.Join(src, entry.Name()))
		if err != nil {
			t.Fatalf("failed to read fixture: %v", err)
		}
		if err := os.WriteFile(filepath.Join(dst, entry.Name()), data, mode); err != nil {
			t.Fatalf("failed to write fixture: %v", err)
		}
	}
}

// run executes squishrun with args followed by the suite directory.
func (e *env) run(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := cli.NewApp(output.NewWithWriters(&out, &errOut, false))
	code = app.Run(context.Background(), append(args, e.suiteDir))
	return code, out.String(), errOut.String()
}
