// Package proc starts external processes, drains their output and tears
// down whole process trees.
package proc

import (
	"strings"
	"sync"

	"github.com/kballard/go-shellquote"
)

// Command describes one process invocation.
type Command struct {
	Argv []string
	Env  []string // Full environment in KEY=VALUE form; nil inherits the current one
	Dir  string
	// Discard sends the output to the null device instead of capturing it.
	Discard bool
}

// String returns the command line quoted for a POSIX shell.
func (c Command) String() string {
	return shellquote.Join(c.Argv...)
}

// Name returns the executable name.
func (c Command) Name() string {
	if len(c.Argv) == 0 {
		return ""
	}
	return c.Argv[0]
}

// Process is a started child process.
type Process interface {
	Pid() int
	// Wait blocks until the process exits and returns its exit code.
	// A process killed by a signal reports a non-zero code.
	Wait() (int, error)
	Exited() bool
	// Drained is closed once all of the process output has been captured.
	Drained() <-chan struct{}
	// Output returns the filtered output captured so far.
	Output() string
}

// Result is the outcome of a one-shot command.
type Result struct {
	ExitCode int
	Output   string
}

// Capture is a growing text buffer safe for concurrent use.
type Capture struct {
	mu  sync.Mutex
	buf strings.Builder
}

// Append adds text to the buffer.
func (c *Capture) Append(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf.WriteString(s)
}

// String returns the text captured so far.
func (c *Capture) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

// MergeEnv layers overrides on top of base. Later entries win, matching
// os/exec semantics for duplicate keys.
func MergeEnv(base []string, overrides map[string]string) []string {
	env := make([]string, 0, len(base)+len(overrides))
	env = append(env, base...)
	for k, v := range overrides {
		env = append(env, k+"="+v)
	}
	return env
}

// LookupEnv returns the last value of key in env.
func LookupEnv(env []string, key string) (string, bool) {
	prefix := key + "="
	for i := len(env) - 1; i >= 0; i-- {
		if strings.HasPrefix(env[i], prefix) {
			return env[i][len(prefix):], true
		}
	}
	return "", false
}
