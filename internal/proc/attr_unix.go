//go:build !windows

package proc

import (
	"os/exec"
	"syscall"
)

// setProcessAttrs starts the child in its own process group. Children are
// torn down by the kill sweep, not by the terminal's interrupt.
func setProcessAttrs(c *exec.Cmd) {
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
