//go:build !windows

package platform

import (
	"errors"
	"syscall"
)

// terminateGroup sends SIGTERM to the process group led by pid. A group
// with no members left is already stopped.
func terminateGroup(pid int) error {
	err := syscall.Kill(-pid, syscall.SIGTERM)
	if errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}
