//go:build windows

package platform

import "os"

// terminateGroup kills pid. Virtual displays are never selected on Windows.
func terminateGroup(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Kill()
}
