//go:build windows

package proc

import "os/exec"

func setProcessAttrs(c *exec.Cmd) {}
