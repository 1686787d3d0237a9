package proc

import (
	"errors"
	"fmt"
	"strings"

	psnet "github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
)

// ErrProcessGone is returned when a process exited before it could be acted on.
var ErrProcessGone = errors.New("process already exited")

// ProcessTree is the operating-system capability needed to tear down
// process trees and find the owner of a listening port.
type ProcessTree interface {
	// Descendants returns all children of pid, recursively.
	Descendants(pid int) ([]int, error)
	// Terminate kills pid. It returns ErrProcessGone if pid no longer exists.
	Terminate(pid int) error
	Name(pid int) (string, error)
	// ListenerPID returns the process bound to the local TCP port.
	ListenerPID(port int) (int, bool, error)
}

// SystemTree implements ProcessTree for the running operating system.
type SystemTree struct{}

// Descendants implements ProcessTree.
func (SystemTree) Descendants(pid int) ([]int, error) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return nil, nil
		}
		return nil, err
	}

	var pids []int
	var walk func(p *process.Process) error
	walk = func(p *process.Process) error {
		children, err := p.Children()
		if err != nil {
			if errors.Is(err, process.ErrorNoChildren) || errors.Is(err, process.ErrorProcessNotRunning) {
				return nil
			}
			return fmt.Errorf("children of %d: %w", p.Pid, err)
		}
		for _, c := range children {
			pids = append(pids, int(c.Pid))
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	return pids, walk(p)
}

// Terminate implements ProcessTree.
func (SystemTree) Terminate(pid int) error {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return ErrProcessGone
		}
		return err
	}
	if err := p.Kill(); err != nil {
		if exists, _ := process.PidExists(int32(pid)); !exists {
			return ErrProcessGone
		}
		return err
	}
	return nil
}

// Name implements ProcessTree.
func (SystemTree) Name(pid int) (string, error) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return "", err
	}
	return p.Name()
}

// ListenerPID implements ProcessTree.
func (SystemTree) ListenerPID(port int) (int, bool, error) {
	conns, err := psnet.Connections("tcp4")
	if err != nil {
		return 0, false, err
	}
	pid, ok := listenerPID(conns, port)
	return pid, ok, nil
}

// listenerPID finds the owner of the listening socket on port. Client
// sockets that happen to use the same local port are ignored.
func listenerPID(conns []psnet.ConnectionStat, port int) (int, bool) {
	for _, c := range conns {
		if c.Status == "LISTEN" && c.Laddr.Port == uint32(port) && c.Pid > 0 {
			return int(c.Pid), true
		}
	}
	return 0, false
}

// sameExecutable reports whether a process name refers to the given executable.
func sameExecutable(processName, name string) bool {
	processName = strings.TrimSuffix(strings.ToLower(processName), ".exe")
	return processName == strings.ToLower(name)
}
