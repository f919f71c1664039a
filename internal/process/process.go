package process

import (
	"strings"

	"github.com/mitchellh/go-ps"
)

// ProcessInfo is a small struct representing a running process.
type ProcessInfo struct {
	PID  int
	Name string
}

// lister is swapped in tests.
var lister = ps.Processes

// GetProcesses returns a list of running processes in a platform-agnostic format.
func GetProcesses() ([]ProcessInfo, error) {
	procs, err := lister()
	if err != nil {
		return nil, err
	}
	out := make([]ProcessInfo, 0, len(procs))
	for _, p := range procs {
		out = append(out, ProcessInfo{PID: p.Pid(), Name: p.Executable()})
	}
	return out, nil
}

// FindProcess looks up a process by PID and returns it with a boolean indicating whether it was found.
func FindProcess(pid int) (ProcessInfo, bool, error) {
	procs, err := GetProcesses()
	if err != nil {
		return ProcessInfo{}, false, err
	}
	for _, p := range procs {
		if p.PID == pid {
			return p, true, nil
		}
	}
	return ProcessInfo{}, false, nil
}

// FindByName returns every running process whose executable name matches name (case-insensitive).
func FindByName(name string) ([]ProcessInfo, error) {
	procs, err := GetProcesses()
	if err != nil {
		return nil, err
	}
	var out []ProcessInfo
	for _, p := range procs {
		if strings.EqualFold(p.Name, name) {
			out = append(out, p)
		}
	}
	return out, nil
}
