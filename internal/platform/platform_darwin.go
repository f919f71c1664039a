//go:build darwin

package platform

import (
	"os/exec"
	"strconv"

	"v2ray-launcher/internal/constants"
)

// KillProcessByPID kills a process by PID
func KillProcessByPID(pid int) error {
	return exec.Command("kill", "-9", strconv.Itoa(pid)).Run()
}

// PrepareCommand prepares a command with platform-specific attributes
func PrepareCommand(cmd *exec.Cmd) {}

// GetProcessNameForCheck returns the process name used for stray-process lookup
func GetProcessNameForCheck() string {
	return constants.EngineProcessNameUnix
}
