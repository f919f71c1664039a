//go:build windows

package platform

import (
	"os/exec"
	"strconv"
	"syscall"

	"v2ray-launcher/internal/constants"
)

// KillProcessByPID kills a process by PID
func KillProcessByPID(pid int) error {
	cmd := exec.Command("taskkill", "/PID", strconv.Itoa(pid), "/F", "/T")
	PrepareCommand(cmd)
	return cmd.Run()
}

// PrepareCommand hides the console window of child processes
func PrepareCommand(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: 0x08000000, // CREATE_NO_WINDOW
	}
}

// GetProcessNameForCheck returns the process name used for stray-process lookup
func GetProcessNameForCheck() string {
	return constants.EngineProcessNameWindows
}
