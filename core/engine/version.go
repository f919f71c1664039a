package engine

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"v2ray-launcher/internal/debuglog"
	"v2ray-launcher/internal/platform"
)

// Output formats: "V2Ray 5.16.1 (V2Fly, ...)" and "Xray 1.8.24 (Xray, Penetrates Everything.) ...".
var versionRegex = regexp.MustCompile(`(?i)\b(?:v2ray|xray)\s+v?(\d+\.\d+(?:\.\d+)?\S*)`)

// InstalledVersion runs the engine binary and parses its version line.
func InstalledVersion(enginePath string) (string, error) {
	if _, err := os.Stat(enginePath); os.IsNotExist(err) {
		return "", fmt.Errorf("engine not found at %s", enginePath)
	}

	// v5 takes a subcommand, v4 and xray older builds a flag
	var output []byte
	var err error
	for _, arg := range []string{"version", "-version"} {
		cmd := execCommand(enginePath, arg)
		platform.PrepareCommand(cmd)
		output, err = cmd.CombinedOutput()
		if err == nil {
			break
		}
		debuglog.DebugLog("InstalledVersion: %s %s failed: %v", enginePath, arg, err)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get version: %w", err)
	}

	if v, ok := parseVersion(string(output)); ok {
		return v, nil
	}
	return "", fmt.Errorf("unable to parse version from output: %s", strings.TrimSpace(string(output)))
}

func parseVersion(output string) (string, bool) {
	matches := versionRegex.FindStringSubmatch(output)
	if len(matches) < 2 {
		return "", false
	}
	return matches[1], true
}
