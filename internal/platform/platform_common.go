package platform

import (
	"os"
	"path/filepath"

	"v2ray-launcher/internal/constants"
)

// GetAppConfigDir returns the application-scoped config directory.
// V2L_HOME overrides the OS user config location.
func GetAppConfigDir() (string, error) {
	if home := os.Getenv("V2L_HOME"); home != "" {
		return home, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, constants.AppDirName), nil
}

// GetConfigPath returns the path to the live engine config
func GetConfigPath(configDir string) string {
	return filepath.Join(configDir, constants.ConfigFileName)
}

// GetTestConfigPath returns the path to the probe engine config
func GetTestConfigPath(configDir string) string {
	return filepath.Join(configDir, constants.TestConfigFileName)
}

// GetTestLockPath returns the path of the lock file guarding the probe engine
func GetTestLockPath(configDir string) string {
	return filepath.Join(configDir, constants.TestLockFileName)
}

// GetLogsDir returns the path to logs directory
func GetLogsDir(configDir string) string {
	return filepath.Join(configDir, constants.LogsDirName)
}

// EnsureDirectories creates necessary directories if they don't exist
func EnsureDirectories(configDir string) error {
	dirs := []string{
		configDir,
		GetLogsDir(configDir),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
