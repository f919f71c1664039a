package services

import (
	"fmt"
	"os"
	"path/filepath"

	"v2ray-launcher/internal/constants"
	"v2ray-launcher/internal/debuglog"
	"v2ray-launcher/internal/platform"
)

// FileService manages file paths and log file handles.
type FileService struct {
	ConfigDir      string
	ConfigPath     string
	TestConfigPath string
	TestLockPath   string
	SettingsPath   string
	LogsDir        string

	MainLogFile       *os.File
	MainEngineLogFile *os.File
	TestEngineLogFile *os.File
}

// NewFileService resolves the application directory (creating it if needed).
// An empty configDir means the platform default.
func NewFileService(configDir string) (*FileService, error) {
	if configDir == "" {
		dir, err := platform.GetAppConfigDir()
		if err != nil {
			return nil, fmt.Errorf("NewFileService: cannot determine config dir: %w", err)
		}
		configDir = dir
	}

	if err := platform.EnsureDirectories(configDir); err != nil {
		return nil, fmt.Errorf("NewFileService: cannot create directories: %w", err)
	}

	return &FileService{
		ConfigDir:      configDir,
		ConfigPath:     platform.GetConfigPath(configDir),
		TestConfigPath: platform.GetTestConfigPath(configDir),
		TestLockPath:   platform.GetTestLockPath(configDir),
		SettingsPath:   filepath.Join(configDir, constants.SettingsFileName),
		LogsDir:        platform.GetLogsDir(configDir),
	}, nil
}

// OpenLogFiles opens the launcher log and both engine logs with rotation support.
// Only the launcher log is mandatory.
func (fs *FileService) OpenLogFiles() error {
	mainLog, err := fs.OpenLogFileWithRotation(filepath.Join(fs.LogsDir, constants.MainLogFileName))
	if err != nil {
		return fmt.Errorf("OpenLogFiles: cannot open main log file: %w", err)
	}
	fs.MainLogFile = mainLog

	if f, err := fs.OpenLogFileWithRotation(filepath.Join(fs.LogsDir, constants.MainEngineLogFileName)); err != nil {
		debuglog.WarnLog("OpenLogFiles: failed to open engine log file: %v", err)
	} else {
		fs.MainEngineLogFile = f
	}

	if f, err := fs.OpenLogFileWithRotation(filepath.Join(fs.LogsDir, constants.TestEngineLogFileName)); err != nil {
		debuglog.WarnLog("OpenLogFiles: failed to open test engine log file: %v", err)
	} else {
		fs.TestEngineLogFile = f
	}

	return nil
}

// CloseLogFiles closes all log files.
func (fs *FileService) CloseLogFiles() {
	for _, f := range []**os.File{&fs.MainLogFile, &fs.MainEngineLogFile, &fs.TestEngineLogFile} {
		if *f != nil {
			debuglog.CloseWithLog("CloseLogFiles", *f)
			*f = nil
		}
	}
}

// OpenLogFileWithRotation opens a log file in append mode, rotating it first if it is too large.
func (fs *FileService) OpenLogFileWithRotation(logPath string) (*os.File, error) {
	fs.CheckAndRotateLogFile(logPath)
	return os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

const maxLogFileSize = 2 * 1024 * 1024 // 2 MB

// CheckAndRotateLogFile renames logPath to logPath.old once it exceeds maxLogFileSize.
func (fs *FileService) CheckAndRotateLogFile(logPath string) {
	info, err := os.Stat(logPath)
	if err != nil {
		return
	}
	if info.Size() <= maxLogFileSize {
		return
	}

	oldPath := logPath + ".old"
	_ = os.Remove(oldPath)
	if err := os.Rename(logPath, oldPath); err != nil {
		debuglog.WarnLog("CheckAndRotateLogFile: Failed to rotate log file %s: %v", logPath, err)
		return
	}
	debuglog.InfoLog("CheckAndRotateLogFile: Rotated log file %s (size: %d bytes)", logPath, info.Size())
}
