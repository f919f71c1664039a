package services

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewFileService(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "app")
	fs, err := NewFileService(dir)
	if err != nil {
		t.Fatalf("NewFileService returned error: %v", err)
	}
	if fs.ConfigPath != filepath.Join(dir, "config.json") {
		t.Errorf("unexpected ConfigPath %q", fs.ConfigPath)
	}
	if fs.TestConfigPath != filepath.Join(dir, "test-config.json") {
		t.Errorf("unexpected TestConfigPath %q", fs.TestConfigPath)
	}
	if fs.TestLockPath != filepath.Join(dir, "test-engine.lock") {
		t.Errorf("unexpected TestLockPath %q", fs.TestLockPath)
	}
	if info, err := os.Stat(fs.LogsDir); err != nil || !info.IsDir() {
		t.Errorf("logs dir not created: %v", err)
	}
}

func TestOpenAndCloseLogFiles(t *testing.T) {
	fs, err := NewFileService(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileService returned error: %v", err)
	}
	if err := fs.OpenLogFiles(); err != nil {
		t.Fatalf("OpenLogFiles returned error: %v", err)
	}
	if fs.MainLogFile == nil || fs.MainEngineLogFile == nil || fs.TestEngineLogFile == nil {
		t.Fatal("expected all log files to be open")
	}
	fs.CloseLogFiles()
	if fs.MainLogFile != nil || fs.MainEngineLogFile != nil || fs.TestEngineLogFile != nil {
		t.Error("expected log handles to be cleared")
	}
}

func TestCheckAndRotateLogFile(t *testing.T) {
	fs := &FileService{}
	path := filepath.Join(t.TempDir(), "big.log")
	if err := os.WriteFile(path, make([]byte, maxLogFileSize+1), 0o644); err != nil {
		t.Fatal(err)
	}

	fs.CheckAndRotateLogFile(path)

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected %s to be rotated away, stat err = %v", path, err)
	}
	if info, err := os.Stat(path + ".old"); err != nil || info.Size() != maxLogFileSize+1 {
		t.Errorf("expected rotated file with original size, err = %v", err)
	}

	small := filepath.Join(t.TempDir(), "small.log")
	if err := os.WriteFile(small, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	fs.CheckAndRotateLogFile(small)
	if _, err := os.Stat(small); err != nil {
		t.Errorf("small file should stay in place: %v", err)
	}
}
