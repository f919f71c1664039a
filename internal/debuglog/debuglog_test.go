package debuglog

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		raw      string
		expected Level
	}{
		{"trace", LevelTrace},
		{"DEBUG", LevelVerbose},
		{"verbose", LevelVerbose},
		{" info ", LevelInfo},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"off", LevelOff},
		{"", LevelInfo},
		{"garbage", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.raw); got != tt.expected {
			t.Errorf("ParseLevel(%q) = %d, expected %d", tt.raw, got, tt.expected)
		}
	}
}

func TestLogRespectsLevel(t *testing.T) {
	oldLevel := GlobalLevel
	defer func() {
		GlobalLevel = oldLevel
		base = newLogger(os.Stderr)
	}()

	var buf bytes.Buffer
	Init(&buf, "warn")
	buf.Reset()

	InfoLog("hidden %d", 1)
	WarnLog("visible %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden 1") {
		t.Errorf("info message should be filtered at warn level, got %q", out)
	}
	if !strings.Contains(out, "visible 2") {
		t.Errorf("warn message missing from output %q", out)
	}
}

type failingCloser struct{ called bool }

func (f *failingCloser) Close() error {
	f.called = true
	return errors.New("boom")
}

func TestCloseWithLog(t *testing.T) {
	oldLevel := GlobalLevel
	defer func() {
		GlobalLevel = oldLevel
		base = newLogger(os.Stderr)
	}()

	var buf bytes.Buffer
	Init(&buf, "info")

	CloseWithLog("nil closer", nil)

	c := &failingCloser{}
	CloseWithLog("test closer", c)
	if !c.called {
		t.Fatal("Close was not called")
	}
	if !strings.Contains(buf.String(), "test closer: boom") {
		t.Errorf("expected close error in log, got %q", buf.String())
	}
}

func TestWithComponent(t *testing.T) {
	oldLevel := GlobalLevel
	defer func() {
		GlobalLevel = oldLevel
		base = newLogger(os.Stderr)
	}()

	var buf bytes.Buffer
	Init(&buf, "info")
	buf.Reset()

	log := WithComponent("latency")
	log.Debug().Msg("filtered")
	log.Info().Int64("endpoint", 7).Msg("probe finished")

	out := buf.String()
	if strings.Contains(out, "filtered") {
		t.Errorf("debug event should be filtered at info level, got %q", out)
	}
	for _, want := range []string{"component=latency", "endpoint=7", "probe finished"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q is missing %q", out, want)
		}
	}
}
