// Package debuglog provides leveled logging for the launcher on top of zerolog.
// The level is taken from V2L_DEBUG unless Init is called with an explicit one.
package debuglog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Level uint8

const (
	LevelOff Level = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelVerbose
	LevelTrace

	UseGlobal Level = 255
)

const envKey = "V2L_DEBUG"

var (
	GlobalLevel = ParseLevel(os.Getenv(envKey))

	base = newLogger(os.Stderr)
)

// ParseLevel converts a textual level into a Level. Unknown values fall back to LevelInfo.
func ParseLevel(raw string) Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return LevelTrace
	case "verbose", "debug":
		return LevelVerbose
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "off":
		return LevelOff
	default:
		return LevelInfo
	}
}

func newLogger(w io.Writer) zerolog.Logger {
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}
	console := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	return zerolog.New(console).Level(zerolog.TraceLevel).With().Timestamp().Logger()
}

// Init redirects log output to w. An empty level keeps the current GlobalLevel.
func Init(w io.Writer, level string) {
	if w == nil {
		w = os.Stderr
	}
	base = newLogger(w)
	if strings.TrimSpace(level) != "" {
		GlobalLevel = ParseLevel(level)
	}
	InfoLog("debuglog: logger initialized (level %d)", GlobalLevel)
}

// WithComponent returns a structured logger tagged with the component name.
// Its level follows GlobalLevel at the time of the call.
func WithComponent(name string) zerolog.Logger {
	return base.With().Str("component", name).Logger().Level(toZerolog(GlobalLevel))
}

func toZerolog(level Level) zerolog.Level {
	switch level {
	case LevelOff:
		return zerolog.Disabled
	case LevelError:
		return zerolog.ErrorLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelVerbose:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

func Log(prefix string, level Level, local Level, format string, args ...interface{}) {
	if !ShouldLog(level, local) || level == LevelOff {
		return
	}
	event := base.WithLevel(toZerolog(level))
	if prefix != "" {
		event = event.Str("component", prefix)
	}
	event.Msg(fmt.Sprintf(format, args...))
}

func ShouldLog(level Level, local Level) bool {
	effective := GlobalLevel
	if local != UseGlobal {
		effective = local
	}
	return level <= effective
}

func ErrorLog(format string, args ...interface{}) {
	Log("", LevelError, UseGlobal, format, args...)
}

func WarnLog(format string, args ...interface{}) {
	Log("", LevelWarn, UseGlobal, format, args...)
}

func InfoLog(format string, args ...interface{}) {
	Log("", LevelInfo, UseGlobal, format, args...)
}

func DebugLog(format string, args ...interface{}) {
	Log("", LevelVerbose, UseGlobal, format, args...)
}

// LogTextFragment logs a text, trimming the middle of long inputs so logs stay readable.
func LogTextFragment(prefix string, level Level, local Level, description, text string, maxChars int) {
	if !ShouldLog(level, local) {
		return
	}

	textLen := len(text)
	if textLen <= maxChars*2 {
		Log(prefix, level, local, "%s (len=%d): %s", description, textLen, text)
		return
	}

	Log(prefix, level, local, "%s (len=%d): first %d chars: %s",
		description, textLen, maxChars, text[:maxChars])
	Log(prefix, level, local, "%s (len=%d): last %d chars: %s",
		description, textLen, maxChars, text[textLen-maxChars:])
}
