package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/muhammadmuzzammil1998/jsonc"

	"v2ray-launcher/internal/constants"
)

// Settings is the launcher configuration read from launcher.json.
// The file is JSONC: comments and trailing commas are accepted.
type Settings struct {
	EnginePath       string `json:"engine_path"`
	MainPort         int    `json:"main_port"`
	TestPort         int    `json:"test_port"`
	DatabaseURL      string `json:"database_url"`
	DBMaxConns       int    `json:"db_max_conns"`
	LogLevel         string `json:"log_level"`
	SettleMS         int    `json:"settle_ms"`
	ReadyTimeoutMS   int    `json:"ready_timeout_ms"`
	MeasureURL       string `json:"measure_url"`
	MeasureTimeoutMS int    `json:"measure_timeout_ms"`
	MeasureRetries   int    `json:"measure_retries"`
	MetricsAddr      string `json:"metrics_addr"`
	STUNServer       string `json:"stun_server"`
}

// DefaultSettings returns the settings used when launcher.json is absent.
func DefaultSettings() Settings {
	return Settings{
		EnginePath:       "/usr/bin/" + constants.EngineExecName,
		MainPort:         constants.DefaultMainPort,
		TestPort:         constants.DefaultTestPort,
		DBMaxConns:       4,
		LogLevel:         "info",
		SettleMS:         50,
		ReadyTimeoutMS:   2000,
		MeasureURL:       constants.DefaultMeasureURL,
		MeasureTimeoutMS: 5000,
		MeasureRetries:   2,
		STUNServer:       constants.DefaultSTUNServer,
	}
}

// Settle is the pause after stopping and after starting the test engine.
func (s Settings) Settle() time.Duration { return time.Duration(s.SettleMS) * time.Millisecond }

// ReadyTimeout bounds the wait for the test listener to accept connections.
func (s Settings) ReadyTimeout() time.Duration {
	return time.Duration(s.ReadyTimeoutMS) * time.Millisecond
}

// MeasureTimeout bounds one delay measurement request.
func (s Settings) MeasureTimeout() time.Duration {
	return time.Duration(s.MeasureTimeoutMS) * time.Millisecond
}

// Validate reports the first invalid field.
func (s Settings) Validate() error {
	switch {
	case s.EnginePath == "":
		return errors.New("engine_path is required")
	case s.MainPort <= 0 || s.MainPort > 65535:
		return fmt.Errorf("main_port %d out of range", s.MainPort)
	case s.TestPort <= 0 || s.TestPort > 65535:
		return fmt.Errorf("test_port %d out of range", s.TestPort)
	case s.MainPort == s.TestPort:
		return fmt.Errorf("main_port and test_port must differ (both %d)", s.MainPort)
	case s.SettleMS < 0 || s.ReadyTimeoutMS < 0 || s.MeasureTimeoutMS <= 0:
		return errors.New("timing values must not be negative and measure_timeout_ms must be positive")
	case s.MeasureRetries < 0:
		return errors.New("measure_retries must not be negative")
	}
	return nil
}

// LoadSettings reads settings from path over the defaults. A missing file is
// not an error. DATABASE_URL, V2L_ENGINE and V2L_LOG_LEVEL override the file.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()

	cleanData, err := getConfigJSON(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(cleanData, &s); err != nil {
			return s, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return s, err
	}

	overrideFromEnv(&s.DatabaseURL, "DATABASE_URL")
	overrideFromEnv(&s.EnginePath, "V2L_ENGINE")
	overrideFromEnv(&s.LogLevel, "V2L_LOG_LEVEL")

	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

// ReadEngineConfig parses an engine config file written by WriteConfigFile or edited by hand.
func ReadEngineConfig(path string) (EngineConfig, error) {
	var cfg EngineConfig
	cleanData, err := getConfigJSON(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(cleanData, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func overrideFromEnv(target *string, envName string) {
	if v := strings.TrimSpace(os.Getenv(envName)); v != "" {
		*target = v
	}
}

var reTrailingCommas = regexp.MustCompile(`,(\s*[\]\}])`)

func removeTrailingCommas(data []byte) []byte {
	return reTrailingCommas.ReplaceAll(data, []byte("$1"))
}

// getConfigJSON reads a JSONC file and returns JSON safe to parse.
// Trailing commas are removed before and after jsonc so cases like `, // comment \n ]` are fixed too.
func getConfigJSON(configPath string) ([]byte, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	data = removeTrailingCommas(data)
	cleanData := jsonc.ToJSON(data)
	cleanData = removeTrailingCommas(cleanData)
	return cleanData, nil
}
