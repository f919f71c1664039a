package constants

// File names
const (
	ConfigFileName     = "config.json"
	TestConfigFileName = "test-config.json"
	TestLockFileName   = "test-engine.lock"
	SettingsFileName   = "launcher.json"
	EngineExecName     = "v2ray"
)

// Directory names
const (
	AppDirName  = "v2ray-launcher"
	LogsDirName = "logs"
)

// Log file names
const (
	MainLogFileName       = "v2ray-launcher.log"
	MainEngineLogFileName = "v2ray.log"
	TestEngineLogFileName = "v2ray-test.log"
)

// Process names for checking
const (
	EngineProcessNameWindows = "v2ray.exe"
	EngineProcessNameUnix    = "v2ray"
)

// Network constants
const (
	ListenHost        = "127.0.0.1"
	DefaultMainPort   = 1080
	DefaultTestPort   = 1081
	DefaultMeasureURL = "https://www.google.com/generate_204"
	DefaultSTUNServer = "stun.l.google.com:19302"
)

// Application version
// Can be overridden at build time using -ldflags="-X v2ray-launcher/internal/constants.AppVersion=..."
var (
	AppVersion = "v0.1.0"
)
