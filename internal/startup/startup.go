package startup

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"glitzhit/internal/database"
	"glitzhit/internal/logging"
	"glitzhit/internal/workers"

	"github.com/gorilla/mux"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Default sizes.
const (
	DefaultMaxUploadBytes = 512 << 20
	DefaultMaxSynthBytes  = 512 << 20
	DefaultProgressBuffer = 32
)

// Config holds all application configuration
type Config struct {
	Port           string
	MetricsPort    string
	MetricsEnabled bool

	UploadDir   string
	OutputDir   string
	DatabaseDir string

	FFmpegPath  string
	FFprobePath string
	VideoCodec  string
	AudioCodec  string

	AudioSampleFormat string
	AudioSampleRate   int
	AudioChannels     int

	MaxUploadBytes int64
	MaxSynthBytes  int64
	ProgressBuffer int

	// Concurrent synthesis and preview requests.
	SynthWorkers   int
	PreviewWorkers int

	LogStaticFiles  bool
	LogHealthChecks bool

	// Derived paths
	DatabasePath string

	// HistoryEnabled is false when the database directory is not writable.
	HistoryEnabled bool
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	config := &Config{
		Port:              getEnv("PORT", "5000"),
		MetricsPort:       getEnv("METRICS_PORT", "9090"),
		MetricsEnabled:    getEnvBool("METRICS_ENABLED", true),
		UploadDir:         getEnv("UPLOAD_DIR", "uploads"),
		OutputDir:         getEnv("OUTPUT_DIR", filepath.Join("static", "output")),
		DatabaseDir:       getEnv("DATABASE_DIR", "data"),
		FFmpegPath:        getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:       getEnv("FFPROBE_PATH", "ffprobe"),
		VideoCodec:        getEnv("VIDEO_CODEC", "libx264"),
		AudioCodec:        getEnv("AUDIO_CODEC", "aac"),
		AudioSampleFormat: getEnv("AUDIO_SAMPLE_FORMAT", "u8"),
		AudioSampleRate:   getEnvInt("AUDIO_SAMPLE_RATE", 44100),
		AudioChannels:     getEnvInt("AUDIO_CHANNELS", 1),
		MaxUploadBytes:    getEnvInt64("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes),
		MaxSynthBytes:     getEnvInt64("MAX_SYNTH_BYTES", DefaultMaxSynthBytes),
		ProgressBuffer:    getEnvInt("PROGRESS_BUFFER", DefaultProgressBuffer),
		SynthWorkers:      workers.ForCPU("SYNTH_WORKERS", 4),
		PreviewWorkers:    workers.ForMixed("PREVIEW_WORKERS", 8),
		LogStaticFiles:    getEnvBool("LOG_STATIC_FILES", false),
		LogHealthChecks:   getEnvBool("LOG_HEALTH_CHECKS", true),
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	logging.Info("  Log level:         %s", logging.GetLevel())
	logging.Info("  HTTP port:         %s", config.Port)
	logging.Info("  Metrics:           %s (port %s)", enabledString(config.MetricsEnabled), config.MetricsPort)
	logging.Info("  Encoder:           %s (%s/%s)", config.FFmpegPath, config.VideoCodec, config.AudioCodec)
	logging.Info("  Probe:             %s", config.FFprobePath)
	logging.Info("  Default audio:     %s %d Hz x%d", config.AudioSampleFormat, config.AudioSampleRate, config.AudioChannels)
	logging.Info("  Max upload:        %d bytes", config.MaxUploadBytes)
	logging.Info("  Max synthesized:   %d bytes", config.MaxSynthBytes)
	logging.Info("  Progress buffer:   %d events", config.ProgressBuffer)
	logging.Info("  Workers:           %d synth, %d preview", config.SynthWorkers, config.PreviewWorkers)
	logging.Info("")

	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	var err error
	for _, dir := range []struct {
		name string
		path *string
	}{
		{"upload", &config.UploadDir},
		{"output", &config.OutputDir},
	} {
		if *dir.path, err = filepath.Abs(*dir.path); err != nil {
			return nil, fmt.Errorf("invalid %s directory path: %w", dir.name, err)
		}
		if err := ensureDirectory(*dir.path, dir.name); err != nil {
			return nil, fmt.Errorf("%s directory error: %w", dir.name, err)
		}
		if err := testWriteAccess(*dir.path); err != nil {
			return nil, fmt.Errorf("%s directory is not writable: %w", dir.name, err)
		}
		logging.Info("  [OK] %-9s %s", dir.name+":", *dir.path)
	}

	if config.DatabaseDir, err = filepath.Abs(config.DatabaseDir); err != nil {
		return nil, fmt.Errorf("invalid database directory path: %w", err)
	}
	config.HistoryEnabled = setupOptionalDir(config.DatabaseDir, "database")
	config.DatabasePath = filepath.Join(config.DatabaseDir, database.FileName)
	if config.HistoryEnabled {
		logging.Info("  [OK] database: %s", config.DatabasePath)
	}

	logging.Info("")
	logging.Info("  Conversion history: %s", enabledString(config.HistoryEnabled))
	logging.Info("")

	return config, nil
}

func (c *Config) validate() error {
	if c.AudioSampleRate <= 0 {
		return fmt.Errorf("AUDIO_SAMPLE_RATE must be positive, got %d", c.AudioSampleRate)
	}
	if c.AudioChannels <= 0 {
		return fmt.Errorf("AUDIO_CHANNELS must be positive, got %d", c.AudioChannels)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	if c.MaxSynthBytes <= 0 {
		return fmt.Errorf("MAX_SYNTH_BYTES must be positive, got %d", c.MaxSynthBytes)
	}
	if c.ProgressBuffer <= 0 {
		return fmt.Errorf("PROGRESS_BUFFER must be positive, got %d", c.ProgressBuffer)
	}
	return nil
}

// setupOptionalDir creates a directory and tests write access.
// Returns true if the directory is usable.
func setupOptionalDir(path, name string) bool {
	if err := os.MkdirAll(path, 0o755); err != nil {
		logging.Warn("    Failed to create %s directory: %v", name, err)
		logging.Warn("    %s will be disabled", name)
		return false
	}

	if err := testWriteAccess(path); err != nil {
		logging.Warn("    %s directory is not writable: %v", name, err)
		logging.Warn("    %s will be disabled", name)
		return false
	}

	logging.Debug("    [OK] %s directory ready", name)
	return true
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(duration time.Duration, err error) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DATABASE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	if err != nil {
		logging.Warn("  Database unavailable: %v", err)
		logging.Warn("  Conversion history will not be recorded")
		return
	}
	logging.Info("  [OK] Database initialized in %v", duration)
}

// LogTranscoderInit logs transcoder initialization and checks the encoder binaries.
func LogTranscoderInit(ffmpegPath, ffprobePath string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("TRANSCODER INITIALIZATION")
	logging.Info("------------------------------------------------------------")

	if err := checkBinary(ffmpegPath); err != nil {
		logging.Warn("  FFmpeg check failed: %v", err)
		logging.Warn("  Conversion jobs will fail until %s is installed", ffmpegPath)
	} else {
		logging.Info("  [OK] FFmpeg is available")
	}

	if err := checkBinary(ffprobePath); err != nil {
		logging.Warn("  FFprobe check failed: %v", err)
		logging.Warn("  Output info will not be available")
	} else {
		logging.Info("  [OK] FFprobe is available")
	}
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			// Route might not have methods specified (e.g., static file server)
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logStaticFiles, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))
		logging.Debug("")

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}

			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
			logging.Debug("")
		}
	}

	logging.Info("  HTTP logging enabled")
	if logStaticFiles {
		logging.Info("    Static file logging: ON")
	} else {
		logging.Info("    Static file logging: OFF (set LOG_STATIC_FILES=true to enable)")
	}
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	first := parts[0]

	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}

	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Application:   http://0.0.0.0:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

func printBanner() {
	banner := `
------------------------------------------------------------
        ___ _ _       _    _ _
   __ _| (_) |_ ___ | |__ (_) |_
  / _' | | | __|_  /| '_ \| | __|
 | (_| | | | |_ / / | | | | | |_
  \__, |_|_|\__/___||_| |_|_|\__|
  |___/
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if logging.IsDebugEnabled() {
		logging.Debug("  Goroutines:      %d", runtime.NumGoroutine())

		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	if logging.IsDebugEnabled() {
		if entries, err := os.ReadDir(path); err == nil {
			logging.Debug("    [OK] Directory exists (%d leftover artifacts)", len(entries))
		}
	}
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

// checkBinary resolves an encoder binary and logs the first line of its -version output.
func checkBinary(name string) error {
	path, err := exec.LookPath(name)
	if err != nil {
		return fmt.Errorf("%s not found in PATH", name)
	}
	logging.Debug("  %s path: %s", name, path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, path, "-version").Output()
	if err != nil {
		return fmt.Errorf("failed to get %s version: %w", name, err)
	}

	if line, _, _ := strings.Cut(string(output), "\n"); line != "" {
		logging.Debug("  %s version: %s", name, strings.TrimSpace(line))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
