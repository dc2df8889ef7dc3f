package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config holds all process-level configuration values.
type Config struct {
	// SurrealDB connection
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// Storage layout
	BasePath     string // uploads/, transcribed/, templates/ live below this
	SettingsPath string // mutable runtime settings (config.json)
	PricingPath  string // LLM model pricing catalog (llm_models.json)

	// Local whisper service
	WhisperURL string

	// HTTP server
	ListenAddr string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables with local-first defaults.
func Load() Config {
	home, _ := os.UserHomeDir()
	stateDir := filepath.Join(home, ".scribeflow")

	return Config{
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "scribeflow"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "jobs"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		BasePath:     getEnv("SCRIBEFLOW_BASE_PATH", filepath.Join(home, "Transcriptions")),
		SettingsPath: getEnv("SCRIBEFLOW_SETTINGS_PATH", filepath.Join(stateDir, "config.json")),
		PricingPath:  getEnv("SCRIBEFLOW_PRICING_PATH", filepath.Join(stateDir, "llm_models.json")),

		WhisperURL: getEnv("SCRIBEFLOW_WHISPER_URL", "http://localhost:9000"),

		ListenAddr: getEnv("SCRIBEFLOW_LISTEN", "127.0.0.1:8090"),

		LogFile:  getEnv("SCRIBEFLOW_LOG_FILE", filepath.Join(stateDir, "scribeflow.log")),
		LogLevel: parseLogLevel(getEnv("SCRIBEFLOW_LOG_LEVEL", "INFO")),
	}
}

// UploadsPath is where incoming audio files are stored.
func (c Config) UploadsPath() string { return filepath.Join(c.BasePath, "uploads") }

// TranscribedPath holds per-job output directories.
func (c Config) TranscribedPath() string { return filepath.Join(c.BasePath, "transcribed") }

// TemplatesPath holds user-defined cleanup templates.
func (c Config) TemplatesPath() string { return filepath.Join(c.BasePath, "templates") }

// InsightTemplatesPath holds user-defined insight templates.
func (c Config) InsightTemplatesPath() string {
	return filepath.Join(c.BasePath, "insight-templates")
}

// EnsureDirectories creates the storage layout.
func (c Config) EnsureDirectories() error {
	for _, p := range []string{
		c.UploadsPath(), c.TranscribedPath(),
		c.TemplatesPath(), c.InsightTemplatesPath(),
		filepath.Dir(c.SettingsPath),
	} {
		if err := os.MkdirAll(p, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
