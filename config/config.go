package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"warden/database"
	"warden/domain/entities"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultEnvFile is loaded when present and no other file is named
const DefaultEnvFile = "SETTINGS.env"

// Config holds all application configuration
type Config struct {
	// Discord configuration
	ControlToken   string   `env:"CONTROL_TOKEN"`
	WorkerTokens   []string `env:"WORKER_TOKENS" envSeparator:","`
	WorkerPrefixes []string `env:"WORKER_PREFIXES" envSeparator:"," envDefault:"music1,music2,music3"`
	CommandPrefix  string   `env:"COMMAND_PREFIX" envDefault:"-"`

	// Database configuration
	DatabaseURL  string `env:"DATABASE_URL"`
	DatabaseName string `env:"DATABASE_NAME"`

	// NATS configuration
	NATSServers string `env:"NATS_SERVERS"` // Empty disables the event feed

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`

	// OpenTelemetry metrics
	OTelEnabled        bool          `env:"OTEL_ENABLED" envDefault:"false"`
	OTelServiceName    string        `env:"OTEL_SERVICE_NAME" envDefault:"warden"`
	OTelExporterType   string        `env:"OTEL_EXPORTER_TYPE" envDefault:"console"` // "console", "otlp" or "none"
	OTelOTLPEndpoint   string        `env:"OTEL_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	OTelExportInterval time.Duration `env:"OTEL_EXPORT_INTERVAL" envDefault:"60s"`

	// Maintenance
	PendingRegistrationTTL time.Duration `env:"PENDING_REGISTRATION_TTL" envDefault:"168h"`
	MaintenanceInterval    time.Duration `env:"MAINTENANCE_INTERVAL" envDefault:"1h"`

	// Media
	YtDlpPath  string `env:"YTDLP_PATH" envDefault:"yt-dlp"`
	FFmpegPath string `env:"FFMPEG_PATH" envDefault:"ffmpeg"`

	// Environment
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = Load()
		if err != nil {
			if os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// Init loads the configuration and installs it as the global instance
func Init() (*Config, error) {
	config, err := Load()
	if err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	instance = config
	return config, nil
}

// LoadEnvFile loads variables from a dotenv file without overriding ones
// already set. An empty path loads DefaultEnvFile when it exists.
func LoadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(DefaultEnvFile); err != nil {
			return nil
		}
		path = DefaultEnvFile
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Load parses configuration from environment variables
func Load() (*Config, error) {
	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	config.WorkerTokens = trimAll(config.WorkerTokens)
	config.WorkerPrefixes = trimAll(config.WorkerPrefixes)

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func trimAll(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (c *Config) validate() error {
	if c.Environment == "test" {
		return nil
	}

	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if len(c.WorkerPrefixes) == 0 {
		return errors.New("WORKER_PREFIXES must name at least one worker")
	}

	seen := make(map[string]struct{}, len(c.WorkerPrefixes))
	for _, p := range c.WorkerPrefixes {
		if strings.ContainsAny(p, " \t\n") {
			return fmt.Errorf("worker prefix %q must not contain whitespace", p)
		}
		if _, dup := seen[p]; dup {
			return fmt.Errorf("worker prefix %q is listed twice", p)
		}
		seen[p] = struct{}{}
	}

	if c.CommandPrefix == "" {
		return errors.New("COMMAND_PREFIX must not be empty")
	}
	return nil
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// Prefixes returns the configured worker prefixes in pool order
func (c *Config) Prefixes() []entities.WorkerPrefix {
	prefixes := make([]entities.WorkerPrefix, len(c.WorkerPrefixes))
	for i, p := range c.WorkerPrefixes {
		prefixes[i] = entities.WorkerPrefix(p)
	}
	return prefixes
}

// RequireControlToken returns the control bot token
func (c *Config) RequireControlToken() (string, error) {
	if c.ControlToken == "" {
		return "", errors.New("CONTROL_TOKEN is required")
	}
	return c.ControlToken, nil
}

// Worker returns the token and prefix of the worker at index
func (c *Config) Worker(index int) (string, entities.WorkerPrefix, error) {
	if index < 0 || index >= len(c.WorkerPrefixes) {
		return "", "", fmt.Errorf("worker index %d out of range: %d workers configured", index, len(c.WorkerPrefixes))
	}
	if index >= len(c.WorkerTokens) {
		return "", "", fmt.Errorf("WORKER_TOKENS has no token for worker %d", index)
	}
	return c.WorkerTokens[index], entities.WorkerPrefix(c.WorkerPrefixes[index]), nil
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:            "test",
		WorkerPrefixes:         []string{"music1", "music2", "music3"},
		WorkerTokens:           []string{"t1", "t2", "t3"},
		CommandPrefix:          "-",
		LogLevel:               "info",
		OTelServiceName:        "warden",
		OTelExporterType:       "none",
		OTelExportInterval:     time.Minute,
		PendingRegistrationTTL: 168 * time.Hour,
		MaintenanceInterval:    time.Hour,
		YtDlpPath:              "yt-dlp",
		FFmpegPath:             "ffmpeg",
	}
}
