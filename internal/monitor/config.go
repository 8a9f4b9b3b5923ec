// internal/monitor/config.go

package monitor

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalidRoot is returned when the watch root is missing or not a directory.
var ErrInvalidRoot = errors.New("invalid watch root")

const (
	DefaultPollIntervalSeconds = 5
	DefaultLogFile             = "status_log.txt"
)

// init loads environment variables from .env (if present).
func init() {
	_ = godotenv.Load()
}

// Config holds monitor configuration
type Config struct {
	RootPath            string `yaml:"root"`
	PollIntervalSeconds int    `yaml:"pollIntervalSeconds"`
	LogFile             string `yaml:"logFile"`
	Watch               bool   `yaml:"watch"`

	// Mirror settings; Sink nil disables mirroring.
	Sink                 EventSink `yaml:"-"`
	BatchSize            int       `yaml:"batchSize"`
	BatchIntervalSeconds int       `yaml:"batchIntervalSeconds"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		RootPath:             ".",
		PollIntervalSeconds:  DefaultPollIntervalSeconds,
		LogFile:              DefaultLogFile,
		BatchSize:            50,
		BatchIntervalSeconds: 10,
	}
}

// ApplyEnv overrides fields from MONITOR_* environment variables.
func (c *Config) ApplyEnv() error {
	if root := os.Getenv("MONITOR_ROOT"); root != "" {
		c.RootPath = root
	}
	if logFile := os.Getenv("MONITOR_LOG_FILE"); logFile != "" {
		c.LogFile = logFile
	}
	if v := os.Getenv("MONITOR_POLL_INTERVAL_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MONITOR_POLL_INTERVAL_SECONDS: %w", err)
		}
		c.PollIntervalSeconds = n
	}
	return nil
}

// LoadFile overlays the YAML file at path onto c. Keys absent from the file
// keep their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// PollInterval returns the reconciliation interval.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// BatchInterval returns the mirror flush interval.
func (c Config) BatchInterval() time.Duration {
	return time.Duration(c.BatchIntervalSeconds) * time.Second
}

// Validate checks the configuration before any worker is started.
func (c Config) Validate() error {
	info, err := os.Stat(c.RootPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrInvalidRoot, c.RootPath)
	}
	if c.PollIntervalSeconds <= 0 {
		return fmt.Errorf("pollIntervalSeconds must be positive, got %d", c.PollIntervalSeconds)
	}
	if c.LogFile == "" {
		return errors.New("log file must be set")
	}
	return nil
}
