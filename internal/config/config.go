// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	SimulationURL     string        // Base URL of the simulator serving /run-simulation
	SimulationTimeout time.Duration // 0 means no timeout
	DataDir           string        // Directory for runs.db (always absolute)
	RunTTL            time.Duration
	RefreshSchedule   string // Cron spec with seconds; empty disables scheduled runs
	CleanupSchedule   string
	LogLevel          string
	Port              int
	DevMode           bool
	Report            ReportConfig
}

// ReportConfig holds the S3-compatible bucket used to publish chart reports.
type ReportConfig struct {
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
}

// Enabled reports whether a bucket is configured.
func (r ReportConfig) Enabled() bool {
	return r.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir, err := filepath.Abs(getEnv("LOSSDASH_DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	cfg := &Config{
		SimulationURL:     getEnv("SIMULATION_URL", "http://localhost:5000"),
		SimulationTimeout: time.Duration(getEnvAsInt("SIMULATION_TIMEOUT", 0)) * time.Second,
		DataDir:           dataDir,
		RunTTL:            time.Duration(getEnvAsInt("RUN_TTL_HOURS", 168)) * time.Hour,
		RefreshSchedule:   getEnv("REFRESH_SCHEDULE", ""),
		CleanupSchedule:   getEnv("CLEANUP_SCHEDULE", "0 0 3 * * *"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		Port:              getEnvAsInt("GO_PORT", 8080),
		DevMode:           getEnvAsBool("DEV_MODE", false),
		Report: ReportConfig{
			Bucket:          getEnv("REPORT_BUCKET", ""),
			Endpoint:        getEnv("REPORT_ENDPOINT", ""),
			Region:          getEnv("REPORT_REGION", "auto"),
			AccessKeyID:     getEnv("REPORT_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("REPORT_SECRET_ACCESS_KEY", ""),
			Prefix:          getEnv("REPORT_PREFIX", "reports"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// EnsureDataDir creates the data directory.
func (c *Config) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	u, err := url.Parse(c.SimulationURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid SIMULATION_URL: %q", c.SimulationURL)
	}
	if c.SimulationTimeout < 0 {
		return fmt.Errorf("SIMULATION_TIMEOUT must not be negative")
	}
	if c.RunTTL <= 0 {
		return fmt.Errorf("RUN_TTL_HOURS must be positive")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid GO_PORT: %d", c.Port)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
