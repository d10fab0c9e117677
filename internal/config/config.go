// Package config loads braincli configuration from the environment and
// an optional YAML config file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration values.
type Config struct {
	// Backend connection
	ServerURL string `yaml:"server_url"`

	// Default tenant for commands that take none
	DefaultTenant string `yaml:"default_tenant"`

	// Upload pipeline
	UploadConcurrency int `yaml:"upload_concurrency"`

	// Logging
	LogFile  string     `yaml:"log_file"`
	LogLevel slog.Level `yaml:"-"`

	// Raw level string from the file, merged with BRAIN_LOG_LEVEL.
	LogLevelName string `yaml:"log_level"`
}

// Load reads configuration: defaults, then the config file (if any),
// then environment variables, later sources winning.
func Load() (Config, error) {
	cfg := Config{
		ServerURL:         "http://localhost:8690",
		UploadConcurrency: 4,
		LogFile:           "/tmp/braincli.log",
		LogLevelName:      "INFO",
	}

	if path := configFilePath(); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if v := os.Getenv("BRAIN_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv("BRAIN_DEFAULT_TENANT"); v != "" {
		cfg.DefaultTenant = v
	}
	if v := os.Getenv("BRAIN_UPLOAD_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.UploadConcurrency = n
		}
	}
	if v := os.Getenv("BRAIN_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("BRAIN_LOG_LEVEL"); v != "" {
		cfg.LogLevelName = v
	}

	cfg.LogLevel = parseLogLevel(cfg.LogLevelName)
	return cfg, nil
}

// configFilePath returns the config file to read, or "" when none
// exists. BRAIN_CONFIG overrides the default location.
func configFilePath() string {
	if path := os.Getenv("BRAIN_CONFIG"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(home, ".config", "braincli", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
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
