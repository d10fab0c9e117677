package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BRAIN_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	// A BRAIN_CONFIG pointing at a missing file is an explicit request
	// and must error, unlike the absent default file.
	if _, err := Load(); err == nil {
		t.Fatal("expected error for explicit missing config file")
	}

	t.Setenv("BRAIN_CONFIG", "")
	t.Setenv("HOME", t.TempDir()) // no default config file either

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServerURL != "http://localhost:8690" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.UploadConcurrency != 4 {
		t.Errorf("UploadConcurrency = %d, want 4", cfg.UploadConcurrency)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
}

func TestLoad_FileThenEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "server_url: http://brain.internal:9000\ndefault_tenant: t42\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("BRAIN_CONFIG", path)
	t.Setenv("BRAIN_SERVER_URL", "http://override.local")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServerURL != "http://override.local" {
		t.Errorf("env should win over file, got %q", cfg.ServerURL)
	}
	if cfg.DefaultTenant != "t42" {
		t.Errorf("DefaultTenant = %q, want t42", cfg.DefaultTenant)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"Warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
