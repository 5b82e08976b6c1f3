// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
)

func writeTOMLTo(w io.Writer, cfg *Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}

// TestConfig_Default tests that Default() returns a valid config with defaults.
func TestConfig_Default(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	if cfg.Version == "" {
		t.Error("Default config should have a version")
	}

	if cfg.Relay.URL == "" {
		t.Error("Default config should have a relay URL")
	}

	if cfg.Relay.Port != 8787 {
		t.Errorf("Expected default relay port 8787, got %d", cfg.Relay.Port)
	}

	if cfg.Gateway.Model == "" {
		t.Error("Default config should have a gateway model")
	}

	if cfg.UI.DefaultMode != "budget" {
		t.Errorf("Expected default mode 'budget', got '%s'", cfg.UI.DefaultMode)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate, got: %v", err)
	}
}

// TestConfig_Validate tests configuration validation.
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:    "valid default config",
			config:  Default(),
			wantErr: false,
		},
		{
			name: "invalid relay port",
			config: func() *Config {
				c := Default()
				c.Relay.Port = 99999
				return c
			}(),
			wantErr: true,
		},
		{
			name: "zero rate limit",
			config: func() *Config {
				c := Default()
				c.Relay.RatePerMinute = 0
				return c
			}(),
			wantErr: true,
		},
		{
			name: "invalid upstream scheme",
			config: func() *Config {
				c := Default()
				c.Gateway.UpstreamURL = "ftp://gateway.example.com"
				return c
			}(),
			wantErr: true,
		},
		{
			name: "temperature out of range",
			config: func() *Config {
				c := Default()
				c.Gateway.Temperature = 2.5
				return c
			}(),
			wantErr: true,
		},
		{
			name: "invalid theme",
			config: func() *Config {
				c := Default()
				c.UI.Theme = "invalid"
				return c
			}(),
			wantErr: true,
		},
		{
			name: "unknown default mode",
			config: func() *Config {
				c := Default()
				c.UI.DefaultMode = "astrology"
				return c
			}(),
			wantErr: true,
		},
		{
			name: "zero max conversations",
			config: func() *Config {
				c := Default()
				c.Storage.MaxConversations = 0
				return c
			}(),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestConfig_LoadTOMLPartial tests that missing values are filled with defaults.
func TestConfig_LoadTOMLPartial(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := "[relay]\nport = 9000\n\n[ui]\ntheme = \"light\"\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config failed: %v", err)
	}

	cfg := Default()
	if err := LoadTOML(cfg, path); err != nil {
		t.Fatalf("LoadTOML failed: %v", err)
	}

	if cfg.Relay.Port != 9000 {
		t.Errorf("relay port = %d, want 9000", cfg.Relay.Port)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("theme = %q, want light", cfg.UI.Theme)
	}
	// Unspecified values fall back to defaults
	if cfg.Gateway.Model == "" {
		t.Error("gateway model should be filled from defaults")
	}
	if cfg.Relay.RatePerMinute != 60 {
		t.Errorf("rate per minute = %d, want default 60", cfg.Relay.RatePerMinute)
	}
}

// TestConfig_LoadFixesPermissions tests that world-readable config files
// are tightened to 0600 on load.
func TestConfig_LoadFixesPermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("version = \"1.0.0\"\n"), 0644); err != nil {
		t.Fatalf("writing config failed: %v", err)
	}

	cfg := Default()
	if err := LoadTOML(cfg, path); err != nil {
		t.Fatalf("LoadTOML failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config permissions = %o, want 0600", perm)
	}
}

// TestConfig_EnvOverrides tests environment variable precedence.
func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SMARTASSIST_GATEWAY_KEY", "env-key")
	t.Setenv("SMARTASSIST_RELAY_URL", "http://relay.example.com:9999")
	t.Setenv("SMARTASSIST_RELAY_PORT", "9999")
	t.Setenv("SMARTASSIST_MODEL", "env-model")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Gateway.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want env-key", cfg.Gateway.APIKey)
	}
	if cfg.Relay.URL != "http://relay.example.com:9999" {
		t.Errorf("relay URL = %q, want env override", cfg.Relay.URL)
	}
	if cfg.Relay.Port != 9999 {
		t.Errorf("relay port = %d, want 9999", cfg.Relay.Port)
	}
	if cfg.Gateway.Model != "env-model" {
		t.Errorf("model = %q, want env-model", cfg.Gateway.Model)
	}
}

// TestConfig_EnvOverrideInvalidPort tests that malformed port values are ignored.
func TestConfig_EnvOverrideInvalidPort(t *testing.T) {
	t.Setenv("SMARTASSIST_RELAY_PORT", "not-a-port")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Relay.Port != 8787 {
		t.Errorf("relay port = %d, want default 8787 for invalid override", cfg.Relay.Port)
	}
}

// TestConfig_SaveLoadRoundTrip tests TOML save and reload.
func TestConfig_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	original := Default()
	original.Relay.Port = 9123
	original.UI.Theme = "light"
	original.Relay.AllowedOrigins = []string{"https://app.example.com"}

	// SaveTOML wants the config dir to exist; use the temp path directly
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		t.Fatalf("creating config file failed: %v", err)
	}
	if err := writeTOMLTo(file, original); err != nil {
		t.Fatalf("encoding config failed: %v", err)
	}
	file.Close()

	loaded := Default()
	if err := LoadTOML(loaded, path); err != nil {
		t.Fatalf("LoadTOML failed: %v", err)
	}

	if loaded.Relay.Port != 9123 {
		t.Errorf("port = %d, want 9123", loaded.Relay.Port)
	}
	if loaded.UI.Theme != "light" {
		t.Errorf("theme = %q, want light", loaded.UI.Theme)
	}
	if len(loaded.Relay.AllowedOrigins) != 1 || loaded.Relay.AllowedOrigins[0] != "https://app.example.com" {
		t.Errorf("allowed origins = %v, want round-tripped list", loaded.Relay.AllowedOrigins)
	}
}

// TestConfig_LoadFromPathJSON tests loading a JSON config file.
func TestConfig_LoadFromPathJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{"relay":{"port":9500},"ui":{"theme":"auto"}}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config failed: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Relay.Port != 9500 {
		t.Errorf("port = %d, want 9500", cfg.Relay.Port)
	}
	if cfg.UI.Theme != "auto" {
		t.Errorf("theme = %q, want auto", cfg.UI.Theme)
	}
}
