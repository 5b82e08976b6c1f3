// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for smartassist.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.smartassist/config.toml
//   - ~/.smartassist/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/jeranaias/smartassist/internal/mode"
	"github.com/jeranaias/smartassist/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete smartassist configuration.
type Config struct {
	// General settings
	Version string `toml:"version" json:"version"`

	// Relay server configuration
	Relay RelayConfig `toml:"relay" json:"relay"`

	// Upstream AI gateway configuration
	Gateway GatewayConfig `toml:"gateway" json:"gateway"`

	// Conversation storage configuration
	Storage StorageConfig `toml:"storage" json:"storage"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`
}

// RelayConfig contains the relay server settings. The URL field is also
// what the TUI client connects to.
type RelayConfig struct {
	// URL is the relay base URL the client talks to
	URL string `toml:"url" json:"url"`
	// Port is the port the relay listens on when run locally
	Port int `toml:"port" json:"port"`
	// AllowedOrigins lists CORS origins; empty allows all
	AllowedOrigins []string `toml:"allowed_origins" json:"allowed_origins"`
	// RatePerMinute is the per-IP request rate limit
	RatePerMinute int `toml:"rate_per_minute" json:"rate_per_minute"`
	// RateBurst is the per-IP burst allowance
	RateBurst int `toml:"rate_burst" json:"rate_burst"`
}

// GatewayConfig contains upstream AI gateway settings.
type GatewayConfig struct {
	// UpstreamURL is the AI gateway chat completions endpoint
	UpstreamURL string `toml:"upstream_url" json:"upstream_url"`
	// Model is the model requested from the gateway
	Model string `toml:"model" json:"model"`
	// Temperature is the sampling temperature
	Temperature float64 `toml:"temperature" json:"temperature"`
	// APIKey is the gateway credential. Prefer the SMARTASSIST_GATEWAY_KEY
	// environment variable over storing it here.
	APIKey string `toml:"api_key" json:"api_key"`
}

// StorageConfig contains conversation storage settings.
type StorageConfig struct {
	// Dir is the conversation directory (empty = ~/.smartassist/conversations)
	Dir string `toml:"dir" json:"dir"`
	// MaxConversations caps how many conversations are retained
	MaxConversations int `toml:"max_conversations" json:"max_conversations"`
	// IndexEnabled controls the full-text search index
	IndexEnabled bool `toml:"index_enabled" json:"index_enabled"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme"`
	// DefaultMode is the assistant mode selected at startup
	DefaultMode string `toml:"default_mode" json:"default_mode"`
	// ShowTokens displays token counts in the UI
	ShowTokens bool `toml:"show_tokens" json:"show_tokens"`
	// CompactMode uses a more compact UI layout
	CompactMode bool `toml:"compact_mode" json:"compact_mode"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Relay: RelayConfig{
			URL:            "http://127.0.0.1:8787",
			Port:           8787,
			AllowedOrigins: nil, // allow all
			RatePerMinute:  60,
			RateBurst:      10,
		},

		Gateway: GatewayConfig{
			UpstreamURL: "https://ai.gateway.lovable.dev/v1/chat/completions",
			Model:       "google/gemini-3-flash-preview",
			Temperature: 0.7,
			APIKey:      "",
		},

		Storage: StorageConfig{
			Dir:              "", // resolved to ~/.smartassist/conversations
			MaxConversations: 100,
			IndexEnabled:     true,
		},

		UI: UIConfig{
			Theme:       "dark",
			DefaultMode: string(mode.Budget),
			ShowTokens:  true,
			CompactMode: false,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the smartassist configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".smartassist"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files should be 0600 (owner read/write only) to protect API keys.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err // File doesn't exist or not accessible
	}

	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}

	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	// Try TOML first
	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			} else {
				cfg.ApplyEnvOverrides()
				if err := cfg.Validate(); err != nil {
					return nil, fmt.Errorf("invalid config: %w", err)
				}
				return cfg, nil
			}
		}
	}

	// Try JSON as fallback
	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
			} else {
				cfg.ApplyEnvOverrides()
				if err := cfg.Validate(); err != nil {
					return nil, fmt.Errorf("invalid config: %w", err)
				}
				return cfg, nil
			}
		}
	}

	// Apply environment overrides to defaults
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Return defaults (with any load error for informational purposes)
	return cfg, loadErr
}

// LoadTOML loads configuration from a TOML file.
// SECURITY: Checks and fixes file permissions on load.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		// Log warning but don't fail - permissions might not be fixable on all systems
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	_, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return fillDefaults(cfg)
}

// LoadJSON loads configuration from a JSON file.
// SECURITY: Checks and fixes file permissions on load.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return fillDefaults(cfg)
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := &Config{}

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		// Default to TOML
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) error {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}

	// Relay
	if cfg.Relay.URL == "" {
		cfg.Relay.URL = defaults.Relay.URL
	}
	if cfg.Relay.Port == 0 {
		cfg.Relay.Port = defaults.Relay.Port
	}
	if cfg.Relay.RatePerMinute == 0 {
		cfg.Relay.RatePerMinute = defaults.Relay.RatePerMinute
	}
	if cfg.Relay.RateBurst == 0 {
		cfg.Relay.RateBurst = defaults.Relay.RateBurst
	}

	// Gateway
	if cfg.Gateway.UpstreamURL == "" {
		cfg.Gateway.UpstreamURL = defaults.Gateway.UpstreamURL
	}
	if cfg.Gateway.Model == "" {
		cfg.Gateway.Model = defaults.Gateway.Model
	}
	if cfg.Gateway.Temperature == 0 {
		cfg.Gateway.Temperature = defaults.Gateway.Temperature
	}

	// Storage
	if cfg.Storage.MaxConversations == 0 {
		cfg.Storage.MaxConversations = defaults.Storage.MaxConversations
	}

	// UI
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}
	if cfg.UI.DefaultMode == "" {
		cfg.UI.DefaultMode = defaults.UI.DefaultMode
	}

	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
// Environment variables take precedence over file values.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("SMARTASSIST_GATEWAY_KEY"); v != "" {
		c.Gateway.APIKey = v
	}
	if v := os.Getenv("SMARTASSIST_RELAY_URL"); v != "" {
		c.Relay.URL = v
	}
	if v := os.Getenv("SMARTASSIST_RELAY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 && port < 65536 {
			c.Relay.Port = port
		}
	}
	if v := os.Getenv("SMARTASSIST_UPSTREAM_URL"); v != "" {
		c.Gateway.UpstreamURL = v
	}
	if v := os.Getenv("SMARTASSIST_MODEL"); v != "" {
		c.Gateway.Model = v
	}
	if v := os.Getenv("SMARTASSIST_STORAGE_DIR"); v != "" {
		c.Storage.Dir = v
	}
	if v := os.Getenv("SMARTASSIST_THEME"); v != "" {
		c.UI.Theme = v
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
func SaveTOML(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	// SECURITY: Ensure permissions are correct even if file already existed
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# smartassist configuration file")
	fmt.Fprintln(file, "# Generated by smartassist - edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// SaveJSON saves the configuration to a JSON file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
// RELIABILITY: Atomic write with fsync prevents data loss on crash
func SaveJSON(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	// Relay
	if c.Relay.URL != "" {
		if _, err := url.Parse(c.Relay.URL); err != nil {
			errs = append(errs, ValidationError{
				Field:   "relay.url",
				Message: fmt.Sprintf("invalid URL: %v", err),
			})
		}
	}
	if c.Relay.Port < 1 || c.Relay.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "relay.port",
			Message: fmt.Sprintf("invalid port %d, must be 1-65535", c.Relay.Port),
		})
	}
	if c.Relay.RatePerMinute < 1 {
		errs = append(errs, ValidationError{
			Field:   "relay.rate_per_minute",
			Message: "rate limit must be at least 1 request per minute",
		})
	}
	if c.Relay.RateBurst < 1 {
		errs = append(errs, ValidationError{
			Field:   "relay.rate_burst",
			Message: "rate burst must be at least 1",
		})
	}

	// Gateway
	if c.Gateway.UpstreamURL != "" {
		u, err := url.Parse(c.Gateway.UpstreamURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, ValidationError{
				Field:   "gateway.upstream_url",
				Message: fmt.Sprintf("invalid URL %q, must be http or https", c.Gateway.UpstreamURL),
			})
		}
	}
	if c.Gateway.Temperature < 0 || c.Gateway.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "gateway.temperature",
			Message: fmt.Sprintf("temperature %.2f out of range 0-2", c.Gateway.Temperature),
		})
	}

	// Storage
	if c.Storage.MaxConversations < 1 {
		errs = append(errs, ValidationError{
			Field:   "storage.max_conversations",
			Message: "must retain at least 1 conversation",
		})
	}

	// UI
	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}
	if !mode.IsValid(mode.ID(c.UI.DefaultMode)) {
		errs = append(errs, ValidationError{
			Field:   "ui.default_mode",
			Message: fmt.Sprintf("unknown mode '%s'", c.UI.DefaultMode),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
