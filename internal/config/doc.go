// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for smartassist.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - RelayConfig: Relay server address, CORS, and rate limits
//   - GatewayConfig: Upstream AI gateway endpoint and credential
//   - StorageConfig: Conversation storage behavior
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (SMARTASSIST_*)
//   - ~/.smartassist/config.toml
//   - ~/.smartassist/config.json
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Access settings:
//
//	relayURL := cfg.Relay.URL
//	model := cfg.Gateway.Model
package config
