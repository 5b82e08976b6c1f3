// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package relay implements the HTTP proxy between SmartAssist clients
// and the upstream AI gateway.
//
// The relay owns the gateway credential so clients never see it. Each
// chat request gets the system prompt for its mode prepended before
// forwarding; unrecognized modes fall back to the default prompt.
// Upstream SSE responses are piped through with a flush per chunk so
// nothing buffers the stream.
//
// Upstream failures map to stable error codes: 429 becomes
// rate_limited, 402 becomes payment_required, and anything else
// becomes a 500 upstream_error with the upstream detail logged but
// never leaked to the client.
//
// # Key Types
//
//   - Server: the relay HTTP server with its middleware chain
//   - Config: listen port, upstream settings, CORS, and rate limits
//   - ConfigWatcher: hot-reloads CORS origins and rate limits
//
// # Usage
//
//	srv, err := relay.NewServer(relay.Config{APIKey: key})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
package relay
