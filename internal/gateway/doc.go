// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gateway provides the HTTP client for the SmartAssist relay.
//
// # Key Types
//
//   - Client: relay client with pooled transports
//   - Callbacks: OnDelta/OnDone/OnError stream event sinks
//   - StreamChunk: one SSE delta frame
//   - SSEReader: low-level server-sent event parser
//
// # Error Mapping
//
// Pre-stream relay failures map onto the error taxonomy: HTTP 429 becomes
// ErrRateLimited, HTTP 402 becomes ErrPaymentRequired, any other non-2xx
// becomes *UpstreamError. Transport failures become *NetworkError. Context
// cancellation is cooperative and reports nothing.
package gateway
