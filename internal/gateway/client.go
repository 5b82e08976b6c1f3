// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gateway provides the HTTP client for the SmartAssist relay.
//
// The relay holds the upstream AI credential and injects the mode system
// prompt; this client only speaks to the relay. Responses stream back as
// server-sent events.
package gateway

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Configuration constants for the relay API.
const (
	// DefaultRelayURL is the base URL of a locally running relay.
	DefaultRelayURL = "http://127.0.0.1:8787"

	// DefaultTimeout is the default timeout for non-streaming requests.
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the maximum allowed non-streaming response body size.
	// SECURITY: Response size limit prevents memory exhaustion attacks.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit
)

var (
	// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
	// Shared HTTP client for non-streaming relay requests.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient is used for streaming requests.
	// No client timeout: stream lifetime is governed by the request context.
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotConfigured indicates the relay URL is not set.
	ErrNotConfigured = errors.New("relay URL not configured")

	// ErrRateLimited indicates the relay or upstream rejected the request
	// with HTTP 429.
	ErrRateLimited = errors.New("rate limited")

	// ErrPaymentRequired indicates upstream AI credits are exhausted (HTTP 402).
	ErrPaymentRequired = errors.New("payment required")
)

// UpstreamError represents a non-429/402 failure reported by the relay.
type UpstreamError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("upstream error (HTTP %d)", e.Status)
}

// NetworkError wraps a transport-level failure reaching the relay.
type NetworkError struct {
	Err error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("network failure: %v", e.Err)
}

// Unwrap returns the underlying transport error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// Message represents a single message in the relay chat payload.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /v1/chat.
type ChatRequest struct {
	Mode     string    `json:"mode"`
	Messages []Message `json:"messages"`
}

// ModeInfo describes an assistant mode as reported by GET /v1/modes.
type ModeInfo struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Suggestions []string `json:"suggestions"`
}

// apiErrorResponse mirrors the relay's error envelope.
type apiErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the SmartAssist relay.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	streamClient *http.Client
}

// NewClient creates a relay client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:      strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		httpClient:   sharedHTTPClient,
		streamClient: sharedStreamingClient,
	}
}

// IsConfigured returns true if the client has a relay URL.
func (c *Client) IsConfigured() bool {
	return c.baseURL != ""
}

// BaseURL returns the configured relay base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Check verifies that the relay is reachable by listing modes.
func (c *Client) Check(ctx context.Context) error {
	_, err := c.Modes(ctx)
	return err
}

// Modes fetches the mode registry from the relay.
func (c *Client) Modes(ctx context.Context) ([]ModeInfo, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/modes", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, mapErrorResponse(resp.StatusCode, body)
	}

	var modes []ModeInfo
	if err := json.Unmarshal(body, &modes); err != nil {
		return nil, fmt.Errorf("failed to parse modes response: %w", err)
	}
	return modes, nil
}

// newChatRequest builds the streaming POST /v1/chat request.
func (c *Client) newChatRequest(ctx context.Context, chatReq ChatRequest) (*http.Request, error) {
	bodyBytes, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	return req, nil
}

// readResponse reads a response body with a size limit.
// SECURITY: Response size limit prevents memory exhaustion attacks.
func readResponse(resp *http.Response) ([]byte, error) {
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// mapErrorResponse converts relay error status codes to sentinel errors.
//
// 429 maps to ErrRateLimited, 402 to ErrPaymentRequired, everything else to
// an UpstreamError carrying the status.
func mapErrorResponse(statusCode int, body []byte) error {
	message := ""
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil {
		message = apiErr.Error.Message
	}

	switch statusCode {
	case http.StatusTooManyRequests:
		if message != "" {
			return fmt.Errorf("%w: %s", ErrRateLimited, message)
		}
		return ErrRateLimited
	case http.StatusPaymentRequired:
		if message != "" {
			return fmt.Errorf("%w: %s", ErrPaymentRequired, message)
		}
		return ErrPaymentRequired
	default:
		return &UpstreamError{Status: statusCode, Message: message}
	}
}
