// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package relay

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jeranaias/smartassist/internal/mode"
	"github.com/jeranaias/smartassist/internal/util"
)

// ============================================================================
// Constants
// ============================================================================

const (
	// DefaultPort is the default relay listen port.
	DefaultPort = 8787

	// DefaultUpstreamURL is the default AI gateway endpoint.
	DefaultUpstreamURL = "https://ai.gateway.lovable.dev/v1/chat/completions"

	// DefaultModel is the model requested from the upstream gateway.
	DefaultModel = "google/gemini-3-flash-preview"

	// DefaultTemperature is the sampling temperature sent upstream.
	DefaultTemperature = 0.7

	// MaxRequestBodySize limits incoming request bodies (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// MaxMessageCount limits the number of messages per request.
	MaxMessageCount = 100

	// MaxMessageLength limits the length of a single message (100KB).
	MaxMessageLength = 100_000

	// upstreamConnectTimeout bounds dialing the upstream gateway.
	upstreamConnectTimeout = 10 * time.Second
)

// validRoles whitelists the roles accepted in incoming messages.
var validRoles = map[string]bool{
	"system":    true,
	"user":      true,
	"assistant": true,
}

// ============================================================================
// Types
// ============================================================================

// Config holds the relay's runtime configuration.
type Config struct {
	Port           int
	UpstreamURL    string
	Model          string
	Temperature    float64
	APIKey         string
	AllowedOrigins []string
	RatePerMinute  int
	RateBurst      int
}

// ErrMissingCredential is returned by NewServer when no gateway API key
// is configured. The relay refuses to start without one.
var ErrMissingCredential = errors.New("gateway API key is not configured (set SMARTASSIST_GATEWAY_KEY)")

// Server relays chat requests to the upstream AI gateway. It attaches
// the mode-selected system prompt, maps upstream failures to stable
// error codes, and streams SSE responses through unbuffered.
type Server struct {
	cfg     Config
	router  *http.ServeMux
	server  *http.Server
	client  *http.Client
	cors    *CORSConfig
	limiter *IPRateLimiter
}

// chatRequest is the incoming request body for POST /v1/chat.
type chatRequest struct {
	Mode     string        `json:"mode"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// upstreamRequest is the payload forwarded to the AI gateway.
type upstreamRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

// modeInfo is the wire form of a mode returned by GET /v1/modes.
type modeInfo struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Suggestions []string `json:"suggestions"`
}

// ============================================================================
// Construction
// ============================================================================

// NewServer creates a relay server. It fails fast when the upstream
// credential is missing so a misconfigured relay never accepts traffic.
func NewServer(cfg Config) (*Server, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingCredential
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.UpstreamURL == "" {
		cfg.UpstreamURL = DefaultUpstreamURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.RatePerMinute == 0 {
		cfg.RatePerMinute = 60
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = 10
	}

	s := &Server{
		cfg:    cfg,
		router: http.NewServeMux(),
		// No overall timeout: streaming responses stay open until the
		// upstream finishes or the client disconnects.
		client: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: upstreamConnectTimeout,
				}).DialContext,
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		cors:    NewCORSConfig(cfg.AllowedOrigins),
		limiter: NewIPRateLimiter(cfg.RatePerMinute, cfg.RateBurst),
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("POST /v1/chat", s.handleChat)
	s.router.HandleFunc("GET /v1/modes", s.handleModes)
	s.router.HandleFunc("GET /health", s.handleHealth)
}

// ============================================================================
// Handlers
// ============================================================================

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if err := validateChatRequest(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	// Mode is client input and deliberately unvalidated (unknown modes
	// fall back to the default prompt), so clamp it before it hits logs.
	logMode := util.TruncateRunesNoEllipsis(req.Mode, 32)

	upstream := upstreamRequest{
		Model:       s.cfg.Model,
		Messages:    append([]chatMessage{{Role: "system", Content: promptFor(mode.ID(req.Mode))}}, req.Messages...),
		Temperature: s.cfg.Temperature,
		Stream:      true,
	}

	body, err := json.Marshal(upstream)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "upstream_error", "AI service error")
		return
	}

	httpReq, err := http.NewRequestWithContext(r.Context(), http.MethodPost, s.cfg.UpstreamURL, bytes.NewReader(body))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "upstream_error", "AI service error")
		return
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		if r.Context().Err() != nil {
			// Client went away while we were dialing. Nothing to send.
			return
		}
		log.Printf("RELAY_UPSTREAM_UNREACHABLE | error=%v", err)
		writeError(w, http.StatusInternalServerError, "upstream_error", "AI service error")
		return
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		log.Printf("RELAY_RATE_LIMITED | mode=%s", logMode)
		writeError(w, http.StatusTooManyRequests, "rate_limited", "Rate limit exceeded. Please try again shortly.")
		return
	case resp.StatusCode == http.StatusPaymentRequired:
		log.Printf("RELAY_PAYMENT_REQUIRED | mode=%s", logMode)
		writeError(w, http.StatusPaymentRequired, "payment_required", "AI credits exhausted. Please add credits to continue.")
		return
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		// Upstream detail goes to the log, never to the client.
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Printf("RELAY_UPSTREAM_ERROR | status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(detail)))
		writeError(w, http.StatusInternalServerError, "upstream_error", "AI service error")
		return
	}

	s.streamResponse(w, r, resp.Body, logMode)
}

// streamResponse pipes the upstream SSE body to the client, flushing
// after every chunk so no proxy layer buffers the stream.
func (s *Server) streamResponse(w http.ResponseWriter, r *http.Request, body io.Reader, modeID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "upstream_error", "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	start := time.Now()
	var bytesOut int64
	buf := make([]byte, 4096)
	for {
		select {
		case <-r.Context().Done():
			log.Printf("RELAY_CLIENT_DISCONNECT | mode=%s bytes=%d", modeID, bytesOut)
			return
		default:
		}

		n, err := body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return
			}
			flusher.Flush()
			bytesOut += int64(n)
		}
		if err != nil {
			if err != io.EOF {
				log.Printf("RELAY_STREAM_INTERRUPTED | mode=%s error=%v", modeID, err)
			} else {
				log.Printf("RELAY_STREAM_COMPLETE | mode=%s bytes=%d duration=%s", modeID, bytesOut, time.Since(start).Round(time.Millisecond))
			}
			return
		}
	}
}

func (s *Server) handleModes(w http.ResponseWriter, r *http.Request) {
	modes := mode.List()
	out := make([]modeInfo, 0, len(modes))
	for _, m := range modes {
		out = append(out, modeInfo{
			ID:          string(m.ID),
			Label:       m.Label,
			Description: m.Description,
			Suggestions: m.Suggestions[:],
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ============================================================================
// Validation
// ============================================================================

func validateChatRequest(req *chatRequest) error {
	if len(req.Messages) == 0 {
		return fmt.Errorf("messages must not be empty")
	}
	if len(req.Messages) > MaxMessageCount {
		return fmt.Errorf("too many messages (max %d)", MaxMessageCount)
	}
	for i, m := range req.Messages {
		if !validRoles[m.Role] {
			return fmt.Errorf("message %d has invalid role %q", i, m.Role)
		}
		if len(m.Content) > MaxMessageLength {
			return fmt.Errorf("message %d exceeds maximum length", i)
		}
	}
	return nil
}

// ============================================================================
// Lifecycle
// ============================================================================

// Start begins listening. It blocks until the server stops.
func (s *Server) Start() error {
	handler := Chain(
		RecoveryMiddleware(),
		SecurityHeadersMiddleware(),
		LoggingMiddleware(log.Default()),
		CORSMiddleware(s.cors),
		RateLimitMiddleware(s.limiter),
	)(s.router)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // streaming responses have no write deadline
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("RELAY_START | addr=%s model=%s", s.server.Addr, s.cfg.Model)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("relay server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server, waiting for in-flight
// requests up to the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	log.Printf("RELAY_SHUTDOWN | addr=%s", s.server.Addr)
	return s.server.Shutdown(ctx)
}

// ApplyConfig updates the hot-reloadable parts of the configuration:
// CORS origins and rate limits. Called by the config watcher.
func (s *Server) ApplyConfig(origins []string, perMinute, burst int) {
	s.cors.SetOrigins(origins)
	if perMinute > 0 && burst > 0 {
		s.limiter.SetLimit(perMinute, burst)
	}
	log.Printf("RELAY_CONFIG_APPLIED | origins=%d rate=%d/min burst=%d", len(origins), perMinute, burst)
}

// ============================================================================
// Response Helpers
// ============================================================================

type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("RELAY_WRITE_FAILED | error=%v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorDetail{Code: code, Message: message}})
}
