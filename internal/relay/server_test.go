// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package relay

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestServer(t *testing.T, upstream string) *Server {
	t.Helper()
	srv, err := NewServer(Config{
		APIKey:      "test-key",
		UpstreamURL: upstream,
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	return srv
}

func chatBody(mode string) string {
	return fmt.Sprintf(`{"mode":%q,"messages":[{"role":"user","content":"hello"}]}`, mode)
}

func decodeErrorCode(t *testing.T, body string) string {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("decoding error response failed: %v (body %q)", err, body)
	}
	return resp.Error.Code
}

func TestNewServerMissingCredential(t *testing.T) {
	_, err := NewServer(Config{})
	if !errors.Is(err, ErrMissingCredential) {
		t.Errorf("NewServer error = %v, want ErrMissingCredential", err)
	}
}

func TestChatUpstreamStatusMapping(t *testing.T) {
	tests := []struct {
		name           string
		upstreamStatus int
		wantStatus     int
		wantCode       string
	}{
		{"rate limited", http.StatusTooManyRequests, http.StatusTooManyRequests, "rate_limited"},
		{"payment required", http.StatusPaymentRequired, http.StatusPaymentRequired, "payment_required"},
		{"server error", http.StatusInternalServerError, http.StatusInternalServerError, "upstream_error"},
		{"bad gateway", http.StatusBadGateway, http.StatusInternalServerError, "upstream_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.upstreamStatus)
				fmt.Fprint(w, `{"error":"upstream detail that must not leak"}`)
			}))
			defer upstream.Close()

			srv := newTestServer(t, upstream.URL)
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(chatBody("budget")))
			srv.router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if code := decodeErrorCode(t, rec.Body.String()); code != tt.wantCode {
				t.Errorf("error code = %q, want %q", code, tt.wantCode)
			}
			if strings.Contains(rec.Body.String(), "must not leak") {
				t.Error("upstream error detail leaked to client")
			}
		})
	}
}

func TestChatStreamsSSEThrough(t *testing.T) {
	events := []string{
		`data: {"choices":[{"delta":{"content":"Hello"}}]}`,
		`data: {"choices":[{"delta":{"content":" world"}}]}`,
		`data: [DONE]`,
	}

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, ev := range events {
			fmt.Fprintf(w, "%s\n\n", ev)
		}
	}))
	defer upstream.Close()

	srv := newTestServer(t, upstream.URL)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(chatBody("budget")))
	srv.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %q)", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
	if buf := rec.Header().Get("X-Accel-Buffering"); buf != "no" {
		t.Errorf("X-Accel-Buffering = %q, want no", buf)
	}

	scanner := bufio.NewScanner(rec.Body)
	var got []string
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			got = append(got, line)
		}
	}
	if len(got) != len(events) {
		t.Fatalf("received %d events, want %d: %v", len(got), len(events), got)
	}
	for i, ev := range events {
		if got[i] != ev {
			t.Errorf("event %d = %q, want %q", i, got[i], ev)
		}
	}
}

func TestChatSelectsSystemPromptByMode(t *testing.T) {
	var gotPrompt string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req upstreamRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding upstream request failed: %v", err)
		}
		if len(req.Messages) == 0 || req.Messages[0].Role != "system" {
			t.Fatalf("first upstream message should be the system prompt, got %+v", req.Messages)
		}
		gotPrompt = req.Messages[0].Content
		if !req.Stream {
			t.Error("upstream request should set stream=true")
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer upstream.Close()

	srv := newTestServer(t, upstream.URL)

	tests := []struct {
		mode string
		want string
	}{
		{"health", healthSystemPrompt},
		{"school", schoolSystemPrompt},
		{"agriculture", agricultureSystemPrompt},
		{"budget", defaultSystemPrompt},
		{"nonsense", defaultSystemPrompt},
		{"", defaultSystemPrompt},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(chatBody(tt.mode)))
		srv.router.ServeHTTP(rec, req)
		if gotPrompt != tt.want {
			t.Errorf("mode %q selected wrong system prompt", tt.mode)
		}
	}
}

func TestChatForwardsCredential(t *testing.T) {
	var gotAuth string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer upstream.Close()

	srv := newTestServer(t, upstream.URL)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(chatBody("budget")))
	srv.router.ServeHTTP(rec, req)

	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer test-key")
	}
}

func TestChatRequestValidation(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1") // never reached

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{not json`},
		{"empty messages", `{"mode":"budget","messages":[]}`},
		{"invalid role", `{"mode":"budget","messages":[{"role":"wizard","content":"hi"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(tt.body))
			srv.router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if code := decodeErrorCode(t, rec.Body.String()); code != "invalid_request" {
				t.Errorf("error code = %q, want invalid_request", code)
			}
		})
	}
}

func TestModesEndpoint(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/modes", nil)
	srv.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var modes []modeInfo
	if err := json.NewDecoder(rec.Body).Decode(&modes); err != nil {
		t.Fatalf("decoding modes failed: %v", err)
	}
	if len(modes) != 4 {
		t.Fatalf("got %d modes, want 4", len(modes))
	}
	ids := make(map[string]bool)
	for _, m := range modes {
		ids[m.ID] = true
		if m.Label == "" || m.Description == "" {
			t.Errorf("mode %s has empty label or description", m.ID)
		}
		if len(m.Suggestions) != 4 {
			t.Errorf("mode %s has %d suggestions, want 4", m.ID, len(m.Suggestions))
		}
	}
	for _, want := range []string{"budget", "health", "school", "agriculture"} {
		if !ids[want] {
			t.Errorf("modes list missing %q", want)
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	srv.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %q, want status ok", rec.Body.String())
	}
}
