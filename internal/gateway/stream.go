// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// STREAMING: Robust SSE parsing with error handling

// =============================================================================
// STREAMING TYPES
// =============================================================================

// StreamChunk represents a single chunk of the relayed SSE response.
type StreamChunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
			Role    string `json:"role,omitempty"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// GetContent returns the content from the first choice's delta.
func (c *StreamChunk) GetContent() string {
	if len(c.Choices) > 0 {
		return c.Choices[0].Delta.Content
	}
	return ""
}

// IsDone returns true if the chunk carries a finish reason.
func (c *StreamChunk) IsDone() bool {
	if len(c.Choices) > 0 {
		return c.Choices[0].FinishReason != ""
	}
	return false
}

// Callbacks receives stream events. Exactly one of OnDone or OnError fires
// per stream, and never both; no OnDelta follows a terminal callback.
// Cooperative cancellation via context is silent: neither terminal callback
// fires when the caller cancelled.
type Callbacks struct {
	OnDelta func(content string)
	OnDone  func()
	OnError func(err error)
}

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader parses Server-Sent Events from a stream.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates a new SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{
		reader: bufio.NewReader(r),
	}
}

// ReadEvent reads the next SSE event from the stream.
// Returns the event type and data. The event type is typically empty for
// relay responses. Returns io.EOF when the stream ends.
func (s *SSEReader) ReadEvent() (string, []byte, error) {
	var eventType string
	var dataLines [][]byte

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				// Flush any buffered data before reporting EOF
				if len(dataLines) > 0 {
					return eventType, bytes.Join(dataLines, []byte("\n")), nil
				}
				return "", nil, io.EOF
			}
			return "", nil, err
		}

		line = bytes.TrimRight(line, "\r\n")

		// Empty line signals end of event
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return eventType, bytes.Join(dataLines, []byte("\n")), nil
			}
			continue
		}

		if bytes.HasPrefix(line, []byte("event:")) {
			eventType = string(bytes.TrimSpace(line[6:]))
		} else if bytes.HasPrefix(line, []byte("data:")) {
			dataLines = append(dataLines, bytes.TrimSpace(line[5:]))
		}
		// Ignore other fields (id:, retry:, comments starting with :)
	}
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// StreamChat performs a streaming chat request against the relay and
// delivers events through the callbacks. It blocks until the stream ends,
// fails, or ctx is cancelled.
func (c *Client) StreamChat(ctx context.Context, chatReq ChatRequest, cb Callbacks) {
	if !c.IsConfigured() {
		c.emitError(cb, ErrNotConfigured)
		return
	}

	req, err := c.newChatRequest(ctx, chatReq)
	if err != nil {
		c.emitError(cb, err)
		return
	}
	req.Header.Set("Cache-Control", "no-cache")

	// PERFORMANCE: Shared streaming client; lifetime governed by ctx.
	resp, err := c.streamClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return // cancelled by caller, stay silent
		}
		c.emitError(cb, &NetworkError{Err: err})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		c.emitError(cb, mapErrorResponse(resp.StatusCode, body))
		return
	}

	if err := c.processStream(ctx, resp.Body, cb); err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return
		}
		c.emitError(cb, &NetworkError{Err: err})
		return
	}

	if cb.OnDone != nil {
		cb.OnDone()
	}
}

// processStream reads SSE events until [DONE], a finish reason, or EOF.
func (c *Client) processStream(ctx context.Context, body io.Reader, cb Callbacks) error {
	reader := NewSSEReader(body)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, data, err := reader.ReadEvent()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		if bytes.Equal(data, []byte("[DONE]")) {
			return nil
		}

		var chunk StreamChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			// Skip malformed chunks
			continue
		}

		if content := chunk.GetContent(); content != "" && cb.OnDelta != nil {
			cb.OnDelta(content)
		}

		if chunk.IsDone() {
			return nil
		}
	}
}

// emitError delivers the terminal error callback.
func (c *Client) emitError(cb Callbacks, err error) {
	if cb.OnError != nil {
		cb.OnError(err)
	}
}
