// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file implements streaming delivery and render batching. Tokens
// arrive on a goroutine via the relay client and are forwarded to the
// Bubble Tea program as messages; the StreamingBuffer batches them so the
// viewport repaints at a capped frame rate instead of once per token.
package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/smartassist/internal/gateway"
	"github.com/jeranaias/smartassist/internal/model"
)

// =============================================================================
// STREAMING BUFFER
// =============================================================================

const (
	streamBatchSize = 15
	streamMaxFPS    = 30
)

// StreamingBuffer batches tokens for efficient rendering. Tokens accumulate
// until either the batch size is reached or ~33ms have passed since the
// last flush. Thread-safe: written from the streaming goroutine, flushed
// from the Bubble Tea loop.
type StreamingBuffer struct {
	mu         sync.Mutex
	buffer     strings.Builder
	tokenCount int
	lastFlush  time.Time
	minFlush   time.Duration
}

// NewStreamingBuffer creates a streaming buffer with default batching.
func NewStreamingBuffer() *StreamingBuffer {
	return &StreamingBuffer{
		minFlush:  time.Second / streamMaxFPS,
		lastFlush: time.Now(),
	}
}

// Write adds a token to the buffer.
func (sb *StreamingBuffer) Write(token string) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.buffer.WriteString(token)
	sb.tokenCount++
}

// Flush returns accumulated content if a flush threshold has been reached.
func (sb *StreamingBuffer) Flush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.buffer.Len() == 0 {
		return "", false
	}
	if sb.tokenCount < streamBatchSize && time.Since(sb.lastFlush) < sb.minFlush {
		return "", false
	}
	return sb.drainLocked(), true
}

// ForceFlush returns all buffered content regardless of thresholds. Called
// when a stream completes so no trailing tokens are lost.
func (sb *StreamingBuffer) ForceFlush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.buffer.Len() == 0 {
		return "", false
	}
	return sb.drainLocked(), true
}

// Reset clears the buffer without flushing. Used when a stream is
// cancelled or a new one starts.
func (sb *StreamingBuffer) Reset() {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.buffer.Reset()
	sb.tokenCount = 0
	sb.lastFlush = time.Now()
}

// Pending returns the number of buffered tokens.
func (sb *StreamingBuffer) Pending() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.tokenCount
}

func (sb *StreamingBuffer) drainLocked() string {
	content := sb.buffer.String()
	sb.buffer.Reset()
	sb.tokenCount = 0
	sb.lastFlush = time.Now()
	return content
}

// streamTickCmd creates a tea.Cmd that sends StreamTickMsg at 30fps to
// drive buffer flushes while a stream is active.
func streamTickCmd() tea.Cmd {
	return tea.Tick(33*time.Millisecond, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t}
	})
}

// =============================================================================
// STREAM RUNNER
// =============================================================================

// StreamRunner executes relay streams on a goroutine and forwards progress
// to a Bubble Tea program. Exactly one of StreamCompleteMsg or
// StreamErrorMsg is sent per stream; a cancelled stream sends neither,
// since cancellation is handled synchronously by the key handler.
type StreamRunner struct {
	program *tea.Program
	client  *gateway.Client
}

// NewStreamRunner creates a stream runner.
func NewStreamRunner(program *tea.Program, client *gateway.Client) *StreamRunner {
	return &StreamRunner{
		program: program,
		client:  client,
	}
}

// SetProgram wires the Bubble Tea program after construction. The program
// cannot exist before the model it runs, so wiring happens in two steps.
func (r *StreamRunner) SetProgram(p *tea.Program) {
	r.program = p
}

// Run executes a streaming chat and sends progress messages to the program.
// Blocks until the stream ends; callers run it on a goroutine.
func (r *StreamRunner) Run(ctx context.Context, req gateway.ChatRequest, messageID string) {
	if r.program == nil {
		return
	}
	if r.client == nil {
		r.program.Send(StreamErrorMsg{
			MessageID: messageID,
			Err:       gateway.ErrNotConfigured,
		})
		return
	}

	r.program.Send(NewStreamStartMsg(messageID))

	stats := model.NewStatistics()
	isFirst := true
	tokenCount := 0

	r.client.StreamChat(ctx, req, gateway.Callbacks{
		OnDelta: func(content string) {
			tokenCount++
			r.program.Send(StreamTokenMsg{
				MessageID: messageID,
				Token:     content,
				IsFirst:   isFirst,
			})
			if isFirst {
				stats.RecordFirstToken()
				isFirst = false
			}
		},
		OnDone: func() {
			stats.Finalize(tokenCount)
			r.program.Send(StreamCompleteMsg{
				MessageID: messageID,
				Stats:     stats,
			})
		},
		OnError: func(err error) {
			r.program.Send(StreamErrorMsg{
				MessageID: messageID,
				Err:       err,
			})
		},
	})
}
