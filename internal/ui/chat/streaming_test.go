// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"testing"
	"time"

	"github.com/jeranaias/smartassist/internal/gateway"
)

func chatRequestFixture() gateway.ChatRequest {
	return gateway.ChatRequest{
		Mode:     "budget",
		Messages: []gateway.Message{{Role: "user", Content: "hi"}},
	}
}

func TestStreamingBufferBatchThreshold(t *testing.T) {
	buf := NewStreamingBuffer()

	// Below the batch size and inside the frame window, Flush holds back.
	buf.Write("a")
	if content, ok := buf.Flush(); ok {
		t.Errorf("Flush released early: %q", content)
	}

	for i := 0; i < streamBatchSize; i++ {
		buf.Write("b")
	}
	content, ok := buf.Flush()
	if !ok {
		t.Fatal("Flush did not release at batch size")
	}
	if len(content) != streamBatchSize+1 {
		t.Errorf("flushed %d bytes, want %d", len(content), streamBatchSize+1)
	}
}

func TestStreamingBufferFlushesAfterFrameInterval(t *testing.T) {
	buf := NewStreamingBuffer()
	buf.Write("x")

	time.Sleep(40 * time.Millisecond)

	if _, ok := buf.Flush(); !ok {
		t.Error("Flush did not release after the frame interval")
	}
}

func TestStreamingBufferForceFlush(t *testing.T) {
	buf := NewStreamingBuffer()

	if _, ok := buf.ForceFlush(); ok {
		t.Error("ForceFlush reported content on an empty buffer")
	}

	buf.Write("partial")
	content, ok := buf.ForceFlush()
	if !ok || content != "partial" {
		t.Errorf("ForceFlush = %q, %v; want %q, true", content, ok, "partial")
	}
	if buf.Pending() != 0 {
		t.Errorf("Pending = %d after ForceFlush, want 0", buf.Pending())
	}
}

func TestStreamingBufferReset(t *testing.T) {
	buf := NewStreamingBuffer()
	buf.Write("stale")
	buf.Reset()

	if buf.Pending() != 0 {
		t.Errorf("Pending = %d after Reset, want 0", buf.Pending())
	}
	if content, ok := buf.ForceFlush(); ok {
		t.Errorf("Reset left content behind: %q", content)
	}
}

func TestCancelManagerIsIdempotent(t *testing.T) {
	cm := newCancelManager()

	// Cancel with nothing stored must not panic.
	cm.cancel()

	calls := 0
	cm.set(func() { calls++ })
	cm.cancel()
	cm.cancel()

	if calls != 1 {
		t.Errorf("cancel func invoked %d times, want 1", calls)
	}
}

func TestCancelManagerSetCancelsPrevious(t *testing.T) {
	cm := newCancelManager()

	firstCancelled := false
	cm.set(func() { firstCancelled = true })
	cm.set(func() {})

	if !firstCancelled {
		t.Error("replacing the cancel func did not cancel the previous stream")
	}
}

func TestStreamRunnerWithoutProgramIsNoOp(t *testing.T) {
	r := NewStreamRunner(nil, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Run(context.Background(), chatRequestFixture(), "msg-1")
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run blocked with no program wired")
	}
}
