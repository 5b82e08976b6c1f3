// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/smartassist/internal/mode"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestMessage_StreamingLifecycle(t *testing.T) {
	msg := NewAssistantMessage()
	if !msg.IsStreaming {
		t.Fatal("New assistant message should be streaming")
	}

	msg.AppendToken("Hello")
	msg.AppendToken(", world")

	if got := msg.GetDisplayContent(); got != "Hello, world" {
		t.Errorf("GetDisplayContent() = %q, want %q", got, "Hello, world")
	}
	if msg.Content != "" {
		t.Errorf("Content should be empty while streaming, got %q", msg.Content)
	}

	msg.FinalizeStream(nil)
	if msg.IsStreaming {
		t.Error("Message should not be streaming after finalize")
	}
	if msg.Content != "Hello, world" {
		t.Errorf("Content = %q, want %q", msg.Content, "Hello, world")
	}
}

func TestMessage_TimestampStampedOnFirstToken(t *testing.T) {
	msg := NewAssistantMessage()
	if !msg.Timestamp.IsZero() {
		t.Fatal("Placeholder should not carry a timestamp before the first token")
	}

	before := time.Now()
	msg.AppendToken("Hi")
	if msg.Timestamp.Before(before) {
		t.Errorf("Timestamp = %v, want >= %v", msg.Timestamp, before)
	}

	first := msg.Timestamp
	msg.AppendToken(" there")
	if !msg.Timestamp.Equal(first) {
		t.Error("Timestamp should not move after the first token")
	}
}

func TestMessage_FinalizeWithoutTokensStampsTimestamp(t *testing.T) {
	msg := NewAssistantMessage()
	msg.FinalizeStream(nil)
	if msg.Timestamp.IsZero() {
		t.Error("Finalized message should carry a timestamp even with no tokens")
	}
}

func TestMessage_AppendAfterFinalizeIgnored(t *testing.T) {
	msg := NewAssistantMessage()
	msg.AppendToken("done")
	msg.FinalizeStream(nil)

	msg.AppendToken(" extra")
	if msg.Content != "done" {
		t.Errorf("Content = %q, want %q", msg.Content, "done")
	}
}

func TestMessage_Preview(t *testing.T) {
	msg := NewUserMessage(strings.Repeat("a", 100))
	preview := msg.Preview(50)
	if len([]rune(preview)) != 50 {
		t.Errorf("Preview length = %d runes, want 50", len([]rune(preview)))
	}
	if !strings.HasSuffix(preview, "...") {
		t.Errorf("Preview should end with ellipsis, got %q", preview)
	}

	short := NewUserMessage("hi")
	if short.Preview(50) != "hi" {
		t.Errorf("Short preview = %q, want %q", short.Preview(50), "hi")
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestNewConversation_SeedsGreeting(t *testing.T) {
	conv := NewConversation(mode.Default())

	if conv.MessageCount() != 1 {
		t.Fatalf("MessageCount = %d, want 1", conv.MessageCount())
	}
	first := conv.Messages[0]
	if !first.Greeting {
		t.Error("First message should be the greeting")
	}
	if first.Role != RoleAssistant {
		t.Errorf("Greeting role = %q, want assistant", first.Role)
	}
	if !conv.IsFresh() {
		t.Error("New conversation should be fresh")
	}
}

func TestConversation_TitleFromFirstUserMessage(t *testing.T) {
	conv := NewConversation(mode.Default())
	conv.AddUserMessage(strings.Repeat("x", 80))

	title := conv.GetTitle()
	if len([]rune(title)) != 50 {
		t.Errorf("Title length = %d runes, want 50", len([]rune(title)))
	}

	// Title is set once and kept
	conv.AddUserMessage("second message")
	if conv.GetTitle() != title {
		t.Error("Title should not change after first user message")
	}
}

func TestConversation_ToGatewayMessages_ExcludesGreeting(t *testing.T) {
	conv := NewConversation(mode.Default())
	conv.AddUserMessage("What is a budget?")
	asst := conv.AddAssistantMessage()
	asst.AppendToken("A plan for money.")
	asst.FinalizeStream(nil)

	wire := conv.ToGatewayMessages()
	if len(wire) != 2 {
		t.Fatalf("Wire messages = %d, want 2", len(wire))
	}
	if wire[0].Role != "user" || wire[1].Role != "assistant" {
		t.Errorf("Wire roles = %q, %q", wire[0].Role, wire[1].Role)
	}
	for _, m := range wire {
		if strings.Contains(m.Content, "Welcome to SmartAssist") {
			t.Error("Greeting leaked into gateway history")
		}
	}
}

func TestConversation_ToGatewayMessages_ExcludesStreamingAndFailed(t *testing.T) {
	conv := NewConversation(mode.Default())
	conv.AddUserMessage("hi")

	// Streaming placeholder excluded
	conv.AddAssistantMessage()
	if got := len(conv.ToGatewayMessages()); got != 1 {
		t.Errorf("With streaming placeholder: wire = %d, want 1", got)
	}

	// Failed reply excluded after finalize
	conv.FinalizeLast(nil)
	conv.GetLastMessage().Failed = true
	conv.GetLastMessage().Content = "partial text"
	if got := len(conv.ToGatewayMessages()); got != 1 {
		t.Errorf("With failed reply: wire = %d, want 1", got)
	}
}

func TestConversation_TruncateAfterLastUser(t *testing.T) {
	conv := NewConversation(mode.Default())
	conv.AddUserMessage("first")
	a1 := conv.AddAssistantMessage()
	a1.AppendToken("reply one")
	a1.FinalizeStream(nil)
	conv.AddUserMessage("second")
	a2 := conv.AddAssistantMessage()
	a2.AppendToken("reply two")
	a2.FinalizeStream(nil)

	user := conv.TruncateAfterLastUser()
	if user == nil {
		t.Fatal("TruncateAfterLastUser returned nil")
	}
	if user.Content != "second" {
		t.Errorf("Truncate returned %q, want %q", user.Content, "second")
	}
	last := conv.GetLastMessage()
	if last.Role != RoleUser {
		t.Errorf("Last message after truncate = %q, want user", last.Role)
	}
	// greeting + first + reply one + second
	if conv.MessageCount() != 4 {
		t.Errorf("MessageCount = %d, want 4", conv.MessageCount())
	}
}

func TestConversation_TruncateAfterLastUser_NoUserMessages(t *testing.T) {
	conv := NewConversation(mode.Default())
	if conv.TruncateAfterLastUser() != nil {
		t.Error("Expected nil when no user messages exist")
	}
	if conv.MessageCount() != 1 {
		t.Error("Greeting should survive a no-op truncate")
	}
}

func TestConversation_AppendToLast_OnlyWhileStreaming(t *testing.T) {
	conv := NewConversation(mode.Default())
	conv.AddUserMessage("hi")

	// Last message is the (non-streaming) user message
	conv.AppendToLast("should be dropped")
	if conv.GetLastMessage().Content != "hi" {
		t.Error("AppendToLast should not modify non-streaming messages")
	}

	conv.AddAssistantMessage()
	conv.AppendToLast("token")
	conv.FinalizeLast(nil)
	if conv.GetLastMessage().Content != "token" {
		t.Errorf("Content = %q, want %q", conv.GetLastMessage().Content, "token")
	}
}

func TestConversation_Clone(t *testing.T) {
	conv := NewConversation(mode.Default())
	conv.AddUserMessage("original")

	clone := conv.Clone()
	clone.Messages[1].Content = "mutated"

	if conv.Messages[1].Content != "original" {
		t.Error("Clone should not share message memory")
	}
}

func TestConversation_PruneKeepsGreeting(t *testing.T) {
	conv := NewConversation(mode.Default())
	for i := 0; i < MaxMessages+10; i++ {
		conv.AddUserMessage("msg")
	}

	if conv.MessageCount() != MaxMessages+1 {
		t.Errorf("MessageCount = %d, want %d", conv.MessageCount(), MaxMessages+1)
	}
	if !conv.Messages[0].Greeting {
		t.Error("Greeting should survive pruning")
	}
}
