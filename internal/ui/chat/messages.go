// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file defines all Bubble Tea message types used by the chat interface.
// Messages are organized into the following categories:
//   - Streaming: Stream start, token delivery, completion, and errors
//   - Conversation: Load, list, save, and reset
//   - UI State: Resize, errors, and clipboard
//
// Every streaming message carries the ID of the assistant message it belongs
// to. Handlers drop messages whose ID does not match the active stream, so a
// reply that finishes after the user has already moved on can never touch
// the wrong message.
package chat

import (
	"time"

	"github.com/jeranaias/smartassist/internal/model"
	"github.com/jeranaias/smartassist/internal/storage"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamStartMsg signals that streaming has begun.
type StreamStartMsg struct {
	MessageID string
	StartTime time.Time
}

// StreamTokenMsg delivers a new token from the stream.
type StreamTokenMsg struct {
	MessageID string
	Token     string
	IsFirst   bool
}

// StreamCompleteMsg signals that streaming has finished.
type StreamCompleteMsg struct {
	MessageID string
	Stats     *model.Statistics
}

// StreamErrorMsg signals an error during streaming.
type StreamErrorMsg struct {
	MessageID string
	Err       error
}

// StreamTickMsg is sent at 30fps during streaming to batch render tokens.
// This prevents excessive rendering which causes flicker and high CPU.
type StreamTickMsg struct {
	Time time.Time
}

// =============================================================================
// CONVERSATION MESSAGES
// =============================================================================

// ConversationLoadedMsg delivers a loaded conversation.
type ConversationLoadedMsg struct {
	Conversation *model.Conversation
	Err          error
}

// ConversationListMsg delivers the stored conversation list.
type ConversationListMsg struct {
	Conversations []storage.ConversationMeta
	Err           error
}

// ConversationSavedMsg confirms a save operation.
type ConversationSavedMsg struct {
	ID  string
	Err error
}

// =============================================================================
// UI STATE MESSAGES
// =============================================================================

// ErrorMsg displays an error banner to the user.
type ErrorMsg struct {
	Title       string
	Message     string
	Suggestions []string
}

// ErrorDismissMsg dismisses the current error banner.
type ErrorDismissMsg struct{}

// CopyCompleteMsg confirms a clipboard copy operation.
type CopyCompleteMsg struct {
	Err error
}

// StatusMsg shows a transient status line message.
type StatusMsg struct {
	Text string
}

// StatusExpireMsg clears the transient status line.
type StatusExpireMsg struct{}

// =============================================================================
// HELPER CONSTRUCTORS
// =============================================================================

// NewStreamStartMsg creates a StreamStartMsg with the current timestamp.
func NewStreamStartMsg(messageID string) StreamStartMsg {
	return StreamStartMsg{
		MessageID: messageID,
		StartTime: time.Now(),
	}
}

// NewErrorMsg creates an error banner message.
func NewErrorMsg(title, message string) ErrorMsg {
	return ErrorMsg{
		Title:   title,
		Message: message,
	}
}

// NewErrorMsgWithSuggestions creates an error banner with actionable suggestions.
func NewErrorMsgWithSuggestions(title, message string, suggestions []string) ErrorMsg {
	return ErrorMsg{
		Title:       title,
		Message:     message,
		Suggestions: suggestions,
	}
}
