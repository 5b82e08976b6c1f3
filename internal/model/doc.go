// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the core domain types used throughout the application
// for representing chat transcripts across the assistant modes.
//
// # Key Types
//
//   - Conversation: Container for a chat session with messages and metadata
//   - Message: Single message with role, content, timestamp, and streaming state
//   - Role: Message role enumeration (user, assistant, system)
//   - Statistics: Timing and token counts for a single generation
//
// # Usage
//
// Create a new conversation for a mode:
//
//	conv := model.NewConversation(mode.Default())
//	conv.AddUserMessage("Hello!")
//
// The greeting bubble seeded by NewConversation is display-only: it is
// excluded from ToGatewayMessages and never persisted.
package model
