// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides conversation persistence for SmartAssist.
//
// Conversations are JSON files written atomically; an optional SQLite
// full-text index accelerates message search. The JSON files are the
// source of truth and the index is rebuilt incrementally on save.
//
// # Key Types
//
//   - ConversationStore: save, load, list, append, delete
//   - StoredConversation: serializable conversation with metadata
//   - ConversationMeta: lightweight metadata for listing
//   - Index: SQLite FTS index over message content
//
// # Usage
//
// Create a store and persist a conversation lazily on the first message:
//
//	store, err := storage.NewConversationStoreWithDir(dir)
//	id, err := store.Save(&storage.StoredConversation{Mode: "budget"})
//	err = store.AppendMessage(id, msg)
//
// Filesystem failures surface as ErrStorageUnavailable; callers decide
// whether to swallow them (user-message appends) or surface them.
//
// # Storage Location
//
// Conversations are stored in ~/.smartassist/conversations/ as JSON files.
package storage
