// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides conversation persistence for SmartAssist.
package storage

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// CONVERSATION STORE TESTS
// =============================================================================

// seedConversation stores an empty conversation fixture and returns it with
// its assigned ID.
func seedConversation(t *testing.T, store *ConversationStore, modeID, title string) *StoredConversation {
	t.Helper()
	conv := &StoredConversation{Mode: modeID, Title: title}
	if _, err := store.Save(conv); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	return conv
}

func TestNewConversationStoreWithDir(t *testing.T) {
	tempDir := t.TempDir()

	store, err := NewConversationStoreWithDir(tempDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if store.BaseDir != tempDir {
		t.Errorf("BaseDir = %q, want %q", store.BaseDir, tempDir)
	}
	if store.MaxConversations != 100 {
		t.Errorf("MaxConversations = %d, want 100", store.MaxConversations)
	}
}

func TestConversationStore_SaveAndLoad(t *testing.T) {
	store, err := NewConversationStoreWithDir(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	conv := &StoredConversation{
		Mode: "budget",
		Messages: []StoredMessage{
			{ID: "msg1", Role: "user", Content: "Plan my term budget", Timestamp: time.Now()},
			{ID: "msg2", Role: "assistant", Content: "Here is a plan.", Timestamp: time.Now()},
		},
	}

	id, err := store.Save(conv)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !strings.HasPrefix(id, "conv_") {
		t.Errorf("ID should start with 'conv_', got %q", id)
	}

	loaded, err := store.Load(id)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Mode != "budget" {
		t.Errorf("Loaded Mode = %q, want %q", loaded.Mode, "budget")
	}
	if len(loaded.Messages) != 2 {
		t.Errorf("Loaded Messages count = %d, want 2", len(loaded.Messages))
	}
}

func TestConversationStore_TitleFromFirstUserMessage(t *testing.T) {
	store, _ := NewConversationStoreWithDir(t.TempDir())

	conv := &StoredConversation{
		Messages: []StoredMessage{
			{Role: "user", Content: strings.Repeat("b", 70)},
		},
	}
	id, err := store.Save(conv)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, _ := store.Load(id)
	if len([]rune(loaded.Title)) != 50 {
		t.Errorf("Title length = %d runes, want 50", len([]rune(loaded.Title)))
	}
	if !strings.HasSuffix(loaded.Title, "...") {
		t.Errorf("Title should end with ellipsis, got %q", loaded.Title)
	}
}

func TestConversationStore_SaveAssignsDefaults(t *testing.T) {
	store, _ := NewConversationStoreWithDir(t.TempDir())

	conv := &StoredConversation{Mode: "health"}
	if _, err := store.Save(conv); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if conv.ID == "" {
		t.Error("Save should assign an ID")
	}
	if conv.Title != "New conversation" {
		t.Errorf("Empty conversation title = %q, want %q", conv.Title, "New conversation")
	}
}

func TestConversationStore_AppendMessage(t *testing.T) {
	store, _ := NewConversationStoreWithDir(t.TempDir())

	conv := seedConversation(t, store, "school", "")
	err := store.AppendMessage(conv.ID, StoredMessage{
		ID: "m1", Role: "user", Content: "Explain photosynthesis", Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	loaded, _ := store.Load(conv.ID)
	if len(loaded.Messages) != 1 {
		t.Fatalf("Messages = %d, want 1", len(loaded.Messages))
	}
	if loaded.Messages[0].Content != "Explain photosynthesis" {
		t.Errorf("Content = %q", loaded.Messages[0].Content)
	}
}

func TestConversationStore_AppendMessage_NotFound(t *testing.T) {
	store, _ := NewConversationStoreWithDir(t.TempDir())

	err := store.AppendMessage("conv_missing", StoredMessage{Role: "user", Content: "x"})
	if !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("Expected ErrConversationNotFound, got %v", err)
	}
}

func TestConversationStore_LoadNotFound(t *testing.T) {
	store, _ := NewConversationStoreWithDir(t.TempDir())

	_, err := store.Load("nonexistent-id")
	if !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("Expected ErrConversationNotFound, got %v", err)
	}
}

func TestConversationStore_List_SortedByUpdatedAt(t *testing.T) {
	store, _ := NewConversationStoreWithDir(t.TempDir())

	first := seedConversation(t, store, "budget", "older")
	second := seedConversation(t, store, "budget", "newer")

	// Touch the first one so it becomes most recent
	time.Sleep(10 * time.Millisecond)
	if err := store.AppendMessage(first.ID, StoredMessage{ID: "m", Role: "user", Content: "hi", Timestamp: time.Now()}); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	metas, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("List returned %d, want 2", len(metas))
	}
	if metas[0].ID != first.ID {
		t.Errorf("Most recent = %q, want %q", metas[0].ID, first.ID)
	}
	if metas[1].ID != second.ID {
		t.Errorf("Second = %q, want %q", metas[1].ID, second.ID)
	}
}

func TestConversationStore_Delete(t *testing.T) {
	store, _ := NewConversationStoreWithDir(t.TempDir())

	conv := seedConversation(t, store, "budget", "t")
	if err := store.Delete(conv.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	_, err := store.Load(conv.ID)
	if !errors.Is(err, ErrConversationNotFound) {
		t.Error("Conversation should not exist after delete")
	}
}

func TestConversationStore_DeleteNotFound(t *testing.T) {
	store, _ := NewConversationStoreWithDir(t.TempDir())

	err := store.Delete("conv_missing")
	if !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("Expected ErrConversationNotFound, got %v", err)
	}
}

func TestConversationStore_Rename(t *testing.T) {
	store, _ := NewConversationStoreWithDir(t.TempDir())

	conv := seedConversation(t, store, "budget", "old title")
	if err := store.Rename(conv.ID, "new title"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}

	loaded, _ := store.Load(conv.ID)
	if loaded.Title != "new title" {
		t.Errorf("Title = %q, want %q", loaded.Title, "new title")
	}
}

func TestConversationStore_EnforceLimit(t *testing.T) {
	store, _ := NewConversationStoreWithDir(t.TempDir())
	store.MaxConversations = 3

	for i := 0; i < 5; i++ {
		seedConversation(t, store, "budget", "t")
		time.Sleep(5 * time.Millisecond)
	}

	metas, _ := store.List()
	if len(metas) != 3 {
		t.Errorf("Stored conversations = %d, want 3", len(metas))
	}
}

func TestConversationStore_SearchMessages_LinearScan(t *testing.T) {
	store, _ := NewConversationStoreWithDir(t.TempDir())

	conv := &StoredConversation{
		Mode: "agriculture",
		Messages: []StoredMessage{
			{ID: "m1", Role: "user", Content: "tomato planting season", Timestamp: time.Now()},
		},
	}
	store.Save(conv)
	seedConversation(t, store, "budget", "unrelated")

	results, err := store.SearchMessages("tomato")
	if err != nil {
		t.Fatalf("SearchMessages failed: %v", err)
	}
	if len(results) != 1 || results[0].ID != conv.ID {
		t.Errorf("Search results = %+v", results)
	}
}

func TestStoredConversation_ExportMarkdown(t *testing.T) {
	conv := &StoredConversation{
		ID:    "conv_ab",
		Title: "Budget help",
		Mode:  "budget",
		Messages: []StoredMessage{
			{Role: "user", Content: "Help me budget", Timestamp: time.Now()},
			{Role: "assistant", Content: "Sure.", Timestamp: time.Now()},
		},
	}

	md := conv.ExportMarkdown()
	if !strings.Contains(md, "# Budget help") {
		t.Error("Export should contain the title heading")
	}
	if !strings.Contains(md, "**SmartAssist**") {
		t.Error("Export should label assistant messages")
	}
}
