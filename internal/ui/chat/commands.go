// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/smartassist/internal/gateway"
	"github.com/jeranaias/smartassist/internal/mode"
	"github.com/jeranaias/smartassist/internal/model"
	"github.com/jeranaias/smartassist/internal/storage"
)

// statusDuration is how long transient status bar messages stay visible.
const statusDuration = 3 * time.Second

// =============================================================================
// STORAGE CONVERSION
// =============================================================================

// toStored converts a conversation to its persisted form. The greeting
// bubble, in-flight streaming placeholders, and failed messages are all
// session-only and never written to disk.
func toStored(conv *model.Conversation) *storage.StoredConversation {
	stored := &storage.StoredConversation{
		ID:        conv.ID,
		Title:     conv.GetTitle(),
		Mode:      string(conv.Mode),
		CreatedAt: conv.CreatedAt,
		UpdatedAt: conv.UpdatedAt,
	}
	for _, msg := range conv.Messages {
		if msg.Greeting || msg.IsStreaming || msg.Failed || msg.IsEmpty() {
			continue
		}
		stored.Messages = append(stored.Messages, toStoredMessage(msg))
	}
	return stored
}

// toStoredMessage converts a single message to its persisted form.
func toStoredMessage(msg *model.Message) storage.StoredMessage {
	return storage.StoredMessage{
		ID:           msg.ID,
		Role:         msg.Role.String(),
		Content:      msg.Content,
		Timestamp:    msg.Timestamp,
		TokenCount:   msg.TokenCount,
		DurationMs:   msg.TotalDuration.Milliseconds(),
		TokensPerSec: msg.TokensPerSec,
		TTFTMs:       msg.TTFT.Milliseconds(),
	}
}

// fromStored rebuilds an in-memory conversation from its persisted form.
// The mode greeting is re-seeded at the top since it is never stored.
func fromStored(stored *storage.StoredConversation) *model.Conversation {
	m, err := mode.Get(mode.ID(stored.Mode))
	if err != nil {
		m = mode.Default()
	}

	conv := model.NewConversation(m)
	conv.ID = stored.ID
	conv.SetTitle(stored.Title)
	conv.CreatedAt = stored.CreatedAt
	conv.UpdatedAt = stored.UpdatedAt

	for _, sm := range stored.Messages {
		msg := &model.Message{
			ID:           sm.ID,
			Role:         model.Role(sm.Role),
			Content:      sm.Content,
			Timestamp:    sm.Timestamp,
			TokenCount:   sm.TokenCount,
			TokensPerSec: sm.TokensPerSec,
		}
		msg.TotalDuration = time.Duration(sm.DurationMs) * time.Millisecond
		msg.TTFT = time.Duration(sm.TTFTMs) * time.Millisecond
		conv.AddMessage(msg)
	}
	return conv
}

// =============================================================================
// PERSISTENCE COMMANDS
// =============================================================================

// saveConversationCmd snapshots and persists the whole conversation.
// Storage failures are swallowed: a broken disk degrades persistence, it
// never blocks the chat.
func saveConversationCmd(store *storage.ConversationStore, conv *model.Conversation) tea.Cmd {
	if store == nil || conv == nil {
		return nil
	}
	snapshot := toStored(conv)
	return func() tea.Msg {
		id, err := store.Save(snapshot)
		if err != nil {
			log.Printf("STORAGE_SAVE_FAILED | error=%v", err)
			if errors.Is(err, storage.ErrStorageUnavailable) {
				return ConversationSavedMsg{ID: snapshot.ID}
			}
			return ConversationSavedMsg{ID: snapshot.ID, Err: err}
		}
		return ConversationSavedMsg{ID: id}
	}
}

// appendMessageCmd appends one message to an already-persisted conversation.
func appendMessageCmd(store *storage.ConversationStore, convID string, msg *model.Message) tea.Cmd {
	if store == nil || convID == "" || msg == nil {
		return nil
	}
	stored := toStoredMessage(msg)
	return func() tea.Msg {
		if err := store.AppendMessage(convID, stored); err != nil {
			log.Printf("STORAGE_APPEND_FAILED | conversation=%s error=%v", convID, err)
			if errors.Is(err, storage.ErrStorageUnavailable) {
				return ConversationSavedMsg{ID: convID}
			}
			return ConversationSavedMsg{ID: convID, Err: err}
		}
		return ConversationSavedMsg{ID: convID}
	}
}

// listConversationsCmd fetches conversation metadata for the picker overlay.
func listConversationsCmd(store *storage.ConversationStore) tea.Cmd {
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		metas, err := store.List()
		return ConversationListMsg{Conversations: metas, Err: err}
	}
}

// searchConversationsCmd filters the overlay list to conversations whose
// messages match the query. An empty query restores the full list.
func searchConversationsCmd(store *storage.ConversationStore, query string) tea.Cmd {
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		metas, err := store.SearchMessages(query)
		if err != nil {
			log.Printf("STORAGE_SEARCH_FAILED | query=%q error=%v", query, err)
		}
		return ConversationListMsg{Conversations: metas, Err: err}
	}
}

// renameConversationCmd retitles a stored conversation and refreshes the
// overlay list.
func renameConversationCmd(store *storage.ConversationStore, id, title string) tea.Cmd {
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		if err := store.Rename(id, title); err != nil {
			log.Printf("STORAGE_RENAME_FAILED | conversation=%s error=%v", id, err)
		}
		metas, err := store.List()
		return ConversationListMsg{Conversations: metas, Err: err}
	}
}

// deleteConversationCmd removes a stored conversation and refreshes the
// overlay list.
func deleteConversationCmd(store *storage.ConversationStore, id string) tea.Cmd {
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		if err := store.Delete(id); err != nil {
			log.Printf("STORAGE_DELETE_FAILED | conversation=%s error=%v", id, err)
		}
		metas, err := store.List()
		return ConversationListMsg{Conversations: metas, Err: err}
	}
}

// loadConversationCmd loads a stored conversation and rebuilds its
// in-memory form.
func loadConversationCmd(store *storage.ConversationStore, id string) tea.Cmd {
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		stored, err := store.Load(id)
		if err != nil {
			return ConversationLoadedMsg{Err: err}
		}
		return ConversationLoadedMsg{Conversation: fromStored(stored)}
	}
}

// =============================================================================
// MISC COMMANDS
// =============================================================================

// checkRelayCmd pings the relay at startup so a misconfigured relay URL
// shows up before the first send fails.
func checkRelayCmd(client *gateway.Client) tea.Cmd {
	if client == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Check(ctx); err != nil {
			log.Printf("RELAY_CHECK_FAILED | error=%v", err)
			return StatusMsg{Text: "Relay unreachable, check relay.url in config"}
		}
		return nil
	}
}

// copyToClipboardCmd copies text to the system clipboard.
func copyToClipboardCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return CopyCompleteMsg{Err: clipboard.WriteAll(text)}
	}
}

// statusExpireCmd clears the status bar message after statusDuration.
func statusExpireCmd() tea.Cmd {
	return tea.Tick(statusDuration, func(time.Time) tea.Msg {
		return StatusExpireMsg{}
	})
}

// formatStats renders the per-message metrics line shown under assistant
// replies, e.g. "128 tokens · 42.3 tok/s · 1.2s".
func formatStats(msg *model.Message) string {
	if msg.TokenCount == 0 {
		return ""
	}
	return fmt.Sprintf("%d tokens · %.1f tok/s · %.1fs",
		msg.TokenCount, msg.TokensPerSec, msg.TotalDuration.Seconds())
}
