// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := OpenIndex(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("OpenIndex failed: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestIndex_SearchFindsConversation(t *testing.T) {
	idx := newTestIndex(t)

	idx.IndexConversation(&StoredConversation{
		ID: "conv_1",
		Messages: []StoredMessage{
			{ID: "m1", Role: "user", Content: "How to improve soil fertility", Timestamp: time.Now()},
		},
	})
	idx.IndexConversation(&StoredConversation{
		ID: "conv_2",
		Messages: []StoredMessage{
			{ID: "m2", Role: "user", Content: "Weekly spending plan", Timestamp: time.Now()},
		},
	})

	ids, err := idx.Search("soil")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != "conv_1" {
		t.Errorf("Search = %v, want [conv_1]", ids)
	}
}

func TestIndex_PrefixMatch(t *testing.T) {
	idx := newTestIndex(t)

	idx.IndexConversation(&StoredConversation{
		ID: "conv_1",
		Messages: []StoredMessage{
			{ID: "m1", Role: "assistant", Content: "photosynthesis explained", Timestamp: time.Now()},
		},
	})

	ids, err := idx.Search("photo")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(ids) != 1 {
		t.Errorf("Prefix search = %v, want one hit", ids)
	}
}

func TestIndex_ReindexReplacesRows(t *testing.T) {
	idx := newTestIndex(t)

	conv := &StoredConversation{
		ID: "conv_1",
		Messages: []StoredMessage{
			{ID: "m1", Role: "user", Content: "old topic", Timestamp: time.Now()},
		},
	}
	idx.IndexConversation(conv)

	conv.Messages = []StoredMessage{
		{ID: "m2", Role: "user", Content: "new topic", Timestamp: time.Now()},
	}
	idx.IndexConversation(conv)

	if ids, _ := idx.Search("old"); len(ids) != 0 {
		t.Errorf("Stale rows survived reindex: %v", ids)
	}
	if ids, _ := idx.Search("new"); len(ids) != 1 {
		t.Errorf("Reindexed content not found: %v", ids)
	}
}

func TestIndex_RemoveConversation(t *testing.T) {
	idx := newTestIndex(t)

	idx.IndexConversation(&StoredConversation{
		ID: "conv_1",
		Messages: []StoredMessage{
			{ID: "m1", Role: "user", Content: "hydration tips", Timestamp: time.Now()},
		},
	})
	idx.RemoveConversation("conv_1")

	if ids, _ := idx.Search("hydration"); len(ids) != 0 {
		t.Errorf("Search after remove = %v, want empty", ids)
	}
}

func TestIndex_QuerySanitization(t *testing.T) {
	idx := newTestIndex(t)

	idx.IndexConversation(&StoredConversation{
		ID: "conv_1",
		Messages: []StoredMessage{
			{ID: "m1", Role: "user", Content: "budget plan", Timestamp: time.Now()},
		},
	})

	// FTS operators in user input must not produce a syntax error
	if _, err := idx.Search(`budget AND "plan`); err != nil {
		t.Errorf("Sanitized search failed: %v", err)
	}
}

func TestStore_SearchUsesIndex(t *testing.T) {
	store, _ := NewConversationStoreWithDir(t.TempDir())
	idx := newTestIndex(t)
	store.AttachIndex(idx)

	conv := &StoredConversation{
		Mode: "health",
		Messages: []StoredMessage{
			{ID: "m1", Role: "user", Content: "sleep quality advice", Timestamp: time.Now()},
		},
	}
	store.Save(conv)

	results, err := store.SearchMessages("sleep")
	if err != nil {
		t.Fatalf("SearchMessages failed: %v", err)
	}
	if len(results) != 1 || results[0].ID != conv.ID {
		t.Errorf("Indexed search results = %+v", results)
	}
}
