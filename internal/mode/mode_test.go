// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mode

import (
	"errors"
	"testing"
)

func TestGet(t *testing.T) {
	m, err := Get(Health)
	if err != nil {
		t.Fatalf("Get(Health) failed: %v", err)
	}
	if m.Label != "Health Assistant" {
		t.Errorf("Label = %q, want %q", m.Label, "Health Assistant")
	}
	if m.Greeting == "" {
		t.Error("Expected non-empty greeting")
	}
}

func TestGet_Unknown(t *testing.T) {
	_, err := Get("business")
	if !errors.Is(err, ErrUnknownMode) {
		t.Errorf("Expected ErrUnknownMode, got %v", err)
	}
}

func TestDefault(t *testing.T) {
	if Default().ID != Budget {
		t.Errorf("Default mode = %q, want %q", Default().ID, Budget)
	}
}

func TestList_StableOrder(t *testing.T) {
	want := []ID{Budget, Health, School, Agriculture}

	modes := List()
	if len(modes) != len(want) {
		t.Fatalf("List returned %d modes, want %d", len(modes), len(want))
	}
	for i, m := range modes {
		if m.ID != want[i] {
			t.Errorf("List()[%d].ID = %q, want %q", i, m.ID, want[i])
		}
	}
}

func TestIsValid(t *testing.T) {
	for _, id := range []ID{Budget, Health, School, Agriculture} {
		if !IsValid(id) {
			t.Errorf("IsValid(%q) = false, want true", id)
		}
	}
	if IsValid("default") {
		t.Error("IsValid(\"default\") = true, want false")
	}
}

func TestSuggestions_AllPresent(t *testing.T) {
	for _, m := range List() {
		for i, s := range m.Suggestions {
			if s == "" {
				t.Errorf("Mode %q suggestion %d is empty", m.ID, i)
			}
		}
	}
}
