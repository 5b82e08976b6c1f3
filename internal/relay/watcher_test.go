// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package relay

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfigWatcherFiresOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("port = 8787\n"), 0600); err != nil {
		t.Fatalf("writing config failed: %v", err)
	}

	fired := make(chan string, 1)
	cw, err := NewConfigWatcher(path, func(p string) {
		select {
		case fired <- p:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewConfigWatcher failed: %v", err)
	}
	defer cw.Close()
	cw.debounce = 50 * time.Millisecond

	if err := cw.Watch(); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if err := os.WriteFile(path, []byte("port = 9999\n"), 0600); err != nil {
		t.Fatalf("rewriting config failed: %v", err)
	}

	select {
	case p := <-fired:
		if p != path {
			t.Errorf("reload path = %q, want %q", p, path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("reload callback never fired")
	}
}

func TestConfigWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("port = 8787\n"), 0600); err != nil {
		t.Fatalf("writing config failed: %v", err)
	}

	fired := make(chan string, 1)
	cw, err := NewConfigWatcher(path, func(p string) {
		select {
		case fired <- p:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewConfigWatcher failed: %v", err)
	}
	defer cw.Close()
	cw.debounce = 50 * time.Millisecond

	if err := cw.Watch(); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	other := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(other, []byte("unrelated\n"), 0600); err != nil {
		t.Fatalf("writing other file failed: %v", err)
	}

	select {
	case <-fired:
		t.Error("reload fired for an unrelated file")
	case <-time.After(500 * time.Millisecond):
	}
}
