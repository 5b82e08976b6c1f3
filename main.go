// SmartAssist - a multi-persona AI chat assistant for the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/jeranaias/smartassist/internal/config"
	"github.com/jeranaias/smartassist/internal/gateway"
	"github.com/jeranaias/smartassist/internal/mode"
	"github.com/jeranaias/smartassist/internal/relay"
	"github.com/jeranaias/smartassist/internal/storage"
	"github.com/jeranaias/smartassist/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

const usage = `smartassist - multi-persona AI chat for the terminal

Usage:
  smartassist                    Start the chat TUI
  smartassist serve              Run the relay proxy
  smartassist export             List stored conversations
  smartassist export <id>        Print a conversation as Markdown
  smartassist export <id> --json Print a conversation as JSON
  smartassist version            Print version information
  smartassist help               Show this help

The relay requires SMARTASSIST_GATEWAY_KEY (or gateway.api_key in
~/.smartassist/config.toml). The TUI talks to the relay at
SMARTASSIST_RELAY_URL (default http://127.0.0.1:8787).`

func main() {
	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "", "tui", "chat":
		runTUI()
	case "serve":
		runServe()
	case "export":
		runExport(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("smartassist %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
	case "help", "--help", "-h":
		fmt.Println(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n%s\n", cmd, usage)
		os.Exit(1)
	}
}

// =============================================================================
// TUI
// =============================================================================

func runTUI() {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "smartassist requires an interactive terminal; did you mean 'smartassist serve'?")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	startMode := mode.Default()
	if m, err := mode.Get(mode.ID(cfg.UI.DefaultMode)); err == nil {
		startMode = m
	}

	client := gateway.NewClient(cfg.Relay.URL)
	store := openStore(cfg)

	m := chat.New(client, store, startMode)
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	m.SetProgram(p)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running smartassist: %v\n", err)
		os.Exit(1)
	}
}

// openStore opens the conversation store and, when enabled, its search
// index. Storage failures degrade to an in-memory-only session rather
// than blocking startup.
func openStore(cfg *config.Config) *storage.ConversationStore {
	var store *storage.ConversationStore
	var err error
	if cfg.Storage.Dir != "" {
		store, err = storage.NewConversationStoreWithDir(cfg.Storage.Dir)
	} else {
		store, err = storage.NewConversationStore()
	}
	if err != nil {
		log.Printf("STORAGE_OPEN_FAILED | error=%v", err)
		return nil
	}
	store.MaxConversations = cfg.Storage.MaxConversations

	if cfg.Storage.IndexEnabled {
		idx, err := storage.OpenIndex(filepath.Join(store.BaseDir, "index.db"))
		if err != nil {
			log.Printf("INDEX_OPEN_FAILED | error=%v", err)
		} else {
			store.AttachIndex(idx)
		}
	}
	return store
}

// =============================================================================
// EXPORT
// =============================================================================

// runExport prints a stored conversation to stdout. With no arguments it
// lists the stored conversations so the ID can be found.
func runExport(args []string) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	store := openStore(cfg)
	if store == nil {
		fmt.Fprintln(os.Stderr, "Error: conversation storage is unavailable")
		os.Exit(1)
	}

	var id string
	asJSON := false
	for _, arg := range args {
		if arg == "--json" || arg == "-json" {
			asJSON = true
		} else {
			id = arg
		}
	}

	if id == "" {
		metas, err := store.List()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing conversations: %v\n", err)
			os.Exit(1)
		}
		if len(metas) == 0 {
			fmt.Println("No saved conversations.")
			return
		}
		for _, meta := range metas {
			fmt.Printf("%s  %-12s %3d msgs  %s\n",
				meta.ID, meta.Mode, meta.MessageCount, meta.Title)
		}
		return
	}

	conv, err := store.Load(id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading conversation %s: %v\n", id, err)
		os.Exit(1)
	}

	if asJSON {
		out, err := conv.ExportJSON()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error exporting conversation: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
		return
	}
	fmt.Print(conv.ExportMarkdown())
}

// =============================================================================
// RELAY
// =============================================================================

func runServe() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	srv, err := relay.NewServer(relay.Config{
		Port:           cfg.Relay.Port,
		UpstreamURL:    cfg.Gateway.UpstreamURL,
		Model:          cfg.Gateway.Model,
		Temperature:    cfg.Gateway.Temperature,
		APIKey:         cfg.Gateway.APIKey,
		AllowedOrigins: cfg.Relay.AllowedOrigins,
		RatePerMinute:  cfg.Relay.RatePerMinute,
		RateBurst:      cfg.Relay.RateBurst,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if err == relay.ErrMissingCredential {
			fmt.Fprintln(os.Stderr, "Set SMARTASSIST_GATEWAY_KEY or gateway.api_key in the config file.")
		}
		os.Exit(1)
	}

	// Hot-reload CORS origins and rate limits on config file changes.
	if path, err := config.ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			watcher, werr := relay.NewConfigWatcher(path, func(p string) {
				reloaded, lerr := config.LoadFromPath(p)
				if lerr != nil {
					log.Printf("CONFIG_RELOAD_FAILED | path=%s error=%v", p, lerr)
					return
				}
				srv.ApplyConfig(reloaded.Relay.AllowedOrigins, reloaded.Relay.RatePerMinute, reloaded.Relay.RateBurst)
			})
			if werr != nil {
				log.Printf("CONFIG_WATCH_FAILED | error=%v", werr)
			} else if werr := watcher.Watch(); werr != nil {
				log.Printf("CONFIG_WATCH_FAILED | error=%v", werr)
			} else {
				defer watcher.Close()
			}
		}
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	done := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("RELAY_SHUTDOWN | signal=%s", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("RELAY_SHUTDOWN_ERROR | error=%v", err)
		}
		close(done)
	}()

	if err := srv.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Relay error: %v\n", err)
		os.Exit(1)
	}
	<-done
}
