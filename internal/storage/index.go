// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLite schema for the message search index with FTS (Full Text Search)
const indexSchema = `
CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    conv_id TEXT NOT NULL,
    msg_id TEXT NOT NULL UNIQUE,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_conv ON messages(conv_id);

CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
    content,
    content='messages',
    content_rowid='id',
    tokenize='porter unicode61'
);

CREATE TRIGGER IF NOT EXISTS messages_ai AFTER INSERT ON messages BEGIN
    INSERT INTO messages_fts(rowid, content) VALUES (new.id, new.content);
END;

CREATE TRIGGER IF NOT EXISTS messages_ad AFTER DELETE ON messages BEGIN
    DELETE FROM messages_fts WHERE rowid = old.id;
END;

CREATE TRIGGER IF NOT EXISTS messages_au AFTER UPDATE ON messages BEGIN
    DELETE FROM messages_fts WHERE rowid = old.id;
    INSERT INTO messages_fts(rowid, content) VALUES (new.id, new.content);
END;
`

// Index is a SQLite-backed full-text index over stored messages.
//
// All index writes are best-effort: the JSON files remain the source of
// truth and a broken index only degrades search back to a linear scan.
type Index struct {
	db *sql.DB
}

// OpenIndex opens (or creates) the search index database.
func OpenIndex(dbPath string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(indexSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize index schema: %w", err)
	}

	return &Index{db: db}, nil
}

// Close closes the index database.
func (idx *Index) Close() error {
	return idx.db.Close()
}

// IndexConversation replaces the indexed rows for a conversation with the
// conversation's current messages. Failures are logged, never returned.
func (idx *Index) IndexConversation(conv *StoredConversation) {
	tx, err := idx.db.Begin()
	if err != nil {
		log.Printf("INDEX_WRITE_FAILED | conv=%s error=%v", conv.ID, err)
		return
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM messages WHERE conv_id = ?", conv.ID); err != nil {
		log.Printf("INDEX_WRITE_FAILED | conv=%s error=%v", conv.ID, err)
		return
	}

	for _, msg := range conv.Messages {
		_, err := tx.Exec(
			"INSERT INTO messages (conv_id, msg_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)",
			conv.ID, msg.ID, msg.Role, norm.NFC.String(msg.Content), msg.Timestamp.Unix(),
		)
		if err != nil {
			log.Printf("INDEX_WRITE_FAILED | conv=%s msg=%s error=%v", conv.ID, msg.ID, err)
			return
		}
	}

	if err := tx.Commit(); err != nil {
		log.Printf("INDEX_WRITE_FAILED | conv=%s error=%v", conv.ID, err)
	}
}

// RemoveConversation drops all indexed rows for a conversation.
func (idx *Index) RemoveConversation(convID string) {
	if _, err := idx.db.Exec("DELETE FROM messages WHERE conv_id = ?", convID); err != nil {
		log.Printf("INDEX_DELETE_FAILED | conv=%s error=%v", convID, err)
	}
}

// Search returns conversation IDs whose messages match the query, best
// matches first, deduplicated.
func (idx *Index) Search(query string) ([]string, error) {
	rows, err := idx.db.Query(`
		SELECT m.conv_id, min(rank) AS best
		FROM messages_fts f
		JOIN messages m ON m.id = f.rowid
		WHERE messages_fts MATCH ?
		GROUP BY m.conv_id
		ORDER BY best`,
		ftsQuery(query),
	)
	if err != nil {
		return nil, fmt.Errorf("index search failed: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		var rank float64
		if err := rows.Scan(&id, &rank); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ftsQuery converts free text into a safe FTS5 match expression: each token
// is quoted and prefix-matched.
func ftsQuery(query string) string {
	fields := strings.Fields(norm.NFC.String(query))
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ReplaceAll(f, `"`, `""`)
		parts = append(parts, `"`+f+`"*`)
	}
	return strings.Join(parts, " ")
}
