// Package storage persists conversations in an embedded SQLite database.
package storage

import (
	"database/sql"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const dbFileName = "polychat.db"

// Store is the persistence gateway for chats and messages.
type Store struct {
	db *sql.DB
}

// Open creates or opens the chat database under dataDir.
func Open(dataDir string) (*Store, error) {
	return OpenPath(filepath.Join(dataDir, dbFileName))
}

// OpenPath opens the database at an explicit path. Used by tests.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

func (s *Store) initialize() error {
	if _, err := s.db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		return err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS chats (
		chat_id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		enabled_providers TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS messages (
		message_id INTEGER PRIMARY KEY AUTOINCREMENT,
		chat_id INTEGER NOT NULL REFERENCES chats(chat_id) ON DELETE CASCADE,
		content TEXT NOT NULL,
		image_data TEXT NOT NULL DEFAULT '',
		linked_message_id INTEGER NOT NULL DEFAULT 0,
		origin TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
