// Package store provides SQLite-based persistence for kbsync. It holds
// the content/metadata store (knowledge entries) and the sync ledger
// (identity to fingerprint mapping used for change detection).
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store represents the SQLite database store.
type Store struct {
	db *sql.DB
}

// New creates a new store connection.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Initialize creates the database schema.
func (s *Store) Initialize() error {
	schema := `
	-- Content/metadata store
	CREATE TABLE IF NOT EXISTS knowledge_entries (
		id TEXT PRIMARY KEY,
		identity TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		description_excerpt TEXT,
		metadata JSON NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	-- Sync ledger: identity -> fingerprint (change-detection state)
	CREATE TABLE IF NOT EXISTS sync_state (
		identity TEXT PRIMARY KEY,
		fingerprint TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	-- Misc state (source content hash, last sync time)
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_entries_identity ON knowledge_entries(identity);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// GetKV returns a value from the kv table, empty string when missing.
func (s *Store) GetKV(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetKV stores a value in the kv table.
func (s *Store) SetKV(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
