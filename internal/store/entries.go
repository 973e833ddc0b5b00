package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kilupskalvis/kbsync/internal/models"
)

// UpsertEntry writes a knowledge entry keyed by identity and returns its
// id. The first insert generates the id; re-ingestion of the same
// identity updates in place and keeps id and created_at stable.
func (s *Store) UpsertEntry(entry *models.KnowledgeEntry) (string, error) {
	metaJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		return "", fmt.Errorf("failed to serialize entry metadata: %w", err)
	}

	now := time.Now().UTC()

	existing, err := s.GetEntryByIdentity(entry.Identity)
	if err != nil {
		return "", err
	}

	if existing != nil {
		_, err = s.db.Exec(`
			UPDATE knowledge_entries
			SET name = ?, description_excerpt = ?, metadata = ?, updated_at = ?
			WHERE identity = ?
		`, entry.Name, entry.DescriptionExcerpt, string(metaJSON), now.Unix(), entry.Identity)
		if err != nil {
			return "", fmt.Errorf("failed to update entry %s: %w", entry.Identity, err)
		}
		return existing.ID, nil
	}

	id := entry.ID
	if id == "" {
		id = uuid.New().String()
	}

	_, err = s.db.Exec(`
		INSERT INTO knowledge_entries (id, identity, name, description_excerpt, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, entry.Identity, entry.Name, entry.DescriptionExcerpt, string(metaJSON), now.Unix(), now.Unix())
	if err != nil {
		return "", fmt.Errorf("failed to insert entry %s: %w", entry.Identity, err)
	}

	return id, nil
}

// GetEntry fetches an entry by id, nil when missing.
func (s *Store) GetEntry(id string) (*models.KnowledgeEntry, error) {
	return s.scanOne(s.db.QueryRow(`
		SELECT id, identity, name, description_excerpt, metadata, created_at, updated_at
		FROM knowledge_entries WHERE id = ?
	`, id))
}

// GetEntryByIdentity fetches an entry by source identity, nil when
// missing.
func (s *Store) GetEntryByIdentity(identity string) (*models.KnowledgeEntry, error) {
	return s.scanOne(s.db.QueryRow(`
		SELECT id, identity, name, description_excerpt, metadata, created_at, updated_at
		FROM knowledge_entries WHERE identity = ?
	`, identity))
}

// AllEntries returns all knowledge entries ordered by identity. This is
// the query surface the filter engine evaluates over.
func (s *Store) AllEntries() ([]*models.KnowledgeEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, identity, name, description_excerpt, metadata, created_at, updated_at
		FROM knowledge_entries ORDER BY identity
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.KnowledgeEntry
	for rows.Next() {
		entry, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// DeleteEntryByIdentity removes the entry for a vanished source record.
// Returns the deleted entry id, empty when nothing was deleted.
func (s *Store) DeleteEntryByIdentity(identity string) (string, error) {
	existing, err := s.GetEntryByIdentity(identity)
	if err != nil {
		return "", err
	}
	if existing == nil {
		return "", nil
	}

	_, err = s.db.Exec("DELETE FROM knowledge_entries WHERE identity = ?", identity)
	if err != nil {
		return "", fmt.Errorf("failed to delete entry %s: %w", identity, err)
	}
	return existing.ID, nil
}

// EntryCount returns the number of knowledge entries.
func (s *Store) EntryCount() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM knowledge_entries").Scan(&count)
	return count, err
}

func (s *Store) scanOne(row *sql.Row) (*models.KnowledgeEntry, error) {
	entry, err := scanEntry(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func scanEntry(scan func(...interface{}) error) (*models.KnowledgeEntry, error) {
	var entry models.KnowledgeEntry
	var metaJSON string
	var createdAt, updatedAt int64

	if err := scan(&entry.ID, &entry.Identity, &entry.Name, &entry.DescriptionExcerpt, &metaJSON, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(metaJSON), &entry.Metadata); err != nil {
		return nil, fmt.Errorf("failed to parse metadata for %s: %w", entry.Identity, err)
	}

	entry.CreatedAt = time.Unix(createdAt, 0).UTC()
	entry.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &entry, nil
}
