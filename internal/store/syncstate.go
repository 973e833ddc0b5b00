package store

import (
	"fmt"
	"time"
)

// GetSyncState returns the full change-detection ledger as an identity to
// fingerprint map. Created lazily: an empty ledger means first sync.
func (s *Store) GetSyncState() (map[string]string, error) {
	rows, err := s.db.Query("SELECT identity, fingerprint FROM sync_state")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	state := make(map[string]string)
	for rows.Next() {
		var identity, fp string
		if err := rows.Scan(&identity, &fp); err != nil {
			return nil, err
		}
		state[identity] = fp
	}

	return state, rows.Err()
}

// SetFingerprint records the ledger entry for one identity. Called only
// after the corresponding store writes succeeded, so the ledger never
// runs ahead of the stores.
func (s *Store) SetFingerprint(identity, fingerprint string) error {
	_, err := s.db.Exec(`
		INSERT INTO sync_state (identity, fingerprint, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(identity) DO UPDATE SET
			fingerprint = excluded.fingerprint,
			updated_at = excluded.updated_at
	`, identity, fingerprint, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to record fingerprint for %s: %w", identity, err)
	}
	return nil
}

// DeleteFingerprint removes the ledger entry for a deleted identity.
func (s *Store) DeleteFingerprint(identity string) error {
	_, err := s.db.Exec("DELETE FROM sync_state WHERE identity = ?", identity)
	if err != nil {
		return fmt.Errorf("failed to delete fingerprint for %s: %w", identity, err)
	}
	return nil
}

// SyncStateCount returns the number of ledger entries.
func (s *Store) SyncStateCount() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM sync_state").Scan(&count)
	return count, err
}
