// Package fingerprint computes stable content fingerprints for source
// records. Fingerprints drive change detection: two records with identical
// content and tracked columns produce identical fingerprints across
// process restarts.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/kilupskalvis/kbsync/internal/models"
)

// Record computes the fingerprint of a source record. The serialization is
// canonical: column keys are sorted so map iteration order never leaks
// into the hash. A record that cannot be canonicalized cannot be synced,
// so serialization errors are surfaced immediately.
func Record(rec *models.SourceRecord) (string, error) {
	keys := make([]string, 0, len(rec.Columns))
	for k := range rec.Columns {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cols := make([]byte, 0, 256)
	cols = append(cols, '{')
	for i, k := range keys {
		if i > 0 {
			cols = append(cols, ',')
		}
		keyJSON, err := json.Marshal(k)
		if err != nil {
			return "", fmt.Errorf("canonicalize column key %q: %w", k, err)
		}
		valJSON, err := json.Marshal(rec.Columns[k])
		if err != nil {
			return "", fmt.Errorf("canonicalize column %q: %w", k, err)
		}
		cols = append(cols, keyJSON...)
		cols = append(cols, ':')
		cols = append(cols, valJSON...)
	}
	cols = append(cols, '}')

	identityJSON, err := json.Marshal(rec.Identity)
	if err != nil {
		return "", fmt.Errorf("canonicalize identity: %w", err)
	}
	contentJSON, err := json.Marshal(rec.RawContent)
	if err != nil {
		return "", fmt.Errorf("canonicalize content: %w", err)
	}

	var buf []byte
	buf = append(buf, `{"identity":`...)
	buf = append(buf, identityJSON...)
	buf = append(buf, `,"content":`...)
	buf = append(buf, contentJSON...)
	buf = append(buf, `,"columns":`...)
	buf = append(buf, cols...)
	buf = append(buf, '}')

	hash := sha256.Sum256(buf)
	return hex.EncodeToString(hash[:]), nil
}

// Content computes the fingerprint of raw content alone. Used by the
// change watcher to detect whether the source file as a whole changed.
func Content(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
