package sync

import (
	"sort"

	"github.com/kilupskalvis/kbsync/internal/fingerprint"
	"github.com/kilupskalvis/kbsync/internal/models"
)

// Change pairs a source record with its computed fingerprint so the apply
// phase never re-hashes.
type Change struct {
	Record      *models.SourceRecord
	Fingerprint string
}

// ChangeSet is the three-way diff between the source snapshot and the
// sync ledger.
type ChangeSet struct {
	Inserts []Change // in snapshot, not in ledger
	Updates []Change // in both, fingerprint differs
	Deletes []string // in ledger, not in snapshot
}

// Total returns the number of pending changes.
func (c *ChangeSet) Total() int {
	return len(c.Inserts) + len(c.Updates) + len(c.Deletes)
}

// IsEmpty reports whether the snapshot matches the ledger.
func (c *ChangeSet) IsEmpty() bool {
	return c.Total() == 0
}

// hashRecord is a seam for tests that exercise hash-failure handling.
var hashRecord = fingerprint.Record

// computeChanges diffs a source snapshot against the ledger. Records that
// fail to hash are reported on the summary and excluded from the set.
// Unchanged records bump the skip counter. With forceFull set, ledger
// fingerprints are ignored and every snapshot record becomes a change;
// deletions are detected either way.
func computeChanges(records []*models.SourceRecord, ledger map[string]string, forceFull bool, summary *models.SyncSummary) *ChangeSet {
	changes := &ChangeSet{}
	seen := make(map[string]bool, len(records))

	for _, rec := range records {
		// A record that cannot be hashed is skipped, never deleted: it
		// is still present in the source.
		seen[rec.Identity] = true

		fp, err := hashRecord(rec)
		if err != nil {
			summary.RecordFailure(rec.Identity, models.FailureHash, err)
			continue
		}

		known, exists := ledger[rec.Identity]
		switch {
		case !exists:
			changes.Inserts = append(changes.Inserts, Change{Record: rec, Fingerprint: fp})
		case known != fp || forceFull:
			changes.Updates = append(changes.Updates, Change{Record: rec, Fingerprint: fp})
		default:
			summary.Skipped++
		}
	}

	for identity := range ledger {
		if !seen[identity] {
			changes.Deletes = append(changes.Deletes, identity)
		}
	}
	sort.Strings(changes.Deletes)

	return changes
}
