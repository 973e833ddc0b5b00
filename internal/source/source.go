// Package source reads tabular and uploaded-document sources into
// SourceRecords for the sync engine.
package source

import (
	"context"
	"errors"

	"github.com/kilupskalvis/kbsync/internal/models"
)

// ErrSourceUnavailable indicates the source is missing or unreadable.
// The engine aborts the pass and leaves the stores untouched on this
// condition; an empty or vanished source must never look like a mass
// deletion.
var ErrSourceUnavailable = errors.New("source unavailable")

// ErrRecordNotFound indicates a targeted identity is not in the source.
var ErrRecordNotFound = errors.New("record not found in source")

// Reader produces a finite, restartable sequence of records reflecting
// the current state of a source.
type Reader interface {
	// Name identifies the source in logs and record keys.
	Name() string

	// ReadAll returns the current snapshot of all records.
	ReadAll(ctx context.Context) ([]*models.SourceRecord, error)

	// ReadOne returns a single record by identity, for targeted
	// re-processing. Returns ErrRecordNotFound if absent.
	ReadOne(ctx context.Context, identity string) (*models.SourceRecord, error)
}
