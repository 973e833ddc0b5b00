package sync

import (
	"errors"
	"fmt"

	"github.com/kilupskalvis/kbsync/internal/models"
)

// ErrPassInProgress is returned when a sync pass is started while another
// one is applying. Passes never interleave.
var ErrPassInProgress = errors.New("a sync pass is already in progress")

// CoordinatorError classifies a per-record dual-store failure so the
// engine can report which side of the write failed.
type CoordinatorError struct {
	Kind models.FailureKind
	Err  error
}

func (e *CoordinatorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *CoordinatorError) Unwrap() error {
	return e.Err
}

func coordErr(kind models.FailureKind, format string, args ...interface{}) *CoordinatorError {
	return &CoordinatorError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// failureKind extracts the failure classification from an error chain,
// defaulting to the given kind.
func failureKind(err error, fallback models.FailureKind) models.FailureKind {
	var ce *CoordinatorError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return fallback
}

// SyncStateCommitError means a record was applied to the stores but its
// ledger entry could not be written. The pass aborts: reporting success
// with a stale ledger would re-apply the record forever.
type SyncStateCommitError struct {
	Identity string
	Err      error
}

func (e *SyncStateCommitError) Error() string {
	return fmt.Sprintf("failed to commit sync state for %s: %v", e.Identity, e.Err)
}

func (e *SyncStateCommitError) Unwrap() error {
	return e.Err
}
