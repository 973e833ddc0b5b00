// Package sync implements the incremental reconciliation pass: diff the
// source snapshot against the fingerprint ledger, apply the changed
// records to both stores through the coordinator, and commit the ledger
// per identity only after the stores accepted the writes.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	gosync "sync"

	"github.com/kilupskalvis/kbsync/internal/enhance"
	"github.com/kilupskalvis/kbsync/internal/models"
	"github.com/kilupskalvis/kbsync/internal/source"
	"github.com/kilupskalvis/kbsync/internal/store"
)

// Options control a single sync pass.
type Options struct {
	// ForceFull re-applies every source record regardless of ledger
	// fingerprints. Deletions are still detected.
	ForceFull bool
}

// Engine runs reconciliation passes. At most one pass applies at a time;
// a second caller gets ErrPassInProgress instead of queueing.
type Engine struct {
	sources  []source.Reader
	store    *store.Store
	coord    *Coordinator
	pipeline *enhance.Pipeline
	logger   *slog.Logger

	passMu gosync.Mutex

	stateMu gosync.RWMutex
	state   models.PassState
}

// NewEngine creates a sync engine over the given sources.
func NewEngine(sources []source.Reader, st *store.Store, coord *Coordinator, pipeline *enhance.Pipeline, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		sources:  sources,
		store:    st,
		coord:    coord,
		pipeline: pipeline,
		logger:   logger,
		state:    models.PassIdle,
	}
}

// State returns the lifecycle state of the current or last pass.
func (e *Engine) State() models.PassState {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.state
}

func (e *Engine) setState(s models.PassState) {
	e.stateMu.Lock()
	e.state = s
	e.stateMu.Unlock()
}

// snapshot reads every source. Records sharing an identity keep the
// first occurrence; a duplicate is logged and dropped.
func (e *Engine) snapshot(ctx context.Context) ([]*models.SourceRecord, error) {
	var records []*models.SourceRecord
	seen := make(map[string]bool)

	for _, src := range e.sources {
		recs, err := src.ReadAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading source %s: %w", src.Name(), err)
		}
		for _, rec := range recs {
			if seen[rec.Identity] {
				e.logger.Warn("duplicate identity across sources, keeping first",
					"identity", rec.Identity,
					"source", src.Name(),
				)
				continue
			}
			seen[rec.Identity] = true
			records = append(records, rec)
		}
	}

	return records, nil
}

// Plan computes the pending change set without applying it. Hash
// failures and skip counts land on the returned summary.
func (e *Engine) Plan(ctx context.Context) (*ChangeSet, *models.SyncSummary, error) {
	records, err := e.snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}

	ledger, err := e.store.GetSyncState()
	if err != nil {
		return nil, nil, fmt.Errorf("reading sync state: %w", err)
	}

	summary := &models.SyncSummary{State: models.PassIdle}
	changes := computeChanges(records, ledger, false, summary)
	return changes, summary, nil
}

// Sync runs one reconciliation pass and returns its summary. Individual
// record failures are collected on the summary and do not abort the
// pass; a source read error, a ledger commit error, or cancellation
// aborts it, leaving already committed records in place.
func (e *Engine) Sync(ctx context.Context, opts Options) (*models.SyncSummary, error) {
	if !e.passMu.TryLock() {
		return nil, ErrPassInProgress
	}
	defer e.passMu.Unlock()

	summary := &models.SyncSummary{}
	e.setState(models.PassDiffing)

	abort := func(err error) (*models.SyncSummary, error) {
		e.setState(models.PassAborted)
		summary.State = models.PassAborted
		return summary, err
	}

	records, err := e.snapshot(ctx)
	if err != nil {
		return abort(err)
	}

	ledger, err := e.store.GetSyncState()
	if err != nil {
		return abort(fmt.Errorf("reading sync state: %w", err))
	}

	changes := computeChanges(records, ledger, opts.ForceFull, summary)
	e.logger.Info("change set computed",
		"inserts", len(changes.Inserts),
		"updates", len(changes.Updates),
		"deletes", len(changes.Deletes),
		"skipped", summary.Skipped,
		"force_full", opts.ForceFull,
	)

	e.setState(models.PassApplying)

	apply := func(change Change, isInsert bool) (*models.SyncSummary, error) {
		md, chunks, err := e.prepare(ctx, change.Record)
		if err != nil {
			if ctx.Err() != nil {
				return abort(ctx.Err())
			}
			summary.RecordFailure(change.Record.Identity, models.FailureEnhancement, err)
			return nil, nil
		}

		if err := e.coord.Apply(ctx, change.Record, change.Fingerprint, md, chunks); err != nil {
			if ctx.Err() != nil {
				return abort(ctx.Err())
			}
			summary.RecordFailure(change.Record.Identity, failureKind(err, models.FailureVectorStore), err)
			return nil, nil
		}

		if err := e.store.SetFingerprint(change.Record.Identity, change.Fingerprint); err != nil {
			return abort(&SyncStateCommitError{Identity: change.Record.Identity, Err: err})
		}

		if isInsert {
			summary.Inserted++
		} else {
			summary.Updated++
		}
		return nil, nil
	}

	for _, change := range changes.Inserts {
		if err := ctx.Err(); err != nil {
			return abort(err)
		}
		if s, err := apply(change, true); s != nil || err != nil {
			return s, err
		}
	}

	for _, change := range changes.Updates {
		if err := ctx.Err(); err != nil {
			return abort(err)
		}
		if s, err := apply(change, false); s != nil || err != nil {
			return s, err
		}
	}

	for _, identity := range changes.Deletes {
		if err := ctx.Err(); err != nil {
			return abort(err)
		}

		if err := e.coord.Delete(ctx, identity); err != nil {
			summary.RecordFailure(identity, failureKind(err, models.FailureVectorStore), err)
			continue
		}
		if err := e.store.DeleteFingerprint(identity); err != nil {
			return abort(&SyncStateCommitError{Identity: identity, Err: err})
		}
		summary.Deleted++
	}

	e.setState(models.PassCommitted)
	summary.State = models.PassCommitted
	e.logger.Info("pass committed",
		"inserted", summary.Inserted,
		"updated", summary.Updated,
		"deleted", summary.Deleted,
		"failed", summary.Failed,
	)
	return summary, nil
}

// prepare turns a source record into document metadata and chunks.
// Uploaded records pass through the enhancement pipeline; curated records
// carry their column values as metadata and are embedded whole.
func (e *Engine) prepare(ctx context.Context, rec *models.SourceRecord) (models.Metadata, []enhance.Chunk, error) {
	if rec.Provenance == models.ProvenanceUploaded {
		res, err := e.pipeline.Process(ctx, rec)
		if err != nil {
			return nil, nil, err
		}
		return res.Metadata.ToMetadata(), res.Chunks, nil
	}

	md := make(models.Metadata, len(rec.Columns))
	for k, v := range rec.Columns {
		md[k] = models.String(v)
	}
	chunks := []enhance.Chunk{{Content: rec.RawContent, Metadata: models.Metadata{}}}
	return md, chunks, nil
}

// OrphanReport lists identities where the ledger and the content store
// disagree. Both sides should be empty after a clean pass.
type OrphanReport struct {
	EntriesWithoutLedger []string `json:"entries_without_ledger"`
	LedgerWithoutEntries []string `json:"ledger_without_entries"`
}

// IsEmpty reports whether the stores agree.
func (r *OrphanReport) IsEmpty() bool {
	return len(r.EntriesWithoutLedger) == 0 && len(r.LedgerWithoutEntries) == 0
}

// Orphans cross-checks the content store against the ledger.
func (e *Engine) Orphans() (*OrphanReport, error) {
	entries, err := e.store.AllEntries()
	if err != nil {
		return nil, err
	}
	ledger, err := e.store.GetSyncState()
	if err != nil {
		return nil, err
	}

	report := &OrphanReport{}
	stored := make(map[string]bool, len(entries))
	for _, entry := range entries {
		stored[entry.Identity] = true
		if _, ok := ledger[entry.Identity]; !ok {
			report.EntriesWithoutLedger = append(report.EntriesWithoutLedger, entry.Identity)
		}
	}
	for identity := range ledger {
		if !stored[identity] {
			report.LedgerWithoutEntries = append(report.LedgerWithoutEntries, identity)
		}
	}
	sort.Strings(report.LedgerWithoutEntries)

	return report, nil
}
