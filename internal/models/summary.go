package models

import "fmt"

// PassState is the lifecycle state of a sync pass.
type PassState string

const (
	PassIdle      PassState = "idle"
	PassDiffing   PassState = "diffing"
	PassApplying  PassState = "applying"
	PassCommitted PassState = "committed"
	PassAborted   PassState = "aborted"
)

// FailureKind classifies a per-record failure inside a sync pass.
type FailureKind string

const (
	FailureHash         FailureKind = "hash"
	FailureEnhancement  FailureKind = "enhancement"
	FailureContentStore FailureKind = "content_store"
	FailureVectorStore  FailureKind = "vector_store"
	FailureEmbedding    FailureKind = "embedding"
	FailureLedger       FailureKind = "ledger"
)

// RecordFailure is one failed identity with its error detail. A pass with
// failures still completes for the unaffected records.
type RecordFailure struct {
	Identity string      `json:"identity"`
	Kind     FailureKind `json:"kind"`
	Message  string      `json:"message"`
}

func (f RecordFailure) String() string {
	return fmt.Sprintf("%s [%s]: %s", f.Identity, f.Kind, f.Message)
}

// SyncSummary is the structured result of one reconciliation pass.
type SyncSummary struct {
	State    PassState       `json:"state"`
	Inserted int             `json:"inserted"`
	Updated  int             `json:"updated"`
	Deleted  int             `json:"deleted"`
	Failed   int             `json:"failed"`
	Skipped  int             `json:"skipped"`
	Failures []RecordFailure `json:"failures,omitempty"`
}

// Total returns the number of applied changes.
func (s *SyncSummary) Total() int {
	return s.Inserted + s.Updated + s.Deleted
}

// RecordFailure appends a failure and bumps the failed counter.
func (s *SyncSummary) RecordFailure(identity string, kind FailureKind, err error) {
	s.Failed++
	s.Failures = append(s.Failures, RecordFailure{
		Identity: identity,
		Kind:     kind,
		Message:  err.Error(),
	})
}
