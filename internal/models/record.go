// Package models defines the core data structures used throughout kbsync
// including source records, knowledge entries, vector chunks, and
// enhancement output.
package models

// Provenance marks where a record entered the system.
type Provenance string

const (
	// ProvenanceCurated marks rows from the curated tabular source.
	// Curated records never pass through the enhancement pipeline.
	ProvenanceCurated Provenance = "curated"
	// ProvenanceUploaded marks externally uploaded documents, which are
	// always enhanced before persistence.
	ProvenanceUploaded Provenance = "uploaded"
)

// SourceRecord is one row or document read from a source. Identity is
// stable across runs (declared key column or row position) and is the
// unit of change detection.
type SourceRecord struct {
	Identity   string            `json:"identity"`
	RawContent string            `json:"raw_content"`
	Columns    map[string]string `json:"columns,omitempty"`
	Filename   string            `json:"filename,omitempty"`
	Provenance Provenance        `json:"provenance"`
}
