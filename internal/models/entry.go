package models

import "time"

// Metadata keys shared between the content store and the vector store.
const (
	MetaKeyEntryID      = "knowledgeEntryId"
	MetaKeyIdentity     = "identity"
	MetaKeyFingerprint  = "fingerprint"
	MetaKeyProvenance   = "provenance"
	MetaKeyDocumentType = "documentType"
	MetaKeyCategory     = "category"
	MetaKeyTags         = "tags"
	MetaKeyBusinessUnit = "businessUnit"
	MetaKeyDates        = "dates"
	MetaKeyAmounts      = "amounts"
	MetaKeyPeople       = "people"
	MetaKeyOrgs         = "organizations"
	MetaKeyPeriod       = "period"
	MetaKeyConfidence   = "confidence"
	MetaKeyProcessedAt  = "processedAt"
	MetaKeyChunkIndex   = "chunkIndex"
	MetaKeyChunkTotal   = "chunkTotal"
	MetaKeyHasTable     = "hasTable"
)

// KnowledgeEntry is a content-store row. ID is the cross-store join key:
// vector chunks carry it as a back-reference in their metadata.
type KnowledgeEntry struct {
	ID                 string    `json:"id"`
	Identity           string    `json:"identity"`
	Name               string    `json:"name"`
	DescriptionExcerpt string    `json:"description_excerpt"`
	Metadata           Metadata  `json:"metadata"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// VectorChunk is a vector-store row. Multiple chunks may reference one
// KnowledgeEntry via MetaKeyEntryID.
type VectorChunk struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding,omitempty"`
	Metadata  Metadata  `json:"metadata"`
}

// EntryID returns the back-reference to the owning KnowledgeEntry, empty
// when the chunk was written in degraded mode.
func (c *VectorChunk) EntryID() string {
	id, _ := c.Metadata.GetString(MetaKeyEntryID)
	return id
}
