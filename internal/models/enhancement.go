package models

import "time"

// DocumentType classifies an uploaded document.
type DocumentType string

const (
	TypeFinancial    DocumentType = "financial"
	TypeContract     DocumentType = "contract"
	TypeInvoice      DocumentType = "invoice"
	TypeReceipt      DocumentType = "receipt"
	TypeReport       DocumentType = "report"
	TypePresentation DocumentType = "presentation"
	TypeGeneral      DocumentType = "general"
)

// ExtractedEntities holds the structured entities pulled out of a document.
// Immutable once computed for a given content snapshot.
type ExtractedEntities struct {
	Dates         []string  `json:"dates"`
	Amounts       []float64 `json:"amounts"`
	People        []string  `json:"people"`
	Organizations []string  `json:"organizations"`
	Period        string    `json:"period,omitempty"`
}

// IsEmpty reports whether no entities were extracted.
func (e ExtractedEntities) IsEmpty() bool {
	return len(e.Dates) == 0 && len(e.Amounts) == 0 &&
		len(e.People) == 0 && len(e.Organizations) == 0
}

// EnhancedMetadata is the enhancement pipeline's output for one document.
// It is embedded into both KnowledgeEntry.Metadata and VectorChunk.Metadata.
type EnhancedMetadata struct {
	DocumentType DocumentType      `json:"document_type"`
	Category     string            `json:"category"`
	Tags         []string          `json:"tags"`
	BusinessUnit string            `json:"business_unit,omitempty"`
	Entities     ExtractedEntities `json:"entities"`
	Confidence   float64           `json:"confidence"`
	ProcessedAt  time.Time         `json:"processed_at"`
}

// ToMetadata flattens the enhancement output into a Metadata map.
func (em *EnhancedMetadata) ToMetadata() Metadata {
	md := Metadata{
		MetaKeyDocumentType: String(string(em.DocumentType)),
		MetaKeyCategory:     String(em.Category),
		MetaKeyTags:         Strings(em.Tags),
		MetaKeyConfidence:   Number(em.Confidence),
		MetaKeyProcessedAt:  String(em.ProcessedAt.UTC().Format(time.RFC3339)),
		MetaKeyDates:        Strings(em.Entities.Dates),
		MetaKeyAmounts:      Numbers(em.Entities.Amounts),
		MetaKeyPeople:       Strings(em.Entities.People),
		MetaKeyOrgs:         Strings(em.Entities.Organizations),
	}
	if em.BusinessUnit != "" {
		md[MetaKeyBusinessUnit] = String(em.BusinessUnit)
	}
	if em.Entities.Period != "" {
		md[MetaKeyPeriod] = String(em.Entities.Period)
	}
	return md
}
