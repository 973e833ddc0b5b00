package enhance

import (
	"sort"
	"strings"
	"time"

	"github.com/kilupskalvis/kbsync/internal/config"
	"github.com/kilupskalvis/kbsync/internal/models"
)

// categoryByType is the fixed document-type to category lookup.
var categoryByType = map[models.DocumentType]string{
	models.TypeFinancial:    "finance",
	models.TypeInvoice:      "finance",
	models.TypeReceipt:      "finance",
	models.TypeContract:     "legal",
	models.TypeReport:       "management",
	models.TypePresentation: "communication",
	models.TypeGeneral:      "general",
}

// contentTags maps content keywords to tags.
var contentTags = []struct {
	keyword string
	tag     string
}{
	{"urgente", "urgent"},
	{"urgent", "urgent"},
	{"confidencial", "confidential"},
	{"confidential", "confidential"},
	{"pago", "paid"},
	{"pendente", "pending"},
	{"aprovado", "approved"},
}

// MetadataEnricher derives category, tags, and business unit from the
// detection and extraction output.
type MetadataEnricher struct {
	cfg          config.MetadataConfig
	unitKeywords map[string][]string
	unitOrder    []string
}

// NewMetadataEnricher creates an enricher. unitOrder fixes the tie-break
// order for business unit scoring; units missing from it are appended in
// sorted order so scoring stays deterministic.
func NewMetadataEnricher(cfg config.MetadataConfig, unitKeywords map[string][]string, unitOrder []string) *MetadataEnricher {
	order := make([]string, 0, len(unitKeywords))
	seen := make(map[string]bool, len(unitKeywords))
	for _, unit := range unitOrder {
		if _, ok := unitKeywords[unit]; ok && !seen[unit] {
			order = append(order, unit)
			seen[unit] = true
		}
	}
	var rest []string
	for unit := range unitKeywords {
		if !seen[unit] {
			rest = append(rest, unit)
		}
	}
	sort.Strings(rest)
	order = append(order, rest...)

	return &MetadataEnricher{cfg: cfg, unitKeywords: unitKeywords, unitOrder: order}
}

// Enrich builds the final enhancement metadata for a document.
func (e *MetadataEnricher) Enrich(docType models.DocumentType, confidence float64, entities models.ExtractedEntities, content string) models.EnhancedMetadata {
	md := models.EnhancedMetadata{
		DocumentType: docType,
		Category:     "general",
		Entities:     entities,
		Confidence:   confidence,
		ProcessedAt:  time.Now().UTC(),
	}

	if e.cfg.AutoCategorize {
		if cat, ok := categoryByType[docType]; ok {
			md.Category = cat
		}
	}

	if e.cfg.AutoTag {
		md.Tags = deriveTags(entities, content)
	}

	if e.cfg.DetectBusinessUnit {
		md.BusinessUnit = e.detectBusinessUnit(content)
	}

	return md
}

// deriveTags derives tags from entity presence and content keywords.
func deriveTags(entities models.ExtractedEntities, content string) []string {
	var tags []string

	if len(entities.Amounts) > 0 {
		tags = append(tags, "financial")
	}
	if len(entities.Dates) > 0 {
		tags = append(tags, "dated")
	}
	if len(entities.People) > 0 {
		tags = append(tags, "people")
	}
	if len(entities.Organizations) > 0 {
		tags = append(tags, "organizations")
	}

	lower := normalize(content)
	for _, ct := range contentTags {
		if strings.Contains(lower, ct.keyword) {
			tags = append(tags, ct.tag)
		}
	}

	return dedupe(tags)
}

// detectBusinessUnit scores each configured unit by keyword hit count and
// returns the highest scorer. Ties break toward the earlier unit in the
// declaration order; no hits means "general".
func (e *MetadataEnricher) detectBusinessUnit(content string) string {
	lower := normalize(content)

	best := "general"
	bestScore := 0
	for _, unit := range e.unitOrder {
		score := 0
		for _, kw := range e.unitKeywords[unit] {
			score += strings.Count(lower, normalize(kw))
		}
		if score > bestScore {
			best = unit
			bestScore = score
		}
	}
	return best
}
