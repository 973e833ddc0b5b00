package enhance

import (
	"testing"

	"github.com/kilupskalvis/kbsync/internal/config"
	"github.com/kilupskalvis/kbsync/internal/models"
	"github.com/stretchr/testify/assert"
)

func enricherConfig() config.MetadataConfig {
	return config.MetadataConfig{
		AutoCategorize:     true,
		AutoTag:            true,
		DetectBusinessUnit: true,
	}
}

func TestEnrich_CategoryLookup(t *testing.T) {
	e := NewMetadataEnricher(enricherConfig(), nil, nil)

	cases := map[models.DocumentType]string{
		models.TypeFinancial: "finance",
		models.TypeInvoice:   "finance",
		models.TypeContract:  "legal",
		models.TypeReport:    "management",
		models.TypeGeneral:   "general",
	}

	for docType, category := range cases {
		md := e.Enrich(docType, 0.8, models.ExtractedEntities{}, "")
		assert.Equal(t, category, md.Category, "type %s", docType)
		assert.Equal(t, docType, md.DocumentType)
		assert.InDelta(t, 0.8, md.Confidence, 1e-9)
		assert.False(t, md.ProcessedAt.IsZero())
	}
}

func TestEnrich_TagsFromEntities(t *testing.T) {
	e := NewMetadataEnricher(enricherConfig(), nil, nil)

	entities := models.ExtractedEntities{
		Amounts: []float64{100},
		Dates:   []string{"07/2025"},
		People:  []string{"João da Silva"},
	}
	md := e.Enrich(models.TypeFinancial, 0.9, entities, "")

	assert.Contains(t, md.Tags, "financial")
	assert.Contains(t, md.Tags, "dated")
	assert.Contains(t, md.Tags, "people")
	assert.NotContains(t, md.Tags, "organizations")
}

func TestEnrich_TagsFromContent(t *testing.T) {
	e := NewMetadataEnricher(enricherConfig(), nil, nil)

	md := e.Enrich(models.TypeGeneral, 0.5, models.ExtractedEntities{}, "Documento CONFIDENCIAL e urgente")
	assert.Contains(t, md.Tags, "confidential")
	assert.Contains(t, md.Tags, "urgent")
}

func TestEnrich_BusinessUnit(t *testing.T) {
	units := map[string][]string{
		"finance":   {"pagamento", "fatura"},
		"logistics": {"frete", "transporte"},
	}
	e := NewMetadataEnricher(enricherConfig(), units, nil)

	md := e.Enrich(models.TypeGeneral, 0.5, models.ExtractedEntities{},
		"Frete contratado. Transporte agendado. Pagamento pendente.")
	assert.Equal(t, "logistics", md.BusinessUnit)
}

func TestEnrich_BusinessUnitTieBreaksByOrder(t *testing.T) {
	units := map[string][]string{
		"alpha": {"projeto"},
		"beta":  {"equipe"},
	}

	// One hit each; declared order decides.
	e := NewMetadataEnricher(enricherConfig(), units, []string{"beta", "alpha"})
	md := e.Enrich(models.TypeGeneral, 0.5, models.ExtractedEntities{}, "projeto da equipe")
	assert.Equal(t, "beta", md.BusinessUnit)

	// Without a declared order, sorted unit names decide.
	e = NewMetadataEnricher(enricherConfig(), units, nil)
	md = e.Enrich(models.TypeGeneral, 0.5, models.ExtractedEntities{}, "projeto da equipe")
	assert.Equal(t, "alpha", md.BusinessUnit)
}

func TestEnrich_BusinessUnitDefault(t *testing.T) {
	units := map[string][]string{"finance": {"fatura"}}
	e := NewMetadataEnricher(enricherConfig(), units, nil)

	md := e.Enrich(models.TypeGeneral, 0.5, models.ExtractedEntities{}, "nada relevante")
	assert.Equal(t, "general", md.BusinessUnit)
}

func TestEnrich_AllDisabled(t *testing.T) {
	e := NewMetadataEnricher(config.MetadataConfig{}, map[string][]string{"finance": {"fatura"}}, nil)

	md := e.Enrich(models.TypeFinancial, 0.9, models.ExtractedEntities{Amounts: []float64{1}}, "fatura urgente")
	assert.Equal(t, "general", md.Category)
	assert.Empty(t, md.Tags)
	assert.Empty(t, md.BusinessUnit)
}
