package enhance

import (
	"testing"

	"github.com/kilupskalvis/kbsync/internal/config"
	"github.com/stretchr/testify/assert"
)

func extractionConfig() config.EntityConfig {
	return config.EntityConfig{
		Enabled:              true,
		ExtractDates:         true,
		ExtractAmounts:       true,
		ExtractNames:         true,
		ExtractOrganizations: true,
	}
}

func TestExtract_ExpenseDocument(t *testing.T) {
	e := NewEntityExtractor(extractionConfig())

	content := "Relatório de despesas referente a 07/2025. Valor total R$ 13.239,00."
	entities := e.Extract(content)

	assert.Equal(t, []string{"07/2025"}, entities.Dates)
	assert.Contains(t, entities.Amounts, 13239.0)
	assert.Equal(t, "07/2025", entities.Period)
}

func TestExtract_DateFormats(t *testing.T) {
	e := NewEntityExtractor(extractionConfig())

	content := "Emitido em 15/07/2025, vencimento 2025-08-01, competência 07/2025."
	entities := e.Extract(content)

	assert.Equal(t, []string{"15/07/2025", "2025-08-01", "07/2025"}, entities.Dates)
}

func TestExtract_FullDateNotPartiallyMatched(t *testing.T) {
	e := NewEntityExtractor(extractionConfig())

	// The month/year pattern must not consume the tail of a full date.
	entities := e.Extract("Pagamento efetuado em 12/07/2025.")
	assert.Equal(t, []string{"12/07/2025"}, entities.Dates)
}

func TestExtract_PeriodMostFrequent(t *testing.T) {
	e := NewEntityExtractor(extractionConfig())

	content := "Lançamentos: 01/07/2025, 15/07/2025, 03/08/2025."
	entities := e.Extract(content)
	assert.Equal(t, "07/2025", entities.Period)
}

func TestExtract_Amounts(t *testing.T) {
	e := NewEntityExtractor(extractionConfig())

	content := "Itens: R$ 1.500,50 e R$ 90,00 e R$ 200"
	entities := e.Extract(content)
	assert.Equal(t, []float64{1500.50, 90.0, 200.0}, entities.Amounts)
}

func TestExtract_People(t *testing.T) {
	e := NewEntityExtractor(extractionConfig())

	content := "Assinado por João da Silva e revisado por Maria Souza Santos."
	entities := e.Extract(content)

	assert.Contains(t, entities.People, "João da Silva")
	assert.Contains(t, entities.People, "Maria Souza Santos")
}

func TestExtract_Organizations(t *testing.T) {
	e := NewEntityExtractor(extractionConfig())

	content := "Fornecedor: Transportes Andrade Ltda. Cliente: Construtora Silva S.A."
	entities := e.Extract(content)

	assert.Len(t, entities.Organizations, 2)
	assert.Contains(t, entities.Organizations[0], "Transportes Andrade")
	assert.Contains(t, entities.Organizations[1], "Construtora Silva")
}

func TestExtract_Disabled(t *testing.T) {
	cfg := extractionConfig()
	cfg.Enabled = false
	e := NewEntityExtractor(cfg)

	entities := e.Extract("R$ 100,00 em 01/07/2025 por João da Silva")
	assert.True(t, entities.IsEmpty())
}

func TestExtract_SelectiveFamilies(t *testing.T) {
	cfg := extractionConfig()
	cfg.ExtractNames = false
	cfg.ExtractOrganizations = false
	e := NewEntityExtractor(cfg)

	entities := e.Extract("R$ 100,00 em 01/07/2025 por João da Silva")
	assert.NotEmpty(t, entities.Amounts)
	assert.NotEmpty(t, entities.Dates)
	assert.Empty(t, entities.People)
	assert.Empty(t, entities.Organizations)
}

func TestExtract_EmptyContent(t *testing.T) {
	e := NewEntityExtractor(extractionConfig())
	assert.True(t, e.Extract("").IsEmpty())
}
