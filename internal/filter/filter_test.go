package filter

import (
	"testing"

	"github.com/kilupskalvis/kbsync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func float(v float64) *float64 { return &v }

func entryWith(identity string, md models.Metadata) *models.KnowledgeEntry {
	return &models.KnowledgeEntry{ID: identity, Identity: identity, Name: identity, Metadata: md}
}

func testEntries() []*models.KnowledgeEntry {
	return []*models.KnowledgeEntry{
		entryWith("invoice-july", models.Metadata{
			models.MetaKeyDocumentType: models.String("invoice"),
			models.MetaKeyDates:        models.Strings([]string{"15/07/2025"}),
			models.MetaKeyAmounts:      models.Numbers([]float64{1500.50}),
			models.MetaKeyPeople:       models.Strings([]string{"Maria Silva"}),
			models.MetaKeyOrgs:         models.Strings([]string{"Acme Ltda"}),
			models.MetaKeyBusinessUnit: models.String("finance"),
		}),
		entryWith("report-aug", models.Metadata{
			models.MetaKeyDocumentType: models.String("report"),
			models.MetaKeyDates:        models.Strings([]string{"08/2025"}),
			models.MetaKeyAmounts:      models.Numbers([]float64{200}),
			models.MetaKeyPeople:       models.Strings([]string{"João Souza"}),
			models.MetaKeyBusinessUnit: models.String("management"),
		}),
		entryWith("bare", models.Metadata{
			models.MetaKeyDocumentType: models.String("general"),
		}),
	}
}

func TestEvaluate_EmptyPredicateReturnsAll(t *testing.T) {
	entries := testEntries()
	out := Evaluate(entries, Predicate{})
	assert.Equal(t, entries, out)
}

func TestEvaluate_TypeMembership(t *testing.T) {
	out := Evaluate(testEntries(), Predicate{
		Types: []models.DocumentType{models.TypeInvoice, models.TypeFinancial},
	})
	require.Len(t, out, 1)
	assert.Equal(t, "invoice-july", out[0].Identity)
}

func TestEvaluate_DateRange(t *testing.T) {
	// Full-date entry inside the range.
	out := Evaluate(testEntries(), Predicate{DateFrom: "01/07/2025", DateTo: "31/07/2025"})
	require.Len(t, out, 1)
	assert.Equal(t, "invoice-july", out[0].Identity)

	// Month-precision entry overlaps a range touching August.
	out = Evaluate(testEntries(), Predicate{DateFrom: "2025-08-01"})
	require.Len(t, out, 1)
	assert.Equal(t, "report-aug", out[0].Identity)

	// Bounds are inclusive.
	out = Evaluate(testEntries(), Predicate{DateFrom: "15/07/2025", DateTo: "15/07/2025"})
	require.Len(t, out, 1)

	// Entries without dates are excluded when a date bound is set.
	out = Evaluate(testEntries(), Predicate{DateFrom: "01/2020"})
	assert.Len(t, out, 2)
}

func TestEvaluate_UnpaddedDates(t *testing.T) {
	// The entity extractor emits dates without zero padding.
	entries := []*models.KnowledgeEntry{
		entryWith("x", models.Metadata{
			models.MetaKeyDates: models.Strings([]string{"1/7/2025"}),
		}),
		entryWith("y", models.Metadata{
			models.MetaKeyDates: models.Strings([]string{"9/2025"}),
		}),
	}

	out := Evaluate(entries, Predicate{DateFrom: "01/07/2025", DateTo: "31/07/2025"})
	require.Len(t, out, 1)
	assert.Equal(t, "x", out[0].Identity)

	// Unpadded predicate bounds parse too.
	out = Evaluate(entries, Predicate{DateFrom: "1/9/2025"})
	require.Len(t, out, 1)
	assert.Equal(t, "y", out[0].Identity)

	assert.NoError(t, Predicate{DateFrom: "1/7/2025", DateTo: "9/2025"}.Validate())
}

func TestEvaluate_MonthPrecisionCoversWholeMonth(t *testing.T) {
	entries := []*models.KnowledgeEntry{
		entryWith("x", models.Metadata{
			models.MetaKeyDates: models.Strings([]string{"08/2025"}),
		}),
	}

	// A month/year date matches any sub-range of that month.
	out := Evaluate(entries, Predicate{DateFrom: "10/08/2025", DateTo: "20/08/2025"})
	assert.Len(t, out, 1)

	out = Evaluate(entries, Predicate{DateTo: "31/07/2025"})
	assert.Empty(t, out)
}

func TestEvaluate_AmountRange(t *testing.T) {
	out := Evaluate(testEntries(), Predicate{AmountMin: float(1000)})
	require.Len(t, out, 1)
	assert.Equal(t, "invoice-july", out[0].Identity)

	out = Evaluate(testEntries(), Predicate{AmountMax: float(500)})
	require.Len(t, out, 1)
	assert.Equal(t, "report-aug", out[0].Identity)

	// Inclusive bounds.
	out = Evaluate(testEntries(), Predicate{AmountMin: float(200), AmountMax: float(200)})
	require.Len(t, out, 1)
	assert.Equal(t, "report-aug", out[0].Identity)
}

func TestEvaluate_PeopleSubstring(t *testing.T) {
	out := Evaluate(testEntries(), Predicate{People: []string{"silva"}})
	require.Len(t, out, 1)
	assert.Equal(t, "invoice-july", out[0].Identity)

	// All listed names must match.
	out = Evaluate(testEntries(), Predicate{People: []string{"Maria", "João"}})
	assert.Empty(t, out)
}

func TestEvaluate_OrganizationsAndUnit(t *testing.T) {
	out := Evaluate(testEntries(), Predicate{Organizations: []string{"acme"}})
	require.Len(t, out, 1)
	assert.Equal(t, "invoice-july", out[0].Identity)

	out = Evaluate(testEntries(), Predicate{BusinessUnit: "FINANCE"})
	require.Len(t, out, 1)
	assert.Equal(t, "invoice-july", out[0].Identity)
}

func TestEvaluate_MissingFieldExcludes(t *testing.T) {
	// "bare" has no people metadata at all.
	out := Evaluate(testEntries(), Predicate{People: []string{"anyone"}})
	assert.Empty(t, out)
}

func TestEvaluate_Conjunction(t *testing.T) {
	out := Evaluate(testEntries(), Predicate{
		Types:        []models.DocumentType{models.TypeInvoice},
		AmountMin:    float(1000),
		BusinessUnit: "finance",
	})
	require.Len(t, out, 1)

	// One failing condition rejects the entry.
	out = Evaluate(testEntries(), Predicate{
		Types:        []models.DocumentType{models.TypeInvoice},
		BusinessUnit: "management",
	})
	assert.Empty(t, out)
}

func TestPredicate_Validate(t *testing.T) {
	assert.NoError(t, Predicate{}.Validate())
	assert.NoError(t, Predicate{DateFrom: "01/2025", DateTo: "2025-12-31"}.Validate())
	assert.Error(t, Predicate{DateFrom: "yesterday"}.Validate())
	assert.Error(t, Predicate{DateTo: "31/02/x"}.Validate())
}
