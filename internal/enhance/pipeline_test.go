package enhance

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/kilupskalvis/kbsync/internal/config"
	"github.com/kilupskalvis/kbsync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPipeline(t *testing.T) *Pipeline {
	t.Helper()
	cfg := config.DefaultEnhancement()
	cfg.Chunking.MinSize = 50
	cfg.Chunking.MaxSize = 500
	cfg.BusinessUnitKeywords = map[string][]string{
		"finance": {"despesas", "pagamento"},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(cfg, logger)
}

func uploadedRecord(identity, filename, content string) *models.SourceRecord {
	return &models.SourceRecord{
		Identity:   identity,
		Filename:   filename,
		RawContent: content,
		Provenance: models.ProvenanceUploaded,
	}
}

func TestProcess_ExpenseDocument(t *testing.T) {
	p := testPipeline(t)

	rec := uploadedRecord("Despesas_Julho.pdf", "Despesas_Julho.pdf",
		"Relatório de despesas referente a 07/2025.\n\nValor total R$ 13.239,00.")

	res, err := p.Process(context.Background(), rec)
	require.NoError(t, err)

	assert.Equal(t, models.TypeFinancial, res.Metadata.DocumentType)
	assert.Equal(t, "finance", res.Metadata.Category)
	assert.Equal(t, []string{"07/2025"}, res.Metadata.Entities.Dates)
	assert.Contains(t, res.Metadata.Entities.Amounts, 13239.0)
	assert.Equal(t, "07/2025", res.Metadata.Entities.Period)
	assert.Equal(t, "finance", res.Metadata.BusinessUnit)
	assert.NotEmpty(t, res.Chunks)
}

func TestProcess_CuratedRecordRejected(t *testing.T) {
	p := testPipeline(t)

	rec := &models.SourceRecord{
		Identity:   "row-1",
		RawContent: "curated content",
		Provenance: models.ProvenanceCurated,
	}

	_, err := p.Process(context.Background(), rec)
	assert.ErrorIs(t, err, ErrCuratedRecord)
}

func TestProcess_DisabledStillChunks(t *testing.T) {
	cfg := config.DefaultEnhancement()
	cfg.Enabled = false
	p := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec := uploadedRecord("doc.txt", "doc.txt", "some uploaded text")
	res, err := p.Process(context.Background(), rec)
	require.NoError(t, err)

	assert.Equal(t, models.TypeGeneral, res.Metadata.DocumentType)
	assert.True(t, res.Metadata.Entities.IsEmpty())
	require.Len(t, res.Chunks, 1)
	assert.Equal(t, "some uploaded text", res.Chunks[0].Content)
}

func TestProcess_Cancelled(t *testing.T) {
	p := testPipeline(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Process(ctx, uploadedRecord("doc.txt", "doc.txt", "text"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessBatch(t *testing.T) {
	p := testPipeline(t)

	recs := []*models.SourceRecord{
		uploadedRecord("a.txt", "a.txt", "Contrato entre as partes. A contratante e a contratada."),
		uploadedRecord("b.txt", "b.txt", "Recibo de pagamento. R$ 50,00."),
		uploadedRecord("c.txt", "c.txt", strings.Repeat("texto ", 300)),
	}

	results := p.ProcessBatch(context.Background(), recs)
	require.Len(t, results, 3)

	for i, res := range results {
		require.NotNil(t, res, "result %d", i)
		assert.NotEmpty(t, res.Chunks, "result %d", i)
	}

	// Results stay aligned with the input order.
	assert.Equal(t, models.TypeContract, results[0].Metadata.DocumentType)
}

func TestProcessBatch_CuratedRecordSkipped(t *testing.T) {
	p := testPipeline(t)

	recs := []*models.SourceRecord{
		uploadedRecord("a.txt", "a.txt", "uploaded text to process"),
		{Identity: "row-1", RawContent: "curated", Provenance: models.ProvenanceCurated},
	}

	results := p.ProcessBatch(context.Background(), recs)
	require.Len(t, results, 2)
	assert.NotNil(t, results[0])
	assert.Nil(t, results[1])
}
