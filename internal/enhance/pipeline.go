package enhance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kilupskalvis/kbsync/internal/config"
	"github.com/kilupskalvis/kbsync/internal/models"
)

// ErrCuratedRecord is returned when a curated-source record is handed to
// the pipeline. Curated rows carry curated metadata already; running them
// through enhancement would overwrite it.
var ErrCuratedRecord = errors.New("curated records must not be enhanced")

// Result is the pipeline output for one document.
type Result struct {
	Metadata models.EnhancedMetadata
	Chunks   []Chunk
}

// Pipeline runs the four enhancement stages over uploaded documents.
// Stages 1 and 2 (type detection, entity extraction) have no data
// dependency on each other and run concurrently per document; chunking
// and enrichment run after both complete. A failing stage substitutes a
// safe default and is logged; a single malformed document never aborts a
// batch.
type Pipeline struct {
	enabled  bool
	workers  int
	detector *TypeDetector
	extract  *EntityExtractor
	chunker  *SemanticChunker
	enricher *MetadataEnricher
	logger   *slog.Logger
}

// New creates a pipeline from configuration.
func New(cfg config.EnhancementConfig, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Pipeline{
		enabled:  cfg.Enabled,
		workers:  workers,
		detector: NewTypeDetector(cfg.TypeDetection),
		extract:  NewEntityExtractor(cfg.EntityExtraction),
		chunker:  NewSemanticChunker(cfg.Chunking),
		enricher: NewMetadataEnricher(cfg.Metadata, cfg.BusinessUnitKeywords, cfg.BusinessUnitOrder),
		logger:   logger,
	}
}

// Process enhances a single uploaded document.
func (p *Pipeline) Process(ctx context.Context, rec *models.SourceRecord) (*Result, error) {
	if rec.Provenance != models.ProvenanceUploaded {
		return nil, fmt.Errorf("%w: %s", ErrCuratedRecord, rec.Identity)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	docType := models.TypeGeneral
	confidence := 0.0
	var entities models.ExtractedEntities

	if p.enabled {
		// Stage 1 and 2 in parallel; each recovers independently.
		var wg sync.WaitGroup
		wg.Add(2)

		go func() {
			defer wg.Done()
			defer p.recoverStage(rec.Identity, "type_detection")
			docType, confidence = p.detector.Detect(rec.Filename, rec.RawContent)
		}()

		go func() {
			defer wg.Done()
			defer p.recoverStage(rec.Identity, "entity_extraction")
			entities = p.extract.Extract(rec.RawContent)
		}()

		wg.Wait()
	}

	chunks := p.safeChunk(rec)

	result := &Result{Chunks: chunks}
	if p.enabled {
		func() {
			defer p.recoverStage(rec.Identity, "metadata_enrichment")
			result.Metadata = p.enricher.Enrich(docType, confidence, entities, rec.RawContent)
		}()
	}
	if result.Metadata.DocumentType == "" {
		result.Metadata = models.EnhancedMetadata{
			DocumentType: models.TypeGeneral,
			Category:     "general",
			ProcessedAt:  time.Now().UTC(),
		}
	}

	return result, nil
}

// ProcessBatch enhances documents in parallel up to the configured worker
// count. Results are returned in input order; a nil slot marks a document
// whose processing failed (already logged).
func (p *Pipeline) ProcessBatch(ctx context.Context, recs []*models.SourceRecord) []*Result {
	results := make([]*Result, len(recs))
	sem := make(chan struct{}, p.workers)
	var wg sync.WaitGroup

	for i, rec := range recs {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, rec *models.SourceRecord) {
			defer wg.Done()
			defer func() { <-sem }()
			res, err := p.Process(ctx, rec)
			if err != nil {
				p.logger.Warn("enhancement failed",
					"identity", rec.Identity,
					"error", err,
				)
				return
			}
			results[i] = res
		}(i, rec)
	}

	wg.Wait()
	return results
}

// safeChunk runs the chunker with a fixed-size fallback when it panics.
func (p *Pipeline) safeChunk(rec *models.SourceRecord) (chunks []Chunk) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("stage panicked, using fallback",
				"identity", rec.Identity,
				"stage", "chunking",
				"error", r,
			)
			chunks = []Chunk{{Content: rec.RawContent, Metadata: models.Metadata{}}}
		}
	}()
	chunks = p.chunker.Chunk(rec.RawContent)
	if len(chunks) == 0 && rec.RawContent != "" {
		chunks = []Chunk{{Content: rec.RawContent, Metadata: models.Metadata{}}}
	}
	return chunks
}

func (p *Pipeline) recoverStage(identity, stage string) {
	if r := recover(); r != nil {
		p.logger.Warn("stage panicked, using safe default",
			"identity", identity,
			"stage", stage,
			"error", r,
		)
	}
}
