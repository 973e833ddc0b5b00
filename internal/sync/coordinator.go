package sync

import (
	"context"
	"fmt"
	"log/slog"
	gosync "sync"

	"github.com/google/uuid"
	"github.com/kilupskalvis/kbsync/internal/embed"
	"github.com/kilupskalvis/kbsync/internal/enhance"
	"github.com/kilupskalvis/kbsync/internal/models"
	"github.com/kilupskalvis/kbsync/internal/store"
	"github.com/kilupskalvis/kbsync/internal/weaviate"
)

// chunkNamespace is the UUIDv5 namespace for deterministic chunk IDs.
// The same identity and chunk index always map to the same vector store
// object, which is what makes chunk writes an upsert.
var chunkNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

const excerptRunes = 200

// Coordinator applies one record's changes to both stores in a fixed
// order: content store first, then per-chunk vector writes carrying the
// entry id as a back-reference. If the content store write fails the
// vector writes still proceed without the back-reference (degraded mode)
// and the failure is reported, so the ledger is not advanced and the
// record is retried on the next pass.
type Coordinator struct {
	store      *store.Store
	vector     weaviate.ClientInterface
	embedder   embed.Service
	chunkClass string
	logger     *slog.Logger

	mu    gosync.Mutex
	locks map[string]*gosync.Mutex
}

// NewCoordinator creates a dual-store coordinator.
func NewCoordinator(st *store.Store, vector weaviate.ClientInterface, embedder embed.Service, chunkClass string, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:      st,
		vector:     vector,
		embedder:   embedder,
		chunkClass: chunkClass,
		logger:     logger,
		locks:      make(map[string]*gosync.Mutex),
	}
}

// lockIdentity serializes writes per identity. Different identities may
// apply concurrently; the same identity never does.
func (c *Coordinator) lockIdentity(identity string) func() {
	c.mu.Lock()
	lock, ok := c.locks[identity]
	if !ok {
		lock = &gosync.Mutex{}
		c.locks[identity] = lock
	}
	c.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// Apply writes one record to both stores. The metadata is the
// document-level metadata (enhanced or curated); chunks are the pieces
// destined for the vector store.
func (c *Coordinator) Apply(ctx context.Context, rec *models.SourceRecord, fp string, md models.Metadata, chunks []enhance.Chunk) error {
	unlock := c.lockIdentity(rec.Identity)
	defer unlock()

	entryMD := cloneMetadata(md)
	entryMD[models.MetaKeyIdentity] = models.String(rec.Identity)
	entryMD[models.MetaKeyFingerprint] = models.String(fp)
	entryMD[models.MetaKeyProvenance] = models.String(string(rec.Provenance))

	entry := &models.KnowledgeEntry{
		Identity:           rec.Identity,
		Name:               recordName(rec),
		DescriptionExcerpt: excerpt(rec.RawContent),
		Metadata:           entryMD,
	}

	var contentErr error
	entryID, err := c.store.UpsertEntry(entry)
	if err != nil {
		contentErr = coordErr(models.FailureContentStore, "content store write for %s: %w", rec.Identity, err)
		c.logger.Warn("content store write failed, writing chunks without back-reference",
			"identity", rec.Identity,
			"error", err,
		)
	}

	if err := c.writeChunks(ctx, rec, fp, entryID, md, chunks); err != nil {
		return err
	}

	return contentErr
}

// writeChunks embeds and upserts every chunk, then prunes chunks from a
// previous version of the record that no longer exist.
func (c *Coordinator) writeChunks(ctx context.Context, rec *models.SourceRecord, fp, entryID string, md models.Metadata, chunks []enhance.Chunk) error {
	existing, err := c.vector.ChunksByIdentity(ctx, c.chunkClass, rec.Identity)
	if err != nil {
		c.logger.Warn("stale chunk lookup failed, skipping prune",
			"identity", rec.Identity,
			"error", err,
		)
		existing = nil
	}

	written := make(map[string]bool, len(chunks))
	embedFailures := 0

	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}

		vector, err := c.embedWithRetry(ctx, chunk.Content)
		if err != nil {
			embedFailures++
			c.logger.Warn("embedding failed, skipping chunk",
				"identity", rec.Identity,
				"chunk", i,
				"error", err,
			)
			continue
		}

		chunkMD := cloneMetadata(md)
		for k, v := range chunk.Metadata {
			chunkMD[k] = v
		}
		chunkMD[models.MetaKeyIdentity] = models.String(rec.Identity)
		chunkMD[models.MetaKeyFingerprint] = models.String(fp)
		chunkMD[models.MetaKeyProvenance] = models.String(string(rec.Provenance))
		if entryID != "" {
			chunkMD[models.MetaKeyEntryID] = models.String(entryID)
		}

		vc := &models.VectorChunk{
			ID:        chunkID(rec.Identity, i),
			Content:   chunk.Content,
			Embedding: vector,
			Metadata:  chunkMD,
		}

		if err := c.vector.UpsertChunk(ctx, c.chunkClass, vc); err != nil {
			return coordErr(models.FailureVectorStore, "vector store write for %s chunk %d: %w", rec.Identity, i, err)
		}
		written[vc.ID] = true
	}

	if len(chunks) > 0 && embedFailures == len(chunks) {
		return coordErr(models.FailureEmbedding, "embedding failed for every chunk of %s", rec.Identity)
	}

	for _, old := range existing {
		if written[old.ID] {
			continue
		}
		if err := c.vector.DeleteChunk(ctx, c.chunkClass, old.ID); err != nil {
			return coordErr(models.FailureVectorStore, "stale chunk delete for %s: %w", rec.Identity, err)
		}
	}

	return nil
}

// Delete removes an identity from both stores.
func (c *Coordinator) Delete(ctx context.Context, identity string) error {
	unlock := c.lockIdentity(identity)
	defer unlock()

	if _, err := c.vector.DeleteByIdentity(ctx, c.chunkClass, identity); err != nil {
		return coordErr(models.FailureVectorStore, "vector store delete for %s: %w", identity, err)
	}
	if _, err := c.store.DeleteEntryByIdentity(identity); err != nil {
		return coordErr(models.FailureContentStore, "content store delete for %s: %w", identity, err)
	}
	return nil
}

// embedWithRetry asks the provider twice before giving up on a chunk.
func (c *Coordinator) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	vector, err := c.embedder.Embed(ctx, text)
	if err == nil {
		return vector, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return c.embedder.Embed(ctx, text)
}

func chunkID(identity string, index int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(fmt.Sprintf("%s#%d", identity, index))).String()
}

func recordName(rec *models.SourceRecord) string {
	if rec.Filename != "" {
		return rec.Filename
	}
	return rec.Identity
}

func excerpt(content string) string {
	runes := []rune(content)
	if len(runes) <= excerptRunes {
		return content
	}
	return string(runes[:excerptRunes])
}

func cloneMetadata(md models.Metadata) models.Metadata {
	out := make(models.Metadata, len(md)+4)
	for k, v := range md {
		out[k] = v
	}
	return out
}
