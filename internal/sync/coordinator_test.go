package sync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/kilupskalvis/kbsync/internal/embed"
	"github.com/kilupskalvis/kbsync/internal/enhance"
	"github.com/kilupskalvis/kbsync/internal/models"
	"github.com/kilupskalvis/kbsync/internal/store"
	"github.com/kilupskalvis/kbsync/internal/weaviate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCoordinator(t *testing.T) (*Coordinator, *store.Store, *weaviate.MockClient) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := store.New(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Initialize())
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	vector := weaviate.NewMockClient()
	coord := NewCoordinator(st, vector, embed.NewMock(), testClass, logger)
	return coord, st, vector
}

func chunksOf(contents ...string) []enhance.Chunk {
	out := make([]enhance.Chunk, len(contents))
	for i, c := range contents {
		out[i] = enhance.Chunk{Content: c, Metadata: models.Metadata{}}
	}
	return out
}

func TestCoordinator_WritesContentStoreFirst(t *testing.T) {
	coord, st, vector := newTestCoordinator(t)
	rec := curated("A", "alpha content")

	err := coord.Apply(context.Background(), rec, "fp-1", models.Metadata{}, chunksOf("alpha content"))
	require.NoError(t, err)

	entry, err := st.GetEntryByIdentity("A")
	require.NoError(t, err)
	require.NotNil(t, entry)

	chunks, err := vector.ChunksByIdentity(context.Background(), testClass, "A")
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	// Chunks carry the entry id back-reference and shared keys.
	assert.Equal(t, entry.ID, chunks[0].EntryID())
	fp, _ := chunks[0].Metadata.GetString(models.MetaKeyFingerprint)
	assert.Equal(t, "fp-1", fp)
}

func TestCoordinator_DegradedModeOnContentFailure(t *testing.T) {
	coord, st, vector := newTestCoordinator(t)
	require.NoError(t, st.Close())

	rec := curated("A", "alpha")
	err := coord.Apply(context.Background(), rec, "fp-1", models.Metadata{}, chunksOf("alpha"))

	var ce *CoordinatorError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, models.FailureContentStore, ce.Kind)

	// Vector writes still happened, without a back-reference.
	chunks, lookupErr := vector.ChunksByIdentity(context.Background(), testClass, "A")
	require.NoError(t, lookupErr)
	require.Len(t, chunks, 1)
	assert.Empty(t, chunks[0].EntryID())
}

func TestCoordinator_PrunesStaleChunksOnShrink(t *testing.T) {
	coord, _, vector := newTestCoordinator(t)
	rec := curated("A", "alpha")

	require.NoError(t, coord.Apply(context.Background(), rec, "fp-1", models.Metadata{}, chunksOf("one", "two", "three")))
	assert.Equal(t, 3, vector.ChunkCount())

	require.NoError(t, coord.Apply(context.Background(), rec, "fp-2", models.Metadata{}, chunksOf("one merged")))
	assert.Equal(t, 1, vector.ChunkCount())
}

func TestCoordinator_ChunkIDsAreDeterministic(t *testing.T) {
	assert.Equal(t, chunkID("A", 0), chunkID("A", 0))
	assert.NotEqual(t, chunkID("A", 0), chunkID("A", 1))
	assert.NotEqual(t, chunkID("A", 0), chunkID("B", 0))
}

func TestCoordinator_VectorWriteFailure(t *testing.T) {
	coord, st, vector := newTestCoordinator(t)
	vector.UpsertErr = errors.New("write refused")

	err := coord.Apply(context.Background(), curated("A", "alpha"), "fp-1", models.Metadata{}, chunksOf("alpha"))

	var ce *CoordinatorError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, models.FailureVectorStore, ce.Kind)

	// The content store write had already landed; the ledger decision is
	// the engine's, not the coordinator's.
	entry, lookupErr := st.GetEntryByIdentity("A")
	require.NoError(t, lookupErr)
	assert.NotNil(t, entry)
}

func TestCoordinator_DeleteRemovesBothSides(t *testing.T) {
	coord, st, vector := newTestCoordinator(t)
	rec := curated("A", "alpha")
	require.NoError(t, coord.Apply(context.Background(), rec, "fp-1", models.Metadata{}, chunksOf("alpha")))

	require.NoError(t, coord.Delete(context.Background(), "A"))

	entry, err := st.GetEntryByIdentity("A")
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.Zero(t, vector.ChunkCount())
}

func TestCoordinator_ExcerptTruncation(t *testing.T) {
	long := make([]rune, 0, 300)
	for i := 0; i < 300; i++ {
		long = append(long, 'ã')
	}
	got := excerpt(string(long))
	assert.Equal(t, excerptRunes, len([]rune(got)))

	assert.Equal(t, "short", excerpt("short"))
}
