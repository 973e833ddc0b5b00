package enhance

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/kilupskalvis/kbsync/internal/config"
	"github.com/kilupskalvis/kbsync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunkingConfig() config.ChunkingConfig {
	return config.ChunkingConfig{
		Method:         "semantic",
		MinSize:        50,
		MaxSize:        200,
		Overlap:        20,
		PreserveTables: true,
	}
}

func TestChunk_Empty(t *testing.T) {
	c := NewSemanticChunker(chunkingConfig())
	assert.Nil(t, c.Chunk(""))
	assert.Nil(t, c.Chunk("   \n\n  "))
}

func TestChunk_SingleShortParagraph(t *testing.T) {
	c := NewSemanticChunker(chunkingConfig())

	chunks := c.Chunk("short text")
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0].Content)
}

func TestChunk_SizeInvariant(t *testing.T) {
	cfg := chunkingConfig()
	c := NewSemanticChunker(cfg)

	var parts []string
	for i := 0; i < 20; i++ {
		parts = append(parts, strings.Repeat("palavra ", 10))
	}
	content := strings.Join(parts, "\n\n")

	chunks := c.Chunk(content)
	require.NotEmpty(t, chunks)

	for i, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk.Content), cfg.MaxSize, "chunk %d exceeds max", i)
		if i < len(chunks)-1 {
			assert.GreaterOrEqual(t, len(chunk.Content), cfg.MinSize, "chunk %d below min", i)
		}
	}
}

func TestChunk_MergesSmallParagraphs(t *testing.T) {
	c := NewSemanticChunker(chunkingConfig())

	content := "um\n\ndois\n\ntres\n\nquatro cinco seis sete oito nove dez onze doze"
	chunks := c.Chunk(content)

	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Content, "um")
	assert.Contains(t, chunks[0].Content, "quatro")
}

func TestChunk_OversizedParagraphForceSplit(t *testing.T) {
	cfg := chunkingConfig()
	c := NewSemanticChunker(cfg)

	content := strings.Repeat("x", 1000)
	chunks := c.Chunk(content)

	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk.Content), cfg.MaxSize)
	}
}

func TestChunk_OverlapCarried(t *testing.T) {
	cfg := chunkingConfig()
	c := NewSemanticChunker(cfg)

	first := strings.Repeat("a", 180)
	second := strings.Repeat("b", 100)
	chunks := c.Chunk(first + "\n\n" + second)

	require.Len(t, chunks, 2)
	// The second chunk starts with the tail of the first.
	assert.True(t, strings.HasPrefix(chunks[1].Content, "a"))
	assert.Contains(t, chunks[1].Content, "b")
}

func TestChunk_ShortParagraphBeforeLargeOneMergedNotFlushed(t *testing.T) {
	cfg := config.ChunkingConfig{
		Method:         "semantic",
		MinSize:        200,
		MaxSize:        1500,
		Overlap:        100,
		PreserveTables: true,
	}
	c := NewSemanticChunker(cfg)

	content := strings.Repeat("a", 150) + "\n\n" + strings.Repeat("b", 1450)
	chunks := c.Chunk(content)
	require.Greater(t, len(chunks), 1)

	for i, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk.Content), cfg.MaxSize, "chunk %d exceeds max", i)
		if i < len(chunks)-1 {
			assert.GreaterOrEqual(t, len(chunk.Content), cfg.MinSize, "chunk %d below min", i)
		}
	}
	assert.True(t, strings.HasPrefix(chunks[0].Content, "aaa"))
}

func TestChunk_MultibyteContentStaysValidUTF8(t *testing.T) {
	cfg := config.ChunkingConfig{
		Method:         "semantic",
		MinSize:        10,
		MaxSize:        21,
		Overlap:        5,
		PreserveTables: true,
	}
	c := NewSemanticChunker(cfg)

	chunks := c.Chunk(strings.Repeat("ç", 30))
	require.Greater(t, len(chunks), 1)

	for i, chunk := range chunks {
		assert.True(t, utf8.ValidString(chunk.Content), "chunk %d is invalid UTF-8", i)
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk.Content), cfg.MaxSize)
	}
}

func TestChunk_TableNotSplit(t *testing.T) {
	cfg := chunkingConfig()
	cfg.MaxSize = 80
	c := NewSemanticChunker(cfg)

	var rows []string
	for i := 0; i < 10; i++ {
		rows = append(rows, "| col1 | col2 | col3 |")
	}
	table := strings.Join(rows, "\n")

	chunks := c.Chunk(table)
	require.Len(t, chunks, 1)
	assert.Equal(t, table, chunks[0].Content)

	hasTable, ok := chunks[0].Metadata[models.MetaKeyHasTable]
	require.True(t, ok)
	assert.True(t, hasTable.Bool)
}

func TestChunk_TableSplitWhenPreserveDisabled(t *testing.T) {
	cfg := chunkingConfig()
	cfg.MaxSize = 80
	cfg.PreserveTables = false
	c := NewSemanticChunker(cfg)

	var rows []string
	for i := 0; i < 10; i++ {
		rows = append(rows, "| col1 | col2 | col3 |")
	}

	chunks := c.Chunk(strings.Join(rows, "\n"))
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk.Content), cfg.MaxSize)
	}
}

func TestChunk_Metadata(t *testing.T) {
	c := NewSemanticChunker(chunkingConfig())

	chunks := c.Chunk(strings.Repeat("y", 500))
	require.Greater(t, len(chunks), 1)

	for i, chunk := range chunks {
		idx, ok := chunk.Metadata[models.MetaKeyChunkIndex]
		require.True(t, ok)
		assert.Equal(t, float64(i), idx.Num)

		total, ok := chunk.Metadata[models.MetaKeyChunkTotal]
		require.True(t, ok)
		assert.Equal(t, float64(len(chunks)), total.Num)
	}
}

func TestChunk_FixedMethod(t *testing.T) {
	cfg := chunkingConfig()
	cfg.Method = "fixed"
	c := NewSemanticChunker(cfg)

	chunks := c.Chunk(strings.Repeat("z", 500))
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk.Content), cfg.MaxSize)
	}
}
