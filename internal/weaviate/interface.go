package weaviate

import (
	"context"

	"github.com/kilupskalvis/kbsync/internal/models"
)

// ClientInterface defines the contract for vector store operations.
// This interface enables mocking for testing the sync package.
type ClientInterface interface {
	// Connectivity
	Ping(ctx context.Context) error
	GetServerVersion(ctx context.Context) (*ServerVersion, error)
	SupportsNativeUpsert() bool

	// Schema
	EnsureChunkClass(ctx context.Context, className string) error

	// Chunk operations
	UpsertChunk(ctx context.Context, className string, chunk *models.VectorChunk) error
	DeleteChunk(ctx context.Context, className, chunkID string) error
	DeleteByIdentity(ctx context.Context, className, identity string) (int, error)
	ChunksByIdentity(ctx context.Context, className, identity string) ([]*models.VectorChunk, error)

	// Query
	Search(ctx context.Context, className string, vector []float32, limit int) ([]*models.VectorChunk, error)
}

// Verify that *Client implements ClientInterface at compile time
var _ ClientInterface = (*Client)(nil)
