package weaviate

import (
	"context"
	"fmt"

	"github.com/kilupskalvis/kbsync/internal/models"
)

// MockClient is a mock implementation of ClientInterface for testing.
type MockClient struct {
	// Chunks stores chunks by "ClassName/ChunkID" key.
	Chunks map[string]*models.VectorChunk
	// Classes holds the created class names.
	Classes map[string]bool
	// Err can be set to make methods return an error.
	Err error
	// UpsertErr fails only chunk writes, leaving reads working.
	UpsertErr error
	// Version is returned by GetServerVersion.
	Version string
	// NativeUpsert is returned by SupportsNativeUpsert.
	NativeUpsert bool
}

var _ ClientInterface = (*MockClient)(nil)

// NewMockClient creates a new MockClient for testing.
func NewMockClient() *MockClient {
	return &MockClient{
		Chunks:       make(map[string]*models.VectorChunk),
		Classes:      make(map[string]bool),
		Version:      "1.25.0",
		NativeUpsert: true,
	}
}

func chunkKey(className, chunkID string) string {
	return className + "/" + chunkID
}

// Ping returns the configured error.
func (m *MockClient) Ping(ctx context.Context) error {
	return m.Err
}

// GetServerVersion returns the configured version.
func (m *MockClient) GetServerVersion(ctx context.Context) (*ServerVersion, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return parseVersion(m.Version)
}

// SupportsNativeUpsert reports the configured capability.
func (m *MockClient) SupportsNativeUpsert() bool {
	return m.NativeUpsert
}

// EnsureChunkClass records the class.
func (m *MockClient) EnsureChunkClass(ctx context.Context, className string) error {
	if m.Err != nil {
		return m.Err
	}
	m.Classes[className] = true
	return nil
}

// UpsertChunk stores the chunk.
func (m *MockClient) UpsertChunk(ctx context.Context, className string, chunk *models.VectorChunk) error {
	if m.Err != nil {
		return m.Err
	}
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	m.Chunks[chunkKey(className, chunk.ID)] = chunk
	return nil
}

// DeleteChunk removes a chunk.
func (m *MockClient) DeleteChunk(ctx context.Context, className, chunkID string) error {
	if m.Err != nil {
		return m.Err
	}
	delete(m.Chunks, chunkKey(className, chunkID))
	return nil
}

// DeleteByIdentity removes every chunk whose metadata identity matches.
func (m *MockClient) DeleteByIdentity(ctx context.Context, className, identity string) (int, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	deleted := 0
	for key, chunk := range m.Chunks {
		id, _ := chunk.Metadata.GetString(models.MetaKeyIdentity)
		if id == identity {
			delete(m.Chunks, key)
			deleted++
		}
	}
	return deleted, nil
}

// ChunksByIdentity returns every chunk whose metadata identity matches.
func (m *MockClient) ChunksByIdentity(ctx context.Context, className, identity string) ([]*models.VectorChunk, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	var out []*models.VectorChunk
	for _, chunk := range m.Chunks {
		id, _ := chunk.Metadata.GetString(models.MetaKeyIdentity)
		if id == identity {
			out = append(out, chunk)
		}
	}
	return out, nil
}

// Search returns up to limit chunks; the mock does no real ranking.
func (m *MockClient) Search(ctx context.Context, className string, vector []float32, limit int) ([]*models.VectorChunk, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	var out []*models.VectorChunk
	for _, chunk := range m.Chunks {
		if len(out) >= limit {
			break
		}
		out = append(out, chunk)
	}
	return out, nil
}

// ChunkCount returns the number of stored chunks, for test assertions.
func (m *MockClient) ChunkCount() int {
	return len(m.Chunks)
}

// MustChunk fetches a chunk by ID or panics; test helper.
func (m *MockClient) MustChunk(className, chunkID string) *models.VectorChunk {
	chunk, ok := m.Chunks[chunkKey(className, chunkID)]
	if !ok {
		panic(fmt.Sprintf("chunk %s/%s not in mock", className, chunkID))
	}
	return chunk
}
