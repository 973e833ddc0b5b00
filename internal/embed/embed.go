// Package embed defines the embedding provider boundary. The engine
// treats the provider as an external collaborator: failures are
// per-document, handled with a retry-then-skip policy by the caller.
package embed

import "context"

// Service generates vector embeddings from text.
type Service interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts. More efficient
	// than calling Embed in a loop for large batches.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size. Must match the
	// vector store class configuration.
	Dimensions() int
}
