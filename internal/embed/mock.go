package embed

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
)

// Mock is a deterministic embedding service for testing. Vectors are
// derived from a hash of the text so equal inputs embed equally.
type Mock struct {
	// Err, when set, is returned by every call.
	Err error
	// FailFirst makes the first FailFirst calls fail before succeeding,
	// for exercising retry policies.
	FailFirst int
	// Dim is the vector size; defaults to 8.
	Dim int

	calls int
}

var _ Service = (*Mock)(nil)

// NewMock creates a mock embedding service.
func NewMock() *Mock {
	return &Mock{Dim: 8}
}

// Embed returns a deterministic vector for the text.
func (m *Mock) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls++
	if m.Err != nil {
		return nil, m.Err
	}
	if m.FailFirst > 0 {
		m.FailFirst--
		return nil, context.DeadlineExceeded
	}

	dim := m.Dim
	if dim <= 0 {
		dim = 8
	}

	sum := sha256.Sum256([]byte(text))
	vec := make([]float32, dim)
	for i := range vec {
		bits := binary.LittleEndian.Uint32(sum[(i*4)%28:])
		vec[i] = float32(bits%1000) / 1000.0
	}
	return vec, nil
}

// EmbedBatch embeds each text individually.
func (m *Mock) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the configured vector size.
func (m *Mock) Dimensions() int {
	if m.Dim <= 0 {
		return 8
	}
	return m.Dim
}

// Calls returns how many Embed calls were made.
func (m *Mock) Calls() int { return m.calls }
