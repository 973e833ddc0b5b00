package embed

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Local is a self-contained feature-hashing embedder. Tokens are hashed
// into a fixed number of buckets and the resulting vector is
// L2-normalized, so equal texts always embed equally and lexically
// similar texts land near each other. It needs no external service,
// which makes it the default provider for deployments without an
// embedding API.
type Local struct {
	dim int
}

// DefaultDimensions is the vector size used when none is configured.
const DefaultDimensions = 256

var _ Service = (*Local)(nil)

// NewLocal creates a local embedder with the given vector size.
func NewLocal(dim int) *Local {
	if dim <= 0 {
		dim = DefaultDimensions
	}
	return &Local{dim: dim}
}

// Embed hashes the text's tokens into a normalized vector.
func (l *Local) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, l.dim)
	for _, token := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(token))
		sum := h.Sum32()
		bucket := int(sum % uint32(l.dim))
		// The next hash bit decides the sign, which keeps the buckets
		// from drifting positive.
		if sum&0x80000000 != 0 {
			vec[bucket]--
		} else {
			vec[bucket]++
		}
	}

	normalize(vec)
	return vec, nil
}

// EmbedBatch embeds each text individually.
func (l *Local) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := l.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the configured vector size.
func (l *Local) Dimensions() int {
	return l.dim
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}
