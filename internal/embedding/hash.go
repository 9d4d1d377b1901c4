package embedding

import (
	"context"
	"hash/fnv"
	"strings"
)

// DefaultLocalDimension is the vector size of the hash provider when the
// config does not set one.
const DefaultLocalDimension = 256

// HashProvider is a deterministic, fully offline embedder: each lowercased
// word hashes into one of dim buckets and the bucket counts form the vector.
// Identical texts always produce identical vectors, so it is suitable for
// air-gapped use and for exercising the pipeline in tests.
type HashProvider struct {
	model string
	dim   int
}

// NewHashProvider creates a provider for the given local model id.
func NewHashProvider(modelID string, dim int) *HashProvider {
	if dim <= 0 {
		dim = DefaultLocalDimension
	}
	return &HashProvider{model: modelID, dim: dim}
}

// Name returns the model identifier served by this provider.
func (p *HashProvider) Name() string { return p.model }

// Dimension returns the fixed vector size.
func (p *HashProvider) Dimension() int { return p.dim }

// Encode produces one vector per text. The batch size is irrelevant here but
// accepted to satisfy the Embedder contract.
func (p *HashProvider) Encode(_ context.Context, texts []string, _ int) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, p.dim)
		for _, word := range strings.Fields(strings.ToLower(text)) {
			h := fnv.New32a()
			_, _ = h.Write([]byte(word))
			vec[h.Sum32()%uint32(p.dim)]++
		}
		out[i] = vec
	}
	return out, nil
}
