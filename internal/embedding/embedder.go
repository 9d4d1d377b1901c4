// Package embedding resolves embedding model identifiers to providers that
// turn batches of texts into fixed-dimension float32 vectors.
package embedding

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"
)

// ErrProviderUnavailable is returned when a provider cannot be constructed
// or reached for the requested model.
var ErrProviderUnavailable = errors.New("embedding provider unavailable")

// Embedder converts texts into vectors, one per input, preserving order.
// The batch size is a throughput knob only; it must not change output
// values or ordering.
type Embedder interface {
	Name() string
	Encode(ctx context.Context, texts []string, batchSize int) ([][]float32, error)
}

// Options carries the provider settings shared by all remote models.
type Options struct {
	BaseURL        string
	APIKeyEnv      string
	Timeout        time.Duration
	LocalDimension int
}

// LocalModelPrefix marks model identifiers served by the deterministic
// in-process provider instead of a remote endpoint.
const LocalModelPrefix = "local-"

// Open resolves a model identifier to a provider. Identifiers with the
// "local-" prefix use the deterministic hash provider; everything else goes
// to the configured OpenAI-compatible endpoint.
func Open(modelID string, opts Options) (Embedder, error) {
	if modelID == "" {
		return nil, errors.New("embedding model id is empty")
	}
	if strings.HasPrefix(modelID, LocalModelPrefix) {
		return NewHashProvider(modelID, opts.LocalDimension), nil
	}
	return NewOpenAIProvider(modelID, opts)
}

// Normalize scales v to unit Euclidean length in place. Zero vectors are
// left unchanged.
func Normalize(v []float32) {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(float64(sum)))
	for i := range v {
		v[i] *= inv
	}
}

// NormalizeAll normalizes every vector in place.
func NormalizeAll(vectors [][]float32) {
	for _, v := range vectors {
		Normalize(v)
	}
}
