package embedding

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const defaultBatchSize = 32

// OpenAIProvider embeds texts through an OpenAI-compatible embeddings
// endpoint.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider builds a client for the given model. The API key is read
// from the environment variable named in opts (OPENAI_API_KEY by default);
// a missing key means the provider is unavailable.
func NewOpenAIProvider(modelID string, opts Options) (*OpenAIProvider, error) {
	env := opts.APIKeyEnv
	if env == "" {
		env = "OPENAI_API_KEY"
	}
	key := os.Getenv(env)
	if key == "" {
		return nil, fmt.Errorf("%w: missing API key in env %s", ErrProviderUnavailable, env)
	}
	cfg := openai.DefaultConfig(key)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  modelID,
	}, nil
}

// Name returns the model identifier served by this provider.
func (p *OpenAIProvider) Name() string { return p.model }

// Encode embeds texts in request batches, preserving input order.
func (p *OpenAIProvider) Encode(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(p.model),
			Input: texts[start:end],
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		if len(resp.Data) != end-start {
			return nil, fmt.Errorf("embeddings response has %d vectors for %d inputs", len(resp.Data), end-start)
		}
		for _, d := range resp.Data {
			vec := make([]float32, len(d.Embedding))
			copy(vec, d.Embedding)
			out = append(out, vec)
		}
	}
	return out, nil
}
