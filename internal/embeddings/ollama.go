package embeddings

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/ollama/ollama/api"
)

// OllamaConfig holds configuration for the Ollama embedding provider.
type OllamaConfig struct {
	// BaseURL is the Ollama server URL. Default: http://localhost:11434.
	BaseURL string

	// Model is the embedding model, e.g. "nomic-embed-text".
	Model string

	// Timeout bounds each embedding request.
	Timeout time.Duration
}

// OllamaProvider generates embeddings via a local Ollama server.
type OllamaProvider struct {
	client  *api.Client
	model   string
	timeout time.Duration

	mu        sync.Mutex
	dimension int
}

// NewOllamaProvider creates an Ollama embedding provider.
func NewOllamaProvider(cfg OllamaConfig) (*OllamaProvider, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model is required", ErrInvalidConfig)
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base URL %q: %v", ErrInvalidConfig, baseURL, err)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &OllamaProvider{
		client:  api.NewClient(parsed, http.DefaultClient),
		model:   cfg.Model,
		timeout: timeout,
	}, nil
}

// EmbedDocuments generates embeddings for multiple texts.
func (p *OllamaProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := p.EmbedQuery(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// EmbedQuery generates an embedding for a single text.
func (p *OllamaProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.Embeddings(ctx, &api.EmbeddingRequest{
		Model:  p.model,
		Prompt: text,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	vec := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		vec[i] = float32(v)
	}

	p.mu.Lock()
	if p.dimension == 0 {
		p.dimension = len(vec)
	}
	p.mu.Unlock()

	return vec, nil
}

// Dimension returns the embedding dimension, learned from the first
// successful request.
func (p *OllamaProvider) Dimension() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dimension
}

// Close is a no-op; the underlying HTTP client holds no resources.
func (p *OllamaProvider) Close() error {
	return nil
}

var _ Provider = (*OllamaProvider)(nil)
