// Package embeddings provides embedding generation via multiple providers.
//
// Three providers are supported: Ollama (local server, default), an
// OpenAI-compatible API via langchaingo, and FastEmbed (local ONNX
// models, requires CGO).
package embeddings

import (
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/recalld/internal/config"
	"github.com/fyrsmithlabs/recalld/internal/logging"
	"github.com/fyrsmithlabs/recalld/internal/vectorstore"
)

var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingFailed indicates the provider failed to produce embeddings.
	ErrEmbeddingFailed = errors.New("failed to generate embeddings")
)

// Provider is the interface for embedding providers.
type Provider interface {
	vectorstore.Embedder

	// Dimension returns the embedding dimension for the current model,
	// or 0 if not yet known.
	Dimension() int

	// Close releases resources held by the provider.
	Close() error
}

// NewProvider creates an embedding provider based on the configuration,
// wrapped with generation metrics.
func NewProvider(cfg config.EmbeddingsConfig) (Provider, error) {
	var (
		inner Provider
		model string
		err   error
	)
	switch cfg.Provider {
	case "ollama", "":
		model = cfg.Ollama.Model
		inner, err = NewOllamaProvider(OllamaConfig{
			BaseURL: cfg.Ollama.BaseURL,
			Model:   cfg.Ollama.Model,
			Timeout: cfg.Ollama.Timeout.Duration(),
		})
	case "openai":
		model = cfg.OpenAI.Model
		inner, err = NewOpenAIProvider(OpenAIConfig{
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
			APIKey:  cfg.OpenAI.APIKey.Value(),
		})
	case "fastembed":
		model = cfg.FastEmbed.Model
		inner, err = NewFastEmbedProvider(FastEmbedConfig{
			Model:     cfg.FastEmbed.Model,
			CacheDir:  cfg.FastEmbed.CacheDir,
			MaxLength: cfg.FastEmbed.MaxLength,
		})
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return newInstrumentedProvider(inner, model, logging.NewNop()), nil
}
