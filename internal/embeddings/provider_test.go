package embeddings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/recalld/internal/config"
)

func TestNewProvider(t *testing.T) {
	t.Run("defaults to ollama", func(t *testing.T) {
		p, err := NewProvider(config.EmbeddingsConfig{
			Ollama: config.OllamaEmbConfig{Model: "nomic-embed-text"},
		})
		require.NoError(t, err)
		inst, ok := p.(*instrumentedProvider)
		require.True(t, ok)
		assert.IsType(t, &OllamaProvider{}, inst.inner)
	})

	t.Run("openai provider", func(t *testing.T) {
		p, err := NewProvider(config.EmbeddingsConfig{
			Provider: "openai",
			OpenAI: config.OpenAIEmbConfig{
				BaseURL: "http://localhost:8080/v1",
				Model:   "text-embedding-3-small",
			},
		})
		require.NoError(t, err)
		inst, ok := p.(*instrumentedProvider)
		require.True(t, ok)
		assert.IsType(t, &OpenAIProvider{}, inst.inner)
		assert.Equal(t, 1536, p.Dimension())
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewProvider(config.EmbeddingsConfig{Provider: "cohere"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestNewOllamaProvider(t *testing.T) {
	t.Run("requires model", func(t *testing.T) {
		_, err := NewOllamaProvider(OllamaConfig{})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("defaults base url", func(t *testing.T) {
		p, err := NewOllamaProvider(OllamaConfig{Model: "nomic-embed-text"})
		require.NoError(t, err)
		assert.NotNil(t, p)
		assert.Equal(t, 0, p.Dimension())
		assert.NoError(t, p.Close())
	})

	t.Run("rejects empty inputs", func(t *testing.T) {
		p, err := NewOllamaProvider(OllamaConfig{Model: "nomic-embed-text"})
		require.NoError(t, err)

		_, err = p.EmbedQuery(context.Background(), "")
		assert.ErrorIs(t, err, ErrEmptyInput)

		_, err = p.EmbedDocuments(context.Background(), nil)
		assert.ErrorIs(t, err, ErrEmptyInput)
	})
}

func TestNewOpenAIProvider(t *testing.T) {
	t.Run("requires model", func(t *testing.T) {
		_, err := NewOpenAIProvider(OpenAIConfig{})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("unknown model has zero dimension", func(t *testing.T) {
		p, err := NewOpenAIProvider(OpenAIConfig{Model: "custom-embed"})
		require.NoError(t, err)
		assert.Equal(t, 0, p.Dimension())
	})
}
