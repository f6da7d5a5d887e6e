package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("defaults when no file given", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, 8000, cfg.Server.Port)
		assert.Equal(t, "chromem", cfg.VectorStore.Backend)
		assert.Equal(t, "memories", cfg.VectorStore.Collection)
		assert.Equal(t, "ollama", cfg.Embeddings.Provider)
		assert.Equal(t, 0.4, cfg.LLM.Temperature)
		assert.Equal(t, 512, cfg.LLM.MaxTokens)
		assert.Equal(t, 3, cfg.Memory.DefaultTopK)
	})

	t.Run("file values override defaults", func(t *testing.T) {
		path := writeConfigFile(t, `
server:
  port: 9999
llm:
  temperature: 0.7
vectorstore:
  backend: qdrant
  qdrant:
    host: qdrant.internal
    vector_size: 384
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 9999, cfg.Server.Port)
		assert.Equal(t, 0.7, cfg.LLM.Temperature)
		assert.Equal(t, "qdrant", cfg.VectorStore.Backend)
		assert.Equal(t, "qdrant.internal", cfg.VectorStore.Qdrant.Host)
		assert.Equal(t, 384, cfg.VectorStore.Qdrant.VectorSize)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := writeConfigFile(t, "server:\n  port: 9999\n")
		t.Setenv("RECALLD_SERVER_PORT", "7777")
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 7777, cfg.Server.Port)
	})

	t.Run("GOOGLE_API_KEY populates gemini key", func(t *testing.T) {
		t.Setenv("GOOGLE_API_KEY", "test-key-123")
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "test-key-123", cfg.LLM.Gemini.APIKey.Value())
	})

	t.Run("missing file returns error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})

	t.Run("rejects world-readable file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0o644))
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "insecure permissions")
	})

	t.Run("rejects malformed yaml", func(t *testing.T) {
		path := writeConfigFile(t, "server: [not a map\n")
		_, err := Load(path)
		require.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config { return DefaultConfig() }

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"unknown backend", func(c *Config) { c.VectorStore.Backend = "faiss" }, "vectorstore.backend"},
		{"bad collection name", func(c *Config) { c.VectorStore.Collection = "Bad Name!" }, "vectorstore.collection"},
		{"unknown embeddings provider", func(c *Config) { c.Embeddings.Provider = "cohere" }, "embeddings.provider"},
		{"unknown llm provider", func(c *Config) { c.LLM.Provider = "gpt4" }, "llm.provider"},
		{"gemini without key", func(c *Config) { c.LLM.Provider = "gemini" }, "llm.gemini.api_key"},
		{"unknown llm order entry", func(c *Config) { c.LLM.Order = []string{"claude"} }, "llm.order"},
		{"gemini in order without key", func(c *Config) { c.LLM.Order = []string{"ollama", "gemini"} }, "llm.gemini.api_key"},
		{"temperature out of range", func(c *Config) { c.LLM.Temperature = 3.0 }, "llm.temperature"},
		{"zero max tokens", func(c *Config) { c.LLM.MaxTokens = 0 }, "llm.max_tokens"},
		{"zero top k", func(c *Config) { c.Memory.DefaultTopK = 0 }, "memory.default_top_k"},
		{"empty db path", func(c *Config) { c.Conversation.DatabasePath = "" }, "conversation.database_path"},
		{"telemetry bad protocol", func(c *Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.Protocol = "thrift"
		}, "telemetry.protocol"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestDuration(t *testing.T) {
	t.Run("parses valid duration", func(t *testing.T) {
		var d Duration
		require.NoError(t, d.UnmarshalText([]byte("90s")))
		assert.Equal(t, 90*time.Second, d.Duration())
	})

	t.Run("rejects negative duration", func(t *testing.T) {
		var d Duration
		require.Error(t, d.UnmarshalText([]byte("-5s")))
	})

	t.Run("rejects garbage", func(t *testing.T) {
		var d Duration
		require.Error(t, d.UnmarshalText([]byte("soon")))
	})
}

func TestSecret(t *testing.T) {
	s := Secret("hunter2")

	t.Run("String redacts", func(t *testing.T) {
		assert.Equal(t, "[REDACTED]", s.String())
	})

	t.Run("Value returns raw", func(t *testing.T) {
		assert.Equal(t, "hunter2", s.Value())
	})

	t.Run("JSON redacts", func(t *testing.T) {
		data, err := s.MarshalJSON()
		require.NoError(t, err)
		assert.Equal(t, `"[REDACTED]"`, string(data))
	})

	t.Run("empty secret stays empty", func(t *testing.T) {
		var empty Secret
		assert.Equal(t, "", empty.String())
		assert.False(t, empty.IsSet())
	})
}
