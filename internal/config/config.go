// Package config provides configuration loading and validation for recalld.
//
// Configuration is loaded from a YAML file with environment variable
// overrides (RECALLD_ prefix). Secrets such as API keys should come from
// the environment, never the config file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the root configuration for the recalld daemon.
type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Logging      LoggingConfig      `koanf:"logging"`
	Telemetry    TelemetryConfig    `koanf:"telemetry"`
	VectorStore  VectorStoreConfig  `koanf:"vectorstore"`
	Embeddings   EmbeddingsConfig   `koanf:"embeddings"`
	LLM          LLMConfig          `koanf:"llm"`
	Memory       MemoryConfig       `koanf:"memory"`
	Conversation ConversationConfig `koanf:"conversation"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ReadTimeout     Duration `koanf:"read_timeout"`
	WriteTimeout    Duration `koanf:"write_timeout"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	MaxBodyBytes    int64    `koanf:"max_body_bytes"`
}

// Address returns the host:port listen address.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoggingConfig configures structured logging output.
type LoggingConfig struct {
	Level      string   `koanf:"level"`
	Format     string   `koanf:"format"`
	Redact     bool     `koanf:"redact"`
	RedactKeys []string `koanf:"redact_keys"`
	// RedactPatterns are regular expressions; any string field whose
	// value matches one is redacted regardless of its key.
	RedactPatterns []string `koanf:"redact_patterns"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled        bool     `koanf:"enabled"`
	ServiceName    string   `koanf:"service_name"`
	ServiceVersion string   `koanf:"service_version"`
	Endpoint       string   `koanf:"endpoint"`
	Protocol       string   `koanf:"protocol"`
	Insecure       bool     `koanf:"insecure"`
	SampleRate     float64  `koanf:"sample_rate"`
	MetricInterval Duration `koanf:"metric_interval"`
}

// VectorStoreConfig configures the vector index backend.
type VectorStoreConfig struct {
	Backend    string        `koanf:"backend"`
	Collection string        `koanf:"collection"`
	Chromem    ChromemConfig `koanf:"chromem"`
	Qdrant     QdrantConfig  `koanf:"qdrant"`
}

// ChromemConfig configures the embedded chromem-go backend.
type ChromemConfig struct {
	Path     string `koanf:"path"`
	Compress bool   `koanf:"compress"`
}

// QdrantConfig configures the remote Qdrant backend.
type QdrantConfig struct {
	Host             string   `koanf:"host"`
	Port             int      `koanf:"port"`
	UseTLS           bool     `koanf:"use_tls"`
	APIKey           Secret   `koanf:"api_key"`
	VectorSize       int      `koanf:"vector_size"`
	MaxRetries       int      `koanf:"max_retries"`
	RetryBackoff     Duration `koanf:"retry_backoff"`
	FailureThreshold int      `koanf:"failure_threshold"`
	RecoveryTimeout  Duration `koanf:"recovery_timeout"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	Provider  string          `koanf:"provider"`
	Ollama    OllamaEmbConfig `koanf:"ollama"`
	OpenAI    OpenAIEmbConfig `koanf:"openai"`
	FastEmbed FastEmbedConfig `koanf:"fastembed"`
}

// OllamaEmbConfig configures embeddings served by a local Ollama instance.
type OllamaEmbConfig struct {
	BaseURL string   `koanf:"base_url"`
	Model   string   `koanf:"model"`
	Timeout Duration `koanf:"timeout"`
}

// OpenAIEmbConfig configures an OpenAI-compatible embeddings endpoint.
type OpenAIEmbConfig struct {
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
	APIKey  Secret `koanf:"api_key"`
}

// FastEmbedConfig configures local ONNX embedding models.
type FastEmbedConfig struct {
	Model     string `koanf:"model"`
	CacheDir  string `koanf:"cache_dir"`
	MaxLength int    `koanf:"max_length"`
}

// LLMConfig configures the chat language model providers.
type LLMConfig struct {
	Provider string `koanf:"provider"`
	// Order lists providers to try in sequence before the template
	// fallback. When empty the order is derived: the configured
	// provider first, then gemini if its API key is set.
	Order       []string     `koanf:"order"`
	Temperature float64      `koanf:"temperature"`
	MaxTokens   int          `koanf:"max_tokens"`
	Timeout     Duration     `koanf:"timeout"`
	Ollama      OllamaConfig `koanf:"ollama"`
	Gemini      GeminiConfig `koanf:"gemini"`
}

// OllamaConfig configures the local Ollama chat provider.
type OllamaConfig struct {
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
}

// GeminiConfig configures the hosted Gemini chat provider.
type GeminiConfig struct {
	APIKey Secret `koanf:"api_key"`
	Model  string `koanf:"model"`
}

// MemoryConfig configures memory storage.
type MemoryConfig struct {
	DataDir     string `koanf:"data_dir"`
	PhotoDir    string `koanf:"photo_dir"`
	MaxPhotoKB  int    `koanf:"max_photo_kb"`
	DefaultTopK int    `koanf:"default_top_k"`
}

// ConversationConfig configures chat sessions and history persistence.
type ConversationConfig struct {
	DatabasePath   string `koanf:"database_path"`
	MaxHistory     int    `koanf:"max_history"`
	RecallTopK     int    `koanf:"recall_top_k"`
	DefaultSession string `koanf:"default_session"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	dataDir := defaultDataDir()
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8000,
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(60 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
			MaxBodyBytes:    8 << 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Redact: true,
		},
		Telemetry: TelemetryConfig{
			Enabled:        false,
			ServiceName:    "recalld",
			ServiceVersion: "dev",
			Endpoint:       "localhost:4317",
			Protocol:       "grpc",
			Insecure:       true,
			SampleRate:     1.0,
			MetricInterval: Duration(30 * time.Second),
		},
		VectorStore: VectorStoreConfig{
			Backend:    "chromem",
			Collection: "memories",
			Chromem: ChromemConfig{
				Path:     filepath.Join(dataDir, "index"),
				Compress: false,
			},
			Qdrant: QdrantConfig{
				Host:             "localhost",
				Port:             6334,
				VectorSize:       768,
				MaxRetries:       3,
				RetryBackoff:     Duration(time.Second),
				FailureThreshold: 5,
				RecoveryTimeout:  Duration(30 * time.Second),
			},
		},
		Embeddings: EmbeddingsConfig{
			Provider: "ollama",
			Ollama: OllamaEmbConfig{
				BaseURL: "http://localhost:11434",
				Model:   "nomic-embed-text",
				Timeout: Duration(30 * time.Second),
			},
			OpenAI: OpenAIEmbConfig{
				BaseURL: "https://api.openai.com/v1",
				Model:   "text-embedding-3-small",
			},
			FastEmbed: FastEmbedConfig{
				Model:     "BAAI/bge-small-en-v1.5",
				CacheDir:  filepath.Join(dataDir, "models"),
				MaxLength: 512,
			},
		},
		LLM: LLMConfig{
			Provider:    "ollama",
			Temperature: 0.4,
			MaxTokens:   512,
			Timeout:     Duration(120 * time.Second),
			Ollama: OllamaConfig{
				BaseURL: "http://localhost:11434",
				Model:   "llama3.2",
			},
			Gemini: GeminiConfig{
				Model: "gemini-1.5-pro-latest",
			},
		},
		Memory: MemoryConfig{
			DataDir:     dataDir,
			PhotoDir:    filepath.Join(dataDir, "photos"),
			MaxPhotoKB:  4096,
			DefaultTopK: 3,
		},
		Conversation: ConversationConfig{
			DatabasePath:   filepath.Join(dataDir, "conversations.db"),
			MaxHistory:     50,
			RecallTopK:     3,
			DefaultSession: "default",
		},
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive, got %d", c.Server.MaxBodyBytes)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.Endpoint == "" {
			return fmt.Errorf("telemetry.endpoint is required when telemetry is enabled")
		}
		switch c.Telemetry.Protocol {
		case "grpc", "http/protobuf":
		default:
			return fmt.Errorf("telemetry.protocol must be grpc or http/protobuf, got %q", c.Telemetry.Protocol)
		}
		if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
			return fmt.Errorf("telemetry.sample_rate must be between 0 and 1, got %f", c.Telemetry.SampleRate)
		}
	}

	switch c.VectorStore.Backend {
	case "chromem":
		if c.VectorStore.Chromem.Path == "" {
			return fmt.Errorf("vectorstore.chromem.path is required")
		}
	case "qdrant":
		if c.VectorStore.Qdrant.Host == "" {
			return fmt.Errorf("vectorstore.qdrant.host is required")
		}
		if c.VectorStore.Qdrant.VectorSize <= 0 {
			return fmt.Errorf("vectorstore.qdrant.vector_size must be positive, got %d", c.VectorStore.Qdrant.VectorSize)
		}
	default:
		return fmt.Errorf("vectorstore.backend must be chromem or qdrant, got %q", c.VectorStore.Backend)
	}
	if !collectionNameRe.MatchString(c.VectorStore.Collection) {
		return fmt.Errorf("vectorstore.collection must match %s, got %q", collectionNamePattern, c.VectorStore.Collection)
	}

	switch c.Embeddings.Provider {
	case "ollama":
		if c.Embeddings.Ollama.Model == "" {
			return fmt.Errorf("embeddings.ollama.model is required")
		}
	case "openai":
		if c.Embeddings.OpenAI.Model == "" {
			return fmt.Errorf("embeddings.openai.model is required")
		}
	case "fastembed":
		if c.Embeddings.FastEmbed.Model == "" {
			return fmt.Errorf("embeddings.fastembed.model is required")
		}
	default:
		return fmt.Errorf("embeddings.provider must be ollama, openai, or fastembed, got %q", c.Embeddings.Provider)
	}

	switch c.LLM.Provider {
	case "ollama", "gemini", "template":
	default:
		return fmt.Errorf("llm.provider must be ollama, gemini, or template, got %q", c.LLM.Provider)
	}
	if c.LLM.Provider == "gemini" && !c.LLM.Gemini.APIKey.IsSet() {
		return fmt.Errorf("llm.gemini.api_key is required when llm.provider is gemini")
	}
	for _, name := range c.LLM.Order {
		switch name {
		case "ollama", "gemini", "template":
		default:
			return fmt.Errorf("llm.order entries must be ollama, gemini, or template, got %q", name)
		}
		if name == "gemini" && !c.LLM.Gemini.APIKey.IsSet() {
			return fmt.Errorf("llm.gemini.api_key is required when gemini appears in llm.order")
		}
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2, got %f", c.LLM.Temperature)
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be positive, got %d", c.LLM.MaxTokens)
	}

	if c.Memory.DataDir == "" {
		return fmt.Errorf("memory.data_dir is required")
	}
	if c.Memory.DefaultTopK <= 0 {
		return fmt.Errorf("memory.default_top_k must be positive, got %d", c.Memory.DefaultTopK)
	}
	if c.Memory.MaxPhotoKB <= 0 {
		return fmt.Errorf("memory.max_photo_kb must be positive, got %d", c.Memory.MaxPhotoKB)
	}

	if c.Conversation.DatabasePath == "" {
		return fmt.Errorf("conversation.database_path is required")
	}
	if c.Conversation.MaxHistory <= 0 {
		return fmt.Errorf("conversation.max_history must be positive, got %d", c.Conversation.MaxHistory)
	}
	if c.Conversation.RecallTopK <= 0 {
		return fmt.Errorf("conversation.recall_top_k must be positive, got %d", c.Conversation.RecallTopK)
	}

	return nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".recalld"
	}
	return filepath.Join(home, ".recalld")
}

