package config

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// envPrefix is the prefix for environment variable overrides.
	envPrefix = "RECALLD_"

	// maxConfigSize caps config files at 1MB.
	maxConfigSize = 1 << 20

	collectionNamePattern = `^[a-z0-9_]{1,64}$`
)

var collectionNameRe = regexp.MustCompile(collectionNamePattern)

// Load reads configuration from the given file path (optional) and the
// environment. Environment variables override file values. An empty path
// loads defaults plus environment overrides only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := DefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyWellKnownEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// readConfigFile opens and reads a config file with safety checks: the
// file must be a regular file, at most maxConfigSize bytes, and not
// readable by group or other. Stat runs on the open handle to avoid a
// check-then-use race.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("config file %s is not a regular file", path)
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("config file %s exceeds maximum size of %d bytes", path, maxConfigSize)
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		return nil, fmt.Errorf("config file %s has insecure permissions %04o, want 0600 or stricter", path, perm)
	}

	content, err := io.ReadAll(io.LimitReader(f, maxConfigSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return content, nil
}

// envTransform maps RECALLD_SECTION_FIELD_NAME to section.field_name.
// Only the first underscore becomes a section separator so multi-word
// field names survive.
func envTransform(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	parts := strings.SplitN(s, "_", 2)
	if len(parts) == 1 {
		return parts[0]
	}
	return parts[0] + "." + parts[1]
}

// applyWellKnownEnv picks up conventional environment variables that do
// not follow the RECALLD_ naming scheme.
func applyWellKnownEnv(cfg *Config) {
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" && !cfg.LLM.Gemini.APIKey.IsSet() {
		cfg.LLM.Gemini.APIKey = Secret(v)
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		if cfg.LLM.Ollama.BaseURL == DefaultConfig().LLM.Ollama.BaseURL {
			cfg.LLM.Ollama.BaseURL = v
		}
		if cfg.Embeddings.Ollama.BaseURL == DefaultConfig().Embeddings.Ollama.BaseURL {
			cfg.Embeddings.Ollama.BaseURL = v
		}
	}
}
