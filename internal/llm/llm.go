// Package llm generates chat replies via pluggable providers.
//
// Two model-backed providers are available: Ollama (local) and Gemini
// (hosted). A deterministic template provider always succeeds and is
// used as the final fallback when models are unreachable.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/recalld/internal/config"
	"github.com/fyrsmithlabs/recalld/internal/logging"
)

var (
	// ErrInvalidConfig indicates invalid provider configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyPrompt indicates a request with no user message.
	ErrEmptyPrompt = errors.New("prompt cannot be empty")

	// ErrGenerationFailed indicates the provider failed to produce a reply.
	ErrGenerationFailed = errors.New("failed to generate reply")
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn in the conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request carries everything a provider needs to produce a reply.
type Request struct {
	// System is the system prompt.
	System string

	// Messages is the conversation history, oldest first. The last
	// message must be from the user.
	Messages []Message

	// Memories are recalled memory texts for the template fallback and
	// for providers that want them outside the system prompt.
	Memories []string

	// Temperature and MaxTokens tune generation.
	Temperature float64
	MaxTokens   int
}

// LastUserMessage returns the content of the final user message, or "".
func (r Request) LastUserMessage() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == RoleUser {
			return r.Messages[i].Content
		}
	}
	return ""
}

// Response is a generated reply.
type Response struct {
	// Content is the reply text.
	Content string `json:"content"`

	// Provider names the provider that produced the reply.
	Provider string `json:"provider"`

	// TokensUsed is the total token count when the provider reports it.
	TokensUsed int `json:"tokens_used,omitempty"`
}

// Provider generates replies.
type Provider interface {
	// Name identifies the provider ("ollama", "gemini", "template").
	Name() string

	// Generate produces a reply for the request.
	Generate(ctx context.Context, req Request) (*Response, error)

	// Close releases provider resources.
	Close() error
}

// New builds the provider chain from config. Providers are tried in
// the configured order; when no order is given it is derived from the
// primary provider, with Gemini appended whenever its API key is set.
// The template fallback always terminates the chain.
func New(cfg config.LLMConfig, logger *logging.Logger) (*Chain, error) {
	order := cfg.Order
	if len(order) == 0 {
		order = defaultOrder(cfg)
	}

	var providers []Provider
	for _, name := range order {
		var (
			p   Provider
			err error
		)
		switch name {
		case "ollama":
			p, err = NewOllamaProvider(OllamaConfig{
				BaseURL:     cfg.Ollama.BaseURL,
				Model:       cfg.Ollama.Model,
				Temperature: cfg.Temperature,
				MaxTokens:   cfg.MaxTokens,
				Timeout:     cfg.Timeout.Duration(),
			})
		case "gemini":
			p, err = NewGeminiProvider(context.Background(), GeminiConfig{
				APIKey:      cfg.Gemini.APIKey.Value(),
				Model:       cfg.Gemini.Model,
				Temperature: cfg.Temperature,
				MaxTokens:   cfg.MaxTokens,
				Timeout:     cfg.Timeout.Duration(),
			})
		case "template":
			// Always appended last; an explicit entry adds nothing.
			continue
		default:
			return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, name)
		}
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	providers = append(providers, NewTemplateProvider())

	return NewChain(providers, logger), nil
}

// defaultOrder derives the provider sequence when llm.order is not set:
// the primary provider first, then gemini as a second model when an API
// key is available.
func defaultOrder(cfg config.LLMConfig) []string {
	var order []string
	switch cfg.Provider {
	case "ollama", "gemini":
		order = append(order, cfg.Provider)
	case "template", "":
	default:
		// Left for the per-name switch to reject.
		order = append(order, cfg.Provider)
	}
	if cfg.Provider != "gemini" && cfg.Gemini.APIKey.IsSet() {
		order = append(order, "gemini")
	}
	return order
}
