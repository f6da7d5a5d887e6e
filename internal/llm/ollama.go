package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var ollamaTracer = otel.Tracer("recalld.llm.ollama")

// OllamaConfig holds configuration for the Ollama chat provider.
type OllamaConfig struct {
	// BaseURL is the Ollama server URL. Default: http://localhost:11434.
	BaseURL string

	// Model is the chat model, e.g. "llama3.2".
	Model string

	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// OllamaProvider generates replies via a local Ollama server.
type OllamaProvider struct {
	client *api.Client
	config OllamaConfig
}

// NewOllamaProvider creates an Ollama chat provider.
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
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	return &OllamaProvider{
		client: api.NewClient(parsed, http.DefaultClient),
		config: cfg,
	}, nil
}

// Name returns "ollama".
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// Generate produces a reply via the Ollama chat API.
func (p *OllamaProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, span := ollamaTracer.Start(ctx, "OllamaProvider.Generate")
	defer span.End()

	if req.LastUserMessage() == "" {
		return nil, ErrEmptyPrompt
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	messages := make([]api.Message, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, api.Message{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		role := m.Role
		if role == RoleAssistant {
			role = "assistant"
		}
		messages = append(messages, api.Message{Role: role, Content: m.Content})
	}

	stream := false
	chatReq := &api.ChatRequest{
		Model:    p.config.Model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]interface{}{
			"temperature": p.config.Temperature,
			"num_predict": p.config.MaxTokens,
		},
	}

	var content strings.Builder
	var tokens int
	err := p.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		if resp.Done {
			tokens = resp.EvalCount + resp.PromptEvalCount
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	reply := strings.TrimSpace(content.String())
	if reply == "" {
		return nil, fmt.Errorf("%w: empty reply", ErrGenerationFailed)
	}

	span.SetAttributes(
		attribute.String("model", p.config.Model),
		attribute.Int("tokens_used", tokens),
	)
	span.SetStatus(codes.Ok, "success")

	return &Response{
		Content:    reply,
		Provider:   p.Name(),
		TokensUsed: tokens,
	}, nil
}

// Close is a no-op.
func (p *OllamaProvider) Close() error {
	return nil
}

var _ Provider = (*OllamaProvider)(nil)
