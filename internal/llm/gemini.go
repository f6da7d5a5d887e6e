package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/api/option"
)

var geminiTracer = otel.Tracer("recalld.llm.gemini")

// GeminiConfig holds configuration for the hosted Gemini provider.
type GeminiConfig struct {
	// APIKey authenticates requests. Required.
	APIKey string

	// Model is the Gemini model. Default: "gemini-1.5-pro-latest".
	Model string

	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// GeminiProvider generates replies via Google's Gemini API.
type GeminiProvider struct {
	client *genai.Client
	config GeminiConfig
}

// NewGeminiProvider creates a Gemini chat provider.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: api key is required", ErrInvalidConfig)
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-pro-latest"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &GeminiProvider{client: client, config: cfg}, nil
}

// Name returns "gemini".
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Generate produces a reply via a Gemini chat session. Prior turns are
// replayed as session history; the final user message is sent last.
func (p *GeminiProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, span := geminiTracer.Start(ctx, "GeminiProvider.Generate")
	defer span.End()

	last := req.LastUserMessage()
	if last == "" {
		return nil, ErrEmptyPrompt
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	model := p.client.GenerativeModel(p.config.Model)
	model.SetTemperature(float32(p.config.Temperature))
	if p.config.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(p.config.MaxTokens))
	}
	if req.System != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.System)},
		}
	}

	session := model.StartChat()
	session.History = historyContents(req.Messages)

	resp, err := session.SendMessage(ctx, genai.Text(last))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	reply := extractText(resp)
	if reply == "" {
		return nil, fmt.Errorf("%w: empty reply", ErrGenerationFailed)
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
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

// historyContents converts prior turns (all but the final user message)
// to Gemini content. Gemini uses "model" for assistant turns.
func historyContents(messages []Message) []*genai.Content {
	if len(messages) == 0 {
		return nil
	}

	// Drop the final user message; it is sent via SendMessage.
	end := len(messages)
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			end = i
			break
		}
	}

	history := make([]*genai.Content, 0, end)
	for _, m := range messages[:end] {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}
	return history
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return strings.TrimSpace(sb.String())
}

// Close closes the underlying client.
func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

var _ Provider = (*GeminiProvider)(nil)
