package llm

import (
	"context"
	"fmt"
	"strings"
)

// TemplateProvider produces deterministic supportive replies without a
// model. It is the terminal fallback in the provider chain and never
// fails on a non-empty prompt.
type TemplateProvider struct{}

// NewTemplateProvider creates a TemplateProvider.
func NewTemplateProvider() *TemplateProvider {
	return &TemplateProvider{}
}

// Name returns "template".
func (p *TemplateProvider) Name() string {
	return "template"
}

// Generate composes a reply from recalled memories. With memories it
// reflects them back; without, it offers a grounding exercise.
func (p *TemplateProvider) Generate(_ context.Context, req Request) (*Response, error) {
	if req.LastUserMessage() == "" {
		return nil, ErrEmptyPrompt
	}

	var sb strings.Builder
	sb.WriteString("I'm here with you. ")

	if len(req.Memories) > 0 {
		sb.WriteString("Here are some moments you've shared before that might help:\n")
		for i, m := range req.Memories {
			sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, m))
		}
		sb.WriteString("Maybe one of these is worth revisiting today.")
	} else {
		sb.WriteString("I don't have any saved memories to draw on yet. ")
		sb.WriteString("In the meantime, try a slow breathing exercise: breathe in for four counts, hold for four, and out for four. ")
		sb.WriteString("You can also save a happy moment with me so I can remind you of it later.")
	}

	return &Response{
		Content:  sb.String(),
		Provider: p.Name(),
	}, nil
}

// Close is a no-op.
func (p *TemplateProvider) Close() error {
	return nil
}

var _ Provider = (*TemplateProvider)(nil)
