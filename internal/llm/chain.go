package llm

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/recalld/internal/logging"
)

var chainTracer = otel.Tracer("recalld.llm.chain")

// Chain tries providers in order until one succeeds. A failed provider
// is logged and the next one is attempted.
type Chain struct {
	providers []Provider
	logger    *logging.Logger
}

// NewChain creates a Chain over the given providers.
func NewChain(providers []Provider, logger *logging.Logger) *Chain {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Chain{providers: providers, logger: logger}
}

// Name returns the name of the primary provider.
func (c *Chain) Name() string {
	if len(c.providers) == 0 {
		return "none"
	}
	return c.providers[0].Name()
}

// Generate delegates to each provider in order, returning the first
// successful response.
func (c *Chain) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, span := chainTracer.Start(ctx, "Chain.Generate")
	defer span.End()

	var lastErr error
	for _, p := range c.providers {
		resp, err := p.Generate(ctx, req)
		if err == nil {
			span.SetAttributes(attribute.String("llm.provider", resp.Provider))
			span.SetStatus(codes.Ok, "")
			return resp, nil
		}
		if errors.Is(err, ErrEmptyPrompt) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		c.logger.Warn(ctx, "llm provider failed, trying next",
			zap.String("provider", p.Name()),
			zap.Error(err))
		lastErr = err
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("%w: no providers configured", ErrInvalidConfig)
	}
	span.RecordError(lastErr)
	span.SetStatus(codes.Error, lastErr.Error())
	return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, lastErr)
}

// Close closes every provider, joining any errors.
func (c *Chain) Close() error {
	var errs []error
	for _, p := range c.providers {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}

var _ Provider = (*Chain)(nil)
