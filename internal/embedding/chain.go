package embedding

import (
	"context"
	"fmt"
	"log/slog"
)

// Chain tries providers in order and returns the first success. Fallback is
// explicit ordered retry, not exception-driven control flow: every provider
// failure is logged and the last error is returned if all fail.
//
// All chain members must produce vectors of the same dimension, since stored
// vectors and query vectors must live in one space regardless of which
// member produced them. That is checked once, at construction.
type Chain struct {
	providers []Provider
	dimension int
}

func NewChain(providers []Provider) (*Chain, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("embedding chain needs at least one provider")
	}
	dim := providers[0].Dimension()
	for _, p := range providers[1:] {
		if p.Dimension() != dim {
			return nil, fmt.Errorf("embedding dimension mismatch: %s produces %d, %s produces %d",
				providers[0].Name(), dim, p.Name(), p.Dimension())
		}
	}
	return &Chain{providers: providers, dimension: dim}, nil
}

func (c *Chain) Name() string { return "chain" }

func (c *Chain) Dimension() int { return c.dimension }

func (c *Chain) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for i, p := range c.providers {
		vectors, err := p.Embed(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		lastErr = err
		if i < len(c.providers)-1 {
			slog.Warn("embedding provider failed, trying fallback",
				"provider", p.Name(),
				"fallback", c.providers[i+1].Name(),
				"error", err,
			)
		}
	}
	return nil, lastErr
}

func (c *Chain) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	for i, p := range c.providers {
		vector, err := p.EmbedQuery(ctx, text)
		if err == nil {
			return vector, nil
		}
		lastErr = err
		if i < len(c.providers)-1 {
			slog.Warn("embedding provider failed, trying fallback",
				"provider", p.Name(),
				"fallback", c.providers[i+1].Name(),
				"error", err,
			)
		}
	}
	return nil, lastErr
}
