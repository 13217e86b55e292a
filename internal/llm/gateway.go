package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/verdantlabs/corpusd/internal/config"
)

// Gateway tries its providers in configured order and returns the first
// success. A gateway with no configured providers is valid: Generate then
// always fails and the retrieval layer degrades to its templated answer.
type Gateway struct {
	providers []Provider
	timeout   time.Duration
}

func NewGateway(cfg config.GenerationConfig) *Gateway {
	g := &Gateway{timeout: cfg.Timeout}

	for _, name := range cfg.Providers {
		switch name {
		case "openai":
			if cfg.OpenAIKey != "" {
				g.providers = append(g.providers, NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIModel))
			}
		case "anthropic":
			if cfg.AnthropicKey != "" {
				g.providers = append(g.providers, NewAnthropicProvider(cfg.AnthropicKey, cfg.AnthropicModel))
			}
		case "ollama":
			if cfg.OllamaURL != "" {
				g.providers = append(g.providers, NewOllamaProvider(cfg.OllamaURL, cfg.OllamaModel))
			}
		default:
			slog.Warn("unknown generation provider in config, skipping", "provider", name)
		}
	}

	if len(g.providers) == 0 {
		slog.Warn("no generation providers configured, answers will degrade to retrieved context")
	}
	return g
}

// NewGatewayWithProviders builds a gateway over an explicit provider list,
// bypassing config. Used where the fallback order is assembled by hand.
func NewGatewayWithProviders(providers []Provider, timeout time.Duration) *Gateway {
	return &Gateway{providers: providers, timeout: timeout}
}

// Providers reports the configured fallback order.
func (g *Gateway) Providers() []string {
	names := make([]string, len(g.providers))
	for i, p := range g.providers {
		names[i] = p.Name()
	}
	return names
}

func (g *Gateway) Generate(ctx context.Context, prompt string) (string, error) {
	if len(g.providers) == 0 {
		return "", &Error{Provider: "none", Err: errors.New("no generation providers configured")}
	}

	var lastErr error
	for i, p := range g.providers {
		text, err := g.generateWithTimeout(ctx, p, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if i < len(g.providers)-1 {
			slog.Warn("generation provider failed, trying fallback",
				"provider", p.Name(),
				"fallback", g.providers[i+1].Name(),
				"error", err,
			)
		}
	}
	return "", lastErr
}

func (g *Gateway) generateWithTimeout(ctx context.Context, p Provider, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	return p.Generate(ctx, prompt)
}
