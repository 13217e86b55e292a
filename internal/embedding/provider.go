// Package embedding converts text to fixed-dimension vectors, with a
// fallback-ordered set of backends.
package embedding

import (
	"context"
	"fmt"

	"github.com/verdantlabs/corpusd/internal/config"
)

// Provider abstracts an embedding backend (remote API or local model).
//
// Embed returns one vector per input text, in input order. It is
// all-or-nothing: any backend failure aborts the whole call and no partial
// results are returned. EmbedQuery may use a query-specific encoding but
// shares the document vector space.
type Provider interface {
	Name() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Error marks an embedding backend failure. Wraps the underlying cause so
// callers can classify with errors.As.
type Error struct {
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("embedding provider %s: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewFromConfig builds the configured providers in fallback order and wraps
// them in a Chain. All providers must agree on the vector dimension.
func NewFromConfig(cfg config.EmbeddingConfig) (Provider, error) {
	var providers []Provider
	for _, name := range cfg.Providers {
		switch name {
		case "openai":
			if cfg.OpenAIKey == "" {
				return nil, fmt.Errorf("embedding provider openai requires OPENAI_API_KEY")
			}
			providers = append(providers, NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIModel, cfg.BatchSize, cfg.Timeout))
		case "fastembed":
			p, err := NewFastEmbedProvider(cfg.FastEmbedModel, cfg.FastEmbedCacheDir)
			if err != nil {
				return nil, fmt.Errorf("init fastembed: %w", err)
			}
			providers = append(providers, p)
		default:
			return nil, fmt.Errorf("unknown embedding provider %q", name)
		}
	}
	return NewChain(providers)
}
