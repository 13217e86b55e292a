// Package llm wraps the text-generation backends behind a single
// prompt-in, text-out call with ordered fallback.
package llm

import (
	"context"
	"fmt"
)

// Provider abstracts a text-generation backend (OpenAI, Anthropic, Ollama).
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Error marks a generation backend failure. Timeouts surface here too and
// are retryable by the caller.
type Error struct {
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("generation provider %s: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
