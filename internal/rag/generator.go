package rag

import (
	"context"
	"fmt"
	"log/slog"
)

// contextSeparator joins the retrieved chunk texts into the prompt context.
const contextSeparator = "\n\n---\n\n"

// noMatchesAnswer is returned when the index has nothing for the owner and
// query; generation is skipped entirely in that case.
const noMatchesAnswer = "No relevant information found for this query."

const promptTemplate = "Based on the following context, please answer the question concisely and accurately.\n\n" +
	"Context:\n%s\n\nQuestion: %s\n\nAnswer:"

// degradedAnswerPrefix heads the templated answer used when every
// generation provider fails. The retrieved context follows verbatim so the
// caller always gets the source text back.
const degradedAnswerPrefix = "Answer generation is currently unavailable. The most relevant retrieved content follows:\n\n"

// Generator produces the answer text for a retrieval. *llm.Gateway
// satisfies it; tests substitute fakes.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// answer runs the generation chain over the assembled context and degrades
// to a templated answer rather than failing the whole retrieval.
func answer(ctx context.Context, g Generator, query, contextText string) string {
	prompt := fmt.Sprintf(promptTemplate, contextText, query)
	out, err := g.Generate(ctx, prompt)
	if err != nil {
		slog.Warn("answer generation degraded to retrieved context", "error", err)
		return degradedAnswerPrefix + contextText
	}
	return out
}
