package embedding

import (
	"context"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// openAIModelDimensions are the native output dimensions of the supported
// embedding models.
var openAIModelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// OpenAIProvider embeds text via the OpenAI embeddings API. Inputs are sent
// in fixed-size batches to respect payload limits; batches run sequentially
// and results are concatenated in input order.
type OpenAIProvider struct {
	client    *openai.Client
	model     string
	batchSize int
	dimension int
}

func NewOpenAIProvider(apiKey, model string, batchSize int, timeout time.Duration) *OpenAIProvider {
	if model == "" {
		model = "text-embedding-3-small"
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	dim, ok := openAIModelDimensions[model]
	if !ok {
		dim = 1536
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	return &OpenAIProvider{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		batchSize: batchSize,
		dimension: dim,
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Dimension() int { return p.dimension }

func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	embeddings := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += p.batchSize {
		end := i + p.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts[i:end],
			Model: openai.EmbeddingModel(p.model),
		})
		if err != nil {
			return nil, &Error{Provider: p.Name(), Err: fmt.Errorf("batch %d: %w", i/p.batchSize, err)}
		}
		if len(resp.Data) != end-i {
			return nil, &Error{Provider: p.Name(), Err: fmt.Errorf("batch %d: got %d embeddings for %d inputs", i/p.batchSize, len(resp.Data), end-i)}
		}

		// The API tags each datum with its index within the batch; order by
		// it rather than trusting response order.
		batch := make([][]float32, end-i)
		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= len(batch) {
				return nil, &Error{Provider: p.Name(), Err: fmt.Errorf("batch %d: embedding index %d out of range", i/p.batchSize, d.Index)}
			}
			batch[d.Index] = d.Embedding
		}
		embeddings = append(embeddings, batch...)
	}
	return embeddings, nil
}

func (p *OpenAIProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, &Error{Provider: p.Name(), Err: fmt.Errorf("no embedding returned")}
	}
	return embeddings[0], nil
}
