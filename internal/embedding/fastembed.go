package embedding

import (
	"context"
	"fmt"
	"sync"

	fastembed "github.com/anush008/fastembed-go"
)

var fastEmbedModels = map[string]fastembed.EmbeddingModel{
	"BAAI/bge-small-en-v1.5":                 fastembed.BGESmallENV15,
	"BAAI/bge-small-en":                      fastembed.BGESmallEN,
	"BAAI/bge-base-en-v1.5":                  fastembed.BGEBaseENV15,
	"BAAI/bge-base-en":                       fastembed.BGEBaseEN,
	"sentence-transformers/all-MiniLM-L6-v2": fastembed.AllMiniLML6V2,
}

var fastEmbedDimensions = map[fastembed.EmbeddingModel]int{
	fastembed.BGESmallENV15: 384,
	fastembed.BGESmallEN:    384,
	fastembed.BGEBaseENV15:  768,
	fastembed.BGEBaseEN:     768,
	fastembed.AllMiniLML6V2: 384,
}

// FastEmbedProvider embeds text with a local ONNX model. No network calls
// after the model files are cached.
type FastEmbedProvider struct {
	model     *fastembed.FlagEmbedding
	dimension int
	mu        sync.Mutex
}

func NewFastEmbedProvider(modelName, cacheDir string) (*FastEmbedProvider, error) {
	model, ok := fastEmbedModels[modelName]
	if !ok {
		return nil, fmt.Errorf("unsupported fastembed model %q", modelName)
	}

	showProgress := false
	flagEmbed, err := fastembed.NewFlagEmbedding(&fastembed.InitOptions{
		Model:                model,
		CacheDir:             cacheDir,
		ShowDownloadProgress: &showProgress,
	})
	if err != nil {
		return nil, fmt.Errorf("init fastembed model: %w", err)
	}

	return &FastEmbedProvider{
		model:     flagEmbed,
		dimension: fastEmbedDimensions[model],
	}, nil
}

func (p *FastEmbedProvider) Name() string { return "fastembed" }

func (p *FastEmbedProvider) Dimension() int { return p.dimension }

// Embed uses the passage encoding recommended for BGE-family models.
func (p *FastEmbedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, &Error{Provider: p.Name(), Err: err}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	embeddings, err := p.model.PassageEmbed(texts, 256)
	if err != nil {
		return nil, &Error{Provider: p.Name(), Err: err}
	}
	if len(embeddings) != len(texts) {
		return nil, &Error{Provider: p.Name(), Err: fmt.Errorf("got %d embeddings for %d inputs", len(embeddings), len(texts))}
	}
	return embeddings, nil
}

// EmbedQuery uses the query encoding, which shares the passage vector space.
func (p *FastEmbedProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Provider: p.Name(), Err: err}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	embedding, err := p.model.QueryEmbed(text)
	if err != nil {
		return nil, &Error{Provider: p.Name(), Err: err}
	}
	return embedding, nil
}

func (p *FastEmbedProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.model != nil {
		return p.model.Destroy()
	}
	return nil
}
