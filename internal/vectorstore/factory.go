package vectorstore

import (
	"context"
	"fmt"

	"github.com/verdantlabs/corpusd/internal/config"
)

// NewFromConfig opens the backend named by cfg.Backend. The returned store
// already has its collection/schema in place.
func NewFromConfig(ctx context.Context, cfg config.IndexConfig) (Store, error) {
	switch cfg.Backend {
	case "chromem":
		return NewChromemStore(cfg.ChromemPath, cfg.ChromemCompress, cfg.Collection, cfg.Dimension)
	case "qdrant":
		return NewQdrantStore(ctx, QdrantConfig{
			Host:       cfg.QdrantHost,
			Port:       cfg.QdrantPort,
			APIKey:     cfg.QdrantAPIKey,
			UseTLS:     cfg.QdrantUseTLS,
			Collection: cfg.Collection,
			Dimension:  cfg.Dimension,
		})
	case "pgvector":
		return NewPgVectorStore(ctx, cfg.PostgresURL, cfg.PostgresMaxConns, cfg.Dimension)
	default:
		return nil, fmt.Errorf("unknown vector index backend %q", cfg.Backend)
	}
}
