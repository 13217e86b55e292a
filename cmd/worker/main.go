package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/verdantlabs/corpusd/internal/config"
	"github.com/verdantlabs/corpusd/internal/embedding"
	"github.com/verdantlabs/corpusd/internal/queue"
	"github.com/verdantlabs/corpusd/internal/queue/workers"
	"github.com/verdantlabs/corpusd/internal/rag"
	"github.com/verdantlabs/corpusd/internal/vectorstore"
	"github.com/verdantlabs/corpusd/pkg/chunker"
	"github.com/verdantlabs/corpusd/pkg/tokenizer"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	embedder, err := embedding.NewFromConfig(cfg.Embedding)
	if err != nil {
		slog.Error("failed to build embedding chain", "error", err)
		os.Exit(1)
	}
	if embedder.Dimension() != cfg.Index.Dimension {
		slog.Error("embedding dimension does not match index dimension",
			"embedding", embedder.Dimension(), "index", cfg.Index.Dimension)
		os.Exit(1)
	}

	store, err := vectorstore.NewFromConfig(ctx, cfg.Index)
	if err != nil {
		slog.Error("failed to open vector index", "backend", cfg.Index.Backend, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	ch, err := chunker.New(chunker.Config{
		Strategy:          cfg.Ingest.ChunkStrategy,
		ChunkSize:         cfg.Ingest.ChunkSize,
		Overlap:           cfg.Ingest.ChunkOverlap,
		SentencesPerChunk: cfg.Ingest.SentencesPerChunk,
		SentenceOverlap:   cfg.Ingest.SentenceOverlap,
	}, tokenizer.Sentences)
	if err != nil {
		slog.Error("invalid chunker config", "error", err)
		os.Exit(1)
	}

	pipeline := rag.NewPipeline(store, embedder, ch, cfg.Ingest)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	ingestWorker := workers.NewIngestWorker(pipeline)
	mux.Handle(queue.TypeDocumentIngest, asynq.HandlerFunc(ingestWorker.ProcessTask))

	slog.Info("starting worker", "concurrency", 10, "index_backend", cfg.Index.Backend)
	if err := srv.Run(mux); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
