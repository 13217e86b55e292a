package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/verdantlabs/corpusd/internal/api"
	"github.com/verdantlabs/corpusd/internal/cache"
	"github.com/verdantlabs/corpusd/internal/config"
	"github.com/verdantlabs/corpusd/internal/embedding"
	"github.com/verdantlabs/corpusd/internal/llm"
	"github.com/verdantlabs/corpusd/internal/queue"
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

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	var rcache *cache.RetrievalCache
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, running without retrieval cache", "error", err)
	} else {
		rcache = cache.NewRetrievalCache(rdb, cfg.Retrieval.CacheTTL)
	}
	defer rdb.Close()

	gateway := llm.NewGateway(cfg.Generation)
	pipeline := rag.NewPipeline(store, embedder, ch, cfg.Ingest)
	retriever := rag.NewRetriever(store, embedder, gateway, cfg.Retrieval)

	queueClient := queue.NewClient(cfg.Redis)
	defer queueClient.Close()

	router := api.NewRouter(cfg, store, pipeline, retriever, queueClient, rcache, rdb)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting API server",
			"addr", cfg.Addr(),
			"index_backend", cfg.Index.Backend,
			"embedding_providers", cfg.Embedding.Providers,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}
