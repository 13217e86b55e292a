// Package api assembles the HTTP surface: middleware chain, auth and the
// ingest/retrieve routes.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/verdantlabs/corpusd/internal/api/handlers"
	"github.com/verdantlabs/corpusd/internal/api/middleware"
	"github.com/verdantlabs/corpusd/internal/auth"
	"github.com/verdantlabs/corpusd/internal/cache"
	"github.com/verdantlabs/corpusd/internal/config"
	"github.com/verdantlabs/corpusd/internal/queue"
	"github.com/verdantlabs/corpusd/internal/rag"
	"github.com/verdantlabs/corpusd/internal/vectorstore"
)

type Router struct {
	cfg       *config.Config
	store     vectorstore.Store
	pipeline  *rag.Pipeline
	retriever *rag.Retriever
	queue     *queue.Client
	cache     *cache.RetrievalCache
	redis     *redis.Client
}

func NewRouter(cfg *config.Config, store vectorstore.Store, p *rag.Pipeline, rt *rag.Retriever,
	qc *queue.Client, rc *cache.RetrievalCache, rdb *redis.Client) *Router {
	return &Router{
		cfg:       cfg,
		store:     store,
		pipeline:  p,
		retriever: rt,
		queue:     qc,
		cache:     rc,
		redis:     rdb,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	rl := middleware.NewRateLimiter(100, 200)
	r.Use(rl.Limit)

	health := handlers.NewHealthHandler(rt.readinessChecks())
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	jwtAuth := auth.NewJWTMiddleware(rt.cfg.Auth.JWTSecret)

	ingestH := handlers.NewIngestHandler(rt.pipeline, rt.queue, rt.cache, rt.cfg.Ingest.MaxUploadBytes)
	queryH := handlers.NewQueryHandler(rt.retriever, rt.cache)
	docsH := handlers.NewDocumentsHandler(rt.pipeline, rt.cache)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(jwtAuth.Authenticate)

		r.Post("/ingest", ingestH.Ingest)
		r.Post("/ingest/async", ingestH.IngestAsync)
		r.Post("/query", queryH.Query)
		r.Post("/flush", docsH.Flush)
		r.Delete("/documents/{id}", docsH.Delete)
		r.Get("/documents/count", docsH.Count)
	})

	return r
}

func (rt *Router) readinessChecks() map[string]func(context.Context) error {
	checks := map[string]func(context.Context) error{
		"index": func(ctx context.Context) error {
			// Probe the backend with a throwaway owner; any reachable
			// backend answers a filtered count.
			_, err := rt.store.Count(ctx, vectorstore.Filter{OwnerID: "readyz-probe"})
			return err
		},
	}
	if rt.redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return rt.redis.Ping(ctx).Err()
		}
	}
	return checks
}
