package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/verdantlabs/corpusd/internal/cache"
	"github.com/verdantlabs/corpusd/internal/rag"
	"github.com/verdantlabs/corpusd/internal/tenant"
)

type QueryHandler struct {
	retriever *rag.Retriever
	cache     *cache.RetrievalCache
}

func NewQueryHandler(rt *rag.Retriever, rc *cache.RetrievalCache) *QueryHandler {
	return &QueryHandler{retriever: rt, cache: rc}
}

func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req rag.RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query required"})
		return
	}
	req.OwnerID = tenant.OwnerIDFromContext(r.Context())

	key := cache.Key(req.OwnerID, req.Query, req.TopK, req.Page, req.PageSize)
	if h.cache != nil {
		var cached rag.RetrievalResult
		err := h.cache.Get(r.Context(), key, &cached)
		if err == nil {
			writeJSON(w, http.StatusOK, &cached)
			return
		}
		if !errors.Is(err, cache.ErrMiss) {
			slog.Warn("retrieval cache read failed", "error", err)
		}
	}

	result, err := h.retriever.Retrieve(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if h.cache != nil {
		h.cache.Set(r.Context(), key, result)
	}
	writeJSON(w, http.StatusOK, result)
}
