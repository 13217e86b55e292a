package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/verdantlabs/corpusd/internal/cache"
	"github.com/verdantlabs/corpusd/internal/rag"
	"github.com/verdantlabs/corpusd/internal/tenant"
)

type DocumentsHandler struct {
	pipeline *rag.Pipeline
	cache    *cache.RetrievalCache
}

func NewDocumentsHandler(p *rag.Pipeline, rc *cache.RetrievalCache) *DocumentsHandler {
	return &DocumentsHandler{pipeline: p, cache: rc}
}

func (h *DocumentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID := tenant.OwnerIDFromContext(r.Context())
	docID := chi.URLParam(r, "id")
	if docID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id required"})
		return
	}

	if err := h.pipeline.DeleteDocument(r.Context(), ownerID, docID); err != nil {
		writeDomainError(w, err)
		return
	}
	if h.cache != nil {
		h.cache.InvalidateOwner(r.Context(), ownerID)
	}
	writeJSON(w, http.StatusOK, map[string]string{"document_id": docID, "status": "deleted"})
}

// Flush drops everything the owner has indexed and reports the count.
func (h *DocumentsHandler) Flush(w http.ResponseWriter, r *http.Request) {
	ownerID := tenant.OwnerIDFromContext(r.Context())

	removed, err := h.pipeline.Flush(r.Context(), ownerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if h.cache != nil {
		h.cache.InvalidateOwner(r.Context(), ownerID)
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

func (h *DocumentsHandler) Count(w http.ResponseWriter, r *http.Request) {
	ownerID := tenant.OwnerIDFromContext(r.Context())

	n, err := h.pipeline.CountEntries(r.Context(), ownerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": n})
}
