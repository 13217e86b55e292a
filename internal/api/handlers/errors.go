package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/verdantlabs/corpusd/internal/embedding"
	"github.com/verdantlabs/corpusd/internal/llm"
	"github.com/verdantlabs/corpusd/internal/rag"
	"github.com/verdantlabs/corpusd/internal/vectorstore"
	"github.com/verdantlabs/corpusd/pkg/textextract"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeDomainError maps pipeline error kinds onto HTTP statuses. Client
// mistakes get 4xx, dependency failures get 502.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		embedErr *embedding.Error
		genErr   *llm.Error
		idxErr   *vectorstore.Error
	)
	switch {
	case errors.Is(err, rag.ErrTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": err.Error()})
	case errors.Is(err, rag.ErrTooShort):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, textextract.ErrUnsupportedFormat):
		writeJSON(w, http.StatusUnsupportedMediaType, map[string]string{"error": err.Error()})
	case errors.As(err, &embedErr), errors.As(err, &genErr), errors.As(err, &idxErr):
		slog.Error("upstream dependency failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	default:
		slog.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
