package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/verdantlabs/corpusd/internal/cache"
	"github.com/verdantlabs/corpusd/internal/queue"
	"github.com/verdantlabs/corpusd/internal/rag"
	"github.com/verdantlabs/corpusd/internal/tenant"
)

type IngestHandler struct {
	pipeline *rag.Pipeline
	queue    *queue.Client
	cache    *cache.RetrievalCache

	maxUploadBytes int64
}

func NewIngestHandler(p *rag.Pipeline, qc *queue.Client, rc *cache.RetrievalCache, maxUploadBytes int64) *IngestHandler {
	return &IngestHandler{pipeline: p, queue: qc, cache: rc, maxUploadBytes: maxUploadBytes}
}

// readUpload pulls the "file" part out of the multipart form. The reader is
// capped one byte past the limit so oversized uploads surface as ErrTooLarge
// from the pipeline instead of an unbounded read.
func (h *IngestHandler) readUpload(r *http.Request) (string, []byte, error) {
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		return "", nil, err
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		return "", nil, err
	}
	return header.Filename, data, nil
}

func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	ownerID := tenant.OwnerIDFromContext(r.Context())

	filename, data, err := h.readUpload(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart upload with a \"file\" part required"})
		return
	}

	result, err := h.pipeline.Ingest(r.Context(), rag.IngestRequest{
		OwnerID:  ownerID,
		Filename: filename,
		Data:     data,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if h.cache != nil {
		h.cache.InvalidateOwner(r.Context(), ownerID)
	}
	writeJSON(w, http.StatusCreated, result)
}

// IngestAsync validates and extracts synchronously, then hands the chunk,
// embed and index work to the worker. The response carries the document id
// the worker will index under.
func (h *IngestHandler) IngestAsync(w http.ResponseWriter, r *http.Request) {
	ownerID := tenant.OwnerIDFromContext(r.Context())

	filename, data, err := h.readUpload(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart upload with a \"file\" part required"})
		return
	}

	text, err := h.pipeline.ExtractText(filename, data)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	docID := uuid.NewString()
	err = h.queue.EnqueueDocumentIngest(queue.DocumentIngestPayload{
		DocumentID: docID,
		OwnerID:    ownerID,
		Filename:   filename,
		Text:       text,
		UploadTime: time.Now().UTC(),
	})
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "failed to enqueue ingestion"})
		return
	}

	if h.cache != nil {
		h.cache.InvalidateOwner(r.Context(), ownerID)
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"document_id": docID,
		"filename":    filename,
		"status":      "queued",
	})
}
