package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verdantlabs/corpusd/internal/config"
	"github.com/verdantlabs/corpusd/internal/embedding"
	"github.com/verdantlabs/corpusd/internal/vectorstore"
	"github.com/verdantlabs/corpusd/pkg/chunker"
	"github.com/verdantlabs/corpusd/pkg/textextract"
)

var (
	// ErrTooLarge rejects uploads over the configured byte limit before
	// any extraction work happens.
	ErrTooLarge = errors.New("document exceeds maximum upload size")

	// ErrTooShort rejects documents whose extracted text is empty or below
	// the minimum length threshold.
	ErrTooShort = errors.New("extracted text is too short to ingest")
)

// Pipeline owns document ingestion and the tenant-scoped maintenance
// operations over the vector index. Every index call it issues carries the
// caller's owner filter.
type Pipeline struct {
	store    vectorstore.Store
	embedder embedding.Provider
	chunker  *chunker.Chunker

	maxUploadBytes int64
	minTextLen     int
}

func NewPipeline(store vectorstore.Store, embedder embedding.Provider, ch *chunker.Chunker, cfg config.IngestConfig) *Pipeline {
	return &Pipeline{
		store:          store,
		embedder:       embedder,
		chunker:        ch,
		maxUploadBytes: cfg.MaxUploadBytes,
		minTextLen:     cfg.MinTextLen,
	}
}

type IngestRequest struct {
	OwnerID  string
	Filename string
	Data     []byte
}

type IngestResult struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
}

// ExtractText runs the ingest guards that never depend on remote services:
// the size limit, text extraction and the minimum-length check. The async
// path calls it before enqueueing so rejections happen synchronously.
func (p *Pipeline) ExtractText(filename string, data []byte) (string, error) {
	if p.maxUploadBytes > 0 && int64(len(data)) > p.maxUploadBytes {
		return "", fmt.Errorf("%w: %d bytes (limit %d)", ErrTooLarge, len(data), p.maxUploadBytes)
	}
	text, err := textextract.Extract(filename, data)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", filename, err)
	}
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < p.minTextLen {
		return "", fmt.Errorf("%w: %d characters (minimum %d)", ErrTooShort, len(trimmed), p.minTextLen)
	}
	return trimmed, nil
}

// Ingest runs the full path: size guard, text extraction, length guard,
// chunking, embedding and a single-batch upsert under a fresh document id.
// Re-ingesting the same file always creates a new document.
func (p *Pipeline) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if req.OwnerID == "" {
		return nil, fmt.Errorf("ingest: missing owner id")
	}
	text, err := p.ExtractText(req.Filename, req.Data)
	if err != nil {
		return nil, err
	}

	docID := uuid.NewString()
	count, err := p.IngestExtracted(ctx, req.OwnerID, docID, req.Filename, text, time.Now())
	if err != nil {
		return nil, err
	}

	slog.Info("document ingested",
		"owner_id", req.OwnerID,
		"document_id", docID,
		"filename", req.Filename,
		"chunk_count", count,
	)
	return &IngestResult{DocumentID: docID, Filename: req.Filename, ChunkCount: count}, nil
}

// IngestExtracted indexes already-extracted text under the given document
// id. The async worker calls this directly so a retried task reuses its
// document id instead of minting duplicates.
func (p *Pipeline) IngestExtracted(ctx context.Context, ownerID, docID, filename, text string, uploadTime time.Time) (int, error) {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < p.minTextLen {
		return 0, fmt.Errorf("%w: %d characters (minimum %d)", ErrTooShort, len(trimmed), p.minTextLen)
	}

	chunks := p.chunker.Chunk(trimmed)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("%w: no chunks produced", ErrTooShort)
	}

	vectors, err := p.embedder.Embed(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("embed %d chunks: %w", len(chunks), err)
	}

	entries := make([]vectorstore.Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = vectorstore.Entry{
			ID:     fmt.Sprintf("%s-%d", docID, i),
			Vector: vectors[i],
			Text:   c,
			Meta: vectorstore.Metadata{
				OwnerID:        ownerID,
				DocumentID:     docID,
				ChunkIndex:     i,
				SourceFilename: filename,
				UploadTime:     uploadTime.UTC(),
			},
		}
	}

	// All entries go in one batch. If the backend still fails partway, the
	// rollback delete keeps the document from being half visible.
	if err := p.store.Upsert(ctx, entries); err != nil {
		p.rollback(ownerID, docID)
		return 0, fmt.Errorf("index %d chunks: %w", len(entries), err)
	}
	return len(entries), nil
}

func (p *Pipeline) rollback(ownerID, docID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	f := vectorstore.Filter{OwnerID: ownerID, DocumentID: docID}
	if err := p.store.Delete(ctx, f); err != nil {
		slog.Error("rollback of partial ingest failed",
			"owner_id", ownerID, "document_id", docID, "error", err)
	}
}

// DeleteDocument removes every entry of one document for the owner.
func (p *Pipeline) DeleteDocument(ctx context.Context, ownerID, docID string) error {
	return p.store.Delete(ctx, vectorstore.Filter{OwnerID: ownerID, DocumentID: docID})
}

// Flush removes all of an owner's entries and reports how many went away.
// Other tenants' entries are untouched.
func (p *Pipeline) Flush(ctx context.Context, ownerID string) (int, error) {
	f := vectorstore.Filter{OwnerID: ownerID}
	n, err := p.store.Count(ctx, f)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	if err := p.store.Delete(ctx, f); err != nil {
		return 0, err
	}
	slog.Info("index flushed", "owner_id", ownerID, "removed", n)
	return n, nil
}

// CountEntries reports how many index entries the owner currently has.
func (p *Pipeline) CountEntries(ctx context.Context, ownerID string) (int, error) {
	return p.store.Count(ctx, vectorstore.Filter{OwnerID: ownerID})
}
