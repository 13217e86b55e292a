// Package workers holds the asynq task handlers run by cmd/worker.
package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/verdantlabs/corpusd/internal/queue"
	"github.com/verdantlabs/corpusd/internal/rag"
)

type IngestWorker struct {
	pipeline *rag.Pipeline
}

func NewIngestWorker(p *rag.Pipeline) *IngestWorker {
	return &IngestWorker{pipeline: p}
}

func (w *IngestWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.DocumentIngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	slog.Info("processing async ingest",
		"document_id", payload.DocumentID,
		"owner_id", payload.OwnerID,
		"filename", payload.Filename,
	)

	count, err := w.pipeline.IngestExtracted(ctx, payload.OwnerID, payload.DocumentID,
		payload.Filename, payload.Text, payload.UploadTime)
	if err != nil {
		// Validation failures will never succeed on retry.
		if errors.Is(err, rag.ErrTooShort) {
			slog.Error("async ingest rejected", "document_id", payload.DocumentID, "error", err)
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("ingest document %s: %w", payload.DocumentID, err)
	}

	slog.Info("async ingest complete", "document_id", payload.DocumentID, "chunk_count", count)
	return nil
}
