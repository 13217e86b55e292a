package rag

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantlabs/corpusd/internal/config"
	"github.com/verdantlabs/corpusd/internal/vectorstore"
	"github.com/verdantlabs/corpusd/pkg/chunker"
	"github.com/verdantlabs/corpusd/pkg/tokenizer"
)

func ingestConfig() config.IngestConfig {
	return config.IngestConfig{
		MaxUploadBytes: 10 << 20,
		MinTextLen:     20,
		ChunkStrategy:  chunker.StrategyFixed,
		ChunkSize:      800,
		ChunkOverlap:   150,
	}
}

func newTestPipeline(t *testing.T, store vectorstore.Store, cfg config.IngestConfig) *Pipeline {
	t.Helper()
	ch, err := chunker.New(chunker.Config{
		Strategy:  cfg.ChunkStrategy,
		ChunkSize: cfg.ChunkSize,
		Overlap:   cfg.ChunkOverlap,
	}, tokenizer.Sentences)
	require.NoError(t, err)
	return NewPipeline(store, hashEmbedder{}, ch, cfg)
}

func TestIngestEndToEnd(t *testing.T) {
	store := newTestStore(t)
	p := newTestPipeline(t, store, ingestConfig())
	ctx := context.Background()

	text := strings.Repeat("all work and no play makes for dull documents. ", 54) // ~2500 chars
	result, err := p.Ingest(ctx, IngestRequest{
		OwnerID:  "u1",
		Filename: "novel.txt",
		Data:     []byte(text),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.DocumentID)
	assert.Equal(t, "novel.txt", result.Filename)
	assert.GreaterOrEqual(t, result.ChunkCount, 3)

	n, err := p.CountEntries(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, result.ChunkCount, n)

	gen := &countingGenerator{answer: "fine"}
	r := NewRetriever(store, hashEmbedder{}, gen, retrievalConfig())
	res, err := r.Retrieve(ctx, RetrieveRequest{
		Query:    "dull documents",
		OwnerID:  "u1",
		TopK:     4,
		Page:     1,
		PageSize: 4,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Documents)
	for _, d := range res.Documents {
		assert.Equal(t, "u1", d.Meta.OwnerID)
		assert.Equal(t, result.DocumentID, d.Meta.DocumentID)
	}
}

func TestIngestRejectsOversizedUpload(t *testing.T) {
	cfg := ingestConfig()
	cfg.MaxUploadBytes = 100
	p := newTestPipeline(t, newTestStore(t), cfg)

	_, err := p.Ingest(context.Background(), IngestRequest{
		OwnerID:  "u1",
		Filename: "big.txt",
		Data:     []byte(strings.Repeat("x", 101)),
	})
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestIngestRejectsShortText(t *testing.T) {
	p := newTestPipeline(t, newTestStore(t), ingestConfig())

	_, err := p.Ingest(context.Background(), IngestRequest{
		OwnerID:  "u1",
		Filename: "tiny.txt",
		Data:     []byte("too short"),
	})
	assert.ErrorIs(t, err, ErrTooShort)

	_, err = p.Ingest(context.Background(), IngestRequest{
		OwnerID:  "u1",
		Filename: "blank.txt",
		Data:     []byte("   \n\t   "),
	})
	assert.ErrorIs(t, err, ErrTooShort)
}

func TestIngestRequiresOwner(t *testing.T) {
	p := newTestPipeline(t, newTestStore(t), ingestConfig())

	_, err := p.Ingest(context.Background(), IngestRequest{
		Filename: "doc.txt",
		Data:     []byte(strings.Repeat("enough text to pass the length gate. ", 3)),
	})
	assert.Error(t, err)
}

func TestReingestCreatesNewDocument(t *testing.T) {
	store := newTestStore(t)
	p := newTestPipeline(t, store, ingestConfig())
	ctx := context.Background()

	data := []byte(strings.Repeat("the same file uploaded twice stays twice. ", 3))
	first, err := p.Ingest(ctx, IngestRequest{OwnerID: "u1", Filename: "dup.txt", Data: data})
	require.NoError(t, err)
	second, err := p.Ingest(ctx, IngestRequest{OwnerID: "u1", Filename: "dup.txt", Data: data})
	require.NoError(t, err)

	assert.NotEqual(t, first.DocumentID, second.DocumentID)

	n, err := p.CountEntries(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, first.ChunkCount+second.ChunkCount, n)
}

func TestFlushRemovesOnlyOwner(t *testing.T) {
	store := newTestStore(t)
	p := newTestPipeline(t, store, ingestConfig())
	ctx := context.Background()

	data := []byte(strings.Repeat("content that is long enough to index. ", 3))
	_, err := p.Ingest(ctx, IngestRequest{OwnerID: "u1", Filename: "a.txt", Data: data})
	require.NoError(t, err)
	other, err := p.Ingest(ctx, IngestRequest{OwnerID: "u2", Filename: "b.txt", Data: data})
	require.NoError(t, err)

	removed, err := p.Flush(ctx, "u1")
	require.NoError(t, err)
	assert.Greater(t, removed, 0)

	n, err := p.CountEntries(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = p.CountEntries(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, other.ChunkCount, n)
}

func TestFlushEmptyOwner(t *testing.T) {
	p := newTestPipeline(t, newTestStore(t), ingestConfig())

	removed, err := p.Flush(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestDeleteDocument(t *testing.T) {
	store := newTestStore(t)
	p := newTestPipeline(t, store, ingestConfig())
	ctx := context.Background()

	data := []byte(strings.Repeat("a document that will be deleted shortly. ", 3))
	result, err := p.Ingest(ctx, IngestRequest{OwnerID: "u1", Filename: "gone.txt", Data: data})
	require.NoError(t, err)

	require.NoError(t, p.DeleteDocument(ctx, "u1", result.DocumentID))

	n, err := p.CountEntries(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

// failingStore fails every upsert and records delete filters, to observe
// the rollback path.
type failingStore struct {
	deletes []vectorstore.Filter
}

func (f *failingStore) Upsert(ctx context.Context, entries []vectorstore.Entry) error {
	return &vectorstore.Error{Backend: "stub", Op: "upsert", Err: errors.New("disk full")}
}

func (f *failingStore) Search(ctx context.Context, vector []float32, k int, fl vectorstore.Filter) ([]vectorstore.Match, error) {
	return nil, nil
}

func (f *failingStore) Delete(ctx context.Context, fl vectorstore.Filter) error {
	f.deletes = append(f.deletes, fl)
	return nil
}

func (f *failingStore) Count(ctx context.Context, fl vectorstore.Filter) (int, error) {
	return 0, nil
}

func (f *failingStore) Close() error { return nil }

func TestIngestRollsBackOnUpsertFailure(t *testing.T) {
	store := &failingStore{}
	p := newTestPipeline(t, store, ingestConfig())

	_, err := p.IngestExtracted(context.Background(), "u1", "doc-x", "f.txt",
		strings.Repeat("text long enough to pass validation. ", 3), time.Now())
	require.Error(t, err)

	var storeErr *vectorstore.Error
	assert.ErrorAs(t, err, &storeErr)

	require.Len(t, store.deletes, 1)
	assert.Equal(t, "u1", store.deletes[0].OwnerID)
	assert.Equal(t, "doc-x", store.deletes[0].DocumentID)
}

func TestExtractTextGuards(t *testing.T) {
	p := newTestPipeline(t, newTestStore(t), ingestConfig())

	text, err := p.ExtractText("ok.txt", []byte("  plenty of text with leading whitespace  "))
	require.NoError(t, err)
	assert.Equal(t, "plenty of text with leading whitespace", text)

	_, err = p.ExtractText("bad.pdf", []byte("not a pdf"))
	assert.Error(t, err)
}
