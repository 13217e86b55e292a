package vectorstore

import (
	"context"
	"fmt"

	chromem "github.com/philippgille/chromem-go"
)

// ChromemStore is the embedded local backend: pure Go, in-process,
// synchronous, with optional gob persistence. Upserts are immediately
// visible to searches (strong read-after-write).
type ChromemStore struct {
	db        *chromem.DB
	coll      *chromem.Collection
	dimension int
}

// NewChromemStore opens (or creates) the collection. An empty path keeps
// the store in memory, which is what the tests use.
func NewChromemStore(path string, compress bool, collection string, dimension int) (*ChromemStore, error) {
	var db *chromem.DB
	var err error
	if path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(path, compress)
		if err != nil {
			return nil, fmt.Errorf("open chromem db: %w", err)
		}
	}

	// All vectors are precomputed by the embedding layer, so the collection
	// must never need to embed on its own.
	coll, err := db.GetOrCreateCollection(collection, nil, noEmbedding)
	if err != nil {
		return nil, fmt.Errorf("open chromem collection %s: %w", collection, err)
	}

	return &ChromemStore{db: db, coll: coll, dimension: dimension}, nil
}

func noEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("no embedding function: vectors are precomputed")
}

func (s *ChromemStore) Upsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := validateEntries(entries, s.dimension); err != nil {
		return &Error{Backend: "chromem", Op: "upsert", Err: err}
	}

	docs := make([]chromem.Document, len(entries))
	for i, e := range entries {
		docs[i] = chromem.Document{
			ID:        e.ID,
			Content:   e.Text,
			Metadata:  metaToMap(e.Meta),
			Embedding: e.Vector,
		}
	}

	// Concurrency 1: embeddings are already attached, adding is pure map
	// insert and same-ID adds overwrite, which makes this idempotent.
	if err := s.coll.AddDocuments(ctx, docs, 1); err != nil {
		return &Error{Backend: "chromem", Op: "upsert", Err: err}
	}
	return nil
}

func (s *ChromemStore) Search(ctx context.Context, vector []float32, k int, f Filter) ([]Match, error) {
	if err := f.Validate(); err != nil {
		return nil, &Error{Backend: "chromem", Op: "search", Err: err}
	}
	if k <= 0 {
		return nil, nil
	}

	// chromem rejects nResults above the collection size; the filter is
	// applied before the cutoff, so k stays the post-filter count.
	if total := s.coll.Count(); total == 0 {
		return nil, nil
	} else if k > total {
		k = total
	}

	results, err := s.coll.QueryEmbedding(ctx, vector, k, filterToMap(f), nil)
	if err != nil {
		return nil, &Error{Backend: "chromem", Op: "search", Err: err}
	}

	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = Match{
			ID:    r.ID,
			Score: normalizeCosine(float64(r.Similarity)),
			Text:  r.Content,
			Meta:  metaFromMap(r.Metadata),
		}
	}
	return matches, nil
}

func (s *ChromemStore) Delete(ctx context.Context, f Filter) error {
	if err := f.Validate(); err != nil {
		return &Error{Backend: "chromem", Op: "delete", Err: err}
	}
	if err := s.coll.Delete(ctx, filterToMap(f), nil); err != nil {
		return &Error{Backend: "chromem", Op: "delete", Err: err}
	}
	return nil
}

// Count probes the collection with a fixed vector: chromem has no filtered
// count, but a filtered query over the full collection returns exactly the
// matching documents.
func (s *ChromemStore) Count(ctx context.Context, f Filter) (int, error) {
	if err := f.Validate(); err != nil {
		return 0, &Error{Backend: "chromem", Op: "count", Err: err}
	}

	total := s.coll.Count()
	if total == 0 {
		return 0, nil
	}

	probe := make([]float32, s.dimension)
	probe[0] = 1

	results, err := s.coll.QueryEmbedding(ctx, probe, total, filterToMap(f), nil)
	if err != nil {
		return 0, &Error{Backend: "chromem", Op: "count", Err: err}
	}
	return len(results), nil
}

func (s *ChromemStore) Close() error { return nil }
