// Package vectorstore is the polymorphic vector index: entries go in with a
// vector and structured metadata, similarity-ranked matches come out. Three
// backends implement Store: an embedded local store (chromem-go), a managed
// remote index (Qdrant) and Postgres with pgvector.
package vectorstore

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// Error marks a storage backend failure. Wraps the underlying cause.
type Error struct {
	Backend string
	Op      string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("vector index %s: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Metadata is the structured record attached to every entry. The fixed
// fields are validated at write time; Extra is an open extension map.
type Metadata struct {
	OwnerID        string            `json:"owner_id"`
	DocumentID     string            `json:"document_id"`
	ChunkIndex     int               `json:"chunk_index"`
	SourceFilename string            `json:"source_filename"`
	UploadTime     time.Time         `json:"upload_time"`
	Extra          map[string]string `json:"extra,omitempty"`
}

func (m Metadata) Validate() error {
	if m.OwnerID == "" {
		return fmt.Errorf("metadata missing owner_id")
	}
	if m.DocumentID == "" {
		return fmt.Errorf("metadata missing document_id")
	}
	if m.ChunkIndex < 0 {
		return fmt.Errorf("metadata chunk_index must be >= 0, got %d", m.ChunkIndex)
	}
	return nil
}

// Entry is the persisted record: write-once, then immutable except for
// bulk deletion by filter. Upserting an existing ID overwrites it.
type Entry struct {
	ID     string
	Vector []float32
	Text   string
	Meta   Metadata
}

// Match is a search hit. Score is the normalized [0,1] relevance: backends
// with different native scales are mapped through normalizeCosine before
// scores leave this package.
type Match struct {
	ID    string   `json:"id"`
	Score float64  `json:"score"`
	Text  string   `json:"text"`
	Meta  Metadata `json:"metadata"`
}

// Filter is a conjunction of exact-match metadata predicates. OwnerID is
// mandatory: tenant isolation is enforced entirely through this filter, so
// an empty owner must never reach a backend.
type Filter struct {
	OwnerID    string
	DocumentID string // optional; narrows to one document
}

func (f Filter) Validate() error {
	if f.OwnerID == "" {
		return fmt.Errorf("filter missing owner_id")
	}
	return nil
}

// Store is the capability interface every backend implements. Search applies
// the filter index-side, so k is the match count after filtering. Backends
// must tolerate concurrent upserts and searches from multiple tenants;
// no locking is layered on top of the backend's own concurrency control.
//
// Remote backends may have eventual upsert visibility; callers must not
// assume a search immediately after an upsert sees the new entries unless
// the backend documents read-after-write consistency.
type Store interface {
	Upsert(ctx context.Context, entries []Entry) error
	Search(ctx context.Context, vector []float32, k int, f Filter) ([]Match, error)
	Delete(ctx context.Context, f Filter) error
	Count(ctx context.Context, f Filter) (int, error)
	Close() error
}

// normalizeCosine maps a cosine similarity in [-1,1] to the external [0,1]
// relevance convention shared by all backends.
func normalizeCosine(sim float64) float64 {
	s := (sim + 1) / 2
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

func validateEntries(entries []Entry, dimension int) error {
	for i, e := range entries {
		if e.ID == "" {
			return fmt.Errorf("entry %d missing id", i)
		}
		if len(e.Vector) != dimension {
			return fmt.Errorf("entry %d vector has dimension %d, index expects %d", i, len(e.Vector), dimension)
		}
		if err := e.Meta.Validate(); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return nil
}

// metaToMap flattens Metadata for backends that store flat string payloads.
func metaToMap(m Metadata) map[string]string {
	out := map[string]string{
		"owner_id":        m.OwnerID,
		"document_id":     m.DocumentID,
		"chunk_index":     strconv.Itoa(m.ChunkIndex),
		"source_filename": m.SourceFilename,
		"upload_time":     m.UploadTime.UTC().Format(time.RFC3339Nano),
	}
	for k, v := range m.Extra {
		out["x_"+k] = v
	}
	return out
}

func metaFromMap(in map[string]string) Metadata {
	m := Metadata{
		OwnerID:        in["owner_id"],
		DocumentID:     in["document_id"],
		SourceFilename: in["source_filename"],
	}
	if idx, err := strconv.Atoi(in["chunk_index"]); err == nil {
		m.ChunkIndex = idx
	}
	if t, err := time.Parse(time.RFC3339Nano, in["upload_time"]); err == nil {
		m.UploadTime = t
	}
	for k, v := range in {
		if len(k) > 2 && k[:2] == "x_" {
			if m.Extra == nil {
				m.Extra = make(map[string]string)
			}
			m.Extra[k[2:]] = v
		}
	}
	return m
}

// filterToMap builds the exact-match predicate map for flat-payload backends.
func filterToMap(f Filter) map[string]string {
	where := map[string]string{"owner_id": f.OwnerID}
	if f.DocumentID != "" {
		where["document_id"] = f.DocumentID
	}
	return where
}
