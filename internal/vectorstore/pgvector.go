package vectorstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PgVectorStore keeps entries in a single Postgres table with a pgvector
// column. Cosine distance (<=>) drives ranking; schema is created on
// startup so a fresh database works without out-of-band migrations.
type PgVectorStore struct {
	db        *pgxpool.Pool
	dimension int
}

func NewPgVectorStore(ctx context.Context, url string, maxConns int, dimension int) (*PgVectorStore, error) {
	poolCfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, &Error{Backend: "pgvector", Op: "connect", Err: err}
	}
	if maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}
	db, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, &Error{Backend: "pgvector", Op: "connect", Err: err}
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, &Error{Backend: "pgvector", Op: "connect", Err: err}
	}

	s := &PgVectorStore{db: db, dimension: dimension}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PgVectorStore) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS corpus_chunks (
			id              TEXT PRIMARY KEY,
			owner_id        TEXT NOT NULL,
			document_id     TEXT NOT NULL,
			chunk_index     INT NOT NULL,
			content         TEXT NOT NULL,
			source_filename TEXT NOT NULL DEFAULT '',
			upload_time     TIMESTAMPTZ NOT NULL DEFAULT now(),
			extra           JSONB,
			embedding       vector(%d) NOT NULL
		)`, s.dimension),
		`CREATE INDEX IF NOT EXISTS corpus_chunks_owner_idx ON corpus_chunks (owner_id)`,
		`CREATE INDEX IF NOT EXISTS corpus_chunks_document_idx ON corpus_chunks (owner_id, document_id)`,
		`CREATE INDEX IF NOT EXISTS corpus_chunks_embedding_idx ON corpus_chunks
			USING hnsw (embedding vector_cosine_ops)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return &Error{Backend: "pgvector", Op: "ensure_schema", Err: err}
		}
	}
	return nil
}

func (s *PgVectorStore) Upsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := validateEntries(entries, s.dimension); err != nil {
		return &Error{Backend: "pgvector", Op: "upsert", Err: err}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return &Error{Backend: "pgvector", Op: "upsert", Err: fmt.Errorf("begin tx: %w", err)}
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		_, err := tx.Exec(ctx,
			`INSERT INTO corpus_chunks (id, owner_id, document_id, chunk_index, content, source_filename, upload_time, extra, embedding)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (id) DO UPDATE SET
			   owner_id = $2, document_id = $3, chunk_index = $4, content = $5,
			   source_filename = $6, upload_time = $7, extra = $8, embedding = $9`,
			e.ID, e.Meta.OwnerID, e.Meta.DocumentID, e.Meta.ChunkIndex, e.Text,
			e.Meta.SourceFilename, e.Meta.UploadTime.UTC(), e.Meta.Extra,
			pgvector.NewVector(e.Vector),
		)
		if err != nil {
			return &Error{Backend: "pgvector", Op: "upsert",
				Err: fmt.Errorf("chunk %d of %s: %w", e.Meta.ChunkIndex, e.Meta.DocumentID, err)}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return &Error{Backend: "pgvector", Op: "upsert", Err: fmt.Errorf("commit: %w", err)}
	}
	return nil
}

func (s *PgVectorStore) Search(ctx context.Context, vector []float32, k int, f Filter) ([]Match, error) {
	if err := f.Validate(); err != nil {
		return nil, &Error{Backend: "pgvector", Op: "search", Err: err}
	}
	if len(vector) != s.dimension {
		return nil, &Error{Backend: "pgvector", Op: "search",
			Err: fmt.Errorf("query vector has dimension %d, index expects %d", len(vector), s.dimension)}
	}
	if k <= 0 {
		return nil, nil
	}

	embedding := pgvector.NewVector(vector)
	query := `SELECT id, owner_id, document_id, chunk_index, content, source_filename, upload_time, extra,
	                 1 - (embedding <=> $1) AS similarity
	          FROM corpus_chunks
	          WHERE owner_id = $2`
	args := []any{embedding, f.OwnerID}
	if f.DocumentID != "" {
		query += ` AND document_id = $3`
		args = append(args, f.DocumentID)
	}
	query += fmt.Sprintf(` ORDER BY embedding <=> $1 LIMIT %d`, k)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, &Error{Backend: "pgvector", Op: "search", Err: err}
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		var sim float64
		if err := rows.Scan(&m.ID, &m.Meta.OwnerID, &m.Meta.DocumentID, &m.Meta.ChunkIndex,
			&m.Text, &m.Meta.SourceFilename, &m.Meta.UploadTime, &m.Meta.Extra, &sim); err != nil {
			return nil, &Error{Backend: "pgvector", Op: "search", Err: fmt.Errorf("scan: %w", err)}
		}
		m.Score = normalizeCosine(sim)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Backend: "pgvector", Op: "search", Err: err}
	}
	return matches, nil
}

func (s *PgVectorStore) Delete(ctx context.Context, f Filter) error {
	if err := f.Validate(); err != nil {
		return &Error{Backend: "pgvector", Op: "delete", Err: err}
	}
	var err error
	if f.DocumentID != "" {
		_, err = s.db.Exec(ctx,
			`DELETE FROM corpus_chunks WHERE owner_id = $1 AND document_id = $2`,
			f.OwnerID, f.DocumentID)
	} else {
		_, err = s.db.Exec(ctx, `DELETE FROM corpus_chunks WHERE owner_id = $1`, f.OwnerID)
	}
	if err != nil {
		return &Error{Backend: "pgvector", Op: "delete", Err: err}
	}
	return nil
}

func (s *PgVectorStore) Count(ctx context.Context, f Filter) (int, error) {
	if err := f.Validate(); err != nil {
		return 0, &Error{Backend: "pgvector", Op: "count", Err: err}
	}
	var row pgx.Row
	if f.DocumentID != "" {
		row = s.db.QueryRow(ctx,
			`SELECT count(*) FROM corpus_chunks WHERE owner_id = $1 AND document_id = $2`,
			f.OwnerID, f.DocumentID)
	} else {
		row = s.db.QueryRow(ctx, `SELECT count(*) FROM corpus_chunks WHERE owner_id = $1`, f.OwnerID)
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, &Error{Backend: "pgvector", Op: "count", Err: err}
	}
	return n, nil
}

func (s *PgVectorStore) Close() error {
	s.db.Close()
	return nil
}
