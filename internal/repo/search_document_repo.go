package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/zer0-A1/emineon-search/internal/capability"
	"github.com/zer0-A1/emineon-search/internal/model"
	"github.com/zer0-A1/emineon-search/internal/pkg/dbutil"
	apperrors "github.com/zer0-A1/emineon-search/internal/pkg/errors"
)

// SearchHit is one scored row from a vector or lexical sub-query.
type SearchHit struct {
	SourceType model.SourceType `json:"source_type"`
	SourceID   string           `json:"source_id"`
	Score      float64          `json:"score"`
}

// SearchDocumentRepo owns the search_documents table. Uniqueness of
// (source_type, source_id) is enforced by the table constraint; concurrent
// upserts for the same key resolve to last-commit-wins.
type SearchDocumentRepo struct {
	db   *sql.DB
	caps *capability.State
	dim  int
}

func NewSearchDocumentRepo(db *sql.DB, caps *capability.State, dimension int) *SearchDocumentRepo {
	return &SearchDocumentRepo{db: db, caps: caps, dim: dimension}
}

// Provision ensures the vector side of the store: pgvector extension, the
// embedding column at the configured dimension and the cosine index. The
// lexical side (table, unique constraint, GIN index) ships with the baseline
// migrations. A structurally missing vector capability degrades the process
// to lexical-only instead of failing the caller.
func (r *SearchDocumentRepo) Provision(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`ALTER TABLE search_documents ADD COLUMN IF NOT EXISTS embedding vector(%d)`, r.dim),
		`CREATE INDEX IF NOT EXISTS idx_search_documents_embedding ON search_documents USING hnsw (embedding vector_cosine_ops)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			if dbutil.IsCapabilityAbsent(err) {
				r.caps.DisableVector(ctx, err.Error())
				return nil
			}
			return fmt.Errorf("provision vector storage: %w", err)
		}
	}
	return nil
}

const upsertWithVectorQuery = `
	INSERT INTO search_documents
		(id, source_type, source_id, title, text_content, html, metadata, permissions, lexical, embedding, ctime, mtime)
	VALUES
		($1, $2, $3, $4, $5, $6, $7, $8, to_tsvector('simple', $4 || ' ' || $5), $9, $10, $10)
	ON CONFLICT (source_type, source_id) DO UPDATE SET
		title = EXCLUDED.title,
		text_content = EXCLUDED.text_content,
		html = EXCLUDED.html,
		metadata = EXCLUDED.metadata,
		permissions = EXCLUDED.permissions,
		lexical = EXCLUDED.lexical,
		embedding = EXCLUDED.embedding,
		mtime = EXCLUDED.mtime
`

// upsertLexicalOnlyQuery must not reference the embedding column at all: in
// the usual degraded state the column does not exist. On a database where it
// does exist, a row embedded before degradation keeps its old vector next to
// newer text. After a capability reset that vector stays stale until the next
// entity mutation or an administrative reindex-all; operators recovering from
// degradation should rebuild affected types.
const upsertLexicalOnlyQuery = `
	INSERT INTO search_documents
		(id, source_type, source_id, title, text_content, html, metadata, permissions, lexical, ctime, mtime)
	VALUES
		($1, $2, $3, $4, $5, $6, $7, $8, to_tsvector('simple', $4 || ' ' || $5), $9, $9)
	ON CONFLICT (source_type, source_id) DO UPDATE SET
		title = EXCLUDED.title,
		text_content = EXCLUDED.text_content,
		html = EXCLUDED.html,
		metadata = EXCLUDED.metadata,
		permissions = EXCLUDED.permissions,
		lexical = EXCLUDED.lexical,
		mtime = EXCLUDED.mtime
`

// Upsert inserts or fully overwrites the document matched by
// (source_type, source_id). A nil embedding writes NULL; the row stays
// searchable lexically.
func (r *SearchDocumentRepo) Upsert(ctx context.Context, doc *model.SearchDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	metadata, err := marshalAttrs(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	perms, err := marshalAttrs(doc.Perms)
	if err != nil {
		return fmt.Errorf("marshal permissions: %w", err)
	}
	now := time.Now().UnixMilli()
	if r.caps.VectorEnabled() {
		var emb interface{}
		if doc.Embedding != nil {
			emb = pgvector.NewVector(doc.Embedding)
		}
		_, err = r.db.ExecContext(ctx, upsertWithVectorQuery,
			doc.ID, doc.SourceType, doc.SourceID, doc.Title, doc.Text, doc.HTML,
			metadata, perms, emb, now)
	} else {
		_, err = r.db.ExecContext(ctx, upsertLexicalOnlyQuery,
			doc.ID, doc.SourceType, doc.SourceID, doc.Title, doc.Text, doc.HTML,
			metadata, perms, now)
	}
	return err
}

// Delete removes the document if present. Deleting an absent row is not an
// error.
func (r *SearchDocumentRepo) Delete(ctx context.Context, sourceType model.SourceType, sourceID string) error {
	const query = `DELETE FROM search_documents WHERE source_type = $1 AND source_id = $2`
	_, err := r.db.ExecContext(ctx, query, sourceType, sourceID)
	return err
}

func (r *SearchDocumentRepo) Get(ctx context.Context, sourceType model.SourceType, sourceID string) (*model.SearchDocument, error) {
	query := `
		SELECT id, source_type, source_id, title, text_content, html, metadata, permissions, ctime, mtime
		FROM search_documents
		WHERE source_type = $1 AND source_id = $2
	`
	if r.caps.VectorEnabled() {
		query = `
			SELECT id, source_type, source_id, title, text_content, html, metadata, permissions, ctime, mtime, embedding
			FROM search_documents
			WHERE source_type = $1 AND source_id = $2
		`
	}
	row := r.db.QueryRowContext(ctx, query, sourceType, sourceID)
	var doc model.SearchDocument
	var metadata, perms []byte
	dests := []interface{}{
		&doc.ID, &doc.SourceType, &doc.SourceID, &doc.Title, &doc.Text, &doc.HTML,
		&metadata, &perms, &doc.Ctime, &doc.Mtime,
	}
	var emb sql.Null[pgvector.Vector]
	if r.caps.VectorEnabled() {
		dests = append(dests, &emb)
	}
	if err := row.Scan(dests...); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(metadata, &doc.Metadata); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(perms, &doc.Perms); err != nil {
		return nil, err
	}
	if emb.Valid {
		doc.Embedding = emb.V.Slice()
	}
	return &doc, nil
}

// SearchVector returns up to limit hits ordered by ascending cosine distance,
// scored as 1 - distance. Rows without an embedding never match.
func (r *SearchDocumentRepo) SearchVector(ctx context.Context, vec []float32, types []model.SourceType, limit int) ([]SearchHit, error) {
	query := `
		SELECT source_type, source_id, 1 - (embedding <=> $1) AS score
		FROM search_documents
		WHERE embedding IS NOT NULL
	`
	args := []interface{}{pgvector.NewVector(vec)}
	if len(types) > 0 {
		query += ` AND source_type = ANY($2) ORDER BY embedding <=> $1 LIMIT $3`
		args = append(args, pq.Array(sourceTypeStrings(types)), limit)
	} else {
		query += ` ORDER BY embedding <=> $1 LIMIT $2`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		if dbutil.IsCapabilityAbsent(err) {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrStorageUnavailable, err)
		}
		return nil, err
	}
	defer rows.Close()
	return scanHits(rows)
}

// SearchLexical returns up to limit hits ordered by descending ts_rank. The
// raw rank is provider-specific and unbounded; normalization happens at
// fusion time.
func (r *SearchDocumentRepo) SearchLexical(ctx context.Context, query string, types []model.SourceType, limit int) ([]SearchHit, error) {
	sqlQuery := `
		SELECT source_type, source_id, ts_rank(lexical, plainto_tsquery('simple', $1)) AS score
		FROM search_documents
		WHERE lexical @@ plainto_tsquery('simple', $1)
	`
	args := []interface{}{query}
	if len(types) > 0 {
		sqlQuery += ` AND source_type = ANY($2) ORDER BY score DESC LIMIT $3`
		args = append(args, pq.Array(sourceTypeStrings(types)), limit)
	} else {
		sqlQuery += ` ORDER BY score DESC LIMIT $2`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHits(rows)
}

// ListMissingEmbedding returns keys of documents that have text but no
// vector yet, oldest first. Feed for the sweep job.
func (r *SearchDocumentRepo) ListMissingEmbedding(ctx context.Context, limit int) ([]model.SourceKey, error) {
	if !r.caps.VectorEnabled() {
		return nil, nil
	}
	const query = `
		SELECT source_type, source_id
		FROM search_documents
		WHERE embedding IS NULL AND text_content <> ''
		ORDER BY mtime ASC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		if dbutil.IsCapabilityAbsent(err) {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrStorageUnavailable, err)
		}
		return nil, err
	}
	defer rows.Close()
	var keys []model.SourceKey
	for rows.Next() {
		var key model.SourceKey
		if err := rows.Scan(&key.SourceType, &key.SourceID); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func scanHits(rows *sql.Rows) ([]SearchHit, error) {
	hits := make([]SearchHit, 0)
	for rows.Next() {
		var hit SearchHit
		if err := rows.Scan(&hit.SourceType, &hit.SourceID, &hit.Score); err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

func marshalAttrs(attrs map[string]interface{}) ([]byte, error) {
	if attrs == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(attrs)
}

func sourceTypeStrings(types []model.SourceType) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, string(t))
	}
	return out
}
