// ABOUTME: Postgres + pgvector backend using cosine distance for nearest-neighbour queries
// ABOUTME: Creates its table on startup and upserts with ON CONFLICT on the deterministic vector ID
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/harper/sitechat/internal/models"
	"github.com/lib/pq"
)

// DefaultPgTable is the table used when none is configured
const DefaultPgTable = "site_vectors"

// PgVectorBackend implements Backend backed by Postgres + pgvector
type PgVectorBackend struct {
	db        *sql.DB
	table     string
	dimension int
}

// NewPgVectorBackend connects to Postgres (with pgvector) and ensures the table exists
func NewPgVectorBackend(ctx context.Context, dsn, table string, dimension int) (*PgVectorBackend, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}

	backend, err := NewPgVectorBackendFromDB(ctx, db, table, dimension)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return backend, nil
}

// NewPgVectorBackendFromDB reuses an existing *sql.DB
func NewPgVectorBackendFromDB(ctx context.Context, db *sql.DB, table string, dimension int) (*PgVectorBackend, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if dimension <= 0 {
		dimension = models.DefaultEmbeddingDimension
	}
	if table == "" {
		table = DefaultPgTable
	}
	b := &PgVectorBackend{db: db, table: table, dimension: dimension}
	if err := b.ensureTables(ctx); err != nil {
		return nil, fmt.Errorf("failed to create vector table: %w", err)
	}
	return b, nil
}

func (b *PgVectorBackend) ident() string {
	return pq.QuoteIdentifier(b.table)
}

func (b *PgVectorBackend) ensureTables(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS %[1]s (
  id           text PRIMARY KEY,
  url          text NOT NULL,
  chunk_index  integer NOT NULL,
  content_text text NOT NULL DEFAULT '',
  embedding    vector(%[2]d) NOT NULL,
  updated_at   timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS %[3]s ON %[1]s (url);
`, b.ident(), b.dimension, pq.QuoteIdentifier(b.table+"_url_idx"))
	_, err := b.db.ExecContext(ctx, ddl)
	return err
}

// Close releases the connection pool
func (b *PgVectorBackend) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

func (b *PgVectorBackend) Name() string { return "pgvector" }

// Upsert inserts or updates vectors inside one transaction
func (b *PgVectorBackend) Upsert(ctx context.Context, vectors []models.IndexedVector) error {
	if len(vectors) == 0 {
		return nil
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt := fmt.Sprintf(`
INSERT INTO %s (id, url, chunk_index, content_text, embedding, updated_at)
 VALUES ($1, $2, $3, $4, $5::vector, $6)
 ON CONFLICT (id) DO UPDATE SET
   url=EXCLUDED.url,
   chunk_index=EXCLUDED.chunk_index,
   content_text=EXCLUDED.content_text,
   embedding=EXCLUDED.embedding,
   updated_at=now();
`, b.ident())

	for _, v := range vectors {
		lit, err := toVectorLiteral(v.Values, b.dimension)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, stmt,
			v.ID, v.Metadata.URL, v.Metadata.ChunkIndex, v.Metadata.Text, lit, time.Now().UTC(),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Query orders by cosine distance; score is 1 - distance
func (b *PgVectorBackend) Query(ctx context.Context, vector []float32, topK int) (models.RetrievalResult, error) {
	lit, err := toVectorLiteral(vector, b.dimension)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
SELECT id, url, chunk_index, content_text, 1 - (embedding <=> $1::vector) AS score
FROM %s
ORDER BY embedding <=> $1::vector
LIMIT $2;
`, b.ident())

	rows, err := b.db.QueryContext(ctx, query, lit, topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result models.RetrievalResult
	for rows.Next() {
		var m models.Match
		if err := rows.Scan(&m.ID, &m.URL, &m.ChunkIndex, &m.Text, &m.Score); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func (b *PgVectorBackend) DeleteAll(ctx context.Context) error {
	_, err := b.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, b.ident()))
	return err
}

func (b *PgVectorBackend) DeleteByURL(ctx context.Context, url string) error {
	_, err := b.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE url = $1`, b.ident()), url)
	return err
}

func (b *PgVectorBackend) Count(ctx context.Context) (int, error) {
	var n int
	err := b.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT count(*) FROM %s`, b.ident())).Scan(&n)
	return n, err
}

func toVectorLiteral(embedding []float32, dim int) (string, error) {
	if len(embedding) == 0 {
		return "", errors.New("embedding is required")
	}
	if dim > 0 && len(embedding) != dim {
		return "", fmt.Errorf("embedding length %d does not match dimension %d", len(embedding), dim)
	}
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return fmt.Sprintf("[%s]", strings.Join(parts, ",")), nil
}
