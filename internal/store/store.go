// Package store provides a SQLite-backed chunk store. The vector index holds
// only chunk ids and embeddings; this store is the durable system of record
// for chunk text and provenance, and is consulted to hydrate retrieval hits.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // register "sqlite" driver

	"github.com/skywalkers77/astro-rag/internal/rag"
)

// SQLiteStore is a rag.ChunkStore backed by a local SQLite database.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the chunk database. It resolves
// to ~/.astrorag/chunks.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".astrorag")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "chunks.db"), nil
}

// Open opens (or creates) a SQLiteStore at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS chunks (
    id            TEXT    PRIMARY KEY,
    document_id   TEXT    NOT NULL,
    source        TEXT    NOT NULL,
    seq           INTEGER NOT NULL,
    total         INTEGER NOT NULL,
    char_length   INTEGER NOT NULL,
    page          INTEGER NOT NULL DEFAULT 0,
    kind          TEXT    NOT NULL CHECK(kind IN ('text','table','image')),
    metadata      TEXT    NOT NULL DEFAULT '{}',  -- JSON object
    content       TEXT    NOT NULL,
    created_at    INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_chunks_document
    ON chunks (document_id, seq);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Insert persists a single chunk and returns the stored record. When the
// chunk id is empty a new UUID is assigned; when CreatedAt is zero the
// current time is used. The returned chunk reflects both.
func (s *SQLiteStore) Insert(ctx context.Context, c rag.Chunk) (rag.Chunk, error) {
	if strings.TrimSpace(c.Text) == "" {
		return rag.Chunk{}, fmt.Errorf("store: insert: empty chunk text: %w", rag.ErrInvalidInput)
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Type == "" {
		c.Type = rag.ChunkText
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	meta := "{}"
	if len(c.Metadata) > 0 {
		raw, err := json.Marshal(c.Metadata)
		if err != nil {
			return rag.Chunk{}, fmt.Errorf("store: insert: marshal metadata: %w", err)
		}
		meta = string(raw)
	}

	const q = `INSERT INTO chunks
    (id, document_id, source, seq, total, char_length, page, kind, metadata, content, created_at)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		c.ID, c.DocumentID, c.Source, c.SequenceIndex, c.TotalChunks,
		c.CharLength, c.PageNumber, string(c.Type), meta, c.Text, c.CreatedAt.Unix())
	if err != nil {
		return rag.Chunk{}, fmt.Errorf("store: insert chunk %s: %w", c.ID, err)
	}

	return c, nil
}

// Get returns the chunks for the given ids. Unknown ids are simply absent
// from the result; the caller decides whether that matters. The result order
// is unspecified.
func (s *SQLiteStore) Get(ctx context.Context, ids []string) ([]rag.Chunk, error) {
	if len(ids) == 0 {
		return []rag.Chunk{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	q := `SELECT id, document_id, source, seq, total, char_length, page, kind, metadata, content, created_at
          FROM chunks WHERE id IN (` + strings.Join(placeholders, ",") + `)`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: get chunks: %w", err)
	}
	defer rows.Close()

	var out []rag.Chunk
	for rows.Next() {
		var (
			c         rag.Chunk
			kind      string
			meta      string
			createdAt int64
		)
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Source, &c.SequenceIndex, &c.TotalChunks,
			&c.CharLength, &c.PageNumber, &kind, &meta, &c.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("store: scan chunk: %w", err)
		}
		c.Type = rag.ChunkType(kind)
		c.CreatedAt = time.Unix(createdAt, 0).UTC()
		if meta != "" && meta != "{}" {
			if err := json.Unmarshal([]byte(meta), &c.Metadata); err != nil {
				return nil, fmt.Errorf("store: unmarshal metadata for chunk %s: %w", c.ID, err)
			}
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate chunks: %w", err)
	}

	return out, nil
}

// CountByDocument returns the number of stored chunks for a document.
func (s *SQLiteStore) CountByDocument(ctx context.Context, documentID string) (int, error) {
	const q = `SELECT COUNT(*) FROM chunks WHERE document_id = ?`
	var n int
	if err := s.db.QueryRowContext(ctx, q, documentID).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count chunks for %s: %w", documentID, err)
	}
	return n, nil
}

// Ping verifies the database connection is alive.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
