package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is the SQL DDL for the session_exports table. Execute it via
// [Archiver.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS session_exports (
    id          TEXT PRIMARY KEY,
    exported_at TIMESTAMPTZ NOT NULL,
    document    JSONB NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_session_exports_exported_at ON session_exports(exported_at);
`

// DB is the database interface used by [Archiver]. Both *pgxpool.Pool and
// *pgx.Conn satisfy it.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Archiver persists export documents to PostgreSQL as JSONB rows, giving a
// queryable history of past sessions alongside the on-disk files.
type Archiver struct {
	db DB
}

// NewArchiver creates an Archiver on an existing connection or pool. Call
// [Archiver.Migrate] before the first Archive.
func NewArchiver(db DB) *Archiver {
	return &Archiver{db: db}
}

// Connect opens a pooled connection to dsn, verifies it, runs the schema
// migration, and returns a ready Archiver. Close the returned pool when
// done.
func Connect(ctx context.Context, dsn string) (*Archiver, *pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("export: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("export: ping: %w", err)
	}
	a := NewArchiver(pool)
	if err := a.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return a, pool, nil
}

// Migrate executes the [Schema] DDL.
func (a *Archiver) Migrate(ctx context.Context) error {
	if _, err := a.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("export: migrate: %w", err)
	}
	return nil
}

// Archive inserts the document and returns the new row's id.
func (a *Archiver) Archive(ctx context.Context, doc Document) (string, error) {
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("export: marshal document: %w", err)
	}

	id := uuid.NewString()
	const query = `
		INSERT INTO session_exports (id, exported_at, document)
		VALUES ($1, $2, $3)`
	if _, err := a.db.Exec(ctx, query, id, doc.Metadata.ExportedAt, docJSON); err != nil {
		return "", fmt.Errorf("export: archive: %w", err)
	}
	return id, nil
}

// Get retrieves an archived document by id. Returns (zero, false, nil) when
// no row exists.
func (a *Archiver) Get(ctx context.Context, id string) (Document, bool, error) {
	const query = `SELECT document FROM session_exports WHERE id = $1`

	var docJSON []byte
	err := a.db.QueryRow(ctx, query, id).Scan(&docJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, false, nil
	}
	if err != nil {
		return Document{}, false, fmt.Errorf("export: get %q: %w", id, err)
	}

	var doc Document
	if err := json.Unmarshal(docJSON, &doc); err != nil {
		return Document{}, false, fmt.Errorf("export: unmarshal document %q: %w", id, err)
	}
	return doc, true, nil
}
