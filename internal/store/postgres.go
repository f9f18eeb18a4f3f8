package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool used by PostgresPersister.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const schemaSQL = `
	CREATE TABLE IF NOT EXISTS notebooks (
		name       TEXT PRIMARY KEY,
		content    TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

// SharedContentRow is the row key of the single shared buffer.
const SharedContentRow = "shared_content"

// PostgresPersister stores each buffer as one row of the notebooks table.
type PostgresPersister struct {
	db     DB
	single bool
}

// NewPostgresPersister creates a persister over db keyed by buffer name.
func NewPostgresPersister(db DB) *PostgresPersister {
	return &PostgresPersister{db: db}
}

// NewSharedPostgresPersister stores the single shared buffer in the
// SharedContentRow row regardless of its name.
func NewSharedPostgresPersister(db DB) *PostgresPersister {
	return &PostgresPersister{db: db, single: true}
}

// key returns the row that holds name.
func (p *PostgresPersister) key(name string) string {
	if p.single {
		return SharedContentRow
	}
	return name
}

// EnsureSchema creates the notebooks table if it does not exist.
func (p *PostgresPersister) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create notebooks table: %w", err)
	}
	return nil
}

// Backend implements Persister.
func (p *PostgresPersister) Backend() string {
	return "postgres"
}

// Load implements Persister.
func (p *PostgresPersister) Load(ctx context.Context, name string) (string, bool, error) {
	var content string
	err := p.db.QueryRow(ctx, `SELECT content FROM notebooks WHERE name = $1`, p.key(name)).Scan(&content)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return content, true, nil
}

// Save implements Persister with an upsert that replaces the whole content.
func (p *PostgresPersister) Save(ctx context.Context, name, content string) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO notebooks (name, content)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE
		SET content = EXCLUDED.content, updated_at = now()
	`, p.key(name), content)
	return err
}

// List implements Persister, oldest notebook first. The shared buffer is
// not listed.
func (p *PostgresPersister) List(ctx context.Context) ([]string, error) {
	if p.single {
		return nil, nil
	}
	rows, err := p.db.Query(ctx, `SELECT name FROM notebooks ORDER BY created_at, name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
