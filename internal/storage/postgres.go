package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/gridedit/internal/core"
)

const createSnapshotsTable = `
CREATE TABLE IF NOT EXISTS document_snapshots (
	name       TEXT PRIMARY KEY,
	body       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const upsertSnapshot = `
INSERT INTO document_snapshots (name, body, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`

// Postgres stores snapshots in the document_snapshots table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an open pool. Call EnsureSchema before first use.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the snapshot table if it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, createSnapshotsTable); err != nil {
		return fmt.Errorf("create document_snapshots: %w", err)
	}
	return nil
}

func (p *Postgres) Load(ctx context.Context, key string) (*core.Document, error) {
	var body []byte
	err := p.pool.QueryRow(ctx, `SELECT body FROM document_snapshots WHERE name = $1`, key).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var doc core.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode snapshot %q: %w", key, err)
	}
	return &doc, nil
}

func (p *Postgres) Store(ctx context.Context, key string, doc *core.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, upsertSnapshot, key, body)
	return err
}

// Keys lists stored snapshot keys, most recently updated first.
func (p *Postgres) Keys(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT name FROM document_snapshots ORDER BY updated_at DESC, name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Delete removes key. Deleting a missing key is not an error.
func (p *Postgres) Delete(ctx context.Context, key string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM document_snapshots WHERE name = $1`, key)
	return err
}
