// Package postgres implements store.Store on PostgreSQL via pgx. Snapshots
// are stored canonically as JSONB.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flowgrid/flowgrid/internal/flow"
	"github.com/flowgrid/flowgrid/internal/store"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS flows (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL DEFAULT '',
    snapshot   JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Store persists flow records in a flows table.
type Store struct {
	db *pgxpool.Pool
}

// New creates a Store backed by the given pgx connection pool.
func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Connect opens a pool for the DSN and ensures the schema exists.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	s := New(pool)
	if err := s.CreateSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// CreateSchema creates the flows table if it does not exist.
func (s *Store) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.db.Close()
}

// Save upserts a record. The snapshot is normalized before storage so
// structurally equal snapshots compare equal in the database.
func (s *Store) Save(ctx context.Context, rec store.Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	data, err := rec.Snapshot.MarshalCanonical()
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO flows (id, name, snapshot, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, snapshot = EXCLUDED.snapshot, updated_at = NOW()`,
		rec.ID, rec.Name, data)
	return err
}

// Get returns the record with the given ID or store.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (store.Record, error) {
	row := s.db.QueryRow(ctx,
		`SELECT id, name, snapshot, created_at, updated_at FROM flows WHERE id = $1`, id)
	return scanRecord(row)
}

// List returns all records ordered by ID.
func (s *Store) List(ctx context.Context) ([]store.Record, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, snapshot, created_at, updated_at FROM flows ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes a record; deleting a missing ID returns store.ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM flows WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanRecord(row pgx.Row) (store.Record, error) {
	var (
		rec  store.Record
		data []byte
	)
	err := row.Scan(&rec.ID, &rec.Name, &data, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Record{}, store.ErrNotFound
	}
	if err != nil {
		return store.Record{}, err
	}
	snap, err := flow.ParseSnapshot(data)
	if err != nil {
		return store.Record{}, fmt.Errorf("decoding snapshot for flow %s: %w", rec.ID, err)
	}
	rec.Snapshot = snap
	return rec, nil
}
