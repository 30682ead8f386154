// Package store persists named flow snapshots. Two implementations exist:
// an in-memory map for tests and single-process use, and a PostgreSQL store
// for the server.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/flowgrid/flowgrid/internal/flow"
)

// ErrNotFound is returned when no flow exists under the requested ID.
var ErrNotFound = errors.New("flow not found")

// Record is a stored flow with its metadata.
type Record struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Snapshot  flow.Snapshot `json:"snapshot"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Store is the persistence surface for flow snapshots. Save is an upsert
// keyed by Record.ID.
type Store interface {
	Save(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (Record, error)
	List(ctx context.Context) ([]Record, error)
	Delete(ctx context.Context, id string) error
}
