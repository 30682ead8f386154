// Package memory is the in-process store.Store used by the CLI and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/flowgrid/flowgrid/internal/store"
)

// Store keeps flow records in a mutex-guarded map. Snapshots are cloned on
// the way in and out so callers cannot alias stored state.
type Store struct {
	mu    sync.RWMutex
	flows map[string]store.Record
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{flows: make(map[string]store.Record)}
}

// Save upserts a record. CreatedAt is preserved across updates.
func (s *Store) Save(_ context.Context, rec store.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if prev, exists := s.flows[rec.ID]; exists {
		rec.CreatedAt = prev.CreatedAt
	} else if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	rec.Snapshot = rec.Snapshot.Clone()
	s.flows[rec.ID] = rec
	return nil
}

// Get returns the record with the given ID or store.ErrNotFound.
func (s *Store) Get(_ context.Context, id string) (store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.flows[id]
	if !ok {
		return store.Record{}, store.ErrNotFound
	}
	rec.Snapshot = rec.Snapshot.Clone()
	return rec, nil
}

// List returns all records sorted by ID.
func (s *Store) List(_ context.Context) ([]store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Record, 0, len(s.flows))
	for _, rec := range s.flows {
		rec.Snapshot = rec.Snapshot.Clone()
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Delete removes a record; deleting a missing ID returns store.ErrNotFound.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.flows[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.flows, id)
	return nil
}
