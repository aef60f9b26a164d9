// Package memory keeps the books in process memory. It backs tests and the
// throwaway books of cmd/smoke-books.
package memory

import (
	"context"
	"sync"

	"tallybook.org/internal/ledger"
)

type Store struct {
	mu      sync.Mutex
	snap    *ledger.Snapshot
	saveErr error
	saves   int
}

var _ ledger.Store = (*Store)(nil)

func New() *Store { return &Store{} }

// Load returns a copy of the last saved snapshot, or empty books.
func (s *Store) Load(ctx context.Context) (*ledger.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return &ledger.Snapshot{Version: ledger.SchemaVersion}, nil
	}
	return copySnapshot(s.snap), nil
}

// Save keeps a copy of snap unless a failure was injected with FailSaves.
func (s *Store) Save(ctx context.Context, snap *ledger.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.snap = copySnapshot(snap)
	s.saves++
	return nil
}

// FailSaves makes every following Save return err; nil restores normal behaviour.
func (s *Store) FailSaves(err error) {
	s.mu.Lock()
	s.saveErr = err
	s.mu.Unlock()
}

// Saves counts the snapshots accepted so far.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Put seeds the store with snap as if it had been saved, including its version.
func (s *Store) Put(snap *ledger.Snapshot) {
	s.mu.Lock()
	s.snap = copySnapshot(snap)
	s.mu.Unlock()
}

func copySnapshot(snap *ledger.Snapshot) *ledger.Snapshot {
	return &ledger.Snapshot{Version: snap.Version, State: *snap.State.Clone()}
}
