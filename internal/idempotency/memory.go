package idempotency

import (
	"context"
	"sync"
	"time"
)

type memoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	now     func() time.Time
}

// NewMemoryStore builds an in-memory idempotency store for development and tests.
func NewMemoryStore() Store {
	return newMemoryStore(time.Now)
}

func newMemoryStore(now func() time.Time) *memoryStore {
	return &memoryStore{records: make(map[string]Record), now: now}
}

func (s *memoryStore) InsertIfAbsent(_ context.Context, rec Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live(rec.TransactionID); ok {
		return false, nil
	}
	s.records[rec.TransactionID] = rec
	return true, nil
}

func (s *memoryStore) Get(_ context.Context, transactionID string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.live(transactionID)
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *memoryStore) Update(_ context.Context, transactionID string, status Status, outcome string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.live(transactionID)
	if !ok {
		return ErrNotFound
	}
	rec.Status = status
	rec.Outcome = outcome
	rec.UpdatedAt = s.now().UTC()
	s.records[transactionID] = rec
	return nil
}

// live returns the unexpired record for transactionID, dropping an expired one.
// Callers hold s.mu.
func (s *memoryStore) live(transactionID string) (Record, bool) {
	rec, ok := s.records[transactionID]
	if !ok {
		return Record{}, false
	}
	if !s.now().Before(rec.ExpiresAt) {
		delete(s.records, transactionID)
		return Record{}, false
	}
	return rec, true
}
