package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driven"
)

// Ensure PendingChangeStore implements the interface.
var _ driven.PendingChangeStore = (*PendingChangeStore)(nil)

// PendingChangeStore is an in-memory implementation of driven.PendingChangeStore.
type PendingChangeStore struct {
	mu      sync.RWMutex
	nextID  int64
	changes map[int64]domain.PendingChange
}

// NewPendingChangeStore creates a new in-memory pending change store.
func NewPendingChangeStore() *PendingChangeStore {
	return &PendingChangeStore{
		changes: make(map[int64]domain.PendingChange),
	}
}

// Add records a change and assigns its ID.
func (s *PendingChangeStore) Add(_ context.Context, change *domain.PendingChange) error {
	if change == nil {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	change.ID = s.nextID
	if change.CreatedAt.IsZero() {
		change.CreatedAt = time.Now().UTC()
	}
	s.changes[change.ID] = clonePendingChange(*change)
	return nil
}

// List returns all changes ordered by ID ascending.
func (s *PendingChangeStore) List(_ context.Context) ([]domain.PendingChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.PendingChange, 0, len(s.changes))
	for _, c := range s.changes {
		out = append(out, clonePendingChange(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get retrieves a change.
func (s *PendingChangeStore) Get(_ context.Context, id int64) (*domain.PendingChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.changes[id]
	if !ok {
		return nil, fmt.Errorf("pending change %d: %w", id, domain.ErrNotFound)
	}
	clone := clonePendingChange(c)
	return &clone, nil
}

// Delete removes a change.
func (s *PendingChangeStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.changes, id)
	return nil
}

// RecordFailure increments SyncAttempts and stores the error message.
func (s *PendingChangeStore) RecordFailure(_ context.Context, id int64, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.changes[id]
	if !ok {
		return fmt.Errorf("pending change %d: %w", id, domain.ErrNotFound)
	}
	c.SyncAttempts++
	c.LastError = &message
	s.changes[id] = c
	return nil
}

// ResetAttempts clears SyncAttempts and LastError.
func (s *PendingChangeStore) ResetAttempts(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.changes[id]
	if !ok {
		return fmt.Errorf("pending change %d: %w", id, domain.ErrNotFound)
	}
	c.SyncAttempts = 0
	c.LastError = nil
	s.changes[id] = c
	return nil
}

// Count returns the number of pending changes.
func (s *PendingChangeStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.changes), nil
}

func clonePendingChange(c domain.PendingChange) domain.PendingChange {
	clone := c
	clone.ChangeData = append([]byte(nil), c.ChangeData...)
	if c.EntityID != nil {
		id := *c.EntityID
		clone.EntityID = &id
	}
	if c.LastError != nil {
		msg := *c.LastError
		clone.LastError = &msg
	}
	return clone
}
