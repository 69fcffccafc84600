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

// Ensure CacheStore implements the interface.
var _ driven.CacheStore = (*CacheStore)(nil)

type cacheKey struct {
	collection domain.Collection
	id         int64
}

// CacheStore is an in-memory implementation of driven.CacheStore.
type CacheStore struct {
	mu       sync.RWMutex
	entities map[cacheKey]domain.CachedEntity
}

// NewCacheStore creates a new in-memory cache store.
func NewCacheStore() *CacheStore {
	return &CacheStore{
		entities: make(map[cacheKey]domain.CachedEntity),
	}
}

// Get retrieves a record, including soft-deleted ones.
func (s *CacheStore) Get(_ context.Context, collection domain.Collection, id int64) (*domain.CachedEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[cacheKey{collection, id}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneEntity(e), nil
}

// Insert adds a new record.
func (s *CacheStore) Insert(_ context.Context, entity *domain.CachedEntity) error {
	if err := checkEntity(entity); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := cacheKey{entity.Collection, entity.ID}
	if _, exists := s.entities[key]; exists {
		return fmt.Errorf("%s %d: %w", entity.Collection, entity.ID, domain.ErrAlreadyExists)
	}
	s.entities[key] = *cloneEntity(*entity)
	return nil
}

// Update replaces an existing record.
func (s *CacheStore) Update(_ context.Context, entity *domain.CachedEntity) error {
	if err := checkEntity(entity); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := cacheKey{entity.Collection, entity.ID}
	if _, exists := s.entities[key]; !exists {
		return fmt.Errorf("%s %d: %w", entity.Collection, entity.ID, domain.ErrNotFound)
	}
	s.entities[key] = *cloneEntity(*entity)
	return nil
}

// Upsert inserts or replaces a record, keeping an existing soft-delete state.
func (s *CacheStore) Upsert(_ context.Context, entity *domain.CachedEntity) error {
	if err := checkEntity(entity); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := cacheKey{entity.Collection, entity.ID}
	next := *cloneEntity(*entity)
	if existing, ok := s.entities[key]; ok {
		next.IsDeleted = existing.IsDeleted
		next.DeletedAt = existing.DeletedAt
	}
	s.entities[key] = next
	return nil
}

// SoftDelete marks a record as trashed.
func (s *CacheStore) SoftDelete(_ context.Context, collection domain.Collection, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := cacheKey{collection, id}
	e, ok := s.entities[key]
	if !ok {
		return fmt.Errorf("%s %d: %w", collection, id, domain.ErrNotFound)
	}
	at = at.UTC()
	e.IsDeleted = true
	e.DeletedAt = &at
	s.entities[key] = e
	return nil
}

// Restore clears the soft-delete state.
func (s *CacheStore) Restore(_ context.Context, collection domain.Collection, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := cacheKey{collection, id}
	e, ok := s.entities[key]
	if !ok {
		return fmt.Errorf("%s %d: %w", collection, id, domain.ErrNotFound)
	}
	e.IsDeleted = false
	e.DeletedAt = nil
	s.entities[key] = e
	return nil
}

// HardDelete removes the given records.
func (s *CacheStore) HardDelete(_ context.Context, collection domain.Collection, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.entities, cacheKey{collection, id})
	}
	return nil
}

// ListIDs returns every id in the collection in ascending order.
func (s *CacheStore) ListIDs(_ context.Context, collection domain.Collection) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []int64
	for key := range s.entities {
		if key.collection == collection {
			ids = append(ids, key.id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// List returns records ordered by id.
func (s *CacheStore) List(_ context.Context, collection domain.Collection, includeDeleted bool) ([]domain.CachedEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.CachedEntity
	for key, e := range s.entities {
		if key.collection != collection || (e.IsDeleted && !includeDeleted) {
			continue
		}
		out = append(out, *cloneEntity(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListDeletedBefore returns ids of records soft-deleted before cutoff.
func (s *CacheStore) ListDeletedBefore(_ context.Context, collection domain.Collection, cutoff time.Time) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []int64
	for key, e := range s.entities {
		if key.collection == collection && e.IsDeleted && e.DeletedAt != nil && e.DeletedAt.Before(cutoff) {
			ids = append(ids, key.id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func checkEntity(e *domain.CachedEntity) error {
	if e == nil {
		return domain.ErrInvalidInput
	}
	if !e.Collection.IsValid() {
		return fmt.Errorf("%w: collection %q", domain.ErrUnsupportedType, e.Collection)
	}
	return nil
}

func cloneEntity(e domain.CachedEntity) *domain.CachedEntity {
	c := e
	c.Payload = append([]byte(nil), e.Payload...)
	if e.DeletedAt != nil {
		at := *e.DeletedAt
		c.DeletedAt = &at
	}
	return &c
}
