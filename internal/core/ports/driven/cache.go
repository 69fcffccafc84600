package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/docsync/internal/core/domain"
)

// CacheStore persists the local replica of the remote collections.
// Rows are keyed by (collection, id).
type CacheStore interface {
	// Get retrieves a record, including soft-deleted ones.
	// Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, collection domain.Collection, id int64) (*domain.CachedEntity, error)

	// Insert adds a new record. Returns domain.ErrAlreadyExists on conflict.
	Insert(ctx context.Context, entity *domain.CachedEntity) error

	// Update replaces an existing record. Returns domain.ErrNotFound if absent.
	Update(ctx context.Context, entity *domain.CachedEntity) error

	// Upsert inserts or replaces a server-confirmed record.
	// The soft-delete state of an existing row is preserved.
	Upsert(ctx context.Context, entity *domain.CachedEntity) error

	// SoftDelete marks a record as trashed at the given time.
	SoftDelete(ctx context.Context, collection domain.Collection, id int64, at time.Time) error

	// Restore clears the soft-delete state.
	Restore(ctx context.Context, collection domain.Collection, id int64) error

	// HardDelete removes the given records. Missing ids are ignored.
	HardDelete(ctx context.Context, collection domain.Collection, ids []int64) error

	// ListIDs returns every id in the collection, including soft-deleted ones.
	ListIDs(ctx context.Context, collection domain.Collection) ([]int64, error)

	// List returns records ordered by id. Soft-deleted rows are
	// included only when includeDeleted is true.
	List(ctx context.Context, collection domain.Collection, includeDeleted bool) ([]domain.CachedEntity, error)

	// ListDeletedBefore returns ids of records soft-deleted before cutoff.
	ListDeletedBefore(ctx context.Context, collection domain.Collection, cutoff time.Time) ([]int64, error)
}
