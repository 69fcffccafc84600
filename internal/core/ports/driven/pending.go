package driven

import (
	"context"

	"github.com/custodia-labs/docsync/internal/core/domain"
)

// PendingChangeStore persists local mutations awaiting push.
type PendingChangeStore interface {
	// Add records a change and assigns its ID.
	Add(ctx context.Context, change *domain.PendingChange) error

	// List returns all changes ordered by ID ascending.
	List(ctx context.Context) ([]domain.PendingChange, error)

	// Get retrieves a change. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id int64) (*domain.PendingChange, error)

	// Delete removes a change.
	Delete(ctx context.Context, id int64) error

	// RecordFailure increments SyncAttempts and stores the error message.
	RecordFailure(ctx context.Context, id int64, message string) error

	// ResetAttempts clears SyncAttempts and LastError.
	ResetAttempts(ctx context.Context, id int64) error

	// Count returns the number of pending changes.
	Count(ctx context.Context) (int, error)
}
