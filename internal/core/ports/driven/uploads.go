package driven

import (
	"context"

	"github.com/custodia-labs/docsync/internal/core/domain"
)

// UploadQueue persists captured documents awaiting upload.
type UploadQueue interface {
	// Enqueue adds an upload in pending state and assigns its ID.
	Enqueue(ctx context.Context, upload *domain.PendingUpload) error

	// GetNextPendingUpload returns the oldest pending upload, or nil if none.
	GetNextPendingUpload(ctx context.Context) (*domain.PendingUpload, error)

	// Get retrieves an upload. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id int64) (*domain.PendingUpload, error)

	// List returns uploads ordered by ID. An empty status lists all.
	List(ctx context.Context, status domain.UploadStatus) ([]domain.PendingUpload, error)

	// MarkUploading moves an upload into the uploading state.
	MarkUploading(ctx context.Context, id int64) error

	// MarkCompleted moves an upload into the completed state.
	MarkCompleted(ctx context.Context, id int64) error

	// MarkFailed stores the message and increments RetryCount.
	MarkFailed(ctx context.Context, id int64, message string) error

	// Requeue moves a failed or stale uploading row back to pending.
	Requeue(ctx context.Context, id int64) error

	// RequeueInterrupted moves every uploading row back to pending and
	// returns the count.
	RequeueInterrupted(ctx context.Context) (int, error)

	// Delete removes an upload.
	Delete(ctx context.Context, id int64) error

	// RemoveCompleted deletes every completed upload and returns the count.
	RemoveCompleted(ctx context.Context) (int, error)

	// CountByStatus summarises the queue.
	CountByStatus(ctx context.Context) (domain.UploadCounts, error)
}
