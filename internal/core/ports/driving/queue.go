package driving

import (
	"context"

	"github.com/custodia-labs/docsync/internal/core/domain"
)

// QueueService inspects and manages the upload and change queues.
type QueueService interface {
	// EnqueueUpload validates and queues a captured document.
	EnqueueUpload(ctx context.Context, upload *domain.PendingUpload) error

	// ListUploads returns uploads, optionally filtered by status.
	ListUploads(ctx context.Context, status domain.UploadStatus) ([]domain.PendingUpload, error)

	// RetryUpload moves a failed upload back to pending.
	RetryUpload(ctx context.Context, id int64) error

	// DiscardUpload removes an upload that is not in flight.
	DiscardUpload(ctx context.Context, id int64) error

	// PruneCompleted removes completed uploads.
	PruneCompleted(ctx context.Context) (int, error)

	// RecoverInterrupted requeues uploads left in flight by a previous run.
	RecoverInterrupted(ctx context.Context) (int, error)

	// ListPendingChanges returns unpushed local mutations.
	ListPendingChanges(ctx context.Context) ([]domain.PendingChange, error)

	// RetryPendingChange clears a change's failure count.
	RetryPendingChange(ctx context.Context, id int64) error

	// DiscardPendingChange drops a change without pushing it.
	DiscardPendingChange(ctx context.Context, id int64) error

	// Counts summarises both queues.
	Counts(ctx context.Context) (*QueueCounts, error)
}

// QueueCounts summarises both queues.
type QueueCounts struct {
	Uploads        domain.UploadCounts
	PendingChanges int
}
