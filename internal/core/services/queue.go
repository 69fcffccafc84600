package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driven"
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
	"github.com/custodia-labs/docsync/internal/logger"
)

// Ensure QueueService implements the interface.
var _ driving.QueueService = (*QueueService)(nil)

// QueueService inspects and manages the upload and change queues.
type QueueService struct {
	uploads driven.UploadQueue
	pending driven.PendingChangeStore
	gate    *ChangeGate
}

// NewQueueService creates a new queue service.
func NewQueueService(uploads driven.UploadQueue, pending driven.PendingChangeStore, gate *ChangeGate) *QueueService {
	if gate == nil {
		gate = NewChangeGate()
	}
	return &QueueService{
		uploads: uploads,
		pending: pending,
		gate:    gate,
	}
}

// EnqueueUpload validates and queues a captured document.
func (s *QueueService) EnqueueUpload(ctx context.Context, upload *domain.PendingUpload) error {
	if upload == nil {
		return domain.ErrInvalidInput
	}
	if err := upload.Validate(); err != nil {
		return err
	}
	if err := s.uploads.Enqueue(ctx, upload); err != nil {
		return fmt.Errorf("enqueue upload: %w", err)
	}
	return nil
}

// ListUploads returns uploads, optionally filtered by status.
func (s *QueueService) ListUploads(ctx context.Context, status domain.UploadStatus) ([]domain.PendingUpload, error) {
	if status != "" && !status.IsValid() {
		return nil, fmt.Errorf("%w: upload status %q", domain.ErrInvalidInput, status)
	}
	return s.uploads.List(ctx, status)
}

// RetryUpload moves a failed upload back to pending.
func (s *QueueService) RetryUpload(ctx context.Context, id int64) error {
	return s.uploads.Requeue(ctx, id)
}

// DiscardUpload removes an upload that is not in flight.
func (s *QueueService) DiscardUpload(ctx context.Context, id int64) error {
	upload, err := s.uploads.Get(ctx, id)
	if err != nil {
		return err
	}
	if upload.Status == domain.UploadUploading {
		return fmt.Errorf("%w: upload %d is in flight", domain.ErrInvalidInput, id)
	}
	return s.uploads.Delete(ctx, id)
}

// PruneCompleted removes completed uploads.
func (s *QueueService) PruneCompleted(ctx context.Context) (int, error) {
	return s.uploads.RemoveCompleted(ctx)
}

// RecoverInterrupted requeues uploads a crashed run left in the
// uploading state. Call it before any upload run starts.
func (s *QueueService) RecoverInterrupted(ctx context.Context) (int, error) {
	n, err := s.uploads.RequeueInterrupted(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.Info("Requeued %d interrupted uploads", n)
	}
	return n, nil
}

// ListPendingChanges returns unpushed local mutations in push order.
func (s *QueueService) ListPendingChanges(ctx context.Context) ([]domain.PendingChange, error) {
	return s.pending.List(ctx)
}

// RetryPendingChange clears a change's failure count.
func (s *QueueService) RetryPendingChange(ctx context.Context, id int64) error {
	return s.gate.Do(func() error {
		return s.pending.ResetAttempts(ctx, id)
	})
}

// DiscardPendingChange drops a change without pushing it. The cached
// record keeps its local state until the next sync overwrites it.
func (s *QueueService) DiscardPendingChange(ctx context.Context, id int64) error {
	return s.gate.Do(func() error {
		if _, err := s.pending.Get(ctx, id); err != nil {
			return err
		}
		return s.pending.Delete(ctx, id)
	})
}

// Counts summarises both queues.
func (s *QueueService) Counts(ctx context.Context) (*driving.QueueCounts, error) {
	uploads, err := s.uploads.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count uploads: %w", err)
	}
	changes, err := s.pending.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count pending changes: %w", err)
	}
	return &driving.QueueCounts{Uploads: uploads, PendingChanges: changes}, nil
}
