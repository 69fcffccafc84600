package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driven"
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
	"github.com/custodia-labs/docsync/internal/logger"
)

// Ensure UploadAgent implements the interface.
var _ driving.UploadAgent = (*UploadAgent)(nil)

// UploadAgent drains the upload queue one item at a time, oldest first.
type UploadAgent struct {
	queue  driven.UploadQueue
	remote driven.RemoteAPI
	health driving.HealthMonitor

	mu       sync.RWMutex
	progress driving.UploadProgressFunc
}

// NewUploadAgent creates a new upload agent.
func NewUploadAgent(queue driven.UploadQueue, remote driven.RemoteAPI, health driving.HealthMonitor) *UploadAgent {
	return &UploadAgent{
		queue:  queue,
		remote: remote,
		health: health,
	}
}

// SetProgress installs a callback receiving per-item progress.
func (a *UploadAgent) SetProgress(fn driving.UploadProgressFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.progress = fn
}

// DoWork uploads pending items until the queue is empty. An unreachable
// server asks for a retry. Otherwise the run fails only when every
// processed item failed.
func (a *UploadAgent) DoWork(ctx context.Context) domain.WorkResult {
	if a.health.Status().IsUnknown() {
		a.health.CheckServerHealth(ctx)
	}
	if !a.health.IsReachable() {
		logger.Info("Server unreachable, deferring uploads")
		return domain.WorkRetry
	}

	var processed, failed int
	var lastID int64
	for {
		if ctx.Err() != nil {
			logger.Warn("Upload run cancelled after %d items", processed)
			return domain.WorkRetry
		}

		next, err := a.queue.GetNextPendingUpload(ctx)
		if err != nil {
			logger.Error("Failed to read upload queue: %v", err)
			return domain.WorkFailure
		}
		if next == nil {
			break
		}
		if next.ID == lastID {
			logger.Error("Upload %d did not leave the pending state, stopping", next.ID)
			break
		}
		lastID = next.ID

		processed++
		if err := a.uploadOne(ctx, next); err != nil {
			failed++
			logger.Warn("Upload %d failed: %v", next.ID, err)
		}
	}

	if processed > 0 {
		logger.Info("Uploaded %d of %d items", processed-failed, processed)
	}
	if processed > 0 && failed >= processed {
		return domain.WorkFailure
	}
	return domain.WorkSuccess
}

// uploadOne moves an item through uploading to completed or failed.
func (a *UploadAgent) uploadOne(ctx context.Context, upload *domain.PendingUpload) error {
	if err := a.queue.MarkUploading(ctx, upload.ID); err != nil {
		return fmt.Errorf("mark uploading: %w", err)
	}

	result, err := a.send(ctx, upload)
	if err != nil {
		if markErr := a.queue.MarkFailed(ctx, upload.ID, err.Error()); markErr != nil {
			return errors.Join(err, fmt.Errorf("mark failed: %w", markErr))
		}
		return err
	}

	if err := a.queue.MarkCompleted(ctx, upload.ID); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	logger.Info("Upload %d accepted as task %s", upload.ID, result.TaskID)
	return nil
}

// send performs the transfer, turning a panic into an error.
func (a *UploadAgent) send(ctx context.Context, upload *domain.PendingUpload) (res *domain.UploadResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("upload panicked: %v", r)
		}
	}()

	progress := a.progressFor(upload.ID)
	if upload.IsMultiPage() {
		return a.remote.UploadMultiPage(ctx, upload.AllURIs(), upload.Metadata(), progress)
	}
	return a.remote.Upload(ctx, upload.URI, upload.Metadata(), progress)
}

func (a *UploadAgent) progressFor(id int64) domain.ProgressFunc {
	a.mu.RLock()
	fn := a.progress
	a.mu.RUnlock()
	if fn == nil {
		return nil
	}
	return func(sent, total int64) {
		fn(id, sent, total)
	}
}
