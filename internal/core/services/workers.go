package services

import (
	"context"
	"errors"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
	"github.com/custodia-labs/docsync/internal/logger"
)

// Built-in task specs.
var (
	SyncTaskSpec = driving.TaskSpec{
		ID:              domain.TaskIDDocumentSync,
		Name:            "Document Sync",
		Interval:        domain.DefaultSettings().Sync.Interval,
		Periodic:        true,
		RequiresNetwork: true,
		Backoff:         domain.DefaultTaskBackoff,
	}

	UploadTaskSpec = driving.TaskSpec{
		ID:              domain.TaskIDDocumentUpload,
		Name:            "Document Upload",
		Interval:        domain.DefaultSettings().Upload.Interval,
		Periodic:        true,
		RequiresNetwork: true,
		Backoff:         domain.DefaultTaskBackoff,
	}
)

// SyncWorker runs a full sync. A cycle already in progress counts as
// success.
func SyncWorker(orch driving.SyncOrchestrator) driving.Worker {
	return func(ctx context.Context) domain.WorkResult {
		err := orch.PerformFullSync(ctx)
		if errors.Is(err, domain.ErrSyncInProgress) {
			return domain.WorkSuccess
		}
		if err != nil {
			logger.Error("Sync failed: %v", err)
		}
		return domain.WorkResultFor(err)
	}
}

// UploadWorker drains the upload queue and prunes completed rows after
// a successful run.
func UploadWorker(agent driving.UploadAgent, queue driving.QueueService) driving.Worker {
	return func(ctx context.Context) domain.WorkResult {
		result := agent.DoWork(ctx)
		if result != domain.WorkSuccess {
			return result
		}
		if n, err := queue.PruneCompleted(ctx); err != nil {
			logger.Warn("Failed to prune completed uploads: %v", err)
		} else if n > 0 {
			logger.Debug("Pruned %d completed uploads", n)
		}
		return result
	}
}
