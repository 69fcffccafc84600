package driving

import (
	"context"

	"github.com/custodia-labs/docsync/internal/core/domain"
)

// UploadAgent drains the upload queue.
type UploadAgent interface {
	// DoWork uploads pending items until the queue is empty.
	DoWork(ctx context.Context) domain.WorkResult

	// SetProgress installs a callback receiving per-item progress.
	SetProgress(fn UploadProgressFunc)
}

// UploadProgressFunc receives progress for the upload with the given ID.
type UploadProgressFunc func(uploadID int64, sent, total int64)
